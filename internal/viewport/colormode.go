/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package viewport

import (
	"image/color"

	"cadpreview/internal/drawing"
)

// SetBackground switches between the dark pair (white on black) and the light
// pair (black on white). It updates the surface, the drawing and the
// selection color, and reports whether the background is now black.
func (e *Engine) SetBackground(dark bool) bool {
	fg, bg := drawing.Black, drawing.White
	if dark {
		fg, bg = drawing.White, drawing.Black
	}
	e.background = bg
	e.selection = fg
	e.surface.SetBackgroundColor(bg)
	if e.handle != nil {
		s := e.handle.Settings()
		s.DefaultColor = fg
		s.BackgroundColor = bg
	}
	return e.IsBlackBackground()
}

// SetDrawMode selects normal or inverted entity colors and reports whether
// the mode is normal. The choice is remembered for later loads.
func (e *Engine) SetDrawMode(normal bool) bool {
	e.normalMode = normal
	if e.handle != nil {
		mode := drawing.DrawNormal
		if !normal {
			mode = drawing.DrawInverted
		}
		e.handle.Settings().DrawMode = mode
		e.surface.Invalidate()
	}
	return e.IsNormalDrawMode()
}

// SetTextVisible shows or hides drawing text and returns the new value.
func (e *Engine) SetTextVisible(visible bool) bool {
	e.textVisible = visible
	if e.handle != nil {
		e.handle.Settings().TextVisible = visible
	}
	e.surface.Invalidate()
	return e.textVisible
}

// ToggleTextVisible flips text visibility and returns the new value.
func (e *Engine) ToggleTextVisible() bool { return e.SetTextVisible(!e.textVisible) }

func (e *Engine) IsBlackBackground() bool     { return e.background == drawing.Black }
func (e *Engine) IsNormalDrawMode() bool      { return e.normalMode }
func (e *Engine) TextVisible() bool           { return e.textVisible }
func (e *Engine) SelectionColor() color.NRGBA { return e.selection }
func (e *Engine) Background() color.NRGBA     { return e.background }
