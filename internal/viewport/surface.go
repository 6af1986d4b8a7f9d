/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package viewport is the interactive 2D view over a loaded drawing: zoom,
// pan, fit-to-view, coordinate readout and render color modes. The engine is
// driven by a host through a narrow Surface and reports back on a Bus.
package viewport

import (
	"image"
	"image/color"
)

// Cursor is a pointer shape the engine asks the host for.
type Cursor int

const (
	CursorDefault Cursor = iota
	CursorGrab
	CursorWait
)

func (c Cursor) String() string {
	switch c {
	case CursorGrab:
		return "grab"
	case CursorWait:
		return "wait"
	default:
		return "default"
	}
}

// Surface is what the engine needs from the widget it draws on.
type Surface interface {
	// Size is the client area in pixels.
	Size() image.Point
	Visible() bool

	SetBackgroundColor(c color.Color)
	SetCursor(c Cursor)
	// VirtualSize is the scrollable extent; it may exceed Size.
	VirtualSize() image.Point
	SetVirtualSize(sz image.Point)
	SetScrollOrigin(p image.Point)
	// Invalidate schedules a repaint.
	Invalidate()
}
