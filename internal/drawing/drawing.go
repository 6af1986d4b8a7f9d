/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package drawing defines the boundary between the viewport engine and the
// backends that actually parse and paint a drawing.
package drawing

import (
	"context"
	"image"
	"image/color"
	"image/draw"

	"cadpreview/internal/geom"
)

// DrawMode selects how entity colors are rendered.
type DrawMode int

const (
	DrawNormal DrawMode = iota
	DrawInverted
)

func (m DrawMode) String() string {
	if m == DrawInverted {
		return "inverted"
	}
	return "normal"
}

var (
	White = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	Black = color.NRGBA{A: 0xff}
)

// PaintSettings are the knobs the viewport pushes into a loaded drawing.
type PaintSettings struct {
	DefaultColor    color.NRGBA
	BackgroundColor color.NRGBA
	DrawMode        DrawMode
	TextVisible     bool
	ShowLineWeight  bool
}

// DefaultSettings is the dark pair with text shown, matching a freshly created drawing.
func DefaultSettings() PaintSettings {
	return PaintSettings{DefaultColor: White, BackgroundColor: Black, TextVisible: true}
}

// Apply returns c as it should be painted under the current draw mode.
func (s PaintSettings) Apply(c color.NRGBA) color.NRGBA {
	if s.DrawMode == DrawInverted {
		return Invert(c)
	}
	return c
}

// Invert complements the RGB channels and keeps alpha.
func Invert(c color.NRGBA) color.NRGBA {
	return color.NRGBA{R: 0xff - c.R, G: 0xff - c.G, B: 0xff - c.B, A: c.A}
}

// Handle is a loaded drawing. Implementations are not safe for concurrent use.
type Handle interface {
	// Extents is the bounding box in drawing units.
	Extents() geom.Extents
	AbsWidth() float64
	AbsHeight() float64
	// UnitsPerPixel converts drawing units to screen pixels for the scale readout.
	UnitsPerPixel() float64
	// Raster reports an image-backed drawing: native pixel extents, Y axis pointing down.
	Raster() bool
	Settings() *PaintSettings

	LoadFromFile(path string) error
	LoadFromWeb(ctx context.Context, url string) error

	// Draw paints the drawing scaled into dest on dst. Pixels outside the
	// viewport rectangle (0,0)-(viewport) need not be painted.
	Draw(dst draw.Image, dest geom.Rect, viewport image.Point) error
	Close() error
}

// Factory creates an empty handle suited to a path.
type Factory interface {
	CreateByExtension(path string) (Handle, error)
}
