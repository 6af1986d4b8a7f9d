//go:build fyne

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image"
	"image/color"
	"image/draw"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"cadpreview/internal/viewport"
)

// DrawingView is the panel widget: it forwards pointer input to an engine and
// shows the frames the engine paints into a raster.
type DrawingView struct {
	widget.BaseWidget

	raster  *canvas.Raster
	engine  *viewport.Engine
	size    image.Point
	bg      color.Color
	cursor  viewport.Cursor
	virtual image.Point
	origin  image.Point
}

func NewDrawingView(size image.Point) *DrawingView {
	v := &DrawingView{size: size, bg: color.Black}
	v.raster = canvas.NewRaster(v.render)
	v.raster.SetMinSize(fyne.NewSize(200, 150))
	v.ExtendBaseWidget(v)
	return v
}

// Attach sets the engine receiving input. Call once the panel exists.
func (v *DrawingView) Attach(e *viewport.Engine) {
	v.engine = e
	v.raster.Refresh()
}

// Surface is the engine's view of this widget.
func (v *DrawingView) Surface() viewport.Surface { return viewSurface{v} }

func (v *DrawingView) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.raster)
}

func (v *DrawingView) Resize(sz fyne.Size) {
	v.BaseWidget.Resize(sz)
	v.size = image.Pt(int(sz.Width), int(sz.Height))
	if v.engine != nil {
		v.engine.Resize()
	}
}

func (v *DrawingView) Show() {
	v.BaseWidget.Show()
	v.visibilityChanged()
}

func (v *DrawingView) Hide() {
	v.BaseWidget.Hide()
	v.visibilityChanged()
}

func (v *DrawingView) visibilityChanged() {
	if v.engine != nil {
		v.engine.VisibilityChanged()
	}
}

// render paints at logical size; the raster scales to device pixels.
func (v *DrawingView) render(_, _ int) image.Image {
	img := image.NewRGBA(image.Rectangle{Max: v.size})
	if v.engine == nil || !v.engine.Paint(img) {
		draw.Draw(img, img.Bounds(), image.NewUniform(v.bg), image.Point{}, draw.Src)
	}
	return img
}

func (v *DrawingView) MouseDown(e *desktop.MouseEvent) {
	if b, ok := buttonOf(e.Button); ok && v.engine != nil {
		v.engine.PointerDown(b, int(e.Position.X), int(e.Position.Y))
	}
}

func (v *DrawingView) MouseUp(e *desktop.MouseEvent) {
	if b, ok := buttonOf(e.Button); ok && v.engine != nil {
		v.engine.PointerUp(b, int(e.Position.X), int(e.Position.Y))
	}
}

func (v *DrawingView) MouseIn(*desktop.MouseEvent) {}
func (v *DrawingView) MouseOut()                   {}

func (v *DrawingView) MouseMoved(e *desktop.MouseEvent) {
	if v.engine != nil {
		v.engine.PointerMove(int(e.Position.X), int(e.Position.Y))
	}
}

func (v *DrawingView) Scrolled(e *fyne.ScrollEvent) {
	if v.engine != nil {
		v.engine.Wheel(float64(e.Scrolled.DY))
	}
}

func (v *DrawingView) DoubleTapped(*fyne.PointEvent) {
	if v.engine != nil {
		v.engine.DoubleClick()
	}
}

// Cursor maps the engine's request onto the shapes fyne offers; there is no
// busy cursor, so a wait request shows the default arrow.
func (v *DrawingView) Cursor() desktop.Cursor {
	if v.cursor == viewport.CursorGrab {
		return desktop.PointerCursor
	}
	return desktop.DefaultCursor
}

func buttonOf(b desktop.MouseButton) (viewport.Button, bool) {
	switch b {
	case desktop.MouseButtonPrimary:
		return viewport.ButtonLeft, true
	case desktop.MouseButtonSecondary:
		return viewport.ButtonRight, true
	case desktop.MouseButtonTertiary:
		return viewport.ButtonMiddle, true
	}
	return 0, false
}

// viewSurface adapts DrawingView to viewport.Surface; the widget's own Size
// method returns fyne units and cannot satisfy the interface directly.
type viewSurface struct{ v *DrawingView }

func (s viewSurface) Size() image.Point                { return s.v.size }
func (s viewSurface) Visible() bool                    { return s.v.Visible() }
func (s viewSurface) SetBackgroundColor(c color.Color) { s.v.bg = c }
func (s viewSurface) SetCursor(c viewport.Cursor)      { s.v.cursor = c }
func (s viewSurface) VirtualSize() image.Point         { return s.v.virtual }
func (s viewSurface) SetVirtualSize(sz image.Point)    { s.v.virtual = sz }
func (s viewSurface) SetScrollOrigin(p image.Point)    { s.v.origin = p }
func (s viewSurface) Invalidate()                      { fyne.Do(s.v.raster.Refresh) }
