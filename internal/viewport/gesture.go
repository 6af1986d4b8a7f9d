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

import "cadpreview/internal/geom"

// ScrollOrientation names the scrollbar that moved.
type ScrollOrientation int

const (
	ScrollHorizontal ScrollOrientation = iota
	ScrollVertical
)

// PointerDown starts a drag when b is the configured drag button.
func (e *Engine) PointerDown(b Button, x, y int) {
	if b != e.opts.DragButton {
		return
	}
	e.emit(Event{Kind: EventCursor, Cursor: CursorGrab})
	e.drag = dragState{lastX: x, lastY: y, dragging: true}
}

// PointerMove pans while dragging and republishes the coordinate readouts.
func (e *Engine) PointerMove(x, y int) {
	if e.handle == nil {
		return
	}
	if e.drag.dragging {
		e.state.Pan(float64(x-e.drag.lastX), float64(y-e.drag.lastY))
		e.drag.lastX, e.drag.lastY = x, y
		e.surface.Invalidate()
		e.setScrollOrigin(e.state.Offset)
	}
	e.state.Pointer = geom.Pt{X: float64(x), Y: float64(y)}
	e.publishPoints(e.state.Pointer)
}

// PointerUp ends any drag regardless of button.
func (e *Engine) PointerUp(Button, int, int) {
	e.drag = dragState{}
	e.emit(Event{Kind: EventCursor, Cursor: CursorDefault})
	e.surface.Invalidate()
}

// Wheel zooms out for negative deltas and in for positive ones, anchored at
// the last pointer position. A zero delta does nothing.
func (e *Engine) Wheel(delta float64) {
	switch {
	case delta < 0:
		e.zoomAnchored(ZoomOutFactor)
	case delta > 0:
		e.zoomAnchored(ZoomInFactor)
	}
}

// DoubleClick resets zoom and centering when a drawing is loaded.
func (e *Engine) DoubleClick() {
	if !e.IsLoaded() {
		return
	}
	e.ResetScaling()
}

// Scroll applies a scrollbar move along one axis. Both values zero is
// treated as a nudge to -5.
func (e *Engine) Scroll(o ScrollOrientation, oldValue, newValue int) {
	if oldValue == 0 && newValue == 0 {
		newValue = -5
	}
	d := float64(newValue - oldValue)
	switch o {
	case ScrollVertical:
		e.state.Offset.Y -= d
	case ScrollHorizontal:
		e.state.Offset.X -= d
	}
	e.surface.Invalidate()
}

// VisibilityChanged resets the view and republishes every readout when the
// surface becomes visible with a drawing loaded.
func (e *Engine) VisibilityChanged() {
	if e.handle == nil || !e.surface.Visible() {
		return
	}
	e.ResetScaling()
	e.emit(Event{Kind: EventStatus, Scale: e.scaleText()})
	e.publishPoints(e.state.Pointer)
}

// RealPoint maps a surface position to drawing units.
func (e *Engine) RealPoint(x, y float64) (geom.Pt, bool) {
	if e.handle == nil {
		return geom.EmptyPoint, false
	}
	return ToDrawing(geom.Pt{X: x, Y: y}, e.state.DestRect(), e.handle.Extents(), !e.handle.Raster())
}

// ScreenPoint maps drawing units back to a surface position.
func (e *Engine) ScreenPoint(p geom.Pt) (geom.Pt, bool) {
	if e.handle == nil {
		return geom.EmptyPoint, false
	}
	return ToScreen(p, e.state.DestRect(), e.handle.Extents(), !e.handle.Raster())
}

func (e *Engine) publishPoints(at geom.Pt) {
	real, ok := e.RealPoint(at.X, at.Y)
	e.emit(Event{Kind: EventRealPoint, Point: real})
	off := geom.EmptyPoint
	if ok {
		off = real.Sub(e.origin)
	}
	e.emit(Event{Kind: EventOffsetPoint, Point: off})
}
