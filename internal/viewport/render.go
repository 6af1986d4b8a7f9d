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
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"math"

	"cadpreview/internal/crash"
	"cadpreview/internal/geom"
)

// maxPixel bounds values converted to surface pixels.
const maxPixel = math.MaxInt32

// Paint renders one frame into dst, which covers the surface's client area.
// Backend errors and panics are contained: the frame is skipped and no status
// is published. Only the first panic of a loaded drawing writes a crash report.
// It reports whether a frame was painted.
func (e *Engine) Paint(dst draw.Image) bool {
	if e.handle == nil || !e.surface.Visible() {
		return false
	}
	guard := crash.Guard
	if e.panicked {
		guard = crash.Contain
	}
	var drawErr error
	err := guard("render", func() {
		drawErr = e.drawFrame(dst)
	})
	var pe *crash.PanicError
	if errors.As(err, &pe) {
		e.panicked = true
	}
	if err == nil {
		err = drawErr
	}
	if err != nil {
		e.log.Debug("frame skipped", slog.Any("err", err))
		return false
	}
	e.emit(Event{Kind: EventStatus, Scale: e.scaleText()})
	return true
}

func (e *Engine) drawFrame(dst draw.Image) error {
	e.state.AnchorShift()
	dest := e.state.DestRect()
	e.growVirtualSize(dest)
	e.setScrollOrigin(e.state.Offset)
	draw.Draw(dst, dst.Bounds(), image.NewUniform(e.background), image.Point{}, draw.Src)
	return e.handle.Draw(dst, dest, e.surface.Size())
}

// growVirtualSize sets the scrollable extent to the drawn size, extended on
// whichever edge the drawing overflows.
func (e *Engine) growVirtualSize(dest geom.Rect) {
	if !fitsPixels(dest.X, dest.Y, dest.W, dest.H) {
		e.log.Warn("virtual size out of range", slog.Any("dest", dest))
		return
	}
	box := e.surface.Size()
	bw, bh := float64(box.X), float64(box.Y)
	pos := e.state.Offset
	w, h := int(dest.W), int(dest.H)
	withinBox := dest.W <= bw || dest.H <= bh
	overflow := pos.X < 0 || pos.Y < 0 || pos.X+float64(w) > bw || pos.Y+float64(h) > bh
	if overflow && withinBox {
		if pos.X < 0 {
			w = int(bw - pos.X)
		}
		if pos.Y < 0 {
			h = int(bh - pos.Y)
		}
		if pos.X+float64(w) > bw {
			w = int(bw + pos.X)
		}
		if pos.Y+float64(h) > bh {
			h = int(bh + pos.Y)
		}
	}
	e.surface.SetVirtualSize(image.Pt(w, h))
}

// setScrollOrigin mirrors a negative offset into the scroll position, clamped
// to the virtual size. Unrepresentable offsets leave the position unchanged.
func (e *Engine) setScrollOrigin(offset geom.Pt) {
	if !fitsPixels(offset.X, offset.Y) {
		e.log.Warn("scroll origin not updated", slog.String("offset", fmt.Sprintf("%v,%v", offset.X, offset.Y)))
		return
	}
	vs := e.surface.VirtualSize()
	var x, y int
	if offset.X <= 0 {
		x = min(int(math.Abs(offset.X)), vs.X)
	}
	if offset.Y <= 0 {
		y = min(int(math.Abs(offset.Y)), vs.Y)
	}
	e.surface.SetScrollOrigin(image.Pt(x, y))
}

func fitsPixels(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > maxPixel {
			return false
		}
	}
	return true
}

// ScaleText is the current scale percentage with two decimals.
func (e *Engine) ScaleText() string { return e.scaleText() }

func (e *Engine) scaleText() string {
	if e.handle == nil || e.handle.AbsWidth() == 0 {
		return fmt.Sprintf("%.2f", e.state.Zoom)
	}
	s := e.state.VisibleArea.W * e.state.Zoom / e.handle.AbsWidth() * e.handle.UnitsPerPixel() * 100
	return fmt.Sprintf("%.2f", s)
}
