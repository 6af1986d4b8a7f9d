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
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"

	"cadpreview/internal/drawing"
	"cadpreview/internal/geom"
)

type fakeSurface struct {
	size        image.Point
	visible     bool
	bg          color.Color
	cursor      Cursor
	virtual     image.Point
	origin      image.Point
	invalidates int
}

func newFakeSurface(w, h int) *fakeSurface {
	return &fakeSurface{size: image.Pt(w, h), visible: true}
}

func (s *fakeSurface) Size() image.Point               { return s.size }
func (s *fakeSurface) Visible() bool                   { return s.visible }
func (s *fakeSurface) SetBackgroundColor(c color.Color) { s.bg = c }
func (s *fakeSurface) SetCursor(c Cursor)              { s.cursor = c }
func (s *fakeSurface) VirtualSize() image.Point        { return s.virtual }
func (s *fakeSurface) SetVirtualSize(sz image.Point)   { s.virtual = sz }
func (s *fakeSurface) SetScrollOrigin(p image.Point)   { s.origin = p }
func (s *fakeSurface) Invalidate()                     { s.invalidates++ }

type fakeHandle struct {
	ext      geom.Extents
	upp      float64
	raster   bool
	settings drawing.PaintSettings
	loadErr  error
	drawErr  error
	panicMsg string
	loaded   string
	web      bool
	closed   bool
	draws    []geom.Rect
}

func newFakeHandle(w, h float64) *fakeHandle {
	return &fakeHandle{ext: geom.Extents{MaxX: w, MaxY: h}, upp: 1, settings: drawing.DefaultSettings()}
}

func (h *fakeHandle) Extents() geom.Extents            { return h.ext }
func (h *fakeHandle) AbsWidth() float64                { return h.ext.Width() }
func (h *fakeHandle) AbsHeight() float64               { return h.ext.Height() }
func (h *fakeHandle) UnitsPerPixel() float64           { return h.upp }
func (h *fakeHandle) Raster() bool                     { return h.raster }
func (h *fakeHandle) Settings() *drawing.PaintSettings { return &h.settings }
func (h *fakeHandle) LoadFromFile(p string) error      { h.loaded = p; return h.loadErr }
func (h *fakeHandle) LoadFromWeb(_ context.Context, u string) error {
	h.loaded, h.web = u, true
	return h.loadErr
}
func (h *fakeHandle) Draw(_ draw.Image, dest geom.Rect, _ image.Point) error {
	if h.panicMsg != "" {
		panic(h.panicMsg)
	}
	h.draws = append(h.draws, dest)
	return h.drawErr
}
func (h *fakeHandle) Close() error { h.closed = true; return nil }

// fakeFactory hands out queued handles in order.
type fakeFactory struct {
	queue []*fakeHandle
	paths []string
}

func (f *fakeFactory) CreateByExtension(p string) (drawing.Handle, error) {
	f.paths = append(f.paths, p)
	if len(f.queue) == 0 {
		return nil, drawing.ErrUnsupported
	}
	h := f.queue[0]
	f.queue = f.queue[1:]
	return h, nil
}

type recorder struct{ events []Event }

func (r *recorder) listen(e Event) { r.events = append(r.events, e) }

func (r *recorder) kinds() []EventKind {
	out := make([]EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func (r *recorder) last(kind EventKind) (Event, bool) {
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == kind {
			return r.events[i], true
		}
	}
	return Event{}, false
}

func (r *recorder) cursors() []Cursor {
	var out []Cursor
	for _, e := range r.events {
		if e.Kind == EventCursor {
			out = append(out, e.Cursor)
		}
	}
	return out
}

var errBoom = errors.New("boom")

// loaded returns an engine with h loaded into a w×h surface.
func loaded(w, ht int, h *fakeHandle) (*Engine, *fakeSurface, *recorder) {
	s := newFakeSurface(w, ht)
	bus := NewBus()
	rec := &recorder{}
	bus.OnAll(rec.listen)
	e := New(s, bus, &fakeFactory{queue: []*fakeHandle{h}}, DefaultOptions())
	_ = e.LoadFile(context.Background(), "/tmp/plan.dxf")
	return e, s, rec
}
