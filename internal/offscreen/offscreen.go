/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package offscreen renders drawings without a window, for thumbnails, the
// CLI and tests.
package offscreen

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"cadpreview/internal/drawing"
	applog "cadpreview/internal/log"
	"cadpreview/internal/viewport"
)

// ErrNotPainted is returned when the engine skipped the frame.
var ErrNotPainted = errors.New("frame not painted")

// Surface is an in-memory viewport.Surface.
type Surface struct {
	size    image.Point
	visible bool
	bg      color.Color
	cursor  viewport.Cursor
	virtual image.Point
	origin  image.Point
	dirty   int
}

func NewSurface(w, h int) *Surface {
	return &Surface{size: image.Pt(w, h), visible: true, bg: color.Black}
}

func (s *Surface) Size() image.Point                { return s.size }
func (s *Surface) Visible() bool                    { return s.visible }
func (s *Surface) SetBackgroundColor(c color.Color) { s.bg = c }
func (s *Surface) SetCursor(c viewport.Cursor)      { s.cursor = c }
func (s *Surface) VirtualSize() image.Point         { return s.virtual }
func (s *Surface) SetVirtualSize(sz image.Point)    { s.virtual = sz }
func (s *Surface) SetScrollOrigin(p image.Point)    { s.origin = p }
func (s *Surface) Invalidate()                      { s.dirty++ }

func (s *Surface) Resize(w, h int)        { s.size = image.Pt(w, h) }
func (s *Surface) SetVisible(v bool)      { s.visible = v }
func (s *Surface) Background() color.Color { return s.bg }
func (s *Surface) Cursor() viewport.Cursor { return s.cursor }
func (s *Surface) ScrollOrigin() image.Point { return s.origin }

// Dirty reports and clears pending invalidations.
func (s *Surface) Dirty() bool {
	d := s.dirty > 0
	s.dirty = 0
	return d
}

// Frame paints the engine's current view into a new image of the surface size.
func (s *Surface) Frame(e *viewport.Engine) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rectangle{Max: s.size})
	if !e.Paint(img) {
		return nil, ErrNotPainted
	}
	return img, nil
}

// Options configure a one-shot render.
type Options struct {
	Width, Height  int
	Dark           bool
	Inverted       bool
	TextVisible    bool
	ShowLineWeight bool
}

// Info describes the rendered drawing.
type Info struct {
	Scale     string
	AbsWidth  float64
	AbsHeight float64
	Units     float64
	Raster    bool
}

// Render loads path, fits it into Width×Height and paints one frame.
func Render(ctx context.Context, f drawing.Factory, path string, o Options) (*image.RGBA, Info, error) {
	if o.Width <= 0 || o.Height <= 0 {
		return nil, Info{}, fmt.Errorf("invalid render size %dx%d", o.Width, o.Height)
	}
	l := applog.WithOperation(applog.WithComponent("offscreen"), "render")
	s := NewSurface(o.Width, o.Height)
	e := viewport.New(s, nil, f, viewport.Options{
		DragButton:     viewport.ButtonRight,
		Dark:           o.Dark,
		Inverted:       o.Inverted,
		TextVisible:    o.TextVisible,
		ShowLineWeight: o.ShowLineWeight,
	})
	defer func() {
		if err := e.Close(); err != nil {
			l.Warn("close drawing", slog.Any("err", err))
		}
	}()
	if err := e.LoadFile(ctx, path); err != nil {
		return nil, Info{}, err
	}
	img, err := s.Frame(e)
	if err != nil {
		return nil, Info{}, fmt.Errorf("render %s: %w", path, err)
	}
	h := e.Handle()
	info := Info{
		Scale:     e.ScaleText(),
		AbsWidth:  h.AbsWidth(),
		AbsHeight: h.AbsHeight(),
		Units:     h.UnitsPerPixel(),
		Raster:    h.Raster(),
	}
	l.Debug("rendered", slog.String("path", path), slog.String("scale", info.Scale))
	return img, info, nil
}
