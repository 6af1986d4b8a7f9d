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
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"strings"
	"time"

	"cadpreview/internal/drawing"
	"cadpreview/internal/geom"
	applog "cadpreview/internal/log"
)

// Button identifies a pointer button.
type Button int

const (
	ButtonLeft Button = iota
	ButtonRight
	ButtonMiddle
)

// ParseButton accepts "left", "right" or "middle".
func ParseButton(s string) (Button, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return ButtonLeft, nil
	case "right", "":
		return ButtonRight, nil
	case "middle":
		return ButtonMiddle, nil
	}
	return ButtonRight, fmt.Errorf("unknown drag button %q", s)
}

// Options are the per-panel defaults applied on every load.
type Options struct {
	DragButton     Button
	Dark           bool
	Inverted       bool
	TextVisible    bool
	ShowLineWeight bool
}

func DefaultOptions() Options {
	return Options{DragButton: ButtonRight, TextVisible: true}
}

// ErrNoPath is returned by LoadFile for an empty path.
var ErrNoPath = errors.New("no drawing path")

type dragState struct {
	lastX, lastY int
	dragging     bool
}

// Engine is the viewport of one preview panel. It is not safe for concurrent
// use: hosts call it from their UI goroutine.
type Engine struct {
	surface Surface
	bus     *Bus
	factory drawing.Factory
	opts    Options
	log     *slog.Logger

	handle drawing.Handle
	state  State
	drag   dragState
	origin geom.Pt

	dark        bool
	normalMode  bool
	textVisible bool
	background  color.NRGBA
	selection   color.NRGBA
	lastPath    string

	// panicked is set once the current handle has panicked while drawing.
	panicked bool
}

// New builds an engine drawing on s and reporting on bus. bus may be nil.
func New(s Surface, bus *Bus, f drawing.Factory, opts Options) *Engine {
	e := &Engine{
		surface:     s,
		bus:         bus,
		factory:     f,
		opts:        opts,
		log:         applog.WithComponent("viewport"),
		state:       NewState(),
		dark:        opts.Dark,
		normalMode:  !opts.Inverted,
		textVisible: opts.TextVisible,
		background:  drawing.Black,
		selection:   drawing.White,
	}
	s.SetBackgroundColor(e.background)
	s.SetCursor(CursorDefault)
	return e
}

// LoadFile replaces the current drawing with the one at path (a file or an
// http(s) URL). The previous drawing is closed first. On a load error the new
// handle is still installed so the host can inspect it.
func (e *Engine) LoadFile(ctx context.Context, path string) error {
	if path == "" {
		return ErrNoPath
	}
	l := applog.WithOperation(e.log, "load").With(slog.String("path", path))
	start := time.Now()

	if e.handle != nil {
		if err := e.handle.Close(); err != nil {
			l.Warn("close previous drawing", slog.Any("err", err))
		}
		e.handle = nil
	}
	e.emit(Event{Kind: EventCursor, Cursor: CursorWait})
	e.state.Zoom, e.state.ZoomPrev = 1, 1
	e.state.Offset = geom.Pt{}

	h, err := e.factory.CreateByExtension(path)
	if err != nil {
		l.Error("no backend for drawing", slog.Any("err", err))
		e.lastPath = path
		e.emit(Event{Kind: EventCursor, Cursor: CursorDefault})
		e.emit(Event{Kind: EventLoaded, Path: path, Err: err})
		return err
	}
	var loadErr error
	if drawing.IsWebPath(path) {
		loadErr = h.LoadFromWeb(ctx, path)
	} else {
		loadErr = h.LoadFromFile(path)
	}
	if loadErr != nil {
		loadErr = fmt.Errorf("load %s: %w", path, loadErr)
		l.Error("load failed", slog.Any("err", loadErr))
	}
	// Installed only once fully loaded; a paint during the load sees nil.
	e.handle = h
	e.panicked = false
	e.lastPath = path
	e.applyOptions()

	l.Info("drawing loaded",
		slog.Float64("abs_w", h.AbsWidth()), slog.Float64("abs_h", h.AbsHeight()),
		slog.Bool("raster", h.Raster()), slog.Duration("dur", time.Since(start)))
	e.emit(Event{Kind: EventLoaded, Path: path, Err: loadErr})
	return loadErr
}

func (e *Engine) applyOptions() {
	e.handle.Settings().ShowLineWeight = e.opts.ShowLineWeight
	e.emit(Event{Kind: EventCursor, Cursor: CursorDefault})
	e.SetBackground(e.dark)
	e.SetDrawMode(e.normalMode)
	e.SetTextVisible(e.textVisible)
	e.Resize()
	e.setScrollOrigin(e.state.Offset)
}

// Resize refits the drawing to the current surface size and recenters. A
// size that cannot be fitted leaves the state untouched.
func (e *Engine) Resize() {
	if e.handle == nil {
		return
	}
	st := e.state
	st.Viewport = e.surface.Size()
	if !Fit(&st, geom.Size{W: e.handle.AbsWidth(), H: e.handle.AbsHeight()}, e.handle.Raster()) {
		e.log.Debug("fit skipped", slog.Int("vh", st.Viewport.Y), slog.Float64("abs_h", e.handle.AbsHeight()))
		return
	}
	e.state = st
	e.surface.Invalidate()
}

// ResetScaling returns to zoom 1 and recenters the fitted drawing.
func (e *Engine) ResetScaling() {
	e.state.Viewport = e.surface.Size()
	e.state.ResetScaling()
	e.surface.Invalidate()
}

func (e *Engine) zoom(f float64) {
	if e.handle == nil {
		return
	}
	e.state.ApplyZoom(f)
	e.surface.Invalidate()
}

func (e *Engine) zoomAnchored(f float64) {
	e.zoom(f)
	e.state.AnchorShift()
	e.setScrollOrigin(e.state.Offset)
}

func (e *Engine) ZoomIn()  { e.zoomAnchored(ZoomInFactor) }
func (e *Engine) ZoomOut() { e.zoomAnchored(ZoomOutFactor) }

// ZoomFit zooms by ratio around the last pointer position. Non-positive or
// non-finite ratios are ignored.
func (e *Engine) ZoomFit(ratio float64) {
	if !(ratio > 0) || math.IsInf(ratio, 0) {
		e.log.Warn("zoom ratio ignored", slog.Float64("ratio", ratio))
		return
	}
	e.zoomAnchored(ratio)
}

// Close releases the drawing. The engine must not be used afterwards.
func (e *Engine) Close() error {
	if e.handle == nil {
		return nil
	}
	err := e.handle.Close()
	e.handle = nil
	e.panicked = false
	return err
}

func (e *Engine) emit(ev Event) { e.bus.Emit(ev) }

func (e *Engine) IsLoaded() bool          { return e.handle != nil }
func (e *Engine) Handle() drawing.Handle  { return e.handle }
func (e *Engine) State() State            { return e.state }
func (e *Engine) LastLoadedPath() string  { return e.lastPath }
func (e *Engine) OriginPoint() geom.Pt    { return e.origin }
func (e *Engine) SetOriginPoint(p geom.Pt) { e.origin = p }

// IsDark is the host theme flag used for the background on the next load.
func (e *Engine) IsDark() bool     { return e.dark }
func (e *Engine) SetDark(dark bool) { e.dark = dark }
