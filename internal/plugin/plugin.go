/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package plugin adapts the viewport engine to a previewer host: the host asks
// whether a path can be shown, prepares a window, hands over a surface for
// viewing and finally cleans up.
package plugin

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cadpreview/internal/config"
	"cadpreview/internal/crash"
	"cadpreview/internal/drawing"
	"cadpreview/internal/drawing/raster"
	"cadpreview/internal/drawing/vecdoc"
	applog "cadpreview/internal/log"
	"cadpreview/internal/offscreen"
	"cadpreview/internal/telemetry"
	"cadpreview/internal/viewport"
)

// CADExtensions are claimed even when no backend for them is registered; the
// load then reports the format as unsupported.
var CADExtensions = []string{".dwg", ".dxf", ".plt", ".cgm"}

// Context is the host's per-preview window state.
type Context struct {
	Title         string
	PreferredSize image.Point
	Busy          bool
	Content       *Panel
	// Err is the last load error shown to the user, if any.
	Err error
}

// SurfaceFunc creates the host widget the engine draws on.
type SurfaceFunc func(size image.Point) viewport.Surface

// Viewer is the previewer entry point. One Viewer serves one preview at a time.
type Viewer struct {
	Registry    *drawing.Registry
	Sizes       SizeStore
	Options     viewport.Options
	DefaultSize image.Point
	// NewSurface defaults to an offscreen surface.
	NewSurface SurfaceFunc
	// DarkTheme reports the host theme; nil means light.
	DarkTheme func() bool
	// Listener receives every engine event, typically a status bar.
	Listener viewport.Listener
	// Telemetry receives anonymous load outcomes; nil disables it.
	Telemetry *telemetry.Client

	panel *Panel
	log   *slog.Logger
}

// NewViewer builds a viewer with the default 900×600 window size.
func NewViewer(reg *drawing.Registry, sizes SizeStore, opts viewport.Options) *Viewer {
	if sizes == nil {
		sizes = &MemorySizeStore{}
	}
	return &Viewer{
		Registry:    reg,
		Sizes:       sizes,
		Options:     opts,
		DefaultSize: image.Pt(900, 600),
		log:         applog.WithComponent("plugin"),
	}
}

// DefaultRegistry registers the built-in backends.
func DefaultRegistry(f *drawing.Fetcher) *drawing.Registry {
	r := drawing.NewRegistry()
	raster.Register(r, f)
	vecdoc.Register(r, f)
	return r
}

// FromConfig wires a viewer from the user configuration. token authenticates
// remote downloads and may be empty.
func FromConfig(cfg config.AppConfig, token string, sizes SizeStore, systemDark func() bool) (*Viewer, error) {
	btn, err := viewport.ParseButton(cfg.Viewer.DragButton)
	if err != nil {
		return nil, err
	}
	f := drawing.NewFetcher(cfg.Web.Timeout(), cfg.Web.UserAgent, token, cfg.Web.MaxBytes)
	v := NewViewer(DefaultRegistry(f), sizes, viewport.Options{
		DragButton:     btn,
		Inverted:       cfg.Viewer.Inverted,
		TextVisible:    cfg.Viewer.TextVisible,
		ShowLineWeight: cfg.Viewer.ShowLineWeight,
	})
	if cfg.Viewer.Width > 0 && cfg.Viewer.Height > 0 {
		v.DefaultSize = image.Pt(cfg.Viewer.Width, cfg.Viewer.Height)
	}
	v.Telemetry = telemetry.Default()
	v.DarkTheme = func() bool {
		sys := false
		if systemDark != nil {
			sys = systemDark()
		}
		return cfg.General.DarkTheme(sys)
	}
	return v, nil
}

// CanHandle reports whether path is a file with one of the CAD suffixes. The
// built-in image and document backends are not claimed for the host.
func (v *Viewer) CanHandle(p string) bool {
	if !drawing.IsWebPath(p) {
		if fi, err := os.Stat(p); err == nil && fi.IsDir() {
			return false
		}
	}
	lp := strings.ToLower(p)
	for _, ext := range CADExtensions {
		if strings.HasSuffix(lp, ext) {
			return true
		}
	}
	return false
}

// CanOpen is CanHandle widened to every registered backend. The standalone
// window and the CLI use it; hosts use CanHandle.
func (v *Viewer) CanOpen(p string) bool {
	if v.CanHandle(p) {
		return true
	}
	if !drawing.IsWebPath(p) {
		if fi, err := os.Stat(p); err == nil && fi.IsDir() {
			return false
		}
	}
	return v.Registry != nil && v.Registry.Supports(p)
}

// Prepare sets the preferred window size to the last used one.
func (v *Viewer) Prepare(ctx context.Context, _ string, c *Context) {
	c.PreferredSize = v.DefaultSize
	w, h, ok, err := v.Sizes.LastViewportSize(ctx)
	if err != nil {
		v.log.Warn("read last viewport size", slog.Any("err", err))
		return
	}
	if ok {
		c.PreferredSize = image.Pt(w, h)
	}
}

// View builds the panel, loads path and hands the panel to the host. A load
// failure leaves the panel in place and is returned as well as stored in c.Err.
func (v *Viewer) View(ctx context.Context, p string, c *Context) error {
	l := applog.WithOperation(v.log, "view").With(slog.String("path", p))
	c.Title = DisplayName(p)
	c.Busy = true
	defer func() { c.Busy = false }()

	size := c.PreferredSize
	if size.X <= 0 || size.Y <= 0 {
		size = v.DefaultSize
	}
	start := time.Now()
	var loadErr error
	err := crash.Guard("plugin", func() {
		newSurface := v.NewSurface
		if newSurface == nil {
			newSurface = func(sz image.Point) viewport.Surface { return offscreen.NewSurface(sz.X, sz.Y) }
		}
		panel := NewPanel(newSurface(size), v.Registry, v.Options)
		if v.Listener != nil {
			panel.Bus.OnAll(v.Listener)
		}
		dark := false
		if v.DarkTheme != nil {
			dark = v.DarkTheme()
		}
		panel.SetTheme(dark)
		v.panel = panel
		loadErr = panel.LoadFile(ctx, p)
		c.Content = panel
	})
	if err == nil {
		err = loadErr
	}
	isRaster := false
	if c.Content != nil && c.Content.Engine.IsLoaded() {
		isRaster = c.Content.Engine.Handle().Raster()
	}
	v.Telemetry.PreviewLoaded(drawing.Ext(p), isRaster, time.Since(start), err)
	c.Err = err
	if err != nil {
		l.Error("preview failed", slog.Any("err", err))
		return err
	}
	l.Info("preview ready")
	return nil
}

// Cleanup remembers the panel size for the next Prepare and releases the drawing.
func (v *Viewer) Cleanup(ctx context.Context) error {
	if v.panel == nil {
		return nil
	}
	p := v.panel
	v.panel = nil
	if sz := p.Size(); sz.X > 0 && sz.Y > 0 {
		if err := v.Sizes.SaveViewportSize(ctx, sz.X, sz.Y); err != nil {
			v.log.Warn("persist viewport size", slog.Any("err", err))
		}
	}
	if err := p.Close(); err != nil {
		return fmt.Errorf("close panel: %w", err)
	}
	return nil
}

// Panel is the active preview panel, or nil.
func (v *Viewer) Panel() *Panel { return v.panel }

// DisplayName is the file name of a path or URL.
func DisplayName(p string) string {
	if drawing.IsWebPath(p) {
		if u, err := url.Parse(p); err == nil && u.Path != "" && u.Path != "/" {
			return path.Base(u.Path)
		}
		return p
	}
	return filepath.Base(p)
}
