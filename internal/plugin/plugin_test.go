/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cadpreview/internal/config"
	"cadpreview/internal/crash"
	"cadpreview/internal/drawing"
	"cadpreview/internal/offscreen"
	"cadpreview/internal/storage"
	"cadpreview/internal/telemetry"
	"cadpreview/internal/viewport"
)

const lineDoc = `{"entities": [{"type": "line", "points": [[0, 0], [300, 200]]}]}`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCanHandle(t *testing.T) {
	v := NewViewer(DefaultRegistry(nil), nil, viewport.DefaultOptions())
	for _, p := range []string{"/x/plan.DXF", "a.dwg", "b.plt", "C.CGM", "https://host/a.dxf"} {
		if !v.CanHandle(p) {
			t.Fatalf("%s should be handled", p)
		}
	}
	for _, p := range []string{"notes.txt", "archive.dxf.zip", "", "sheet.cpv", "scan.png", "scan.JPG", "x.webp"} {
		if v.CanHandle(p) {
			t.Fatalf("%s should not be handled", p)
		}
	}
	dir := filepath.Join(t.TempDir(), "folder.dxf")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if v.CanHandle(dir) || v.CanOpen(dir) {
		t.Fatalf("directories must be rejected")
	}
}

func TestCanOpenIncludesRegisteredBackends(t *testing.T) {
	v := NewViewer(DefaultRegistry(nil), nil, viewport.DefaultOptions())
	for _, p := range []string{"plan.dxf", "sheet.cpv", "scan.JPG", "https://host/x.webp"} {
		if !v.CanOpen(p) {
			t.Fatalf("%s should open", p)
		}
	}
	if v.CanOpen("notes.txt") {
		t.Fatalf("notes.txt should not open")
	}
}

func TestPrepareUsesLastSize(t *testing.T) {
	sizes := &MemorySizeStore{}
	v := NewViewer(DefaultRegistry(nil), sizes, viewport.DefaultOptions())
	var c Context
	v.Prepare(context.Background(), "a.dxf", &c)
	if c.PreferredSize != image.Pt(900, 600) {
		t.Fatalf("default size = %v", c.PreferredSize)
	}
	_ = sizes.SaveViewportSize(context.Background(), 1024, 768)
	v.Prepare(context.Background(), "a.dxf", &c)
	if c.PreferredSize != image.Pt(1024, 768) {
		t.Fatalf("last size = %v", c.PreferredSize)
	}
}

func TestViewLifecycle(t *testing.T) {
	ctx := context.Background()
	sizes := &MemorySizeStore{}
	v := NewViewer(DefaultRegistry(nil), sizes, viewport.DefaultOptions())
	v.DarkTheme = func() bool { return true }
	var events []viewport.Event
	v.Listener = func(e viewport.Event) { events = append(events, e) }

	p := writeFile(t, "plan.cpv", lineDoc)
	var c Context
	v.Prepare(ctx, p, &c)
	c.PreferredSize = image.Pt(300, 200)
	if err := v.View(ctx, p, &c); err != nil {
		t.Fatalf("View: %v", err)
	}
	if c.Title != "plan.cpv" || c.Busy || c.Content == nil || c.Err != nil {
		t.Fatalf("context after view: %+v", c)
	}
	eng := c.Content.Engine
	if !eng.IsLoaded() || !eng.IsBlackBackground() {
		t.Fatalf("engine not loaded with dark theme")
	}
	if len(events) == 0 {
		t.Fatalf("listener received no events")
	}
	surf := c.Content.Surface.(*offscreen.Surface)
	if surf.Cursor() != viewport.CursorDefault {
		t.Fatalf("cursor after load = %v", surf.Cursor())
	}
	if _, err := surf.Frame(eng); err != nil {
		t.Fatalf("frame: %v", err)
	}
	eng.PointerDown(viewport.ButtonRight, 5, 5)
	eng.PointerUp(viewport.ButtonRight, 5, 5)
	var cursors []viewport.Cursor
	for _, e := range events {
		if e.Kind == viewport.EventCursor {
			cursors = append(cursors, e.Cursor)
		}
	}
	if n := len(cursors); n < 2 || cursors[n-2] != viewport.CursorGrab || cursors[n-1] != viewport.CursorDefault {
		t.Fatalf("listener cursor sequence = %v", cursors)
	}
	if surf.Cursor() != viewport.CursorDefault {
		t.Fatalf("cursor after drag = %v", surf.Cursor())
	}

	surf.Resize(640, 480)
	if err := v.Cleanup(ctx); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if eng.IsLoaded() || v.Panel() != nil {
		t.Fatalf("cleanup did not release the panel")
	}
	if w, h, ok, _ := sizes.LastViewportSize(ctx); !ok || w != 640 || h != 480 {
		t.Fatalf("persisted size = %d,%d,%v", w, h, ok)
	}
	if err := v.Cleanup(ctx); err != nil {
		t.Fatalf("second Cleanup: %v", err)
	}
}

func TestViewReportsUnsupportedFormat(t *testing.T) {
	v := NewViewer(DefaultRegistry(nil), nil, viewport.DefaultOptions())
	var c Context
	err := v.View(context.Background(), writeFile(t, "plan.dxf", "0\nSECTION\n"), &c)
	if !errors.Is(err, drawing.ErrUnsupported) || !errors.Is(c.Err, drawing.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if c.Busy || c.Content == nil {
		t.Fatalf("panel must still be handed over: %+v", c)
	}
}

func TestViewContainsPanics(t *testing.T) {
	crash.SetReportDir(t.TempDir())
	defer crash.SetReportDir("")
	v := NewViewer(DefaultRegistry(nil), nil, viewport.DefaultOptions())
	v.NewSurface = func(image.Point) viewport.Surface { panic("no display") }
	var c Context
	err := v.View(context.Background(), "a.cpv", &c)
	if err == nil || c.Busy {
		t.Fatalf("expected contained panic, got %v busy=%v", err, c.Busy)
	}
}

func TestFromConfigAndSqliteSizes(t *testing.T) {
	cache, err := storage.Open(t.TempDir(), 10)
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	cfg := config.Defaults()
	cfg.General.Theme = "dark"
	cfg.Viewer.Width, cfg.Viewer.Height = 400, 300
	cfg.Viewer.DragButton = "left"
	v, err := FromConfig(cfg, "", cache, nil)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if v.DefaultSize != image.Pt(400, 300) || v.Options.DragButton != viewport.ButtonLeft || !v.DarkTheme() {
		t.Fatalf("viewer not configured: %+v", v)
	}
	ctx := context.Background()
	var c Context
	v.Prepare(ctx, "", &c)
	if err := v.View(ctx, writeFile(t, "a.cpv", lineDoc), &c); err != nil {
		t.Fatal(err)
	}
	if err := v.Cleanup(ctx); err != nil {
		t.Fatal(err)
	}
	if w, h, ok, err := cache.LastViewportSize(ctx); err != nil || !ok || w != 400 || h != 300 {
		t.Fatalf("sqlite size = %d,%d,%v,%v", w, h, ok, err)
	}

	cfg.Viewer.DragButton = "thumb"
	if _, err := FromConfig(cfg, "", nil, nil); err == nil {
		t.Fatalf("expected drag button error")
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"/a/b/plan.dxf":                 "plan.dxf",
		"https://host/dir/site.dwg?v=2": "site.dwg",
		"https://host/":                 "https://host/",
	}
	for in, want := range cases {
		if got := DisplayName(in); got != want {
			t.Fatalf("DisplayName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestViewSendsLoadTelemetry(t *testing.T) {
	got := make(chan telemetry.Event, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev telemetry.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err == nil {
			got <- ev
		}
	}))
	defer srv.Close()
	tc := telemetry.New(telemetry.Config{OptIn: true, EventsURL: srv.URL, Timeout: time.Second})
	defer tc.Close()

	v := NewViewer(DefaultRegistry(nil), nil, viewport.DefaultOptions())
	v.Telemetry = tc
	var c Context
	if err := v.View(context.Background(), writeFile(t, "a.cpv", lineDoc), &c); err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-got:
		if ev.Name != "preview_loaded" || ev.Props["ext"] != ".cpv" || ev.Props["ok"] != true || ev.Props["raster"] != false {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no telemetry event received")
	}
}
