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

// These tests exercise the panel widget with Fyne's test driver. They are gated
// behind the "fyne" build tag so CI (which is headless) does not need Fyne.
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"

	"cadpreview/internal/plugin"
	"cadpreview/internal/viewport"
)

func almostEqual(a, b, eps float64) bool {
	if a > b {
		return a-b <= eps
	}
	return b-a <= eps
}

func loadedView(t *testing.T) (*DrawingView, *plugin.Panel) {
	t.Helper()
	test.NewApp()
	p := filepath.Join(t.TempDir(), "plan.cpv")
	doc := `{"entities": [{"type": "polyline", "closed": true, "points": [[0,0],[300,0],[300,200],[0,200]]}]}`
	if err := os.WriteFile(p, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	v := NewDrawingView(image.Pt(300, 200))
	v.Resize(fyne.NewSize(300, 200))
	panel := plugin.NewPanel(v.Surface(), plugin.DefaultRegistry(nil), viewport.DefaultOptions())
	v.Attach(panel.Engine)
	panel.SetTheme(true)
	if err := panel.LoadFile(context.Background(), p); err != nil {
		t.Fatalf("load: %v", err)
	}
	return v, panel
}

func mouse(x, y float32, b desktop.MouseButton) *desktop.MouseEvent {
	e := &desktop.MouseEvent{Button: b}
	e.Position = fyne.NewPos(x, y)
	return e
}

func TestDrawingView_SurfaceFollowsResize(t *testing.T) {
	v, panel := loadedView(t)
	if got := v.Surface().Size(); got != image.Pt(300, 200) {
		t.Fatalf("surface size = %v", got)
	}
	v.Resize(fyne.NewSize(600, 200))
	if got := panel.Size(); got != image.Pt(600, 200) {
		t.Fatalf("panel size after resize = %v", got)
	}
	if va := panel.Engine.State().VisibleArea; !almostEqual(va.W, 300, 0.01) || !almostEqual(va.H, 200, 0.01) {
		t.Fatalf("visible area not refit: %+v", va)
	}
}

func TestDrawingView_RightDragPans(t *testing.T) {
	v, panel := loadedView(t)
	before := panel.Engine.State().Offset

	v.MouseDown(mouse(10, 10, desktop.MouseButtonSecondary))
	if v.Cursor() != desktop.PointerCursor {
		t.Fatalf("expected grab cursor while dragging")
	}
	v.MouseMoved(mouse(30, 15, desktop.MouseButtonSecondary))
	after := panel.Engine.State().Offset
	if !almostEqual(after.X-before.X, 20, 1e-9) || !almostEqual(after.Y-before.Y, 5, 1e-9) {
		t.Fatalf("offset moved by (%v,%v), want (20,5)", after.X-before.X, after.Y-before.Y)
	}
	v.MouseUp(mouse(30, 15, desktop.MouseButtonSecondary))
	if v.Cursor() != desktop.DefaultCursor {
		t.Fatalf("cursor not restored after drag")
	}

	v.MouseDown(mouse(30, 15, desktop.MouseButtonPrimary))
	v.MouseMoved(mouse(90, 90, desktop.MouseButtonPrimary))
	if panel.Engine.State().Offset != after {
		t.Fatalf("left button must not pan with default options")
	}
}

func TestDrawingView_WheelAndDoubleTap(t *testing.T) {
	v, panel := loadedView(t)
	v.Scrolled(&fyne.ScrollEvent{Scrolled: fyne.Delta{DY: 1}})
	if z := panel.Engine.State().Zoom; !almostEqual(z, viewport.ZoomInFactor, 1e-9) {
		t.Fatalf("zoom after wheel = %v", z)
	}
	v.DoubleTapped(&fyne.PointEvent{})
	if z := panel.Engine.State().Zoom; z != 1 {
		t.Fatalf("zoom after double tap = %v", z)
	}
}

func TestDrawingView_RenderUsesEngineBackground(t *testing.T) {
	v, _ := loadedView(t)
	img := v.render(0, 0)
	if img.Bounds().Dx() != 300 || img.Bounds().Dy() != 200 {
		t.Fatalf("render bounds = %v", img.Bounds())
	}
	r, g, b, _ := img.At(150, 100).RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Fatalf("expected black background in dark theme, got %v", color.RGBAModel.Convert(img.At(150, 100)))
	}
}

func TestDrawingView_RenderWithoutEngine(t *testing.T) {
	test.NewApp()
	v := NewDrawingView(image.Pt(4, 4))
	v.Surface().SetBackgroundColor(color.White)
	r, _, _, _ := v.render(0, 0).At(1, 1).RGBA()
	if r != 0xffff {
		t.Fatalf("expected plain background before attach")
	}
}
