/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package offscreen

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"cadpreview/internal/drawing"
	"cadpreview/internal/drawing/vecdoc"
	"cadpreview/internal/viewport"
)

const squareDoc = `{"entities": [
  {"type": "polyline", "points": [[0, 0], [100, 0], [100, 100], [0, 100]], "closed": true, "weight": 2}
]}`

func writeDoc(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "square.cpv")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func registry() *drawing.Registry {
	r := drawing.NewRegistry()
	vecdoc.Register(r, nil)
	return r
}

func TestRenderDarkAndLight(t *testing.T) {
	p := writeDoc(t, squareDoc)
	img, info, err := Render(context.Background(), registry(), p, Options{Width: 200, Height: 100, Dark: true, TextVisible: true, ShowLineWeight: true})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if info.AbsWidth != 100 || info.AbsHeight != 100 || info.Raster || info.Scale != "100.00" {
		t.Fatalf("info = %+v", info)
	}
	// Square fits as 100×100 centered at x=50..150; the corner is background.
	if got := img.RGBAAt(5, 50); got != (color.RGBA{A: 0xff}) {
		t.Fatalf("dark background = %v", got)
	}
	if got := img.RGBAAt(50, 50); got.R < 0x80 {
		t.Fatalf("expected white outline at left edge, got %v", got)
	}

	img, _, err = Render(context.Background(), registry(), p, Options{Width: 200, Height: 100, TextVisible: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := img.RGBAAt(5, 50); got != (color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}) {
		t.Fatalf("light background = %v", got)
	}
}

func TestRenderErrors(t *testing.T) {
	if _, _, err := Render(context.Background(), registry(), "x.cpv", Options{}); err == nil {
		t.Fatalf("expected size error")
	}
	if _, _, err := Render(context.Background(), registry(), "x.dwg", Options{Width: 10, Height: 10}); !errors.Is(err, drawing.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	p := writeDoc(t, `{"entities": "nope"}`)
	if _, _, err := Render(context.Background(), registry(), p, Options{Width: 10, Height: 10}); err == nil {
		t.Fatalf("expected invalid document error")
	}
}

func TestSurfaceTracksEngineRequests(t *testing.T) {
	s := NewSurface(50, 50)
	e := viewport.New(s, nil, registry(), viewport.DefaultOptions())
	if err := e.LoadFile(context.Background(), writeDoc(t, squareDoc)); err != nil {
		t.Fatal(err)
	}
	if !s.Dirty() || s.Dirty() {
		t.Fatalf("Dirty should report once then clear")
	}
	s.SetVisible(false)
	if _, err := s.Frame(e); !errors.Is(err, ErrNotPainted) {
		t.Fatalf("hidden frame: %v", err)
	}
	s.SetVisible(true)
	if _, err := s.Frame(e); err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if s.Background() != drawing.White || s.Cursor() != viewport.CursorDefault {
		t.Fatalf("surface state: bg=%v cursor=%v", s.Background(), s.Cursor())
	}
}
