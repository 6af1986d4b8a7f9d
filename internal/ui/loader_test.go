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
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"cadpreview/internal/offscreen"
	"cadpreview/internal/plugin"
	"cadpreview/internal/viewport"
)

type loaderRig struct {
	viewer *plugin.Viewer
	sizes  *plugin.MemorySizeStore
	posted chan func()
	closed int
	ld     *loader
	path   string
}

func newLoaderRig(t *testing.T) *loaderRig {
	t.Helper()
	r := &loaderRig{sizes: &plugin.MemorySizeStore{}, posted: make(chan func(), 1)}
	r.viewer = plugin.NewViewer(plugin.DefaultRegistry(nil), r.sizes, viewport.DefaultOptions())
	r.ld = newLoader(r.viewer, func(f func()) { r.posted <- f }, func() { r.closed++ })
	r.path = filepath.Join(t.TempDir(), "plan.cpv")
	doc := `{"entities": [{"type": "line", "points": [[0, 0], [300, 200]]}]}`
	if err := os.WriteFile(r.path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return r
}

func offscreenAt(got *image.Point) func(image.Point) viewport.Surface {
	return func(sz image.Point) viewport.Surface {
		*got = sz
		return offscreen.NewSurface(sz.X, sz.Y)
	}
}

func TestLoaderHandsPanelBackOnUIGoroutine(t *testing.T) {
	ctx := context.Background()
	r := newLoaderRig(t)
	var size image.Point
	var got *plugin.Context
	var gotErr error
	if !r.ld.start(ctx, r.path, offscreenAt(&size), func(pc *plugin.Context, err error) { got, gotErr = pc, err }) {
		t.Fatalf("start refused")
	}
	if size != r.viewer.DefaultSize {
		t.Fatalf("surface size = %v, want %v", size, r.viewer.DefaultSize)
	}
	if !r.ld.busy() || r.ld.start(ctx, r.path, offscreenAt(&size), func(*plugin.Context, error) {}) {
		t.Fatalf("second load must be refused while loading")
	}
	(<-r.posted)()
	if r.ld.busy() || got == nil || gotErr != nil || got.Content == nil {
		t.Fatalf("done not delivered: ctx=%+v err=%v", got, gotErr)
	}
	if r.viewer.Panel() != got.Content || !got.Content.Engine.IsLoaded() {
		t.Fatalf("panel not installed")
	}

	if !r.ld.requestClose(ctx) || r.closed != 1 {
		t.Fatalf("idle close must close at once, closed=%d", r.closed)
	}
	if r.viewer.Panel() != nil {
		t.Fatalf("close did not release the panel")
	}
	if w, h, ok, _ := r.sizes.LastViewportSize(ctx); !ok || w != size.X || h != size.Y {
		t.Fatalf("persisted size = %d,%d,%v", w, h, ok)
	}
}

func TestLoaderDefersCloseUntilLoadFinishes(t *testing.T) {
	ctx := context.Background()
	r := newLoaderRig(t)
	var size image.Point
	doneCalled := false
	r.ld.start(ctx, r.path, offscreenAt(&size), func(*plugin.Context, error) { doneCalled = true })

	if r.ld.requestClose(ctx) {
		t.Fatalf("close during a load must be deferred")
	}
	if r.closed != 0 {
		t.Fatalf("window closed while loading")
	}
	(<-r.posted)()
	if doneCalled {
		t.Fatalf("done must not run after a close request")
	}
	if r.closed != 1 || r.viewer.Panel() != nil {
		t.Fatalf("deferred close not applied: closed=%d panel=%v", r.closed, r.viewer.Panel())
	}
	if r.ld.start(ctx, r.path, offscreenAt(&size), func(*plugin.Context, error) {}) {
		t.Fatalf("no loads after close")
	}
}
