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
	"log/slog"

	applog "cadpreview/internal/log"
	"cadpreview/internal/plugin"
	"cadpreview/internal/viewport"
)

// loader runs one preview load at a time off the UI goroutine. Every method
// and callback runs on the UI goroutine; post hands work back to it.
type loader struct {
	viewer  *plugin.Viewer
	post    func(func())
	closeFn func()
	log     *slog.Logger

	// pending is set before the load goroutine starts and only read by it.
	pending        viewport.Surface
	loading        bool
	closeRequested bool
}

func newLoader(v *plugin.Viewer, post func(func()), closeFn func()) *loader {
	ld := &loader{viewer: v, post: post, closeFn: closeFn, log: applog.WithComponent("ui")}
	v.NewSurface = func(image.Point) viewport.Surface { return ld.pending }
	return ld
}

func (ld *loader) busy() bool { return ld.loading }

// start releases the current panel and loads path into a surface built by
// newSurface at the preferred size. done runs once the load finishes unless
// a close arrived meanwhile. It reports false while another load is running.
func (ld *loader) start(ctx context.Context, path string, newSurface func(image.Point) viewport.Surface, done func(pc *plugin.Context, err error)) bool {
	if ld.loading || ld.closeRequested {
		return false
	}
	if err := ld.viewer.Cleanup(ctx); err != nil {
		ld.log.Warn("cleanup previous panel", slog.Any("err", err))
	}
	pc := &plugin.Context{}
	ld.viewer.Prepare(ctx, path, pc)
	sz := pc.PreferredSize
	if sz.X <= 0 || sz.Y <= 0 {
		sz = ld.viewer.DefaultSize
	}
	ld.pending = newSurface(sz)
	ld.loading = true
	go func() {
		err := ld.viewer.View(ctx, path, pc)
		ld.post(func() {
			ld.loading = false
			if ld.closeRequested {
				ld.close(ctx)
				return
			}
			done(pc, err)
		})
	}()
	return true
}

// requestClose releases the viewer and closes the window, or defers both
// until the running load hands back. It reports whether it closed now.
func (ld *loader) requestClose(ctx context.Context) bool {
	if ld.loading {
		ld.closeRequested = true
		return false
	}
	ld.close(ctx)
	return true
}

func (ld *loader) close(ctx context.Context) {
	if err := ld.viewer.Cleanup(ctx); err != nil {
		ld.log.Warn("cleanup on close", slog.Any("err", err))
	}
	ld.closeFn()
}
