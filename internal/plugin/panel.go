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
	"image"

	"cadpreview/internal/drawing"
	"cadpreview/internal/viewport"
)

// Panel couples an engine with the surface it draws on.
type Panel struct {
	Engine  *viewport.Engine
	Surface viewport.Surface
	Bus     *viewport.Bus
}

// NewPanel builds an engine on s. Cursor requests are forwarded to the surface.
func NewPanel(s viewport.Surface, f drawing.Factory, opts viewport.Options) *Panel {
	bus := viewport.NewBus()
	bus.On(viewport.EventCursor, func(e viewport.Event) { s.SetCursor(e.Cursor) })
	return &Panel{Engine: viewport.New(s, bus, f, opts), Surface: s, Bus: bus}
}

// SetTheme selects the dark or light background for the next load.
func (p *Panel) SetTheme(dark bool) { p.Engine.SetDark(dark) }

// LoadFile loads path and schedules a repaint.
func (p *Panel) LoadFile(ctx context.Context, path string) error {
	err := p.Engine.LoadFile(ctx, path)
	p.Surface.Invalidate()
	return err
}

// Size is the current panel size.
func (p *Panel) Size() image.Point { return p.Surface.Size() }

func (p *Panel) Close() error { return p.Engine.Close() }
