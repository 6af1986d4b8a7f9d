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
	"image"

	"cadpreview/internal/geom"
)

// Zoom steps and floor. There is intentionally no ceiling.
const (
	ZoomInFactor  = 1.3
	ZoomOutFactor = 0.7
	MinZoom       = 0.005
)

// State is the mutable view transform of one panel.
type State struct {
	Zoom     float64
	ZoomPrev float64
	// Offset is the top-left of the drawn rectangle in surface pixels.
	Offset geom.Pt
	// Pointer is the last pointer position; it anchors zoom.
	Pointer geom.Pt
	// VisibleArea is the fitted size at zoom 1.
	VisibleArea geom.Size
	Viewport    image.Point
}

func NewState() State { return State{Zoom: 1, ZoomPrev: 1} }

// ApplyZoom multiplies the zoom by f, never going below MinZoom.
func (s *State) ApplyZoom(f float64) {
	s.Zoom *= f
	if !(s.Zoom >= MinZoom) {
		s.Zoom = MinZoom
	}
}

// AnchorShift moves the offset so the drawing point under Pointer stays put
// across the zoom change since the last shift.
func (s *State) AnchorShift() {
	if s.ZoomPrev == 0 {
		s.ZoomPrev = s.Zoom
		return
	}
	r := s.Zoom / s.ZoomPrev
	p := s.Pointer
	s.Offset.X = p.X - (p.X-s.Offset.X)*r
	s.Offset.Y = p.Y - (p.Y-s.Offset.Y)*r
	s.ZoomPrev = s.Zoom
}

// DestRect is where the drawing is painted: VisibleArea scaled by Zoom at Offset.
func (s State) DestRect() geom.Rect {
	return geom.R(s.Offset.X, s.Offset.Y, s.VisibleArea.W*s.Zoom, s.VisibleArea.H*s.Zoom)
}

// Center places the unscaled visible area in the middle of the viewport.
func (s *State) Center() {
	s.Offset = geom.Pt{
		X: (float64(s.Viewport.X) - s.VisibleArea.W) / 2,
		Y: (float64(s.Viewport.Y) - s.VisibleArea.H) / 2,
	}
}

// ResetScaling returns to zoom 1 and recenters.
func (s *State) ResetScaling() {
	s.Zoom, s.ZoomPrev = 1, 1
	s.Center()
}

func (s *State) Pan(dx, dy float64) {
	s.Offset.X += dx
	s.Offset.Y += dy
}
