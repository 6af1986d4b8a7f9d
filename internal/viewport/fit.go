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

import "cadpreview/internal/geom"

// Fit computes the visible area for a drawing of size d in the state's
// viewport and centers it. Raster drawings start from their native size,
// everything else from the viewport. It reports false and leaves s untouched
// when the viewport or the drawing has zero height.
func Fit(s *State, d geom.Size, raster bool) bool {
	vw, vh := float64(s.Viewport.X), float64(s.Viewport.Y)
	if vh == 0 || d.H == 0 {
		return false
	}
	wh := d.W / d.H
	viewWH := vw / vh

	va := geom.Size{W: vw, H: vh}
	if raster {
		va = d
	}
	switch {
	case viewWH > wh:
		va.W = va.H * wh
	case viewWH < wh:
		va.H = va.W / wh
	default:
		va = geom.Size{W: vw, H: vh}
	}
	s.VisibleArea = va
	s.Center()
	return true
}
