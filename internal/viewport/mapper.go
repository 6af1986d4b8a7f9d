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
	"math"

	"cadpreview/internal/geom"
)

// ToDrawing maps a surface pixel to drawing units given the painted rectangle
// and the drawing's extents. yUp selects the CAD convention (Y grows upward);
// raster drawings use yUp=false. A degenerate rectangle yields EmptyPoint.
func ToDrawing(screen geom.Pt, dest geom.Rect, ext geom.Extents, yUp bool) (geom.Pt, bool) {
	if !(dest.W > 0) || !(dest.H > 0) || !dest.Min().Finite() || !screen.Finite() ||
		math.IsInf(dest.W, 0) || math.IsInf(dest.H, 0) {
		return geom.EmptyPoint, false
	}
	u := (screen.X - dest.X) / dest.W
	v := (screen.Y - dest.Y) / dest.H
	p := geom.Pt{X: ext.MinX + u*ext.Width()}
	if yUp {
		p.Y = ext.MaxY - v*ext.Height()
	} else {
		p.Y = ext.MinY + v*ext.Height()
	}
	if !p.Finite() {
		return geom.EmptyPoint, false
	}
	return p, true
}

// ToScreen is the inverse of ToDrawing. It fails for zero-size extents.
func ToScreen(real geom.Pt, dest geom.Rect, ext geom.Extents, yUp bool) (geom.Pt, bool) {
	w, h := ext.Width(), ext.Height()
	if w == 0 || h == 0 || !real.Finite() {
		return geom.EmptyPoint, false
	}
	u := (real.X - ext.MinX) / w
	var v float64
	if yUp {
		v = (ext.MaxY - real.Y) / h
	} else {
		v = (real.Y - ext.MinY) / h
	}
	p := geom.Pt{X: dest.X + u*dest.W, Y: dest.Y + v*dest.H}
	if !p.Finite() {
		return geom.EmptyPoint, false
	}
	return p, true
}
