/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package geom holds the 2D primitives shared by the viewport engine and the drawing backends.
// Values are float64; drawing extents in CAD units routinely exceed float32 precision.
package geom

import "math"

// Pt is a 2D point.
type Pt struct{ X, Y float64 }

// EmptyPoint is returned when a coordinate cannot be mapped.
var EmptyPoint = Pt{X: math.NaN(), Y: math.NaN()}

// IsEmpty reports whether p is the EmptyPoint sentinel.
func (p Pt) IsEmpty() bool { return math.IsNaN(p.X) || math.IsNaN(p.Y) }

func (p Pt) Add(o Pt) Pt { return Pt{p.X + o.X, p.Y + o.Y} }
func (p Pt) Sub(o Pt) Pt { return Pt{p.X - o.X, p.Y - o.Y} }

// Finite reports whether both coordinates are neither NaN nor infinite.
func (p Pt) Finite() bool { return finite(p.X) && finite(p.Y) }

// Size is a width/height pair.
type Size struct{ W, H float64 }

// Aspect returns W/H, or 0 for a zero height.
func (s Size) Aspect() float64 {
	if s.H == 0 {
		return 0
	}
	return s.W / s.H
}

func (s Size) Scale(f float64) Size { return Size{s.W * f, s.H * f} }

// Rect is an axis-aligned rectangle defined by min corner and size.
type Rect struct {
	X, Y float64
	W, H float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

func (r Rect) Min() Pt     { return Pt{r.X, r.Y} }
func (r Rect) Max() Pt     { return Pt{r.X + r.W, r.Y + r.H} }
func (r Rect) Size() Size  { return Size{r.W, r.H} }
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// Union returns the minimal rect containing both.
func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.X+r.W, o.X+o.W)
	maxY := math.Max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Extents is a drawing's bounding box in drawing units.
type Extents struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

func (e Extents) Width() float64  { return math.Abs(e.MaxX - e.MinX) }
func (e Extents) Height() float64 { return math.Abs(e.MaxY - e.MinY) }

// Include grows e to cover p.
func (e Extents) Include(p Pt) Extents {
	return Extents{
		MinX: math.Min(e.MinX, p.X), MinY: math.Min(e.MinY, p.Y),
		MaxX: math.Max(e.MaxX, p.X), MaxY: math.Max(e.MaxY, p.Y),
	}
}

// Round rounds v to n decimal places deterministically.
func Round(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
