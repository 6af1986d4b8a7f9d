/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package raster serves plain images through the drawing.Handle interface.
package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"cadpreview/internal/drawing"
	"cadpreview/internal/geom"
)

// Extensions served by this backend.
var Extensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// maxCoord bounds destination rectangles before conversion to int.
const maxCoord = 1 << 40

var errNotLoaded = errors.New("raster: no image loaded")

// Handle is an image-backed drawing.
type Handle struct {
	fetcher  *drawing.Fetcher
	settings drawing.PaintSettings
	img      image.Image
	inverted image.Image
	format   string
}

// New returns an empty handle. fetcher may be nil when web loading is not needed.
func New(fetcher *drawing.Fetcher) *Handle {
	return &Handle{fetcher: fetcher, settings: drawing.DefaultSettings()}
}

// Register binds the backend to every image suffix.
func Register(r *drawing.Registry, fetcher *drawing.Fetcher) {
	r.Register(func() drawing.Handle { return New(fetcher) }, Extensions...)
}

func (h *Handle) Format() string { return h.format }

func (h *Handle) Extents() geom.Extents {
	if h.img == nil {
		return geom.Extents{}
	}
	b := h.img.Bounds()
	return geom.Extents{MaxX: float64(b.Dx()), MaxY: float64(b.Dy())}
}

func (h *Handle) AbsWidth() float64                { return h.Extents().Width() }
func (h *Handle) AbsHeight() float64               { return h.Extents().Height() }
func (h *Handle) UnitsPerPixel() float64           { return 1 }
func (h *Handle) Raster() bool                     { return true }
func (h *Handle) Settings() *drawing.PaintSettings { return &h.settings }

func (h *Handle) LoadFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer func() { _ = f.Close() }()
	return h.load(f)
}

func (h *Handle) LoadFromWeb(ctx context.Context, url string) error {
	if h.fetcher == nil {
		return fmt.Errorf("raster: no fetcher configured for %s", url)
	}
	data, err := h.fetcher.Fetch(ctx, url)
	if err != nil {
		return err
	}
	return h.load(bytes.NewReader(data))
}

func (h *Handle) load(r io.Reader) error {
	img, format, err := image.Decode(r)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	h.img, h.format, h.inverted = img, format, nil
	return nil
}

// Draw scales the image into dest, clipped to the viewport.
func (h *Handle) Draw(dst draw.Image, dest geom.Rect, viewport image.Point) error {
	if h.img == nil {
		return errNotLoaded
	}
	if dest.Empty() {
		return nil
	}
	if !dest.Min().Finite() || math.Abs(dest.X)+dest.W > maxCoord || math.Abs(dest.Y)+dest.H > maxCoord {
		return fmt.Errorf("raster: destination %+v out of range", dest)
	}
	dr := image.Rect(
		int(math.Floor(dest.X)), int(math.Floor(dest.Y)),
		int(math.Ceil(dest.X+dest.W)), int(math.Ceil(dest.Y+dest.H)),
	)
	clip := dst.Bounds().Intersect(image.Rectangle{Max: viewport})
	if clip.Empty() || !dr.Overlaps(clip) {
		return nil
	}
	src := h.source()
	// Magnified pixels stay crisp; reductions are smoothed.
	var s xdraw.Scaler = xdraw.ApproxBiLinear
	if dr.Dx() > src.Bounds().Dx() {
		s = xdraw.NearestNeighbor
	}
	s.Scale(clipTo(dst, clip), dr, src, src.Bounds(), xdraw.Over, nil)
	return nil
}

func (h *Handle) source() image.Image {
	if h.settings.DrawMode != drawing.DrawInverted {
		return h.img
	}
	if h.inverted == nil {
		h.inverted = invert(h.img)
	}
	return h.inverted
}

func (h *Handle) Close() error {
	h.img, h.inverted = nil, nil
	return nil
}

func invert(src image.Image) image.Image {
	b := src.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			out.SetNRGBA(x, y, drawing.Invert(c))
		}
	}
	return out
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

type clipped struct {
	draw.Image
	r image.Rectangle
}

func (c clipped) Bounds() image.Rectangle { return c.r }

// clipTo restricts dst to r, keeping the concrete type when possible.
func clipTo(dst draw.Image, r image.Rectangle) draw.Image {
	if dst.Bounds() == r {
		return dst
	}
	if si, ok := dst.(subImager); ok {
		if d, ok := si.SubImage(r).(draw.Image); ok {
			return d
		}
	}
	return clipped{Image: dst, r: r}
}
