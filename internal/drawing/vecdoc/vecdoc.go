/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package vecdoc reads a small JSON vector format (lines, polylines, circles
// and text in drawing units, Y axis up) and paints it with gg. It stands in for
// a CAD engine wherever one is not registered and backs the test suites.
package vecdoc

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"

	"cadpreview/internal/drawing"
	"cadpreview/internal/geom"
	applog "cadpreview/internal/log"
)

//go:embed schema.json
var schemaJSON []byte

// Extensions served by this backend.
var Extensions = []string{".cpv"}

// Text below this pixel height is skipped; above maxTextPx it is clamped.
const (
	minTextPx = 1.0
	maxTextPx = 2048.0
)

var errNotLoaded = errors.New("vecdoc: no document loaded")

// Point is [x, y] in drawing units.
type Point [2]float64

// Entity is one drawable element. Only the fields for its Type are meaningful.
type Entity struct {
	Type     string  `json:"type"`
	Points   []Point `json:"points,omitempty"`
	Closed   bool    `json:"closed,omitempty"`
	Center   *Point  `json:"center,omitempty"`
	Radius   float64 `json:"radius,omitempty"`
	Position *Point  `json:"position,omitempty"`
	Text     string  `json:"text,omitempty"`
	Height   float64 `json:"height,omitempty"`
	Color    string  `json:"color,omitempty"`
	Weight   float64 `json:"weight,omitempty"`
}

// Document is the decoded file.
type Document struct {
	Units         string   `json:"units,omitempty"`
	UnitsPerPixel float64  `json:"units_per_pixel,omitempty"`
	Entities      []Entity `json:"entities"`
}

// Option configures a Handle.
type Option func(*Handle)

// WithFontData uses the given TrueType font for text instead of Go Regular.
func WithFontData(ttf []byte) Option {
	return func(h *Handle) { h.fontData = ttf }
}

// Handle is a loaded vector document.
type Handle struct {
	fetcher  *drawing.Fetcher
	settings drawing.PaintSettings
	doc      *Document
	ext      geom.Extents
	fontData []byte
	font     *truetype.Font
	fontErr  error
}

func New(fetcher *drawing.Fetcher, opts ...Option) *Handle {
	h := &Handle{fetcher: fetcher, settings: drawing.DefaultSettings(), fontData: goregular.TTF}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Register binds the backend to its suffixes.
func Register(r *drawing.Registry, fetcher *drawing.Fetcher, opts ...Option) {
	r.Register(func() drawing.Handle { return New(fetcher, opts...) }, Extensions...)
}

func (h *Handle) Extents() geom.Extents { return h.ext }
func (h *Handle) AbsWidth() float64     { return h.ext.Width() }
func (h *Handle) AbsHeight() float64    { return h.ext.Height() }
func (h *Handle) Raster() bool          { return false }

func (h *Handle) UnitsPerPixel() float64 {
	if h.doc == nil || h.doc.UnitsPerPixel <= 0 {
		return 1
	}
	return h.doc.UnitsPerPixel
}

func (h *Handle) Settings() *drawing.PaintSettings { return &h.settings }

// Document returns the loaded document, or nil.
func (h *Handle) Document() *Document { return h.doc }

func (h *Handle) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	return h.Load(data)
}

func (h *Handle) LoadFromWeb(ctx context.Context, url string) error {
	if h.fetcher == nil {
		return fmt.Errorf("vecdoc: no fetcher configured for %s", url)
	}
	data, err := h.fetcher.Fetch(ctx, url)
	if err != nil {
		return err
	}
	return h.Load(data)
}

// Load validates data against the document schema and decodes it.
func (h *Handle) Load(data []byte) error {
	if err := Validate(data); err != nil {
		return err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	h.doc = &doc
	h.ext = extentsOf(&doc)
	return nil
}

// Validate checks data against the embedded JSON schema.
func Validate(data []byte) error {
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate document: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid document: %s", strings.Join(msgs, "; "))
	}
	return nil
}

func extentsOf(doc *Document) geom.Extents {
	var e geom.Extents
	first := true
	add := func(p geom.Pt) {
		if first {
			e = geom.Extents{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y}
			first = false
			return
		}
		e = e.Include(p)
	}
	for _, ent := range doc.Entities {
		switch ent.Type {
		case "line", "polyline":
			for _, p := range ent.Points {
				add(geom.Pt{X: p[0], Y: p[1]})
			}
		case "circle":
			c := *ent.Center
			add(geom.Pt{X: c[0] - ent.Radius, Y: c[1] - ent.Radius})
			add(geom.Pt{X: c[0] + ent.Radius, Y: c[1] + ent.Radius})
		case "text":
			p := *ent.Position
			// Approximate advance: 0.6 em per rune.
			w := 0.6 * ent.Height * float64(len([]rune(ent.Text)))
			add(geom.Pt{X: p[0], Y: p[1]})
			add(geom.Pt{X: p[0] + w, Y: p[1] + ent.Height})
		}
	}
	return e
}

func (h *Handle) Close() error {
	h.doc = nil
	h.ext = geom.Extents{}
	return nil
}

// Draw renders the document into dest. Only the part inside the viewport is rasterized.
func (h *Handle) Draw(dst draw.Image, dest geom.Rect, viewport image.Point) error {
	if h.doc == nil {
		return errNotLoaded
	}
	absW, absH := h.AbsWidth(), h.AbsHeight()
	if dest.Empty() || absW == 0 || absH == 0 {
		return nil
	}
	if !dest.Min().Finite() || math.IsInf(dest.W, 0) || math.IsInf(dest.H, 0) {
		return fmt.Errorf("vecdoc: destination %+v out of range", dest)
	}
	clip := dst.Bounds().Intersect(image.Rectangle{Max: viewport})
	if clip.Empty() {
		return nil
	}
	dc := gg.NewContext(clip.Dx(), clip.Dy())
	sx, sy := dest.W/absW, dest.H/absH
	toPx := func(p Point) (float64, float64) {
		x := dest.X + (p[0]-h.ext.MinX)*sx - float64(clip.Min.X)
		y := dest.Y + (h.ext.MaxY-p[1])*sy - float64(clip.Min.Y)
		return x, y
	}
	for _, ent := range h.doc.Entities {
		dc.SetColor(h.colorOf(ent))
		dc.SetLineWidth(h.lineWidth(ent, sx))
		switch ent.Type {
		case "line", "polyline":
			for i, p := range ent.Points {
				x, y := toPx(p)
				if i == 0 {
					dc.MoveTo(x, y)
				} else {
					dc.LineTo(x, y)
				}
			}
			if ent.Closed {
				dc.ClosePath()
			}
			dc.Stroke()
		case "circle":
			x, y := toPx(*ent.Center)
			dc.DrawEllipse(x, y, ent.Radius*sx, ent.Radius*sy)
			dc.Stroke()
		case "text":
			if !h.settings.TextVisible {
				continue
			}
			px := ent.Height * sy
			if px < minTextPx {
				continue
			}
			dc.SetFontFace(h.face(math.Min(px, maxTextPx)))
			x, y := toPx(*ent.Position)
			dc.DrawString(ent.Text, x, y)
		}
	}
	draw.Draw(dst, clip, dc.Image(), image.Point{}, draw.Over)
	return nil
}

func (h *Handle) colorOf(ent Entity) color.Color {
	c := h.settings.DefaultColor
	if parsed, ok := parseHex(ent.Color); ok {
		c = parsed
	}
	return h.settings.Apply(c)
}

func (h *Handle) lineWidth(ent Entity, scale float64) float64 {
	if !h.settings.ShowLineWeight || ent.Weight <= 0 {
		return 1
	}
	return math.Max(1, ent.Weight*scale)
}

func (h *Handle) face(px float64) font.Face {
	if h.font == nil && h.fontErr == nil {
		h.font, h.fontErr = truetype.Parse(h.fontData)
		if h.fontErr != nil {
			applog.WithComponent("vecdoc").Warn("font parse failed, using bitmap face", slog.Any("err", h.fontErr))
		}
	}
	if h.fontErr != nil {
		return basicfont.Face7x13
	}
	return truetype.NewFace(h.font, &truetype.Options{Size: px, DPI: 72, Hinting: font.HintingFull})
}

func parseHex(s string) (color.NRGBA, bool) {
	if len(s) != 7 || s[0] != '#' {
		return color.NRGBA{}, false
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.NRGBA{}, false
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, true
}
