/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cadpreview/internal/config"
	"cadpreview/internal/crash"
	"cadpreview/internal/drawing"
	"cadpreview/internal/export"
	applog "cadpreview/internal/log"
	"cadpreview/internal/offscreen"
	"cadpreview/internal/plugin"
	"cadpreview/internal/storage"
	"cadpreview/internal/ui"
	"cadpreview/internal/version"
)

func usage() {
	fmt.Println("CAD Preview")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  cadpreview version|-v|--version                       Show version")
	fmt.Println("  cadpreview info <file|url>                             Print drawing extents and fitted scale")
	fmt.Println("  cadpreview thumbnail [-w 256 -h 256 -dark -o out.png] <file|url>")
	fmt.Println("                                                         Render a thumbnail (.png or .pdf output)")
	fmt.Println("  cadpreview cache count|clear                           Inspect or empty the thumbnail cache")
	fmt.Println("  cadpreview ui [<file|url>]                             Launch desktop UI (build with -tags fyne)")
}

type env struct {
	cfg   config.AppConfig
	token string
	reg   *drawing.Registry
	l     *slog.Logger
}

func (e *env) openCache() (*storage.Cache, error) {
	if !e.cfg.Cache.Enabled {
		return nil, nil
	}
	dir, err := e.cfg.CacheDir()
	if err != nil {
		return nil, err
	}
	return storage.Open(dir, e.cfg.Cache.MaxEntries)
}

func main() {
	defer crash.Recover()

	cfg, token, err := config.Load()
	if err != nil {
		applog.Init(applog.FromEnv())
		applog.WithComponent("cli").Warn("config load failed; using defaults", slog.Any("err", err))
		cfg = config.Defaults()
	} else {
		applog.Init(cfg.Logging.LogOptions())
	}
	l := applog.WithComponent("cli")
	f := drawing.NewFetcher(cfg.Web.Timeout(), cfg.Web.UserAgent, token, cfg.Web.MaxBytes)
	e := &env{cfg: cfg, token: token, reg: plugin.DefaultRegistry(f), l: l}

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}
	ctx := context.Background()
	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("CAD Preview")
		fmt.Println(version.String())
	case "info":
		if len(args) < 3 {
			fmt.Println("info requires <file|url>")
			usage()
			os.Exit(2)
		}
		exitOn(l, e.info(ctx, args[2]))
	case "thumbnail":
		exitOn(l, e.thumbnail(ctx, args[2:]))
	case "cache":
		if len(args) < 3 {
			fmt.Println("cache requires count or clear")
			os.Exit(2)
		}
		exitOn(l, e.cache(ctx, args[2]))
	case "ui":
		var path string
		if len(args) >= 3 {
			path = args[2]
		}
		cache, err := e.openCache()
		if err != nil {
			l.Warn("cache unavailable", slog.Any("err", err))
		}
		exitOn(l, e.runUI(path, cache))
	default:
		usage()
		os.Exit(2)
	}
}

func exitOn(l *slog.Logger, err error) {
	if err == nil {
		return
	}
	l.Error("command failed", slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}

// runUI blocks until the window closes and takes ownership of cache, which
// may be nil. The cache is closed before the caller may exit the process.
func (e *env) runUI(path string, cache *storage.Cache) error {
	if cache != nil {
		defer func() {
			if err := cache.Close(); err != nil {
				e.l.Warn("close cache", slog.Any("err", err))
			}
		}()
	}
	return ui.Run(ui.RunOptions{Path: path, Config: e.cfg, Token: e.token, Cache: cache})
}

func (e *env) renderOptions(w, h int, dark bool) offscreen.Options {
	return offscreen.Options{
		Width:          w,
		Height:         h,
		Dark:           dark,
		Inverted:       e.cfg.Viewer.Inverted,
		TextVisible:    e.cfg.Viewer.TextVisible,
		ShowLineWeight: e.cfg.Viewer.ShowLineWeight,
	}
}

func (e *env) info(ctx context.Context, path string) error {
	_, info, err := offscreen.Render(ctx, e.reg, path, e.renderOptions(e.cfg.Viewer.Width, e.cfg.Viewer.Height, false))
	if err != nil {
		return err
	}
	kind := "vector"
	if info.Raster {
		kind = "raster"
	}
	fmt.Printf("File:    %s\n", plugin.DisplayName(path))
	fmt.Printf("Kind:    %s\n", kind)
	fmt.Printf("Extents: %.2f x %.2f\n", info.AbsWidth, info.AbsHeight)
	fmt.Printf("Units:   %g per pixel\n", info.Units)
	fmt.Printf("Scale:   %s%% at %dx%d\n", info.Scale, e.cfg.Viewer.Width, e.cfg.Viewer.Height)
	return nil
}

func (e *env) thumbnail(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("thumbnail", flag.ContinueOnError)
	w := fs.Int("w", 256, "width in pixels")
	h := fs.Int("h", 256, "height in pixels")
	dark := fs.Bool("dark", false, "white on black")
	out := fs.String("o", "", "output file (.png or .pdf); defaults to <name>.png")
	noCache := fs.Bool("no-cache", false, "bypass the thumbnail cache")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("thumbnail requires exactly one <file|url>")
	}
	path := fs.Arg(0)
	if *out == "" {
		*out = strings.TrimSuffix(plugin.DisplayName(path), filepath.Ext(path)) + ".png"
	}

	gen := func(ctx context.Context) ([]byte, error) {
		img, _, err := offscreen.Render(ctx, e.reg, path, e.renderOptions(*w, *h, *dark))
		if err != nil {
			return nil, err
		}
		return export.PNGBytes(img)
	}
	var data []byte
	var cache *storage.Cache
	if !*noCache {
		c, err := e.openCache()
		if err != nil {
			e.l.Warn("cache unavailable", slog.Any("err", err))
		}
		cache = c
	}
	if cache != nil {
		defer cache.Close()
		key, err := storage.KeyFor(path, *w, *h, *dark)
		if err != nil {
			return err
		}
		if data, err = cache.GetOrCreate(ctx, key, gen); err != nil {
			return err
		}
	} else {
		var err error
		if data, err = gen(ctx); err != nil {
			return err
		}
	}

	if strings.EqualFold(filepath.Ext(*out), ".pdf") {
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("decode thumbnail: %w", err)
		}
		if err := export.WritePDF(img, *out, plugin.DisplayName(path)); err != nil {
			return err
		}
	} else if err := export.WriteFile(*out, data); err != nil {
		return err
	}
	fmt.Println("Wrote", *out)
	return nil
}

func (e *env) cache(ctx context.Context, cmd string) error {
	c, err := e.openCache()
	if err != nil {
		return err
	}
	if c == nil {
		return errors.New("thumbnail cache is disabled")
	}
	defer c.Close()
	switch cmd {
	case "count":
		n, err := c.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%d thumbnails in %s\n", n, c.Path())
	case "clear":
		if err := c.Clear(ctx); err != nil {
			return err
		}
		fmt.Println("Cleared", c.Path())
	default:
		return fmt.Errorf("unknown cache command %q", cmd)
	}
	return nil
}
