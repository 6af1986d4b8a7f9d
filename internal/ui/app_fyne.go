//go:build fyne && cgo

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
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"cadpreview/internal/export"
	applog "cadpreview/internal/log"
	"cadpreview/internal/plugin"
	"cadpreview/internal/viewport"
	"cadpreview/internal/version"
)

const appTitle = "CAD Preview"

// Run opens a window hosting one preview panel and blocks until it closes.
func Run(o RunOptions) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("path", o.Path))
	ctx := context.Background()

	fyneApp := app.NewWithID("cadpreview")
	systemDark := func() bool { return fyneApp.Settings().ThemeVariant() == theme.VariantDark }
	var sizes plugin.SizeStore
	if o.Cache != nil {
		sizes = o.Cache
	}
	viewer, err := plugin.FromConfig(o.Config, o.Token, sizes, systemDark)
	if err != nil {
		return err
	}

	w := fyneApp.NewWindow(appTitle)
	statusLabel := widget.NewLabel("Ready")
	placeholder := widget.NewLabel("Open a drawing (Ctrl+O) or drop a file here.")
	placeholder.Alignment = fyne.TextAlignCenter
	content := container.NewStack(placeholder)

	var (
		statusMu sync.Mutex
		status   Status
		view     *DrawingView
		current  *plugin.Panel
	)
	ld := newLoader(viewer, fyne.Do, w.Close)
	viewer.Listener = func(e viewport.Event) {
		statusMu.Lock()
		changed := status.Apply(e)
		txt := status.String()
		statusMu.Unlock()
		if changed {
			fyne.Do(func() { statusLabel.SetText(txt) })
		}
	}

	open := func(path string) {
		if ld.busy() {
			return
		}
		if !viewer.CanOpen(path) {
			dialog.ShowError(fmt.Errorf("cannot preview %s", path), w)
			return
		}
		if view != nil {
			view.Attach(nil)
		}
		current = nil
		var next *DrawingView
		newSurface := func(sz image.Point) viewport.Surface {
			next = NewDrawingView(sz)
			return next.Surface()
		}
		started := ld.start(ctx, path, newSurface, func(pc *plugin.Context, err error) {
			w.SetTitle(pc.Title + " - " + appTitle)
			if pc.Content != nil {
				view = next
				current = pc.Content
				view.Attach(current.Engine)
				content.Objects = []fyne.CanvasObject{view}
				content.Refresh()
			}
			if err != nil {
				dialog.ShowError(err, w)
			}
		})
		if started {
			statusLabel.SetText("Loading " + plugin.DisplayName(path) + "…")
		}
	}

	withEngine := func(fn func(e *viewport.Engine)) func() {
		return func() {
			if current == nil {
				return
			}
			fn(current.Engine)
			current.Surface.Invalidate()
		}
	}
	toggleBackground := withEngine(func(e *viewport.Engine) { e.SetBackground(!e.IsBlackBackground()) })
	toggleDrawMode := withEngine(func(e *viewport.Engine) { e.SetDrawMode(!e.IsNormalDrawMode()) })
	toggleText := withEngine(func(e *viewport.Engine) { e.ToggleTextVisible() })
	zoomIn := withEngine(func(e *viewport.Engine) { e.ZoomIn() })
	zoomOut := withEngine(func(e *viewport.Engine) { e.ZoomOut() })
	reset := withEngine(func(e *viewport.Engine) { e.ResetScaling() })

	showOpen := func() {
		d := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if r == nil {
				return
			}
			path := r.URI().Path()
			_ = r.Close()
			open(path)
		}, w)
		exts := append(append([]string{}, plugin.CADExtensions...), viewer.Registry.Extensions()...)
		d.SetFilter(fstorage.NewExtensionFileFilter(exts))
		d.Show()
	}
	showExport := func() {
		if current == nil || view == nil {
			return
		}
		d := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if wc == nil {
				return
			}
			path := wc.URI().Path()
			_ = wc.Close()
			img := image.NewRGBA(image.Rectangle{Max: current.Size()})
			if !current.Engine.Paint(img) {
				dialog.ShowError(fmt.Errorf("nothing to export"), w)
				return
			}
			if err := export.Write(img, path, w.Title()); err != nil {
				l.Error("export failed", slog.Any("err", err))
				dialog.ShowError(err, w)
				return
			}
			statusLabel.SetText("Exported " + plugin.DisplayName(path))
		}, w)
		d.SetFileName("preview.png")
		d.SetFilter(fstorage.NewExtensionFileFilter([]string{".png", ".pdf"}))
		d.Show()
	}
	showAbout := func() {
		info := fmt.Sprintf("%s\nVersion: %s\nOS: %s\nArch: %s\nGo: %s",
			appTitle, version.String(), runtime.GOOS, runtime.GOARCH, runtime.Version())
		dialog.ShowInformation("About", info, w)
	}

	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.FolderOpenIcon(), showOpen),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), showExport),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ColorPaletteIcon(), toggleBackground),
		widget.NewToolbarAction(theme.ColorChromaticIcon(), toggleDrawMode),
		widget.NewToolbarAction(theme.VisibilityIcon(), toggleText),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ZoomInIcon(), zoomIn),
		widget.NewToolbarAction(theme.ZoomOutIcon(), zoomOut),
		widget.NewToolbarAction(theme.ZoomFitIcon(), reset),
		widget.NewToolbarSpacer(),
		widget.NewToolbarAction(theme.InfoIcon(), showAbout),
	)

	openItem := fyne.NewMenuItem("Open…", showOpen)
	openItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierControl}
	exportItem := fyne.NewMenuItem("Export View…", showExport)
	exportItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyE, Modifier: fyne.KeyModifierControl}
	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Toggle Background", toggleBackground),
		fyne.NewMenuItem("Toggle Draw Mode", toggleDrawMode),
		fyne.NewMenuItem("Toggle Text", toggleText),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Zoom In", zoomIn),
		fyne.NewMenuItem("Zoom Out", zoomOut),
		fyne.NewMenuItem("Reset Zoom", reset),
	)
	w.SetMainMenu(fyne.NewMainMenu(
		fyne.NewMenu("File", openItem, exportItem),
		viewMenu,
		fyne.NewMenu("About", fyne.NewMenuItem("About "+appTitle, showAbout)),
	))
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierControl}, func(fyne.Shortcut) { showOpen() })
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyE, Modifier: fyne.KeyModifierControl}, func(fyne.Shortcut) { showExport() })

	w.SetOnDropped(func(_ fyne.Position, uris []fyne.URI) {
		if len(uris) > 0 {
			open(uris[0].Path())
		}
	})
	w.SetCloseIntercept(func() {
		if !ld.requestClose(ctx) {
			statusLabel.SetText("Closing…")
		}
	})

	w.SetContent(container.NewBorder(toolbar, statusLabel, nil, nil, content))
	var pc plugin.Context
	viewer.Prepare(ctx, o.Path, &pc)
	w.Resize(fyne.NewSize(float32(pc.PreferredSize.X), float32(pc.PreferredSize.Y)))
	if o.Path != "" {
		open(o.Path)
	}
	w.ShowAndRun()
	return nil
}
