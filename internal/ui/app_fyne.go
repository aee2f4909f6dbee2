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
	"log/slog"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"storyboard/internal/config"
	"storyboard/internal/crash"
	"storyboard/internal/editor"
	applog "storyboard/internal/log"
	"storyboard/internal/surface"
	"storyboard/internal/undo"
)

// Run opens the desktop window for ed and blocks until it is closed.
func Run(ed *editor.Editor) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI")
	defer crash.Recover(ed)

	fyneApp := app.NewWithID("storyboard")
	w := fyneApp.NewWindow(windowTitle(ed))
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1200)
	winH := prefs.IntWithFallback("window.height", 800)
	if winW < 800 {
		winW = 800
	}
	if winH < 600 {
		winH = 600
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	s := ed.Surface()
	status := widget.NewLabel("Ready")
	view := NewSurfaceWidget(s)
	tb := newToolbar(s)
	view.OnChange = tb.syncZoom

	setStatus := func(msg string, err error) {
		if err != nil {
			l.Error(msg, slog.Any("err", err))
			status.SetText(fmt.Sprintf("%s: %v", msg, err))
			return
		}
		status.SetText(msg)
	}

	panelEntry := widget.NewEntry()
	panelEntry.SetPlaceHolder("panel id")
	panelEntry.SetText(ed.PanelID())
	openPanel := func() {
		id := strings.TrimSpace(panelEntry.Text)
		if err := ed.Open(context.Background(), id); err != nil {
			setStatus("open failed", err)
			return
		}
		w.SetTitle(windowTitle(ed))
		view.Refresh()
		setStatus("opened "+id, nil)
	}
	panelEntry.OnSubmitted = func(string) { openPanel() }
	save := func() {
		if err := ed.Save(context.Background()); err != nil {
			setStatus("save failed", err)
			return
		}
		setStatus("saved "+ed.PanelID(), nil)
	}
	revert := func() {
		ok, err := ed.RevertToSaved(context.Background())
		switch {
		case err != nil:
			setStatus("revert failed", err)
		case !ok:
			setStatus("no saved revision", nil)
		default:
			view.Refresh()
			setStatus("reverted to last save", nil)
		}
	}
	undoFn := func() {
		if s.Undo() {
			view.Refresh()
		}
	}
	redoFn := func() {
		if s.Redo() {
			view.Refresh()
		}
	}
	tb.undo.OnTapped = undoFn
	tb.redo.OnTapped = redoFn
	tb.clear.OnTapped = func() { s.Clear(); view.Refresh() }

	panelBar := container.NewHBox(
		widget.NewLabel("Panel"), container.NewGridWrap(fyne.NewSize(180, panelEntry.MinSize().Height), panelEntry),
		widget.NewButton("Open", openPanel),
		widget.NewButton("Save", save),
		widget.NewButton("Revert", revert),
	)
	top := container.NewVBox(panelBar, tb.box, widget.NewSeparator())
	w.SetContent(container.NewBorder(top, status, nil, nil, container.NewScroll(view)))

	ctrl := fyne.KeyModifierShortcutDefault
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: ctrl}, func(fyne.Shortcut) { undoFn() })
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: ctrl}, func(fyne.Shortcut) { redoFn() })
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: ctrl}, func(fyne.Shortcut) { save() })

	w.SetCloseIntercept(func() {
		if err := ed.Autosave(context.Background()); err != nil {
			l.Error("autosave on close failed", slog.Any("err", err))
		}
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		w.Close()
	})
	w.ShowAndRun()
	return nil
}

func windowTitle(ed *editor.Editor) string {
	if ed.PanelID() == "" {
		return "Storyboard"
	}
	return "Storyboard: " + ed.PanelID()
}

// toolbar holds the tool, pen and history controls bound to one surface.
type toolbar struct {
	s         *surface.Surface
	box       *fyne.Container
	tool      *widget.Select
	width     *widget.Slider
	color     *widget.Entry
	fill      *widget.Check
	undo      *widget.Button
	redo      *widget.Button
	clear     *widget.Button
	zoomLabel *widget.Label
}

func newToolbar(s *surface.Surface) *toolbar {
	tb := &toolbar{s: s}
	names := make([]string, 0, len(surface.Tools()))
	for _, t := range surface.Tools() {
		names = append(names, t.String())
	}
	tb.tool = widget.NewSelect(names, func(name string) {
		if t, err := surface.ParseTool(name); err == nil {
			s.SetTool(t)
		}
	})
	tb.tool.SetSelected(s.Tool().String())

	tb.width = widget.NewSlider(surface.MinStrokeWidth, surface.MaxStrokeWidth)
	tb.width.Step = 0.5
	tb.width.SetValue(s.StrokeWidth())
	tb.width.OnChanged = s.SetStrokeWidth

	tb.color = widget.NewEntry()
	tb.color.SetText(config.FormatColor(s.Color()))
	tb.color.OnSubmitted = func(v string) {
		c, err := config.ParseColor(v)
		if err != nil {
			tb.color.SetText(config.FormatColor(s.Color()))
			return
		}
		s.SetColor(c)
	}
	tb.fill = widget.NewCheck("Fill shapes", s.SetFill)
	tb.fill.SetChecked(s.FillShapes())

	tb.undo = widget.NewButton("Undo", nil)
	tb.redo = widget.NewButton("Redo", nil)
	tb.clear = widget.NewButton("Clear", nil)
	tb.zoomLabel = widget.NewLabel("")
	zoomIn := widget.NewButton("+", s.ZoomIn)
	zoomOut := widget.NewButton("-", s.ZoomOut)
	zoomReset := widget.NewButton("100%", s.ResetZoom)

	s.Manager().OnStateChange(tb.syncHistory)
	s.OnZoomChanged(func(float64) { tb.syncZoom() })
	tb.syncHistory(s.Manager().State())
	tb.syncZoom()

	tb.box = container.NewHBox(
		tb.tool,
		widget.NewLabel("Width"), container.NewGridWrap(fyne.NewSize(140, tb.width.MinSize().Height), tb.width),
		container.NewGridWrap(fyne.NewSize(90, tb.color.MinSize().Height), tb.color),
		tb.fill,
		widget.NewSeparator(),
		tb.undo, tb.redo, tb.clear,
		widget.NewSeparator(),
		zoomOut, tb.zoomLabel, zoomIn, zoomReset,
	)
	return tb
}

func (tb *toolbar) syncHistory(st undo.State) {
	setEnabled(tb.undo, st.CanUndo)
	setEnabled(tb.redo, st.CanRedo)
	tb.undo.SetText(historyLabel("Undo", st.UndoDescription))
	tb.redo.SetText(historyLabel("Redo", st.RedoDescription))
}

func (tb *toolbar) syncZoom() {
	tb.zoomLabel.SetText(fmt.Sprintf("%.0f%%", tb.s.Zoom()*100))
}

func historyLabel(verb, desc string) string {
	if desc == "" {
		return verb
	}
	return verb + " " + desc
}

func setEnabled(b *widget.Button, on bool) {
	if on {
		b.Enable()
		return
	}
	b.Disable()
}
