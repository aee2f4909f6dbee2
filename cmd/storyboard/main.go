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
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"storyboard/internal/backend"
	"storyboard/internal/config"
	"storyboard/internal/crash"
	"storyboard/internal/editor"
	applog "storyboard/internal/log"
	"storyboard/internal/script"
	"storyboard/internal/storage"
	"storyboard/internal/surface"
	"storyboard/internal/telemetry"
	"storyboard/internal/ui"
	"storyboard/internal/undo"
	"storyboard/internal/version"
)

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Storyboard: raster panel sketching with undo/redo")
	_, _ = fmt.Fprintf(w, "Version: %s\n", version.String())
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  storyboard version|-v|--version             Show version")
	_, _ = fmt.Fprintln(w, "  storyboard sketch <script.yaml> [<panel>]    Replay a sketch script onto a panel and save it")
	_, _ = fmt.Fprintln(w, "  storyboard panels                            List stored panels")
	_, _ = fmt.Fprintln(w, "  storyboard ui [<panel>]                      Launch desktop UI (build with -tags fyne)")
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	if len(args) == 0 {
		usage(out)
		return 2
	}
	switch args[0] {
	case "version", "--version", "-v":
		_, _ = fmt.Fprintln(out, version.String())
		return 0
	case "help", "-h", "--help":
		usage(out)
		return 0
	case "sketch", "panels", "ui":
	default:
		_, _ = fmt.Fprintf(out, "unknown command %q\n", args[0])
		usage(out)
		return 2
	}

	cfg, password, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintln(out, "Error:", err)
		return 1
	}
	applog.Init(applog.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, AddSource: cfg.Logging.Source, File: cfg.Logging.File})
	l := applog.WithComponent("cli")
	l.Debug("start", slog.String("cmd", args[0]), slog.String("driver", cfg.Storage.Driver))

	ctx := context.Background()
	st, err := openStore(ctx, cfg, password)
	if err != nil {
		l.Error("open store failed", slog.Any("err", err))
		_, _ = fmt.Fprintln(out, "Error:", err)
		return 1
	}
	defer func() { _ = st.Close() }()

	switch args[0] {
	case "panels":
		return listPanels(ctx, st, out)
	case "sketch":
		if len(args) < 2 {
			_, _ = fmt.Fprintln(out, "sketch requires <script.yaml>")
			usage(out)
			return 2
		}
		ed, err := newEditor(cfg, st)
		if err != nil {
			_, _ = fmt.Fprintln(out, "Error:", err)
			return 1
		}
		defer crash.Recover(ed)
		panel := ""
		if len(args) >= 3 {
			panel = args[2]
		}
		return sketch(ctx, ed, args[1], panel, out)
	default: // ui
		ed, err := newEditor(cfg, st)
		if err != nil {
			_, _ = fmt.Fprintln(out, "Error:", err)
			return 1
		}
		if len(args) >= 2 {
			if err := ed.Open(ctx, args[1]); err != nil {
				_, _ = fmt.Fprintln(out, "Error:", err)
				return 1
			}
		}
		if err := ui.Run(ed); err != nil {
			_, _ = fmt.Fprintln(out, "Error:", err)
			return 1
		}
		return 0
	}
}

// panelStore is what both persistence drivers offer the CLI.
type panelStore interface {
	editor.PanelStore
	Close() error
}

func openStore(ctx context.Context, cfg config.AppConfig, password string) (panelStore, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		dsn := cfg.Backend.DSN
		if strings.TrimSpace(dsn) == "" {
			return nil, fmt.Errorf("storage driver postgres needs backend.dsn or %s", config.EnvBackendDSN)
		}
		if password != "" {
			var err error
			if dsn, err = backend.DSNWithPassword(dsn, password); err != nil {
				return nil, err
			}
		}
		db, err := backend.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		db.SetTimeout(cfg.Backend.Timeout())
		return db, nil
	default:
		path := cfg.Storage.Path
		if strings.TrimSpace(path) == "" {
			path = storage.DefaultPath()
		}
		db, recovered, err := storage.OpenOrRecover(ctx, path)
		if err != nil {
			return nil, err
		}
		if recovered {
			applog.WithComponent("cli").Warn("panel database was damaged and has been recreated", slog.String("path", path))
		}
		return db, nil
	}
}

func newEditor(cfg config.AppConfig, st panelStore) (*editor.Editor, error) {
	bg, err := config.ParseColor(cfg.Canvas.Background)
	if err != nil {
		return nil, err
	}
	ink, err := config.ParseColor(cfg.Canvas.StrokeColor)
	if err != nil {
		return nil, err
	}
	s := surface.New(surface.Options{
		Width:       cfg.Canvas.Width,
		Height:      cfg.Canvas.Height,
		Background:  bg,
		Color:       ink,
		StrokeWidth: cfg.Canvas.StrokeWidth,
		Tool:        surface.Pen,
		MinZoom:     cfg.Canvas.MinZoom,
		MaxZoom:     cfg.Canvas.MaxZoom,
		ZoomStep:    cfg.Canvas.ZoomStep,
		History: undo.Config{
			MaxHistory:   cfg.Canvas.MaxHistory,
			MaxBytes:     int(cfg.Canvas.MaxBytes),
			MergeStrokes: cfg.Canvas.MergeStrokes,
		},
	})
	return editor.New(s, st, editor.Options{KeepRevisions: cfg.Storage.KeepRevisions}), nil
}

func sketch(ctx context.Context, ed *editor.Editor, path, panel string, out io.Writer) int {
	sc, errs := script.ParseFile(path)
	if len(errs) > 0 {
		for _, e := range errs {
			_, _ = fmt.Fprintf(out, "%s:%d:%d: %s\n", path, e.Line, e.Column, e.Message)
		}
		return 2
	}
	if panel == "" {
		panel = sc.Panel
	}
	if panel == "" {
		panel = "sketch"
	}
	if err := ed.Open(ctx, panel); err != nil {
		_, _ = fmt.Fprintln(out, "Error:", err)
		return 1
	}
	sum, err := script.NewPlayer().Run(ctx, ed.Surface(), sc.Steps)
	if err != nil {
		_, _ = fmt.Fprintln(out, "Error:", err)
		return 1
	}
	if err := ed.Save(ctx); err != nil {
		_, _ = fmt.Fprintln(out, "Error:", err)
		return 1
	}
	telemetry.Track("sketch_replayed", map[string]any{"steps": sum.Steps, "strokes": sum.Strokes, "shapes": sum.Shapes})
	telemetry.Default().Flush(ctx)
	_, _ = fmt.Fprintf(out, "panel %s: %d steps, %d strokes, %d shapes, %d undone, %d redone, history %d\n",
		panel, sum.Steps, sum.Strokes, sum.Shapes, sum.Undone, sum.Redone, sum.Depth)
	return 0
}

func listPanels(ctx context.Context, st panelStore, out io.Writer) int {
	type row struct {
		id   string
		w, h int
		when string
	}
	var rows []row
	switch db := st.(type) {
	case *storage.Store:
		list, err := db.ListPanels(ctx)
		if err != nil {
			_, _ = fmt.Fprintln(out, "Error:", err)
			return 1
		}
		for _, p := range list {
			rows = append(rows, row{p.ID, p.Width, p.Height, p.UpdatedAt.Format("2006-01-02 15:04")})
		}
	case *backend.Store:
		list, err := db.ListPanels(ctx)
		if err != nil {
			_, _ = fmt.Fprintln(out, "Error:", err)
			return 1
		}
		for _, p := range list {
			rows = append(rows, row{p.ID, p.Width, p.Height, p.UpdatedAt.Format("2006-01-02 15:04")})
		}
	}
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(out, "no panels stored")
		return 0
	}
	for _, r := range rows {
		_, _ = fmt.Fprintf(out, "%-24s %5dx%-5d %s\n", r.id, r.w, r.h, r.when)
	}
	return 0
}
