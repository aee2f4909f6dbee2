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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"

	"storyboard/internal/config"
	"storyboard/internal/storage"
)

func isolate(t *testing.T) string {
	t.Helper()
	keyring.MockInit()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigPath, filepath.Join(dir, "config.yaml"))
	t.Setenv(config.EnvStoragePath, filepath.Join(dir, "panels.sqlite"))
	t.Setenv(config.EnvStorageDriver, "sqlite")
	t.Setenv(config.EnvLogLevel, "error")
	return dir
}

func TestRunVersion(t *testing.T) {
	var out bytes.Buffer
	if code := run([]string{"--version"}, &out); code != 0 {
		t.Fatalf("exit code %d", code)
	}
	if !strings.HasPrefix(out.String(), "storyboard ") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestRunUsage(t *testing.T) {
	var out bytes.Buffer
	if code := run(nil, &out); code != 2 || !strings.Contains(out.String(), "Usage:") {
		t.Fatalf("code=%d out=%q", code, out.String())
	}
	out.Reset()
	if code := run([]string{"paint"}, &out); code != 2 || !strings.Contains(out.String(), `unknown command "paint"`) {
		t.Fatalf("code=%d out=%q", code, out.String())
	}
}

func TestRunSketchThenListPanels(t *testing.T) {
	dir := isolate(t)
	src := filepath.Join(dir, "demo.yaml")
	data := "panel: opening\nsteps:\n  - down: [10, 10]\n  - move: [60, 40]\n  - up\n  - tool: circle\n  - down: [100, 100]\n  - up: [120, 100]\n  - undo\n"
	if err := os.WriteFile(src, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if code := run([]string{"sketch", src}, &out); code != 0 {
		t.Fatalf("sketch exit %d: %s", code, out.String())
	}
	if !strings.Contains(out.String(), "panel opening: 7 steps, 1 strokes, 1 shapes, 1 undone") {
		t.Fatalf("unexpected summary: %q", out.String())
	}

	out.Reset()
	if code := run([]string{"panels"}, &out); code != 0 {
		t.Fatalf("panels exit %d: %s", code, out.String())
	}
	if !strings.Contains(out.String(), "opening") || !strings.Contains(out.String(), "800x600") {
		t.Fatalf("panel listing: %q", out.String())
	}
}

func TestRunSketchReportsScriptErrors(t *testing.T) {
	dir := isolate(t)
	src := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(src, []byte("- tool: spray\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if code := run([]string{"sketch", src, "p1"}, &out); code != 2 {
		t.Fatalf("exit code %d", code)
	}
	if !strings.Contains(out.String(), "bad.yaml:1:") {
		t.Fatalf("error should carry file and line: %q", out.String())
	}
}

func TestRunPostgresWithoutDSN(t *testing.T) {
	isolate(t)
	t.Setenv(config.EnvStorageDriver, "postgres")
	t.Setenv(config.EnvBackendDSN, "")
	var out bytes.Buffer
	if code := run([]string{"panels"}, &out); code != 1 || !strings.Contains(out.String(), "backend.dsn") {
		t.Fatalf("code=%d out=%q", code, out.String())
	}
}

func TestNewEditorCarriesHistoryCaps(t *testing.T) {
	dir := isolate(t)
	st, err := storage.Open(filepath.Join(dir, "caps.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Defaults()
	cfg.Canvas.MaxHistory = 7
	cfg.Canvas.MaxBytes = 4096
	ed, err := newEditor(cfg, st)
	if err != nil {
		t.Fatalf("newEditor: %v", err)
	}
	m := ed.Surface().Manager()
	if m.MaxHistorySize() != 7 || m.MaxHistoryBytes() != 4096 {
		t.Fatalf("caps not applied: history=%d bytes=%d", m.MaxHistorySize(), m.MaxHistoryBytes())
	}
}
