/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zalando/go-keyring"
)

// isolate points the config file at a temp dir and swaps the OS keyring for the in-memory mock.
func isolate(t *testing.T) string {
	t.Helper()
	keyring.MockInit()
	p := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigPath, p)
	return p
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	isolate(t)
	cfg, pw, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if pw != "" {
		t.Fatalf("expected no password, got %q", pw)
	}
	if cfg.Canvas.Width != 800 || cfg.Canvas.Height != 600 || cfg.Canvas.MaxHistory != 50 || !cfg.Canvas.MergeStrokes {
		t.Fatalf("unexpected canvas defaults: %#v", cfg.Canvas)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.KeepRevisions != 20 {
		t.Fatalf("unexpected storage defaults: %#v", cfg.Storage)
	}
}

func TestSaveThenLoadRoundTripsFileAndPassword(t *testing.T) {
	p := isolate(t)
	cfg := Defaults()
	cfg.Canvas.Background = "#fafafa"
	cfg.Canvas.MaxHistory = 10
	cfg.Storage.Driver = "postgres"
	cfg.Backend.DSN = "postgres://sb@localhost/storyboard"
	if err := Save(cfg, "hunter2"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	got, pw, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if pw != "hunter2" {
		t.Fatalf("password = %q, want hunter2", pw)
	}
	if got.Canvas.Background != "#fafafa" || got.Canvas.MaxHistory != 10 || got.Storage.Driver != "postgres" {
		t.Fatalf("round trip mismatch: %#v", got)
	}
	if err := ForgetPassword(); err != nil {
		t.Fatalf("ForgetPassword: %v", err)
	}
	if _, pw, _ = Load(); pw != "" {
		t.Fatalf("password still present after ForgetPassword: %q", pw)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	p := isolate(t)
	if err := os.WriteFile(p, []byte("canvas: [not a map"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadReportsSchemaViolations(t *testing.T) {
	p := isolate(t)
	data := "canvas:\n  background: red\n  stroke_width: 99\nstorage:\n  driver: mysql\n"
	if err := os.WriteFile(p, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	_, _, err := Load()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	msg := err.Error()
	for _, field := range []string{"background", "stroke_width", "driver"} {
		if !strings.Contains(msg, field) {
			t.Fatalf("error %q does not mention %s", msg, field)
		}
	}
}

func TestValidateRejectsInvertedZoomRange(t *testing.T) {
	cfg := Defaults()
	cfg.Canvas.MinZoom, cfg.Canvas.MaxZoom = 4, 2
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for min_zoom > max_zoom")
	}
}

func TestEnvOverridesCanvasAndStorage(t *testing.T) {
	isolate(t)
	t.Setenv(EnvCanvasWidth, "320")
	t.Setenv(EnvCanvasHeight, "240")
	t.Setenv(EnvMaxHistory, "5")
	t.Setenv(EnvMergeStrokes, "off")
	t.Setenv(EnvStorageDriver, "POSTGRES")
	t.Setenv(EnvBackendDSN, "postgres://x@y/z")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Canvas.Width != 320 || cfg.Canvas.Height != 240 || cfg.Canvas.MaxHistory != 5 || cfg.Canvas.MergeStrokes {
		t.Fatalf("canvas env overrides not applied: %#v", cfg.Canvas)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Backend.DSN != "postgres://x@y/z" {
		t.Fatalf("storage env overrides not applied: %#v %#v", cfg.Storage, cfg.Backend)
	}
	if env, ok := EnvOverrideFor("canvas.width"); !ok || env != EnvCanvasWidth {
		t.Fatalf("EnvOverrideFor(canvas.width) = %q, %v", env, ok)
	}
	if _, ok := EnvOverrideFor("storage.path"); ok {
		t.Fatalf("storage.path should not be reported as overridden")
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "DEBUG"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/sb.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/sb.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "/var/tmp/sb.log")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "/var/tmp/sb.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestParseColor(t *testing.T) {
	cases := map[string]color.RGBA{
		"#000000":   {0, 0, 0, 255},
		"#ff8000":   {255, 128, 0, 255},
		"#fff":      {255, 255, 255, 255},
		" #0a0B0c ": {10, 11, 12, 255},
	}
	for in, want := range cases {
		got, err := ParseColor(in)
		if err != nil {
			t.Fatalf("ParseColor(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseColor(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseColor("tomato"); err == nil {
		t.Fatalf("expected error for named color")
	}
	if s := FormatColor(color.RGBA{255, 128, 0, 255}); s != "#ff8000" {
		t.Fatalf("FormatColor = %q", s)
	}
}

func TestBackendTimeout(t *testing.T) {
	if d := (BackendConfig{}).Timeout(); d != 10*time.Second {
		t.Fatalf("default timeout = %v", d)
	}
	if d := (BackendConfig{TimeoutMs: 250}).Timeout(); d != 250*time.Millisecond {
		t.Fatalf("timeout = %v", d)
	}
}

func TestPartialFileKeepsBooleanDefaults(t *testing.T) {
	p := isolate(t)
	if err := os.WriteFile(p, []byte("canvas:\n  width: 1024\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Canvas.Width != 1024 || cfg.Canvas.Height != 600 || !cfg.Canvas.MergeStrokes {
		t.Fatalf("partial file merged incorrectly: %#v", cfg.Canvas)
	}
}
