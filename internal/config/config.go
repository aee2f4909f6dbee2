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
	_ "embed"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	gojsonschema "github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type CanvasConfig struct {
	Width        int     `yaml:"width" json:"width"`
	Height       int     `yaml:"height" json:"height"`
	Background   string  `yaml:"background" json:"background"`
	StrokeColor  string  `yaml:"stroke_color" json:"stroke_color"`
	StrokeWidth  float64 `yaml:"stroke_width" json:"stroke_width"`
	MaxHistory   int     `yaml:"max_history" json:"max_history"`
	MaxBytes     int64   `yaml:"max_history_bytes" json:"max_history_bytes"`
	MergeStrokes bool    `yaml:"merge_strokes" json:"merge_strokes"`
	MinZoom      float64 `yaml:"min_zoom" json:"min_zoom"`
	MaxZoom      float64 `yaml:"max_zoom" json:"max_zoom"`
	ZoomStep     float64 `yaml:"zoom_step" json:"zoom_step"`
}

type StorageConfig struct {
	Driver        string `yaml:"driver" json:"driver"` // "sqlite" | "postgres"
	Path          string `yaml:"path" json:"path"`
	KeepRevisions int    `yaml:"keep_revisions" json:"keep_revisions"`
}

type BackendConfig struct {
	DSN       string `yaml:"dsn" json:"dsn"`
	TimeoutMs int    `yaml:"timeout_ms" json:"timeout_ms"`
	// Password is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Source bool   `yaml:"source" json:"source"`
	File   string `yaml:"file" json:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version" json:"config_version"`
	Canvas        CanvasConfig  `yaml:"canvas" json:"canvas"`
	Storage       StorageConfig `yaml:"storage" json:"storage"`
	Backend       BackendConfig `yaml:"backend" json:"backend"`
	Logging       LoggingConfig `yaml:"logging" json:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Canvas: CanvasConfig{
			Width: 800, Height: 600,
			Background: "#ffffff", StrokeColor: "#000000", StrokeWidth: 2,
			MaxHistory: 50, MergeStrokes: true,
			MinZoom: 0.1, MaxZoom: 5, ZoomStep: 1.2,
		},
		Storage: StorageConfig{Driver: "sqlite", KeepRevisions: 20},
		Backend: BackendConfig{TimeoutMs: 10000},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvCanvasWidth   = "SB_CANVAS_WIDTH"
	EnvCanvasHeight  = "SB_CANVAS_HEIGHT"
	EnvMaxHistory    = "SB_MAX_HISTORY"
	EnvMergeStrokes  = "SB_MERGE_STROKES"
	EnvStorageDriver = "SB_STORAGE_DRIVER"
	EnvStoragePath   = "SB_STORAGE_PATH"
	EnvBackendDSN    = "SB_BACKEND_DSN"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "SB_LOG_LEVEL"
	EnvLogFormat = "SB_LOG_FORMAT"
	EnvLogSource = "SB_LOG_SOURCE"
	EnvLogFile   = "SB_LOG_FILE"
	// EnvConfigPath points Load/Save at an explicit file.
	EnvConfigPath = "SB_CONFIG"
)

//go:embed schema.json
var schemaJSON []byte

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Storyboard")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Storyboard")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "storyboard")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, merges environment overrides
// and validates the result. The backend password is loaded from the keyring and returned separately.
// A file that cannot be parsed is an error; a missing file is not.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// seed with defaults so booleans absent from the file keep their default
		fileCfg := Defaults()
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, "", fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, "", err
	}
	pw, _ := secretStore.Get(keyringService, keyringPassword)
	return cfg, pw, nil
}

// Save writes the user config YAML and persists the password into the OS keyring (if non-empty).
func Save(cfg AppConfig, password string) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if password != "" {
		if err := secretStore.Set(keyringService, keyringPassword, password); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks cfg against the embedded JSON schema and reports every violation in one error.
func Validate(cfg AppConfig) error {
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewGoLoader(cfg))
	if err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if res.Valid() {
		if cfg.Canvas.MinZoom > cfg.Canvas.MaxZoom {
			return fmt.Errorf("invalid config: canvas.min_zoom %.2f exceeds canvas.max_zoom %.2f", cfg.Canvas.MinZoom, cfg.Canvas.MaxZoom)
		}
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// canvas
	if src.Canvas.Width != 0 {
		dst.Canvas.Width = src.Canvas.Width
	}
	if src.Canvas.Height != 0 {
		dst.Canvas.Height = src.Canvas.Height
	}
	if strings.TrimSpace(src.Canvas.Background) != "" {
		dst.Canvas.Background = strings.TrimSpace(src.Canvas.Background)
	}
	if strings.TrimSpace(src.Canvas.StrokeColor) != "" {
		dst.Canvas.StrokeColor = strings.TrimSpace(src.Canvas.StrokeColor)
	}
	if src.Canvas.StrokeWidth != 0 {
		dst.Canvas.StrokeWidth = src.Canvas.StrokeWidth
	}
	if src.Canvas.MaxHistory != 0 {
		dst.Canvas.MaxHistory = src.Canvas.MaxHistory
	}
	if src.Canvas.MaxBytes != 0 {
		dst.Canvas.MaxBytes = src.Canvas.MaxBytes
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.Canvas.MergeStrokes = src.Canvas.MergeStrokes
	if src.Canvas.MinZoom != 0 {
		dst.Canvas.MinZoom = src.Canvas.MinZoom
	}
	if src.Canvas.MaxZoom != 0 {
		dst.Canvas.MaxZoom = src.Canvas.MaxZoom
	}
	if src.Canvas.ZoomStep != 0 {
		dst.Canvas.ZoomStep = src.Canvas.ZoomStep
	}
	// storage
	if strings.TrimSpace(src.Storage.Driver) != "" {
		dst.Storage.Driver = strings.ToLower(strings.TrimSpace(src.Storage.Driver))
	}
	if strings.TrimSpace(src.Storage.Path) != "" {
		dst.Storage.Path = strings.TrimSpace(src.Storage.Path)
	}
	if src.Storage.KeepRevisions != 0 {
		dst.Storage.KeepRevisions = src.Storage.KeepRevisions
	}
	// backend
	if strings.TrimSpace(src.Backend.DSN) != "" {
		dst.Backend.DSN = strings.TrimSpace(src.Backend.DSN)
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvCanvasWidth)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Canvas.Width = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvCanvasHeight)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Canvas.Height = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxHistory)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Canvas.MaxHistory = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvMergeStrokes)); v != "" {
		cfg.Canvas.MergeStrokes = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageDriver)); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoragePath)); v != "" {
		cfg.Storage.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendDSN)); v != "" {
		cfg.Backend.DSN = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envKeys = map[string]string{
	"canvas.width":         EnvCanvasWidth,
	"canvas.height":        EnvCanvasHeight,
	"canvas.max_history":   EnvMaxHistory,
	"canvas.merge_strokes": EnvMergeStrokes,
	"storage.driver":       EnvStorageDriver,
	"storage.path":         EnvStoragePath,
	"backend.dsn":          EnvBackendDSN,
	"logging.level":        EnvLogLevel,
	"logging.format":       EnvLogFormat,
	"logging.source":       EnvLogSource,
	"logging.file":         EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envKeys[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// Timeout returns the backend statement timeout, falling back to the default for non-positive values.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Backend.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

// ParseColor parses a CSS-style hex color (#rgb or #rrggbb) into an opaque RGBA.
func ParseColor(s string) (color.RGBA, error) {
	c, err := colorful.Hex(expandShortHex(strings.TrimSpace(s)))
	if err != nil {
		return color.RGBA{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// FormatColor renders c as #rrggbb, dropping alpha.
func FormatColor(c color.RGBA) string {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}.Hex()
}

func expandShortHex(s string) string {
	if len(s) == 4 && s[0] == '#' {
		return string([]byte{'#', s[1], s[1], s[2], s[2], s[3], s[3]})
	}
	return s
}
