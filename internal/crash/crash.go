/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a crash report and a last-chance autosave.
package crash

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"storyboard/internal/editor"
	applog "storyboard/internal/log"
	"storyboard/internal/telemetry"
	"storyboard/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// autosaveTimeout bounds the last-chance save.
const autosaveTimeout = 5 * time.Second

// ReportDir returns where crash reports go: SB_CRASH_DIR when set, the temp dir otherwise.
func ReportDir() string {
	if d := strings.TrimSpace(os.Getenv("SB_CRASH_DIR")); d != "" {
		return d
	}
	return os.TempDir()
}

// Recover captures a panic, logs it with the stack trace, writes a report file and
// autosaves the open panel (if ed is non-nil), then exits with status 2.
//
// Usage: defer crash.Recover(ed)
func Recover(ed *editor.Editor) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(ReportDir(), ed, r, stack)
	if err != nil {
		l.Error("crash report not written", slog.Any("err", err))
	}
	if ed != nil {
		ctx, cancel := context.WithTimeout(context.Background(), autosaveTimeout)
		if err := ed.Autosave(ctx); err != nil {
			l.Error("autosave failed", slog.Any("err", err))
		} else if ed.PanelID() != "" {
			l.Info("autosave done", slog.String("panel", ed.PanelID()))
		}
		cancel()
	}

	if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func writeReport(dir string, ed *editor.Editor, panicVal any, stack []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	now := time.Now()
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", now.Format("20060102-150405")))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Storyboard Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", now.Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if ed != nil {
		s := ed.Surface()
		st := s.Manager().State()
		_, _ = fmt.Fprintf(&buf, "Panel: %s (dirty=%v)\n", ed.PanelID(), ed.Dirty())
		_, _ = fmt.Fprintf(&buf, "Surface: %dx%d tool=%s phase=%s zoom=%.2f\n", s.Width(), s.Height(), s.Tool(), s.Phase(), s.Zoom())
		_, _ = fmt.Fprintf(&buf, "History: undo=%d redo=%d\n", st.UndoCount, st.RedoCount)
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	// opt-in only; a no-op unless telemetry is configured
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
