/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package editor binds a drawing surface to a panel store: it switches the edited panel,
// persists it with revisions and thumbnails, and tracks unsaved changes.
package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	applog "storyboard/internal/log"
	"storyboard/internal/raster"
	"storyboard/internal/surface"
	"storyboard/internal/undo"
)

// ErrNoPanel is returned by operations that need an open panel.
var ErrNoPanel = errors.New("no panel open")

// PanelStore persists encoded panel images. LoadPanel returns nil, nil for unknown panels.
type PanelStore interface {
	LoadPanel(ctx context.Context, panelID string) ([]byte, error)
	SavePanel(ctx context.Context, panelID string, data []byte) error
}

// RevisionStore is implemented by stores that keep a revision history.
type RevisionStore interface {
	SaveRevision(ctx context.Context, panelID string, data []byte, ts time.Time) error
	PruneRevisions(ctx context.Context, panelID string, keepLast int) (int64, error)
	LatestRevisionData(ctx context.Context, panelID string) ([]byte, error)
}

// ThumbnailStore is implemented by stores that cache panel thumbnails.
type ThumbnailStore interface {
	GetThumbnail(ctx context.Context, panelID string, w, h int) ([]byte, error)
	PutThumbnail(ctx context.Context, panelID string, w, h int, blob []byte) error
}

// Options tunes an Editor. Zero values fall back to the defaults.
type Options struct {
	// KeepRevisions bounds the revision history per panel.
	KeepRevisions int
	// ThumbWidth is the thumbnail width in pixels; the height keeps the aspect ratio.
	ThumbWidth int
	// BlankWidth and BlankHeight size the surface for panels without stored data.
	BlankWidth, BlankHeight int
}

const (
	defaultKeepRevisions = 20
	defaultThumbWidth    = 160
)

// Editor owns the lifecycle of the panel shown on a surface.
type Editor struct {
	s     *surface.Surface
	store PanelStore
	opts  Options

	panelID string
	dirty   bool
	// loading suppresses dirty tracking while the surface is replaced
	loading bool

	now func() time.Time
	log *slog.Logger
}

// New wires ed to the surface and store. The editor observes the surface's history to track
// unsaved changes.
func New(s *surface.Surface, store PanelStore, opts Options) *Editor {
	if opts.KeepRevisions <= 0 {
		opts.KeepRevisions = defaultKeepRevisions
	}
	if opts.ThumbWidth <= 0 {
		opts.ThumbWidth = defaultThumbWidth
	}
	if opts.BlankWidth <= 0 {
		opts.BlankWidth = s.Width()
	}
	if opts.BlankHeight <= 0 {
		opts.BlankHeight = s.Height()
	}
	ed := &Editor{s: s, store: store, opts: opts, now: time.Now, log: applog.WithComponent("editor")}
	s.Manager().OnStateChange(func(undo.State) {
		if !ed.loading {
			ed.dirty = true
		}
	})
	return ed
}

func (ed *Editor) Surface() *surface.Surface { return ed.s }

// PanelID returns the open panel, or "" before the first Open.
func (ed *Editor) PanelID() string { return ed.panelID }

// Dirty reports whether the surface changed since the last open or save.
func (ed *Editor) Dirty() bool { return ed.dirty }

// Open switches to panelID. A dirty current panel is saved first; if that fails the switch is
// aborted. Missing or undecodable panel data yields a blank surface. History is always cleared.
func (ed *Editor) Open(ctx context.Context, panelID string) error {
	panelID = strings.TrimSpace(panelID)
	if panelID == "" {
		return errors.New("panel id is required")
	}
	l := applog.WithOperation(ed.log, "open")
	if ed.panelID != "" && ed.dirty {
		if err := ed.Save(ctx); err != nil {
			return fmt.Errorf("save %s before switching: %w", ed.panelID, err)
		}
	}
	data, err := ed.store.LoadPanel(ctx, panelID)
	if err != nil {
		return fmt.Errorf("load panel %s: %w", panelID, err)
	}
	ctx = applog.ContextWithPanel(ctx, panelID)

	ed.loading = true
	defer func() { ed.loading = false }()
	switch {
	case data == nil:
		ed.s.ResetBlank(ed.opts.BlankWidth, ed.opts.BlankHeight)
		l.DebugContext(ctx, "new blank panel")
	case !ed.s.RestoreFromBytes(data):
		ed.s.ResetBlank(ed.opts.BlankWidth, ed.opts.BlankHeight)
		l.WarnContext(ctx, "stored panel unreadable, starting blank", slog.Int("bytes", len(data)))
	default:
		l.InfoContext(ctx, "panel opened", slog.Int("w", ed.s.Width()), slog.Int("h", ed.s.Height()))
	}
	ed.panelID = panelID
	ed.dirty = false
	return nil
}

// Save persists the open panel, appends a revision and refreshes the thumbnail when the store
// supports them. Revision and thumbnail failures are logged, not returned.
func (ed *Editor) Save(ctx context.Context) error {
	if ed.panelID == "" {
		return ErrNoPanel
	}
	l := applog.WithOperation(ed.log, "save")
	ctx = applog.ContextWithPanel(ctx, ed.panelID)
	data, err := ed.s.SnapshotToBytes()
	if err != nil {
		return fmt.Errorf("encode panel %s: %w", ed.panelID, err)
	}
	if err := ed.store.SavePanel(ctx, ed.panelID, data); err != nil {
		return err
	}
	if rs, ok := ed.store.(RevisionStore); ok {
		if err := rs.SaveRevision(ctx, ed.panelID, data, ed.now()); err != nil {
			l.WarnContext(ctx, "revision not saved", slog.Any("err", err))
		} else if n, err := rs.PruneRevisions(ctx, ed.panelID, ed.opts.KeepRevisions); err != nil {
			l.WarnContext(ctx, "prune revisions failed", slog.Any("err", err))
		} else if n > 0 {
			l.DebugContext(ctx, "revisions pruned", slog.Int64("count", n))
		}
	}
	if ts, ok := ed.store.(ThumbnailStore); ok {
		if err := ed.putThumbnail(ctx, ts); err != nil {
			l.WarnContext(ctx, "thumbnail not cached", slog.Any("err", err))
		}
	}
	ed.dirty = false
	l.InfoContext(ctx, "panel saved", slog.Int("bytes", len(data)))
	return nil
}

// Autosave saves the open panel when it has unsaved changes. It is a no-op otherwise.
func (ed *Editor) Autosave(ctx context.Context) error {
	if ed.panelID == "" || !ed.dirty {
		return nil
	}
	return ed.Save(ctx)
}

// RevertToSaved paints the newest stored revision over the surface as an undoable step.
// It returns false when the store keeps no revisions for the panel.
func (ed *Editor) RevertToSaved(ctx context.Context) (bool, error) {
	if ed.panelID == "" {
		return false, ErrNoPanel
	}
	rs, ok := ed.store.(RevisionStore)
	if !ok {
		return false, nil
	}
	data, err := rs.LatestRevisionData(ctx, ed.panelID)
	if err != nil || data == nil {
		return false, err
	}
	if !ed.s.ApplyBytes("Revert to saved", data) {
		return false, fmt.Errorf("revision of %s is unreadable", ed.panelID)
	}
	return true, nil
}

// Thumbnail returns a PNG thumbnail of the open panel, served from the store's cache when it
// has a current one. The panel is only rendered on a cache miss.
func (ed *Editor) Thumbnail(ctx context.Context) ([]byte, error) {
	if ed.panelID == "" {
		return nil, ErrNoPanel
	}
	if ts, ok := ed.store.(ThumbnailStore); ok && !ed.dirty {
		w, h := ed.thumbSize()
		if blob, err := ts.GetThumbnail(ctx, ed.panelID, w, h); err == nil && blob != nil {
			return blob, nil
		}
	}
	return raster.Encode(ed.renderThumbnail())
}

func (ed *Editor) thumbFactor() float64 {
	return float64(ed.opts.ThumbWidth) / float64(ed.s.Width())
}

func (ed *Editor) thumbSize() (int, int) {
	return raster.ScaledSize(ed.s.Width(), ed.s.Height(), ed.thumbFactor())
}

func (ed *Editor) renderThumbnail() *image.RGBA {
	return raster.Scale(ed.s.Image(), ed.thumbFactor())
}

func (ed *Editor) putThumbnail(ctx context.Context, ts ThumbnailStore) error {
	thumb := ed.renderThumbnail()
	blob, err := raster.Encode(thumb)
	if err != nil {
		return err
	}
	b := thumb.Bounds()
	return ts.PutThumbnail(ctx, ed.panelID, b.Dx(), b.Dy(), blob)
}
