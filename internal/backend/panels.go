/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"strings"
	"time"
)

// PanelInfo describes a stored panel without its pixels.
type PanelInfo struct {
	ID        string
	Width     int
	Height    int
	UpdatedAt time.Time
}

// Revision is one saved state of a panel.
type Revision struct {
	ID   int64
	TS   time.Time
	Data []byte
}

// SavePanel upserts the encoded raster of a panel.
func (s *Store) SavePanel(ctx context.Context, panelID string, data []byte) error {
	if strings.TrimSpace(panelID) == "" {
		return errors.New("panel id is required")
	}
	if len(data) == 0 {
		return errors.New("panel image is empty")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	w, h := 0, 0
	if cfg, err := png.DecodeConfig(bytes.NewReader(data)); err == nil {
		w, h = cfg.Width, cfg.Height
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO panels(panel_id, width, height, image_blob, updated_at) VALUES($1, $2, $3, $4, now())
		ON CONFLICT (panel_id) DO UPDATE SET width = EXCLUDED.width, height = EXCLUDED.height, image_blob = EXCLUDED.image_blob, updated_at = now()`,
		panelID, w, h, data)
	if err != nil {
		return fmt.Errorf("save panel %s: %w", panelID, err)
	}
	s.log.Debug("panel saved", slog.String("panel", panelID), slog.Int("bytes", len(data)))
	return nil
}

// LoadPanel returns the stored image of a panel, or nil without error when it does not exist.
func (s *Store) LoadPanel(ctx context.Context, panelID string) ([]byte, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT image_blob FROM panels WHERE panel_id = $1`, panelID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load panel %s: %w", panelID, err)
	}
	return blob, nil
}

// ListPanels returns all stored panels ordered by id.
func (s *Store) ListPanels(ctx context.Context) ([]PanelInfo, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `SELECT panel_id, width, height, updated_at FROM panels ORDER BY panel_id`)
	if err != nil {
		return nil, fmt.Errorf("list panels: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []PanelInfo
	for rows.Next() {
		var pi PanelInfo
		if err := rows.Scan(&pi.ID, &pi.Width, &pi.Height, &pi.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, pi)
	}
	return out, rows.Err()
}

// DeletePanel removes a panel and its revisions.
func (s *Store) DeletePanel(ctx context.Context, panelID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM panels WHERE panel_id = $1`, panelID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete panel %s: %w", panelID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_ = tx.Rollback()
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM revisions WHERE panel_id = $1`, panelID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete revisions %s: %w", panelID, err)
	}
	return tx.Commit()
}

// SaveRevision appends a revision for the panel.
func (s *Store) SaveRevision(ctx context.Context, panelID string, data []byte, ts time.Time) error {
	if len(data) == 0 {
		return errors.New("revision image is empty")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, `INSERT INTO revisions(panel_id, ts, image_blob) VALUES($1, $2, $3)`, panelID, ts.UTC(), data); err != nil {
		return fmt.Errorf("save revision %s: %w", panelID, err)
	}
	return nil
}

// LatestRevision returns the newest revision of a panel, or nil when there is none.
func (s *Store) LatestRevision(ctx context.Context, panelID string) (*Revision, error) {
	list, err := s.ListRevisions(ctx, panelID, 1)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

// ListRevisions returns up to limit most recent revisions, newest first.
func (s *Store) ListRevisions(ctx context.Context, panelID string, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `SELECT id, ts, image_blob FROM revisions WHERE panel_id = $1 ORDER BY ts DESC, id DESC LIMIT $2`, panelID, limit)
	if err != nil {
		return nil, fmt.Errorf("list revisions %s: %w", panelID, err)
	}
	defer func() { _ = rows.Close() }()
	var out []Revision
	for rows.Next() {
		var r Revision
		if err := rows.Scan(&r.ID, &r.TS, &r.Data); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PruneRevisions keeps at most keepLast revisions for the panel.
func (s *Store) PruneRevisions(ctx context.Context, panelID string, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, err := s.db.ExecContext(ctx, `DELETE FROM revisions WHERE panel_id = $1 AND id NOT IN (
		SELECT id FROM revisions WHERE panel_id = $1 ORDER BY ts DESC, id DESC LIMIT $2
	)`, panelID, keepLast)
	if err != nil {
		return 0, fmt.Errorf("prune revisions %s: %w", panelID, err)
	}
	return res.RowsAffected()
}

// LatestRevisionData returns the image of the newest revision, or nil when there is none.
func (s *Store) LatestRevisionData(ctx context.Context, panelID string) ([]byte, error) {
	r, err := s.LatestRevision(ctx, panelID)
	if err != nil || r == nil {
		return nil, err
	}
	return r.Data, nil
}
