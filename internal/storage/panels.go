/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

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

// language=SQL
// dialect=SQLite
const upsertPanelSQL = `INSERT INTO panels(panel_id, width, height, image_blob, updated_at) VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(panel_id) DO UPDATE SET width=excluded.width, height=excluded.height, image_blob=excluded.image_blob, updated_at=excluded.updated_at`

// language=SQL
// dialect=SQLite
const selectPanelSQL = `SELECT image_blob FROM panels WHERE panel_id = ?`

// language=SQL
// dialect=SQLite
const listPanelsSQL = `SELECT panel_id, width, height, updated_at FROM panels ORDER BY panel_id`

// language=SQL
// dialect=SQLite
const deletePanelSQL = `DELETE FROM panels WHERE panel_id = ?`

// PanelInfo describes a stored panel without its pixels.
type PanelInfo struct {
	ID        string
	Width     int
	Height    int
	UpdatedAt time.Time
}

// SavePanel stores the encoded raster of a panel, replacing any previous image.
func (s *Store) SavePanel(ctx context.Context, panelID string, data []byte) error {
	if strings.TrimSpace(panelID) == "" {
		return errors.New("panel id is required")
	}
	if len(data) == 0 {
		return errors.New("panel image is empty")
	}
	w, h := imageSize(data)
	now := time.Now().UTC().Format(tsLayout)
	if _, err := s.db.ExecContext(ctx, upsertPanelSQL, panelID, w, h, data, now); err != nil {
		return fmt.Errorf("save panel %s: %w", panelID, err)
	}
	s.log.Debug("panel saved", slog.String("panel", panelID), slog.Int("bytes", len(data)))
	return nil
}

// LoadPanel returns the stored image of a panel, or nil without error when it does not exist.
func (s *Store) LoadPanel(ctx context.Context, panelID string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, selectPanelSQL, panelID).Scan(&blob)
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
	rows, err := s.db.QueryContext(ctx, listPanelsSQL)
	if err != nil {
		return nil, fmt.Errorf("list panels: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []PanelInfo
	for rows.Next() {
		var pi PanelInfo
		var ts string
		if err := rows.Scan(&pi.ID, &pi.Width, &pi.Height, &ts); err != nil {
			return nil, err
		}
		pi.UpdatedAt, _ = time.Parse(tsLayout, ts)
		out = append(out, pi)
	}
	return out, rows.Err()
}

// DeletePanel removes a panel together with its revisions and thumbnails.
func (s *Store) DeletePanel(ctx context.Context, panelID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	res, err := tx.ExecContext(ctx, deletePanelSQL, panelID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete panel %s: %w", panelID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_ = tx.Rollback()
		return ErrNotFound
	}
	for _, q := range []string{`DELETE FROM revisions WHERE panel_id = ?`, `DELETE FROM thumbnails WHERE panel_id = ?`} {
		if _, err := tx.ExecContext(ctx, q, panelID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("delete panel %s: %w", panelID, err)
		}
	}
	return tx.Commit()
}

// imageSize reads the PNG header; unknown formats are recorded as 0×0.
func imageSize(data []byte) (int, int) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
