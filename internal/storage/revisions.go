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
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// language=SQL
// dialect=SQLite
const insertRevisionSQL = `INSERT INTO revisions(panel_id, ts, image_blob) VALUES (?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestRevisionSQL = `SELECT id, ts, image_blob FROM revisions WHERE panel_id = ? ORDER BY ts DESC, id DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listRevisionsSQL = `SELECT id, ts, image_blob FROM revisions WHERE panel_id = ? ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldRevisionsSQL = `DELETE FROM revisions WHERE panel_id = ? AND id NOT IN (
	SELECT id FROM revisions WHERE panel_id = ? ORDER BY ts DESC, id DESC LIMIT ?
)`

// Revision is one saved state of a panel.
type Revision struct {
	ID   int64
	TS   time.Time
	Data []byte
}

// SaveRevision appends a revision for the panel.
func (s *Store) SaveRevision(ctx context.Context, panelID string, data []byte, ts time.Time) error {
	if len(data) == 0 {
		return errors.New("revision image is empty")
	}
	if _, err := s.db.ExecContext(ctx, insertRevisionSQL, panelID, ts.UTC().Format(tsLayout), data); err != nil {
		return fmt.Errorf("save revision %s: %w", panelID, err)
	}
	return nil
}

// LatestRevision returns the newest revision of a panel, or nil when there is none.
func (s *Store) LatestRevision(ctx context.Context, panelID string) (*Revision, error) {
	var r Revision
	var ts string
	err := s.db.QueryRowContext(ctx, selectLatestRevisionSQL, panelID).Scan(&r.ID, &ts, &r.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest revision %s: %w", panelID, err)
	}
	// keep the blob even if the timestamp is unreadable
	r.TS, _ = time.Parse(tsLayout, ts)
	return &r, nil
}

// ListRevisions returns up to limit most recent revisions, newest first.
func (s *Store) ListRevisions(ctx context.Context, panelID string, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, listRevisionsSQL, panelID, limit)
	if err != nil {
		return nil, fmt.Errorf("list revisions %s: %w", panelID, err)
	}
	defer func() { _ = rows.Close() }()
	var out []Revision
	for rows.Next() {
		var r Revision
		var ts string
		if err := rows.Scan(&r.ID, &ts, &r.Data); err != nil {
			return nil, err
		}
		r.TS, _ = time.Parse(tsLayout, ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// PruneRevisions keeps at most keepLast revisions for the panel and deletes older ones.
func (s *Store) PruneRevisions(ctx context.Context, panelID string, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, pruneOldRevisionsSQL, panelID, panelID, keepLast)
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
