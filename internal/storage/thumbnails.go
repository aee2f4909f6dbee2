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
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultThumbnailCap = 64 * 1024 * 1024

// GetThumbnail returns a cached thumbnail of the given size and refreshes its access time.
// It returns nil without error on a cache miss.
func (s *Store) GetThumbnail(ctx context.Context, panelID string, w, h int) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT thumb_blob FROM thumbnails WHERE panel_id=? AND w=? AND h=?`, panelID, w, h).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query thumbnail: %w", err)
	}
	now := time.Now().UTC().Format(tsLayout)
	_, _ = s.db.ExecContext(ctx, `UPDATE thumbnails SET last_access=? WHERE panel_id=? AND w=? AND h=?`, now, panelID, w, h)
	return blob, nil
}

// PutThumbnail upserts a thumbnail and evicts least recently used entries beyond the cache cap.
func (s *Store) PutThumbnail(ctx context.Context, panelID string, w, h int, blob []byte) error {
	if len(blob) == 0 {
		return errors.New("thumbnail is empty")
	}
	now := time.Now().UTC().Format(tsLayout)
	_, err := s.db.ExecContext(ctx, `INSERT INTO thumbnails(panel_id, w, h, thumb_blob, size, updated_at, last_access)
		VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(panel_id, w, h) DO UPDATE SET thumb_blob=excluded.thumb_blob, size=excluded.size, updated_at=excluded.updated_at, last_access=excluded.last_access`,
		panelID, w, h, blob, len(blob), now, now)
	if err != nil {
		return fmt.Errorf("upsert thumbnail: %w", err)
	}
	if capBytes := MaxThumbnailBytesFromEnv(); capBytes > 0 {
		return s.EvictThumbnailsToFit(ctx, capBytes)
	}
	return nil
}

// EvictThumbnailsToFit deletes least recently used thumbnails until the total size fits capBytes.
func (s *Store) EvictThumbnailsToFit(ctx context.Context, capBytes int64) error {
	total, err := s.TotalThumbnailBytes(ctx)
	if err != nil {
		return err
	}
	if total <= capBytes {
		return nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, size FROM thumbnails ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	var victims []any
	cur := total
	for rows.Next() && cur > capBytes {
		var id, sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, id)
		cur -= sz
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// the single connection must be released before writing
	if err := rows.Close(); err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	q := `DELETE FROM thumbnails WHERE id IN (?` + strings.Repeat(",?", len(victims)-1) + `)`
	if _, err := s.db.ExecContext(ctx, q, victims...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	return nil
}

// TotalThumbnailBytes returns the bytes tracked by the thumbnail cache.
func (s *Store) TotalThumbnailBytes(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM thumbnails`).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum thumbnail size: %w", err)
	}
	return total, nil
}

// MaxThumbnailBytesFromEnv reads SB_THUMBS_MAX_BYTES, defaulting to 64MB.
func MaxThumbnailBytesFromEnv() int64 {
	v := os.Getenv("SB_THUMBS_MAX_BYTES")
	if v == "" {
		return defaultThumbnailCap
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return defaultThumbnailCap
	}
	return n
}
