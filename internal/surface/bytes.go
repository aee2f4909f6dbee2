/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package surface

import (
	"image"
	"log/slog"

	"storyboard/internal/raster"
)

// SnapshotToBytes encodes the current pixels for the persistence layer.
func (s *Surface) SnapshotToBytes() ([]byte, error) {
	return raster.Encode(s.buf.Image())
}

// RestoreFromBytes replaces the pixels with decoded data and clears the history. It returns
// false and leaves the surface untouched when the data cannot be decoded.
func (s *Surface) RestoreFromBytes(data []byte) bool {
	img, err := raster.Decode(data)
	if err != nil {
		s.log.Warn("restore failed", slog.Any("err", err), slog.Int("bytes", len(data)))
		return false
	}
	s.replace(img)
	return true
}

// ResetBlank replaces the pixels with a w×h background-filled buffer and clears the history.
// Non-positive sizes keep the current dimensions.
func (s *Surface) ResetBlank(w, h int) {
	if w <= 0 {
		w = s.buf.Width()
	}
	if h <= 0 {
		h = s.buf.Height()
	}
	blank := raster.NewBuffer(w, h, s.buf.Background())
	s.replace(blank.Image())
}

// ApplyBytes decodes data and paints it over the surface as an undoable step, keeping the
// history. Used for reverting to stored revisions.
func (s *Surface) ApplyBytes(label string, data []byte) bool {
	img, err := raster.Decode(data)
	if err != nil {
		s.log.Warn("apply failed", slog.Any("err", err), slog.Int("bytes", len(data)))
		return false
	}
	s.Composite(label, func(buf *raster.Buffer) {
		buf.Restore(raster.SnapshotOf(img))
	})
	return true
}

// Image exposes the live pixels read-only, e.g. for thumbnails.
func (s *Surface) Image() *image.RGBA { return s.buf.Image() }
