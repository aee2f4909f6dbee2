/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package raster

import (
	"bytes"
	"errors"
	"image"
	"image/color"
)

// ErrSizeMismatch is returned when a snapshot is copied onto an image of different dimensions.
var ErrSizeMismatch = errors.New("raster: snapshot size mismatch")

// Snapshot is an immutable full-buffer pixel capture. The zero value means "no snapshot".
// Snapshots never alias the live buffer; they are copied on capture and on materialisation.
type Snapshot struct {
	w, h int
	pix  []byte
}

func capture(img *image.RGBA) Snapshot {
	r := img.Bounds()
	w, h := r.Dx(), r.Dy()
	pix := make([]byte, 4*w*h)
	rowLen := 4 * w
	for y := 0; y < h; y++ {
		off := img.PixOffset(r.Min.X, r.Min.Y+y)
		copy(pix[y*rowLen:(y+1)*rowLen], img.Pix[off:off+rowLen])
	}
	return Snapshot{w: w, h: h, pix: pix}
}

// SnapshotOf captures an arbitrary RGBA image.
func SnapshotOf(img *image.RGBA) Snapshot {
	if img == nil {
		return Snapshot{}
	}
	return capture(img)
}

// CopyTo blits the snapshot over img, which must have identical dimensions.
func (s Snapshot) CopyTo(img *image.RGBA) error {
	r := img.Bounds()
	if r.Dx() != s.w || r.Dy() != s.h {
		return ErrSizeMismatch
	}
	s.copyInto(img)
	return nil
}

func (s Snapshot) copyInto(img *image.RGBA) {
	r := img.Bounds()
	rowLen := 4 * s.w
	for y := 0; y < s.h; y++ {
		off := img.PixOffset(r.Min.X, r.Min.Y+y)
		copy(img.Pix[off:off+rowLen], s.pix[y*rowLen:(y+1)*rowLen])
	}
}

func (s Snapshot) IsZero() bool { return s.pix == nil }
func (s Snapshot) Width() int   { return s.w }
func (s Snapshot) Height() int  { return s.h }

// Size is the number of pixel bytes held by the snapshot.
func (s Snapshot) Size() int { return len(s.pix) }

// At returns the colour of a pixel; out-of-range coordinates yield transparent black.
func (s Snapshot) At(x, y int) color.RGBA {
	if x < 0 || y < 0 || x >= s.w || y >= s.h {
		return color.RGBA{}
	}
	i := 4 * (y*s.w + x)
	return color.RGBA{R: s.pix[i], G: s.pix[i+1], B: s.pix[i+2], A: s.pix[i+3]}
}

// Equal reports bit-identical pixel content.
func (s Snapshot) Equal(o Snapshot) bool {
	return s.w == o.w && s.h == o.h && bytes.Equal(s.pix, o.pix)
}

// Image materialises the snapshot into a fresh RGBA image.
func (s Snapshot) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, s.w, s.h))
	copy(img.Pix, s.pix)
	return img
}
