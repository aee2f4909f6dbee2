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
	"fmt"
	"image"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"
)

// ErrEmptyImage is returned when decoding an empty byte slice.
var ErrEmptyImage = errors.New("raster: empty image data")

// Encode serialises img as PNG.
func Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses PNG bytes into a zero-origin RGBA image.
func Decode(data []byte) (*image.RGBA, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	if rgba, ok := src.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba, nil
	}
	b := src.Bounds()
	if b.Empty() {
		return nil, ErrEmptyImage
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Copy(dst, image.Point{}, src, b, xdraw.Src, nil)
	return dst, nil
}

// Scale returns a copy of src resized by factor. Enlargements use nearest-neighbour so
// individual pixels stay crisp; reductions use bilinear filtering.
// ScaledSize is the size Scale produces for a w×h source, at least 1×1.
func ScaledSize(w, h int, factor float64) (int, int) {
	sw := int(math.Round(float64(w) * factor))
	sh := int(math.Round(float64(h) * factor))
	return max(sw, 1), max(sh, 1)
}

func Scale(src *image.RGBA, factor float64) *image.RGBA {
	b := src.Bounds()
	w, h := ScaledSize(b.Dx(), b.Dy(), factor)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	var s xdraw.Scaler = xdraw.ApproxBiLinear
	if factor >= 1 {
		s = xdraw.NearestNeighbor
	}
	s.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}
