/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package raster holds the live pixel buffer of a drawing surface, immutable snapshots of it,
// and the primitives used to paint strokes and shapes onto it.
package raster

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
)

// Pen describes how a primitive is painted.
type Pen struct {
	Color color.RGBA
	Width float64
}

// Buffer is the mutable RGBA pixel buffer of a surface. Every drawing primitive goes through
// a gg context bound to the same pixel memory, so a Snapshot taken afterwards sees the result.
// Buffer is not safe for concurrent use.
type Buffer struct {
	img        *image.RGBA
	dc         *gg.Context
	background color.RGBA
}

// NewBuffer allocates a w×h buffer filled with the background colour.
// Non-positive dimensions are raised to 1.
func NewBuffer(w, h int, background color.RGBA) *Buffer {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	b := &Buffer{background: background}
	b.bind(image.NewRGBA(image.Rect(0, 0, w, h)))
	b.Clear()
	return b
}

func (b *Buffer) bind(img *image.RGBA) {
	b.img = img
	b.dc = gg.NewContextForRGBA(img)
	b.dc.SetLineCap(gg.LineCapRound)
	b.dc.SetLineJoin(gg.LineJoinRound)
}

func (b *Buffer) Width() int  { return b.img.Bounds().Dx() }
func (b *Buffer) Height() int { return b.img.Bounds().Dy() }

// Contains reports whether p lies inside the pixel extent.
func (b *Buffer) Contains(p Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < float64(b.Width()) && p.Y < float64(b.Height())
}

// Accepts reports whether p is a valid pointer coordinate. Unlike Contains it includes the far
// edges, which a pointer over the last pixel column or row can report.
func (b *Buffer) Accepts(p Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= float64(b.Width()) && p.Y <= float64(b.Height())
}

// Background returns the colour used by Clear and by the eraser.
func (b *Buffer) Background() color.RGBA { return b.background }

// SetBackground changes the background colour. Already painted pixels are left untouched.
func (b *Buffer) SetBackground(c color.RGBA) { b.background = c }

// Image exposes the live pixels for read-only use (encoding, presentation).
func (b *Buffer) Image() *image.RGBA { return b.img }

// Capture copies the current pixels into a new immutable Snapshot.
func (b *Buffer) Capture() Snapshot { return capture(b.img) }

// Restore blits s over the whole buffer. When the snapshot dimensions differ from the buffer,
// the buffer is replaced wholesale by an image of the snapshot's size.
func (b *Buffer) Restore(s Snapshot) {
	if s.IsZero() {
		return
	}
	if s.w != b.Width() || s.h != b.Height() {
		b.bind(s.Image())
		return
	}
	s.copyInto(b.img)
}

// Replace swaps in a new pixel image, e.g. after decoding a stored panel.
func (b *Buffer) Replace(img *image.RGBA) {
	if img == nil {
		return
	}
	b.bind(img)
}

// Clear fills the whole buffer with the background colour.
func (b *Buffer) Clear() { b.Fill(b.background) }

// Fill paints every pixel with c.
func (b *Buffer) Fill(c color.RGBA) {
	b.dc.SetColor(c)
	b.dc.Clear()
}

// Dot paints a filled disc of diameter pen.Width centred on p.
func (b *Buffer) Dot(p Point, pen Pen) {
	b.dc.SetColor(pen.Color)
	b.dc.DrawCircle(p.X, p.Y, pen.Width/2)
	b.dc.Fill()
}

// Segment paints a round-capped line from one point to the next.
func (b *Buffer) Segment(from, to Point, pen Pen) {
	b.setPen(pen)
	b.dc.DrawLine(from.X, from.Y, to.X, to.Y)
	b.dc.Stroke()
}

// Rectangle paints an axis-aligned box, outlined or filled.
func (b *Buffer) Rectangle(r RectGeometry, pen Pen, fill bool) {
	b.setPen(pen)
	b.dc.DrawRectangle(r.X, r.Y, r.W, r.H)
	b.finish(fill)
}

// Circle paints a circle, outlined or filled.
func (b *Buffer) Circle(c CircleGeometry, pen Pen, fill bool) {
	b.setPen(pen)
	b.dc.DrawCircle(c.Center.X, c.Center.Y, c.Radius)
	b.finish(fill)
}

// Line paints a straight segment between two points.
func (b *Buffer) Line(from, to Point, pen Pen) {
	b.Segment(from, to, pen)
}

func (b *Buffer) setPen(pen Pen) {
	b.dc.SetColor(pen.Color)
	b.dc.SetLineWidth(pen.Width)
}

func (b *Buffer) finish(fill bool) {
	if fill {
		b.dc.Fill()
		return
	}
	b.dc.Stroke()
}
