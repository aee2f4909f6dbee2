/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"image/color"

	"storyboard/internal/raster"
)

// StrokeKind is the freehand tool a stroke was drawn with.
type StrokeKind int

const (
	Pen StrokeKind = iota
	Brush
	Pencil
	Eraser
)

func (k StrokeKind) String() string {
	switch k {
	case Pen:
		return "Pen"
	case Brush:
		return "Brush"
	case Pencil:
		return "Pencil"
	case Eraser:
		return "Eraser"
	}
	return "Stroke"
}

// StrokeStyle is the merge key of a stroke plus the colour it actually paints with.
type StrokeStyle struct {
	Kind  StrokeKind
	Color color.RGBA // selected colour
	Ink   color.RGBA // painted colour; the background colour for the eraser
	Width float64
}

func (s StrokeStyle) pen() raster.Pen { return raster.Pen{Color: s.Ink, Width: s.Width} }

// StrokeCommand is a freehand stroke: an ordered point sequence plus the snapshots around it.
type StrokeCommand struct {
	buf      *raster.Buffer
	style    StrokeStyle
	points   []raster.Point
	before   raster.Snapshot
	after    raster.Snapshot
	finished bool
	applied  bool
}

// NewStroke builds an unfinished stroke segment that has not been painted yet. Executing it
// replays the points; if it is merged into an in-flight stroke the points are painted as a
// continuation of that stroke.
func NewStroke(buf *raster.Buffer, style StrokeStyle, points []raster.Point) *StrokeCommand {
	return &StrokeCommand{buf: buf, style: style, points: append([]raster.Point(nil), points...)}
}

// FrozenStroke wraps a stroke that was already painted live. It is finished, so it never
// accepts merges, and redo blits the after snapshot instead of replaying points.
func FrozenStroke(buf *raster.Buffer, style StrokeStyle, points []raster.Point, before, after raster.Snapshot) *StrokeCommand {
	return &StrokeCommand{
		buf:      buf,
		style:    style,
		points:   append([]raster.Point(nil), points...),
		before:   before,
		after:    after,
		finished: true,
		applied:  true,
	}
}

func (s *StrokeCommand) Style() StrokeStyle { return s.style }
func (s *StrokeCommand) Finished() bool     { return s.finished }

// Points returns a copy of the recorded point sequence.
func (s *StrokeCommand) Points() []raster.Point { return append([]raster.Point(nil), s.points...) }

func (s *StrokeCommand) Description() string { return s.style.Kind.String() + " stroke" }

func (s *StrokeCommand) Execute() {
	if s.applied {
		return
	}
	if s.before.IsZero() {
		s.before = s.buf.Capture()
	}
	if !s.after.IsZero() {
		s.buf.Restore(s.after)
	} else {
		s.replay()
	}
	s.applied = true
}

func (s *StrokeCommand) Undo() {
	if !s.applied {
		return
	}
	s.buf.Restore(s.before)
	s.applied = false
}

func (s *StrokeCommand) CanMergeWith(other Command) bool {
	o, ok := other.(*StrokeCommand)
	if !ok || s.finished {
		return false
	}
	return o.style.Kind == s.style.Kind && o.style.Color == s.style.Color && o.style.Width == s.style.Width
}

// MergeWith appends the other segment's points. Segments that were painted live are only
// recorded; unpainted ones are drawn as a continuation so no pixels go missing.
func (s *StrokeCommand) MergeWith(other Command) {
	o, ok := other.(*StrokeCommand)
	if !ok || len(o.points) == 0 {
		return
	}
	if !o.applied && s.applied {
		pen := s.style.pen()
		prev := o.points[0]
		if n := len(s.points); n > 0 {
			prev = s.points[n-1]
		} else {
			s.buf.Dot(prev, pen)
		}
		for _, p := range o.points {
			s.buf.Segment(prev, p, pen)
			prev = p
		}
	}
	s.points = append(s.points, o.points...)
}

// Finish locks the stroke against further merges and captures its after snapshot.
func (s *StrokeCommand) Finish() {
	if s.finished {
		return
	}
	s.finished = true
	if s.applied && s.after.IsZero() {
		s.after = s.buf.Capture()
	}
}

func (s *StrokeCommand) Footprint() int { return s.before.Size() + s.after.Size() }

// replay paints the point sequence the same way the surface paints it live: a dot at the
// first point, then one segment per following point.
func (s *StrokeCommand) replay() {
	if len(s.points) == 0 {
		return
	}
	pen := s.style.pen()
	s.buf.Dot(s.points[0], pen)
	for i := 1; i < len(s.points); i++ {
		s.buf.Segment(s.points[i-1], s.points[i], pen)
	}
}
