/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package surface turns pointer events into drawing commands on a raster buffer. It owns the
// buffer, the active tool settings and the zoom of the presentation layer.
package surface

import (
	"image"
	"image/color"
	"log/slog"

	applog "storyboard/internal/log"
	"storyboard/internal/raster"
	"storyboard/internal/undo"
)

// Stroke width bounds.
const (
	MinStrokeWidth = 0.5
	MaxStrokeWidth = 50
)

// Phase is the pointer state of the surface.
type Phase int

const (
	Idle Phase = iota
	StrokeInProgress
	ShapeDragInProgress
)

func (p Phase) String() string {
	switch p {
	case StrokeInProgress:
		return "stroke"
	case ShapeDragInProgress:
		return "shape-drag"
	}
	return "idle"
}

// Options configures a new Surface. Zero-valued fields fall back to DefaultOptions; a zero
// History means the default depth with stroke merging on. The zero Color is treated as unset,
// so a fully transparent ink cannot be requested.
type Options struct {
	Width, Height int
	Background    color.RGBA
	Color         color.RGBA
	StrokeWidth   float64
	Tool          Tool
	MinZoom       float64
	MaxZoom       float64
	ZoomStep      float64
	History       undo.Config
}

// DefaultOptions returns a white 800×600 surface with a black 2px pen.
func DefaultOptions() Options {
	return Options{
		Width:       800,
		Height:      600,
		Background:  color.RGBA{R: 255, G: 255, B: 255, A: 255},
		Color:       color.RGBA{A: 255},
		StrokeWidth: 2,
		Tool:        Pen,
		MinZoom:     0.1,
		MaxZoom:     5,
		ZoomStep:    1.2,
		History:     undo.Config{MaxHistory: undo.DefaultMaxHistory, MergeStrokes: true},
	}
}

// Surface is one editable panel. It is not safe for concurrent use; all calls are expected on
// the UI event thread.
type Surface struct {
	buf *raster.Buffer
	mgr *undo.Manager

	tool  Tool
	color color.RGBA
	width float64
	fill  bool

	phase  Phase
	stroke *strokeBuilder
	anchor raster.Point

	zoom, minZoom, maxZoom, zoomStep float64
	zoomWatchers                     []func(float64)

	log *slog.Logger
}

func New(opts Options) *Surface {
	def := DefaultOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	if opts.Background == (color.RGBA{}) {
		opts.Background = def.Background
	}
	if opts.Color == (color.RGBA{}) {
		opts.Color = def.Color
	}
	if opts.StrokeWidth == 0 {
		opts.StrokeWidth = def.StrokeWidth
	}
	if opts.MinZoom <= 0 {
		opts.MinZoom = def.MinZoom
	}
	if opts.MaxZoom < opts.MinZoom {
		opts.MaxZoom = def.MaxZoom
	}
	if opts.ZoomStep <= 1 {
		opts.ZoomStep = def.ZoomStep
	}
	if opts.History == (undo.Config{}) {
		opts.History = def.History
	}
	return &Surface{
		buf:      raster.NewBuffer(opts.Width, opts.Height, opts.Background),
		mgr:      undo.NewManager(opts.History),
		tool:     opts.Tool,
		color:    opts.Color,
		width:    clampWidth(opts.StrokeWidth),
		zoom:     1,
		minZoom:  opts.MinZoom,
		maxZoom:  opts.MaxZoom,
		zoomStep: opts.ZoomStep,
		log:      applog.WithComponent("surface"),
	}
}

// Manager exposes the history for binding undo/redo state to a UI.
func (s *Surface) Manager() *undo.Manager { return s.mgr }

func (s *Surface) Phase() Phase                 { return s.phase }
func (s *Surface) Tool() Tool                   { return s.tool }
func (s *Surface) Color() color.RGBA            { return s.color }
func (s *Surface) StrokeWidth() float64         { return s.width }
func (s *Surface) BackgroundColor() color.RGBA  { return s.buf.Background() }
func (s *Surface) Width() int                   { return s.buf.Width() }
func (s *Surface) Height() int                  { return s.buf.Height() }
func (s *Surface) Snapshot() raster.Snapshot    { return s.buf.Capture() }
func (s *Surface) Contains(p raster.Point) bool { return s.buf.Accepts(p) }

// SetTool switches tools. A stroke in progress is committed first; a shape drag is abandoned.
func (s *Surface) SetTool(t Tool) {
	if t == s.tool {
		return
	}
	s.interrupt()
	s.tool = t
}

// SetColor changes the drawing colour, committing a stroke in progress.
func (s *Surface) SetColor(c color.RGBA) {
	if c == s.color {
		return
	}
	s.interrupt()
	s.color = c
}

// SetStrokeWidth changes the width, clamped to [MinStrokeWidth, MaxStrokeWidth], committing a
// stroke in progress.
func (s *Surface) SetStrokeWidth(w float64) {
	w = clampWidth(w)
	if w == s.width {
		return
	}
	s.interrupt()
	s.width = w
}

// SetFill selects filled or outlined rectangles and circles.
func (s *Surface) SetFill(fill bool) { s.fill = fill }
func (s *Surface) FillShapes() bool  { return s.fill }

// SetBackgroundColor changes the colour used by clear and the eraser. Existing pixels,
// including earlier erasures, keep their colour.
func (s *Surface) SetBackgroundColor(c color.RGBA) { s.buf.SetBackground(c) }

// PointerDown starts a stroke or a shape drag. Points outside the surface are ignored.
func (s *Surface) PointerDown(p raster.Point) {
	if !s.buf.Accepts(p) {
		return
	}
	if s.phase != Idle {
		s.interrupt()
	}
	switch {
	case s.tool.freehand():
		s.stroke = beginStroke(s.buf, s.strokeStyle(), p)
		s.phase = StrokeInProgress
	case s.tool.shape():
		s.anchor = p
		s.phase = ShapeDragInProgress
	default:
		s.log.Debug("tool has no pointer action", slog.String("tool", s.tool.String()))
	}
}

// PointerMove extends the stroke in progress. Shape drags keep their anchor until release.
func (s *Surface) PointerMove(p raster.Point) {
	if s.phase != StrokeInProgress || !s.buf.Accepts(p) {
		return
	}
	s.stroke.extend(p)
}

// PointerUp commits the stroke, or the shape when released inside the surface.
func (s *Surface) PointerUp(p raster.Point) {
	switch s.phase {
	case StrokeInProgress:
		if s.buf.Accepts(p) && p != s.stroke.points[len(s.stroke.points)-1] {
			s.stroke.extend(p)
		}
		s.commitStroke()
	case ShapeDragInProgress:
		s.phase = Idle
		if !s.buf.Accepts(p) {
			return
		}
		pen := raster.Pen{Color: s.color, Width: s.width}
		s.mgr.Execute(undo.NewShape(s.buf, s.tool.shapeKind(), s.anchor, p, pen, s.fill))
	}
}

// PointerCancel ends a drag that left the host without a release: strokes are committed as
// drawn, shape drags are dropped.
func (s *Surface) PointerCancel() { s.interrupt() }

// Undo reverses the newest history entry, committing a stroke in progress first.
func (s *Surface) Undo() bool {
	s.interrupt()
	return s.mgr.Undo()
}

// Redo re-applies the most recently undone entry.
func (s *Surface) Redo() bool {
	s.interrupt()
	return s.mgr.Redo()
}

// Clear wipes the surface to the background colour as an undoable step.
func (s *Surface) Clear() {
	s.interrupt()
	s.mgr.Execute(undo.NewClear(s.buf))
}

// Composite runs fn against the buffer and records the outcome as a single undoable step.
func (s *Surface) Composite(label string, fn func(buf *raster.Buffer)) {
	s.interrupt()
	before := s.buf.Capture()
	fn(s.buf)
	after := s.buf.Capture()
	if after.Equal(before) {
		return
	}
	s.mgr.Execute(undo.NewCapture(s.buf, label, before, after))
}

func (s *Surface) strokeStyle() undo.StrokeStyle {
	ink := s.color
	if s.tool == Eraser {
		ink = s.buf.Background()
	}
	return undo.StrokeStyle{Kind: s.tool.strokeKind(), Color: s.color, Ink: ink, Width: s.width}
}

// interrupt settles any drag in progress and returns the surface to Idle.
func (s *Surface) interrupt() {
	switch s.phase {
	case StrokeInProgress:
		s.commitStroke()
	case ShapeDragInProgress:
		s.phase = Idle
	}
}

func (s *Surface) commitStroke() {
	cmd := s.stroke.freeze()
	s.stroke = nil
	s.phase = Idle
	s.mgr.FinishCurrentStroke()
	s.mgr.Execute(cmd)
	s.log.Debug("stroke committed", slog.String("tool", s.tool.String()), slog.Int("points", len(cmd.Points())))
}

// abandon drops a drag without recording it; used before the buffer is replaced.
func (s *Surface) abandon() {
	s.stroke = nil
	s.phase = Idle
}

func (s *Surface) replace(img *image.RGBA) {
	s.abandon()
	s.buf.Replace(img)
	s.mgr.ClearHistory()
}

func clampWidth(w float64) float64 {
	if w < MinStrokeWidth {
		return MinStrokeWidth
	}
	if w > MaxStrokeWidth {
		return MaxStrokeWidth
	}
	return w
}
