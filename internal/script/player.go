/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package script

import (
	"context"
	"log/slog"

	applog "storyboard/internal/log"
	"storyboard/internal/surface"
)

// Summary reports what a replay did.
type Summary struct {
	Steps   int
	Strokes int // pointer releases that ended a freehand stroke
	Shapes  int // pointer releases that ended a shape drag
	Undone  int
	Redone  int
	// Skipped counts undo/redo repetitions with nothing left to undo or redo, and down/up
	// steps that carry no point.
	Skipped int
	Zoom    float64
	Depth   int // undo depth after the replay
}

// Player applies script steps to a surface.
type Player struct {
	log *slog.Logger
}

func NewPlayer() *Player {
	return &Player{log: applog.WithComponent("script")}
}

// Run replays steps in order. It stops early, returning the partial summary, when ctx is done.
func (p *Player) Run(ctx context.Context, s *surface.Surface, steps []Step) (Summary, error) {
	var sum Summary
	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			return p.finish(s, sum), err
		}
		p.apply(s, st, &sum)
		sum.Steps++
	}
	return p.finish(s, sum), nil
}

func (p *Player) finish(s *surface.Surface, sum Summary) Summary {
	sum.Zoom = s.Zoom()
	_, sum.Depth, _ = s.Manager().Stats()
	p.log.Debug("replay finished", slog.Int("steps", sum.Steps), slog.Int("strokes", sum.Strokes), slog.Int("shapes", sum.Shapes))
	return sum
}

func (p *Player) apply(s *surface.Surface, st Step, sum *Summary) {
	if (st.Op == OpDown || st.Op == OpUp) && len(st.Points) == 0 {
		p.log.Warn("step without a point skipped", slog.String("op", st.Op.String()), slog.Int("line", st.LineNo))
		sum.Skipped++
		return
	}
	switch st.Op {
	case OpTool:
		s.SetTool(st.Tool)
	case OpColor:
		s.SetColor(st.Color)
	case OpWidth:
		s.SetStrokeWidth(st.Value)
	case OpFill:
		s.SetFill(st.Flag)
	case OpBackground:
		s.SetBackgroundColor(st.Color)
	case OpDown:
		s.PointerDown(st.Points[0])
	case OpMove, OpPath:
		for _, pt := range st.Points {
			s.PointerMove(pt)
		}
	case OpUp:
		switch s.Phase() {
		case surface.StrokeInProgress:
			sum.Strokes++
		case surface.ShapeDragInProgress:
			sum.Shapes++
		}
		s.PointerUp(st.Points[0])
	case OpCancel:
		s.PointerCancel()
	case OpUndo:
		for i := 0; i < st.Count; i++ {
			if s.Undo() {
				sum.Undone++
			} else {
				sum.Skipped++
			}
		}
	case OpRedo:
		for i := 0; i < st.Count; i++ {
			if s.Redo() {
				sum.Redone++
			} else {
				sum.Skipped++
			}
		}
	case OpClear:
		s.Clear()
	case OpZoom:
		switch st.Zoom {
		case ZoomIn:
			s.ZoomIn()
		case ZoomOut:
			s.ZoomOut()
		case ZoomReset:
			s.ResetZoom()
		default:
			s.SetZoomLevel(st.Value)
		}
	default:
		p.log.Warn("skipping unknown step", slog.Int("line", st.LineNo))
	}
}
