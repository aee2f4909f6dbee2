//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// These tests exercise the surface widget without a window. They are gated behind the
// "fyne" build tag so headless CI does not need Fyne or a display:
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"image/color"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"

	"storyboard/internal/surface"
)

func newTestWidget(t *testing.T) (*SurfaceWidget, *surface.Surface) {
	t.Helper()
	test.NewTempApp(t)
	opts := surface.DefaultOptions()
	opts.Width, opts.Height = 100, 80
	opts.Color = color.RGBA{B: 255, A: 255}
	opts.StrokeWidth = 4
	s := surface.New(opts)
	return NewSurfaceWidget(s), s
}

func press(w *SurfaceWidget, x, y float32) {
	w.MouseDown(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)}, Button: desktop.MouseButtonPrimary})
}

func drag(w *SurfaceWidget, x, y float32) {
	w.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)}})
}

func TestSurfaceWidget_StrokeViaDrag(t *testing.T) {
	w, s := newTestWidget(t)
	changes := 0
	w.OnChange = func() { changes++ }

	press(w, 10, 10)
	drag(w, 40, 10)
	w.DragEnd()
	w.MouseUp(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(40, 10)}, Button: desktop.MouseButtonPrimary})

	if s.Phase() != surface.Idle {
		t.Fatalf("phase = %v, want idle", s.Phase())
	}
	if st := s.Manager().State(); st.UndoCount != 1 {
		t.Fatalf("expected one history entry, got %d", st.UndoCount)
	}
	if got := s.Snapshot().At(25, 10); got != (color.RGBA{B: 255, A: 255}) {
		t.Fatalf("stroke pixel = %v", got)
	}
	if changes != 3 {
		t.Fatalf("OnChange calls = %d, want 3", changes)
	}
}

func TestSurfaceWidget_ShapeCommitsOnDragEnd(t *testing.T) {
	w, s := newTestWidget(t)
	s.SetTool(surface.Rectangle)
	press(w, 10, 10)
	drag(w, 50, 40)
	w.DragEnd()
	if st := s.Manager().State(); st.UndoCount != 1 || st.UndoDescription != "Draw rectangle" {
		t.Fatalf("unexpected history: %+v", st)
	}
}

func TestSurfaceWidget_ZoomMapsCoordinates(t *testing.T) {
	w, s := newTestWidget(t)
	s.SetZoomLevel(2)
	if sz := w.MinSize(); sz.Width != 200 || sz.Height != 160 {
		t.Fatalf("MinSize = %v", sz)
	}
	press(w, 60, 60) // surface (30, 30)
	w.MouseUp(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(60, 60)}, Button: desktop.MouseButtonPrimary})
	if got := s.Snapshot().At(30, 30); got != (color.RGBA{B: 255, A: 255}) {
		t.Fatalf("dot not at the mapped position, got %v", got)
	}

	w.Scrolled(&fyne.ScrollEvent{Scrolled: fyne.NewDelta(0, -1)})
	if s.Zoom() >= 2 {
		t.Fatalf("scrolling down should zoom out, zoom=%v", s.Zoom())
	}
}

func TestSurfaceWidget_IgnoresSecondaryButton(t *testing.T) {
	w, s := newTestWidget(t)
	w.MouseDown(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(5, 5)}, Button: desktop.MouseButtonSecondary})
	if s.Phase() != surface.Idle {
		t.Fatalf("secondary button should not start a stroke")
	}
}

func TestSurfaceRenderer_Layout(t *testing.T) {
	w, _ := newTestWidget(t)
	r := w.CreateRenderer().(*surfaceRenderer)
	r.Layout(fyne.NewSize(300, 300))
	if sz := r.img.Size(); sz.Width != 100 || sz.Height != 80 {
		t.Fatalf("image size = %v", sz)
	}
	if sz := r.bg.Size(); sz.Width != 300 {
		t.Fatalf("background size = %v", sz)
	}
}
