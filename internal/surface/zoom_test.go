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
	"math"
	"testing"

	"storyboard/internal/raster"
)

func TestZoomStepsAndBounds(t *testing.T) {
	s := newTestSurface()
	var seen []float64
	s.OnZoomChanged(func(z float64) { seen = append(seen, z) })
	s.ZoomIn()
	s.ZoomIn()
	if math.Abs(s.Zoom()-1.44) > 1e-9 {
		t.Fatalf("zoom = %v, want 1.44", s.Zoom())
	}
	for i := 0; i < 50; i++ {
		s.ZoomIn()
	}
	if s.Zoom() != 5 {
		t.Fatalf("zoom = %v, want clamp at 5", s.Zoom())
	}
	n := len(seen)
	s.ZoomIn()
	if len(seen) != n {
		t.Fatalf("observer fired without a change")
	}
	s.SetZoomLevel(0.01)
	if s.Zoom() != 0.1 {
		t.Fatalf("zoom = %v, want clamp at 0.1", s.Zoom())
	}
	s.ResetZoom()
	if s.Zoom() != 1 || seen[len(seen)-1] != 1 {
		t.Fatalf("reset zoom = %v, last observed %v", s.Zoom(), seen[len(seen)-1])
	}
}

func TestZoomDoesNotTouchPixels(t *testing.T) {
	s := newTestSurface()
	drag(s, raster.Pt(10, 10), raster.Pt(40, 40))
	s.PointerUp(raster.Pt(40, 40))
	before := s.Snapshot()
	s.SetZoomLevel(2)
	img := s.Present()
	if img.Bounds().Dx() != 160 || img.Bounds().Dy() != 120 {
		t.Fatalf("presented bounds = %v, want 160x120", img.Bounds())
	}
	if !s.Snapshot().Equal(before) || s.Width() != 80 {
		t.Fatalf("zoom changed the pixel buffer")
	}
	if p := s.ViewToSurface(100, 50); p != raster.Pt(50, 25) {
		t.Fatalf("view mapping = %v, want (50,25)", p)
	}
}
