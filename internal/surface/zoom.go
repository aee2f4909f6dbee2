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
	"math"

	"storyboard/internal/raster"
)

func (s *Surface) Zoom() float64 { return s.zoom }

// OnZoomChanged registers an observer for zoom level changes.
func (s *Surface) OnZoomChanged(fn func(float64)) {
	if fn != nil {
		s.zoomWatchers = append(s.zoomWatchers, fn)
	}
}

func (s *Surface) ZoomIn()    { s.SetZoomLevel(s.zoom * s.zoomStep) }
func (s *Surface) ZoomOut()   { s.SetZoomLevel(s.zoom / s.zoomStep) }
func (s *Surface) ResetZoom() { s.SetZoomLevel(1) }

// SetZoomLevel clamps z to the configured range. Observers are only told about real changes.
func (s *Surface) SetZoomLevel(z float64) {
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return
	}
	z = math.Max(s.minZoom, math.Min(s.maxZoom, z))
	if z == s.zoom {
		return
	}
	s.zoom = z
	for _, fn := range s.zoomWatchers {
		fn(z)
	}
}

// ViewToSurface maps a point in zoomed view coordinates to buffer coordinates.
func (s *Surface) ViewToSurface(x, y float64) raster.Point {
	return raster.Pt(x/s.zoom, y/s.zoom)
}

// Present renders the buffer at the current zoom. The buffer itself is never resampled.
func (s *Surface) Present() *image.RGBA {
	return raster.Scale(s.buf.Image(), s.zoom)
}
