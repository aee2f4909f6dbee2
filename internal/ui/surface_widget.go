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

package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"storyboard/internal/raster"
	"storyboard/internal/surface"
)

// SurfaceWidget shows a drawing surface at its zoom level and forwards mouse input to it.
// Widget coordinates are zoomed view coordinates; the surface maps them back to pixels.
type SurfaceWidget struct {
	widget.BaseWidget
	s *surface.Surface

	dragging bool
	last     raster.Point

	// OnChange is called after any input that may have changed pixels, history or zoom.
	OnChange func()
}

func NewSurfaceWidget(s *surface.Surface) *SurfaceWidget {
	w := &SurfaceWidget{s: s}
	w.ExtendBaseWidget(w)
	s.OnZoomChanged(func(float64) { w.Refresh() })
	return w
}

func (w *SurfaceWidget) toSurface(pos fyne.Position) raster.Point {
	return w.s.ViewToSurface(float64(pos.X), float64(pos.Y))
}

func (w *SurfaceWidget) changed() {
	w.Refresh()
	if w.OnChange != nil {
		w.OnChange()
	}
}

// MouseDown starts a stroke or shape drag with the primary button.
func (w *SurfaceWidget) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	w.last = w.toSurface(e.Position)
	w.s.PointerDown(w.last)
	w.dragging = true
	w.changed()
}

// MouseUp releases a drag that did not move.
func (w *SurfaceWidget) MouseUp(e *desktop.MouseEvent) {
	if !w.dragging || e.Button != desktop.MouseButtonPrimary {
		return
	}
	w.dragging = false
	w.s.PointerUp(w.toSurface(e.Position))
	w.changed()
}

func (w *SurfaceWidget) Dragged(e *fyne.DragEvent) {
	if !w.dragging {
		return
	}
	w.last = w.toSurface(e.Position)
	w.s.PointerMove(w.last)
	w.changed()
}

// DragEnd releases at the last dragged point; the driver may deliver it before MouseUp.
func (w *SurfaceWidget) DragEnd() {
	if !w.dragging {
		return
	}
	w.dragging = false
	w.s.PointerUp(w.last)
	w.changed()
}

// Scrolled zooms one step per wheel notch.
func (w *SurfaceWidget) Scrolled(e *fyne.ScrollEvent) {
	switch {
	case e.Scrolled.DY > 0:
		w.s.ZoomIn()
	case e.Scrolled.DY < 0:
		w.s.ZoomOut()
	default:
		return
	}
	if w.OnChange != nil {
		w.OnChange()
	}
}

// MinSize is the zoomed surface size.
func (w *SurfaceWidget) MinSize() fyne.Size {
	z := float32(w.s.Zoom())
	return fyne.NewSize(float32(w.s.Width())*z, float32(w.s.Height())*z)
}

func (w *SurfaceWidget) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})
	img := canvas.NewImageFromImage(w.s.Present())
	img.FillMode = canvas.ImageFillStretch
	img.ScaleMode = canvas.ImageScalePixels
	return &surfaceRenderer{w: w, bg: bg, img: img, objects: []fyne.CanvasObject{bg, img}}
}

type surfaceRenderer struct {
	w       *SurfaceWidget
	bg      *canvas.Rectangle
	img     *canvas.Image
	objects []fyne.CanvasObject
}

func (r *surfaceRenderer) Destroy()                     {}
func (r *surfaceRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *surfaceRenderer) MinSize() fyne.Size           { return r.w.MinSize() }

func (r *surfaceRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	r.img.Resize(r.w.MinSize())
	r.img.Move(fyne.NewPos(0, 0))
}

func (r *surfaceRenderer) Refresh() {
	r.img.Image = r.w.s.Present()
	r.Layout(r.w.Size())
	canvas.Refresh(r.img)
}
