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

import "math"

// Point is a surface-local coordinate in pixels.
type Point struct{ X, Y float64 }

func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(q.X-p.X, q.Y-p.Y) }

// Mid returns the midpoint of p and q.
func (p Point) Mid(q Point) Point { return Point{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2} }

// RectGeometry is an axis-aligned box defined by its min corner and size.
type RectGeometry struct {
	X, Y float64
	W, H float64
}

// RectFromCorners spans the box between two opposite corners in any order.
func RectFromCorners(a, b Point) RectGeometry {
	return RectGeometry{
		X: math.Min(a.X, b.X),
		Y: math.Min(a.Y, b.Y),
		W: math.Abs(b.X - a.X),
		H: math.Abs(b.Y - a.Y),
	}
}

// CircleGeometry is a circle given by centre and radius.
type CircleGeometry struct {
	Center Point
	Radius float64
}

// CircleFromCorners centres the circle on the drag midpoint; its diameter is the drag length.
func CircleFromCorners(a, b Point) CircleGeometry {
	return CircleGeometry{Center: a.Mid(b), Radius: a.Dist(b) / 2}
}
