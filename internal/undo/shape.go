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

import "storyboard/internal/raster"

// ShapeKind selects the geometry of a ShapeCommand.
type ShapeKind int

const (
	Rectangle ShapeKind = iota
	Circle
	Line
)

func (k ShapeKind) String() string {
	switch k {
	case Rectangle:
		return "rectangle"
	case Circle:
		return "circle"
	case Line:
		return "line"
	}
	return "shape"
}

// ShapeCommand draws a rectangle, circle or line spanned by two drag corners.
type ShapeCommand struct {
	buf      *raster.Buffer
	kind     ShapeKind
	from, to raster.Point
	pen      raster.Pen
	fill     bool
	before   raster.Snapshot
	applied  bool
}

// NewShape captures the before snapshot immediately; the shape is painted on Execute.
func NewShape(buf *raster.Buffer, kind ShapeKind, from, to raster.Point, pen raster.Pen, fill bool) *ShapeCommand {
	return &ShapeCommand{buf: buf, kind: kind, from: from, to: to, pen: pen, fill: fill, before: buf.Capture()}
}

func (c *ShapeCommand) Kind() ShapeKind { return c.kind }

// Rect is the box drawn by the rectangle tool.
func (c *ShapeCommand) Rect() raster.RectGeometry { return raster.RectFromCorners(c.from, c.to) }

// Circle is the circle drawn by the circle tool.
func (c *ShapeCommand) Circle() raster.CircleGeometry { return raster.CircleFromCorners(c.from, c.to) }

func (c *ShapeCommand) Description() string { return "Draw " + c.kind.String() }

func (c *ShapeCommand) Execute() {
	if c.applied {
		return
	}
	switch c.kind {
	case Rectangle:
		c.buf.Rectangle(c.Rect(), c.pen, c.fill)
	case Circle:
		c.buf.Circle(c.Circle(), c.pen, c.fill)
	case Line:
		c.buf.Line(c.from, c.to, c.pen)
	}
	c.applied = true
}

func (c *ShapeCommand) Undo() {
	if !c.applied {
		return
	}
	c.buf.Restore(c.before)
	c.applied = false
}

func (c *ShapeCommand) CanMergeWith(Command) bool { return false }
func (c *ShapeCommand) MergeWith(Command)         {}
func (c *ShapeCommand) Footprint() int            { return c.before.Size() }
