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
	"storyboard/internal/raster"
	"storyboard/internal/undo"
)

// strokeBuilder accumulates the in-flight freehand stroke and paints it live. It is frozen into
// a finished StrokeCommand once the drag ends.
type strokeBuilder struct {
	buf    *raster.Buffer
	style  undo.StrokeStyle
	points []raster.Point
	before raster.Snapshot
}

// beginStroke captures the before snapshot and paints a dot so a click without drag still
// leaves a mark.
func beginStroke(buf *raster.Buffer, style undo.StrokeStyle, p raster.Point) *strokeBuilder {
	b := &strokeBuilder{buf: buf, style: style, before: buf.Capture(), points: []raster.Point{p}}
	buf.Dot(p, b.pen())
	return b
}

func (b *strokeBuilder) pen() raster.Pen { return raster.Pen{Color: b.style.Ink, Width: b.style.Width} }

func (b *strokeBuilder) extend(p raster.Point) {
	last := b.points[len(b.points)-1]
	b.buf.Segment(last, p, b.pen())
	b.points = append(b.points, p)
}

func (b *strokeBuilder) freeze() *undo.StrokeCommand {
	return undo.FrozenStroke(b.buf, b.style, b.points, b.before, b.buf.Capture())
}
