/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package script replays pointer and tool events from YAML sketch scripts onto a drawing
// surface. It is the headless host used by the CLI and by tests.
package script

import (
	"fmt"
	"image/color"

	"storyboard/internal/raster"
	"storyboard/internal/surface"
)

// Script is a parsed sketch: an optional panel id and the steps to replay in order.
type Script struct {
	Panel string
	Steps []Step
}

// Op identifies what a step does.
type Op int

const (
	OpUnknown Op = iota
	OpTool
	OpColor
	OpWidth
	OpFill
	OpBackground
	OpDown
	OpMove
	OpPath
	OpUp
	OpCancel
	OpUndo
	OpRedo
	OpClear
	OpZoom
)

var opNames = map[string]Op{
	"tool":       OpTool,
	"color":      OpColor,
	"width":      OpWidth,
	"fill":       OpFill,
	"background": OpBackground,
	"down":       OpDown,
	"move":       OpMove,
	"path":       OpPath,
	"up":         OpUp,
	"cancel":     OpCancel,
	"undo":       OpUndo,
	"redo":       OpRedo,
	"clear":      OpClear,
	"zoom":       OpZoom,
}

func (o Op) String() string {
	for k, v := range opNames {
		if v == o {
			return k
		}
	}
	return "unknown"
}

// Zoom modes for OpZoom. ZoomLevel uses Step.Value.
const (
	ZoomLevel = "level"
	ZoomIn    = "in"
	ZoomOut   = "out"
	ZoomReset = "reset"
)

// Step is one scripted event. Only the fields relevant to Op are set.
// LineNo is the 1-based line of the step in the source.
type Step struct {
	Op     Op
	Tool   surface.Tool
	Color  color.RGBA
	Value  float64 // width or zoom level
	Flag   bool    // fill
	Count  int     // undo/redo repetitions
	Points []raster.Point
	Zoom   string
	LineNo int
}

// Error represents a parse error with position context.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e Error) Error() string { return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message) }
