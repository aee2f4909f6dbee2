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
	"fmt"
	"strings"

	"storyboard/internal/undo"
)

// Tool is the active drawing tool.
type Tool int

const (
	Pen Tool = iota
	Brush
	Pencil
	Eraser
	Rectangle
	Circle
	Line
	// Fill and Text are selectable but do not draw yet.
	Fill
	Text
)

var toolNames = [...]string{"pen", "brush", "pencil", "eraser", "rectangle", "circle", "line", "fill", "text"}

func (t Tool) String() string {
	if t < 0 || int(t) >= len(toolNames) {
		return fmt.Sprintf("tool(%d)", int(t))
	}
	return toolNames[t]
}

// ParseTool resolves a tool by its lower-case name.
func ParseTool(name string) (Tool, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range toolNames {
		if s == n {
			return Tool(i), nil
		}
	}
	return Pen, fmt.Errorf("unknown tool %q", name)
}

// Tools lists all tools in toolbar order.
func Tools() []Tool {
	out := make([]Tool, len(toolNames))
	for i := range toolNames {
		out[i] = Tool(i)
	}
	return out
}

func (t Tool) freehand() bool { return t >= Pen && t <= Eraser }
func (t Tool) shape() bool    { return t >= Rectangle && t <= Line }

func (t Tool) strokeKind() undo.StrokeKind {
	switch t {
	case Brush:
		return undo.Brush
	case Pencil:
		return undo.Pencil
	case Eraser:
		return undo.Eraser
	}
	return undo.Pen
}

func (t Tool) shapeKind() undo.ShapeKind {
	switch t {
	case Circle:
		return undo.Circle
	case Line:
		return undo.Line
	}
	return undo.Rectangle
}
