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
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"storyboard/internal/config"
	"storyboard/internal/raster"
	"storyboard/internal/surface"

	"gopkg.in/yaml.v3"
)

var reYAMLLine = regexp.MustCompile(`line (\d+)`)

// ParseFile reads and parses a sketch script from disk.
func ParseFile(path string) (Script, []Error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, []Error{{Message: err.Error()}}
	}
	return Parse(data)
}

// Parse parses a YAML sketch script. Accepted layouts:
//
//	panel: scene1/p2      # optional
//	steps:
//	  - tool: brush
//	  - color: "#cc3300"
//	  - width: 6
//	  - down: [10, 10]
//	  - path: [[20, 12], [30, 18]]
//	  - up: [40, 20]
//	  - undo                # bare ops: undo, redo, cancel, clear, up
//	  - zoom: in            # in | out | reset | <level>
//
// or just the list of steps. Every malformed step is reported with its line; valid steps
// are still returned.
func Parse(data []byte) (Script, []Error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Script{}, []Error{yamlError(err, data)}
	}
	if len(doc.Content) == 0 {
		return Script{}, []Error{{Line: 1, Column: 1, Message: "empty script"}}
	}
	root := doc.Content[0]
	var sc Script
	var errs []Error
	steps := root
	if root.Kind == yaml.MappingNode {
		steps = nil
		for i := 0; i+1 < len(root.Content); i += 2 {
			k, v := root.Content[i], root.Content[i+1]
			switch k.Value {
			case "panel":
				sc.Panel = strings.TrimSpace(v.Value)
			case "steps":
				steps = v
			default:
				errs = append(errs, errAt(k, "unknown key %q", k.Value))
			}
		}
		if steps == nil {
			return sc, append(errs, errAt(root, "missing steps"))
		}
	}
	if steps.Kind != yaml.SequenceNode {
		return sc, append(errs, errAt(steps, "steps must be a list"))
	}

	p := parser{}
	for _, n := range steps.Content {
		st, err := p.step(n)
		if err != nil {
			errs = append(errs, *err)
			continue
		}
		sc.Steps = append(sc.Steps, st)
	}
	return sc, errs
}

// parser carries the last pointer position so a bare "up" can release there.
type parser struct {
	last    raster.Point
	hasLast bool
}

func (p *parser) step(n *yaml.Node) (Step, *Error) {
	var key, val *yaml.Node
	switch n.Kind {
	case yaml.ScalarNode:
		key = n
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			e := errAt(n, "a step must have exactly one key")
			return Step{}, &e
		}
		key, val = n.Content[0], n.Content[1]
		if val.Kind == yaml.ScalarNode && val.Tag == "!!null" {
			val = nil
		}
	default:
		e := errAt(n, "a step must be a key or a single-key map")
		return Step{}, &e
	}
	op, ok := opNames[strings.ToLower(strings.TrimSpace(key.Value))]
	if !ok {
		e := errAt(key, "unknown step %q", key.Value)
		return Step{}, &e
	}
	st := Step{Op: op, LineNo: n.Line}
	if val == nil && op != OpUndo && op != OpRedo && op != OpCancel && op != OpClear && op != OpUp {
		e := errAt(key, "%s needs a value", op)
		return st, &e
	}
	var err error
	switch op {
	case OpTool:
		st.Tool, err = surface.ParseTool(val.Value)
	case OpColor, OpBackground:
		st.Color, err = config.ParseColor(val.Value)
	case OpWidth:
		st.Value, err = positive(val)
	case OpFill:
		err = val.Decode(&st.Flag)
	case OpDown, OpMove:
		var pt raster.Point
		if pt, err = point(val); err == nil {
			st.Points = []raster.Point{pt}
			p.last, p.hasLast = pt, true
		}
	case OpPath:
		st.Points, err = points(val)
		if err == nil {
			p.last, p.hasLast = st.Points[len(st.Points)-1], true
		}
	case OpUp:
		switch {
		case val != nil:
			var pt raster.Point
			if pt, err = point(val); err == nil {
				st.Points = []raster.Point{pt}
			}
		case p.hasLast:
			st.Points = []raster.Point{p.last}
		default:
			err = fmt.Errorf("up without a point needs a preceding down")
		}
	case OpUndo, OpRedo:
		st.Count = 1
		if val != nil {
			if err = val.Decode(&st.Count); err == nil && st.Count < 1 {
				err = fmt.Errorf("count must be at least 1")
			}
		}
	case OpZoom:
		switch z := strings.ToLower(strings.TrimSpace(val.Value)); z {
		case ZoomIn, ZoomOut, ZoomReset:
			st.Zoom = z
		default:
			st.Zoom = ZoomLevel
			st.Value, err = positive(val)
		}
	}
	if err != nil {
		at := key
		if val != nil {
			at = val
		}
		e := errAt(at, "%s: %v", op, err)
		return st, &e
	}
	return st, nil
}

func positive(n *yaml.Node) (float64, error) {
	var f float64
	if err := n.Decode(&f); err != nil {
		return 0, fmt.Errorf("expected a number, got %q", n.Value)
	}
	if f <= 0 {
		return 0, fmt.Errorf("must be positive, got %v", f)
	}
	return f, nil
}

func point(n *yaml.Node) (raster.Point, error) {
	var xy []float64
	if err := n.Decode(&xy); err != nil || len(xy) != 2 {
		return raster.Point{}, fmt.Errorf("expected [x, y]")
	}
	return raster.Pt(xy[0], xy[1]), nil
}

func points(n *yaml.Node) ([]raster.Point, error) {
	if n.Kind != yaml.SequenceNode || len(n.Content) == 0 {
		return nil, fmt.Errorf("expected a list of [x, y] points")
	}
	out := make([]raster.Point, 0, len(n.Content))
	for _, c := range n.Content {
		pt, err := point(c)
		if err != nil {
			return nil, err
		}
		out = append(out, pt)
	}
	return out, nil
}

func errAt(n *yaml.Node, format string, args ...any) Error {
	return Error{Line: n.Line, Column: n.Column, Message: fmt.Sprintf(format, args...)}
}

// yamlError maps a decoder error to a script error. Parser errors of the "did not find expected"
// family carry the zero-based line of the enclosing context, so they are shifted to the one-based
// line the context opens on.
func yamlError(err error, data []byte) Error {
	e := Error{Line: 1, Column: 1, Message: err.Error()}
	if m := reYAMLLine.FindStringSubmatch(err.Error()); m != nil {
		if n, convErr := strconv.Atoi(m[1]); convErr == nil {
			e.Line = n
			if strings.Contains(e.Message, "did not find expected") {
				e.Line++
			}
		}
	}
	if lines := bytes.Count(data, []byte("\n")) + 1; e.Line > lines {
		e.Line = lines
	}
	return e
}
