/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo implements reversible drawing commands and the manager that keeps them on
// bounded undo/redo stacks, merging consecutive stroke segments into a single entry.
package undo

// Command is a reversible mutation of a raster buffer. Every command owns the snapshots it
// needs to reverse itself; Execute and Undo are idempotent.
type Command interface {
	Execute()
	Undo()
	Description() string
	// CanMergeWith reports whether other may be folded into the receiver. It must be a pure
	// function of the two command values.
	CanMergeWith(other Command) bool
	MergeWith(other Command)
}

// finisher is implemented by stroke-like commands that accept merges until finished.
type finisher interface {
	Command
	Finish()
}

// footprinter reports the bytes held in snapshots, used for the memory cap.
type footprinter interface {
	Footprint() int
}

func footprint(c Command) int {
	if f, ok := c.(footprinter); ok {
		return f.Footprint()
	}
	return 0
}
