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

import (
	"image/color"

	"storyboard/internal/raster"
)

// ClearCommand wipes the buffer to the background colour it had when the command was built.
type ClearCommand struct {
	buf     *raster.Buffer
	bg      color.RGBA
	before  raster.Snapshot
	applied bool
}

func NewClear(buf *raster.Buffer) *ClearCommand {
	return &ClearCommand{buf: buf, bg: buf.Background(), before: buf.Capture()}
}

func (c *ClearCommand) Description() string { return "Clear canvas" }

func (c *ClearCommand) Execute() {
	if c.applied {
		return
	}
	c.buf.Fill(c.bg)
	c.applied = true
}

func (c *ClearCommand) Undo() {
	if !c.applied {
		return
	}
	c.buf.Restore(c.before)
	c.applied = false
}

func (c *ClearCommand) CanMergeWith(Command) bool { return false }
func (c *ClearCommand) MergeWith(Command)         {}
func (c *ClearCommand) Footprint() int            { return c.before.Size() }

// CaptureCommand records an explicit before/after pair for composite operations.
type CaptureCommand struct {
	buf    *raster.Buffer
	label  string
	before raster.Snapshot
	after  raster.Snapshot
}

func NewCapture(buf *raster.Buffer, label string, before, after raster.Snapshot) *CaptureCommand {
	if label == "" {
		label = "Edit"
	}
	return &CaptureCommand{buf: buf, label: label, before: before, after: after}
}

func (c *CaptureCommand) Description() string { return c.label }
func (c *CaptureCommand) Execute()            { c.buf.Restore(c.after) }
func (c *CaptureCommand) Undo()               { c.buf.Restore(c.before) }

func (c *CaptureCommand) CanMergeWith(Command) bool { return false }
func (c *CaptureCommand) MergeWith(Command)         {}
func (c *CaptureCommand) Footprint() int            { return c.before.Size() + c.after.Size() }
