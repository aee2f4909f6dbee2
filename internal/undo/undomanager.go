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
	"log/slog"

	applog "storyboard/internal/log"
)

// DefaultMaxHistory is the undo depth used when Config.MaxHistory is not set.
const DefaultMaxHistory = 50

// Config controls depth and memory caps and the stroke merge policy.
type Config struct {
	// MaxHistory bounds the undo stack; the oldest entries are evicted first.
	MaxHistory int
	// MaxBytes is a soft cap on snapshot memory held by the undo stack (0 means unlimited).
	// The newest entry is never evicted.
	MaxBytes int
	// MergeStrokes folds consecutive compatible stroke segments into one entry.
	MergeStrokes bool
}

// State is the UI-facing view of the stacks.
type State struct {
	CanUndo         bool
	CanRedo         bool
	UndoDescription string
	RedoDescription string
	UndoCount       int
	RedoCount       int
}

// Manager keeps commands on an undo and a redo stack.
// It is not safe for concurrent use; all calls are expected on the UI event thread.
type Manager struct {
	cfg      Config
	undo     []Command
	redo     []Command
	inFlight finisher
	watchers []func(State)
	log      *slog.Logger
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = DefaultMaxHistory
	}
	if cfg.MaxBytes < 0 {
		cfg.MaxBytes = 0
	}
	return &Manager{cfg: cfg, log: applog.WithComponent("undo")}
}

// OnStateChange registers an observer that receives the derived state after every mutation.
func (m *Manager) OnStateChange(fn func(State)) {
	if fn == nil {
		return
	}
	m.watchers = append(m.watchers, fn)
}

// Execute runs cmd and pushes it, clearing the redo stack, unless it merges into the
// in-flight stroke. A merge neither pushes nor touches the redo stack.
func (m *Manager) Execute(cmd Command) {
	if cmd == nil {
		return
	}
	if m.cfg.MergeStrokes && m.inFlight != nil && m.inFlight.CanMergeWith(cmd) {
		m.inFlight.MergeWith(cmd)
		m.log.Debug("merged", slog.String("into", m.inFlight.Description()))
		m.notify()
		return
	}
	cmd.Execute()
	m.undo = append(m.undo, cmd)
	m.redo = nil
	if f, ok := cmd.(finisher); ok {
		m.inFlight = f
	} else {
		m.inFlight = nil
	}
	m.enforceCaps()
	m.log.Debug("executed", slog.String("cmd", cmd.Description()), slog.Int("depth", len(m.undo)))
	m.notify()
}

// Undo reverses the newest command. It returns false when there is nothing to undo.
func (m *Manager) Undo() bool {
	n := len(m.undo)
	if n == 0 {
		return false
	}
	cmd := m.undo[n-1]
	m.undo[n-1] = nil
	m.undo = m.undo[:n-1]
	cmd.Undo()
	m.redo = append(m.redo, cmd)
	m.inFlight = nil
	m.log.Debug("undo", slog.String("cmd", cmd.Description()))
	m.notify()
	return true
}

// Redo re-applies the most recently undone command. It returns false when there is nothing to redo.
func (m *Manager) Redo() bool {
	n := len(m.redo)
	if n == 0 {
		return false
	}
	cmd := m.redo[n-1]
	m.redo[n-1] = nil
	m.redo = m.redo[:n-1]
	cmd.Execute()
	m.undo = append(m.undo, cmd)
	m.inFlight = nil
	m.enforceCaps()
	m.log.Debug("redo", slog.String("cmd", cmd.Description()))
	m.notify()
	return true
}

// FinishCurrentStroke locks the in-flight stroke against further merges.
func (m *Manager) FinishCurrentStroke() {
	if m.inFlight == nil {
		return
	}
	m.inFlight.Finish()
	m.inFlight = nil
}

// ClearHistory drops both stacks, e.g. when the edited panel changes.
func (m *Manager) ClearHistory() {
	m.undo = nil
	m.redo = nil
	m.inFlight = nil
	m.notify()
}

func (m *Manager) CanUndo() bool { return len(m.undo) > 0 }
func (m *Manager) CanRedo() bool { return len(m.redo) > 0 }

// SetMaxHistorySize changes the depth cap; values below 1 are treated as 1. Excess entries
// are evicted immediately.
func (m *Manager) SetMaxHistorySize(n int) {
	if n < 1 {
		n = 1
	}
	m.cfg.MaxHistory = n
	if m.enforceCaps() > 0 {
		m.notify()
	}
}

func (m *Manager) MaxHistorySize() int { return m.cfg.MaxHistory }

// MaxHistoryBytes reports the snapshot memory cap, 0 when unlimited.
func (m *Manager) MaxHistoryBytes() int { return m.cfg.MaxBytes }

func (m *Manager) MergesStrokes() bool { return m.cfg.MergeStrokes }

func (m *Manager) SetMergeConsecutiveStrokes(on bool) {
	m.cfg.MergeStrokes = on
	if !on {
		m.FinishCurrentStroke()
	}
}

// State returns the derived UI state.
func (m *Manager) State() State {
	s := State{
		CanUndo:   len(m.undo) > 0,
		CanRedo:   len(m.redo) > 0,
		UndoCount: len(m.undo),
		RedoCount: len(m.redo),
	}
	if s.CanUndo {
		s.UndoDescription = m.undo[len(m.undo)-1].Description()
	}
	if s.CanRedo {
		s.RedoDescription = m.redo[len(m.redo)-1].Description()
	}
	return s
}

// Stats returns snapshot memory held by both stacks and their depths, for diagnostics.
func (m *Manager) Stats() (totalBytes, undoDepth, redoDepth int) {
	for _, c := range m.undo {
		totalBytes += footprint(c)
	}
	for _, c := range m.redo {
		totalBytes += footprint(c)
	}
	return totalBytes, len(m.undo), len(m.redo)
}

func (m *Manager) notify() {
	if len(m.watchers) == 0 {
		return
	}
	s := m.State()
	for _, fn := range m.watchers {
		fn(s)
	}
}

// enforceCaps evicts from the oldest end and returns how many entries were dropped.
func (m *Manager) enforceCaps() int {
	drop := 0
	if len(m.undo) > m.cfg.MaxHistory {
		drop = len(m.undo) - m.cfg.MaxHistory
	}
	if m.cfg.MaxBytes > 0 {
		total := 0
		for _, c := range m.undo[drop:] {
			total += footprint(c)
		}
		for total > m.cfg.MaxBytes && len(m.undo)-drop > 1 {
			total -= footprint(m.undo[drop])
			drop++
		}
	}
	if drop == 0 {
		return 0
	}
	for i := 0; i < drop; i++ {
		if m.undo[i] == Command(m.inFlight) {
			m.inFlight = nil
		}
	}
	m.undo = append([]Command(nil), m.undo[drop:]...)
	m.log.Debug("trimmed", slog.Int("evicted", drop), slog.Int("depth", len(m.undo)))
	return drop
}
