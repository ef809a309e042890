// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"encoding/json"
	"fmt"
	stdlog "log"
	"sync"
)

// =============================================================================
// PERSISTENCE BOUNDARY
// =============================================================================

// Snapshotter persists and restores the serialized log wholesale.
// Load returns (nil, nil) when no snapshot exists yet.
type Snapshotter interface {
	Save(data []byte) error
	Load() ([]byte, error)
}

// =============================================================================
// LOG
// =============================================================================

// Log is the single source of truth for conversation state. Turns are
// totally ordered by insertion; there is no reordering and no deletion
// except a full reset (and the removal of the transient document-analysis
// placeholder, which never survives a send).
//
// Every mutation persists the full collection synchronously before the
// mutating call returns. Persistence failures are logged, never propagated;
// the in-memory log stays authoritative.
type Log struct {
	mu    sync.Mutex
	turns []Turn
	snap  Snapshotter
}

// NewLog creates a log restored from the snapshotter. A corrupt snapshot is
// discarded with a diagnostic; the log starts empty in that case.
func NewLog(snap Snapshotter) *Log {
	l := &Log{snap: snap}

	data, err := snap.Load()
	if err != nil {
		stdlog.Printf("CHAT: failed to load history snapshot: %v", err)
		return l
	}
	if len(data) == 0 {
		return l
	}
	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		stdlog.Printf("CHAT: discarding corrupt history snapshot: %v", err)
		return l
	}
	l.turns = turns
	return l
}

// Append adds a turn to the end of the log and persists.
func (l *Log) Append(t Turn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = append(l.turns, t)
	l.persistLocked()
}

// Patch locates the turn by ID, applies the mutator to a copy, and replaces
// the stored turn with the result. Identity and role are immutable: the
// mutator cannot change them. No-op if the ID is not present. Persists on
// success.
func (l *Log) Patch(id string, mutate func(*Turn)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.turns {
		if l.turns[i].ID != id {
			continue
		}
		patched := l.turns[i]
		patched.Citations = append([]Citation(nil), patched.Citations...)
		mutate(&patched)
		patched.ID = l.turns[i].ID
		patched.Role = l.turns[i].Role
		l.turns[i] = patched
		l.persistLocked()
		return
	}
}

// Remove deletes the turn with the given ID. This exists solely for the
// transient "analyzing" placeholder inserted during document extraction;
// regular turns are never deleted outside Reset. No-op if absent.
func (l *Log) Remove(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.turns {
		if l.turns[i].ID == id {
			l.turns = append(l.turns[:i], l.turns[i+1:]...)
			l.persistLocked()
			return
		}
	}
}

// Reset clears the log to a single seeded welcome turn addressed to the
// given display name and rewrites the durable snapshot.
func (l *Log) Reset(userName string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = []Turn{NewTurn(RoleAssistant, ResetWelcomeText(userName))}
	l.persistLocked()
}

// SeedWelcome appends the first-run welcome turn when the log is empty.
func (l *Log) SeedWelcome(userName string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.turns) > 0 {
		return
	}
	l.turns = []Turn{NewTurn(RoleAssistant, WelcomeText(userName))}
	l.persistLocked()
}

// Turns returns a copy of the ordered turn collection.
func (l *Log) Turns() []Turn {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Turn(nil), l.turns...)
}

// Len returns the number of turns.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.turns)
}

// Find returns the turn with the given ID, if present.
func (l *Log) Find(id string) (Turn, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range l.turns {
		if t.ID == id {
			return t, true
		}
	}
	return Turn{}, false
}

// persistLocked writes the full collection through the snapshotter.
// Caller must hold l.mu.
func (l *Log) persistLocked() {
	data, err := json.Marshal(l.turns)
	if err != nil {
		stdlog.Printf("CHAT: failed to serialize history: %v", err)
		return
	}
	if err := l.snap.Save(data); err != nil {
		stdlog.Printf("CHAT: failed to persist history: %v", err)
	}
}

// =============================================================================
// SEEDED TEXT
// =============================================================================

// WelcomeText is the first-run greeting.
func WelcomeText(userName string) string {
	return fmt.Sprintf("Hello %s. I'm Anita, your personal assistant. I'm connected to the web for research and I can read your documents. Where do we start today?", userName)
}

// ResetWelcomeText is the greeting seeded after a history reset.
func ResetWelcomeText(userName string) string {
	return fmt.Sprintf("History cleared. Welcome back %s, let's start fresh.", userName)
}
