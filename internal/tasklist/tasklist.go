// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tasklist implements the to-do list shown beside the chat. It is
// independent of the conversation state machine; the assistant may suggest
// tasks in its replies but nothing is parsed automatically.
package tasklist

import (
	"encoding/json"
	stdlog "log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Task is one to-do item.
type Task struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshotter persists and restores the serialized list wholesale.
// Load returns (nil, nil) when no snapshot exists yet.
type Snapshotter interface {
	Save(data []byte) error
	Load() ([]byte, error)
}

// =============================================================================
// LIST
// =============================================================================

// List is an ordered task collection. New items are inserted at the front;
// toggling and removing never reorder. Every mutation persists the full
// collection.
type List struct {
	mu    sync.Mutex
	items []Task
	snap  Snapshotter
}

// NewList creates a list restored from the snapshotter. A corrupt snapshot
// is discarded with a diagnostic; the list starts empty in that case.
func NewList(snap Snapshotter) *List {
	l := &List{snap: snap}

	data, err := snap.Load()
	if err != nil {
		stdlog.Printf("TASKS: failed to load snapshot: %v", err)
		return l
	}
	if len(data) == 0 {
		return l
	}
	var items []Task
	if err := json.Unmarshal(data, &items); err != nil {
		stdlog.Printf("TASKS: discarding corrupt snapshot: %v", err)
		return l
	}
	l.items = items
	return l
}

// Add inserts a new task at the front of the list. Text is trimmed of
// surrounding whitespace; an empty result is ignored.
func (l *List) Add(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	task := Task{
		ID:        uuid.New().String(),
		Text:      text,
		CreatedAt: time.Now(),
	}
	l.items = append([]Task{task}, l.items...)
	l.persistLocked()
}

// Toggle flips the completed flag of the task with the given ID.
// No-op if absent.
func (l *List) Toggle(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].ID == id {
			l.items[i].Completed = !l.items[i].Completed
			l.persistLocked()
			return
		}
	}
}

// Remove deletes the task with the given ID. No-op if absent.
func (l *List) Remove(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].ID == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			l.persistLocked()
			return
		}
	}
}

// Items returns a copy of the ordered task collection.
func (l *List) Items() []Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Task(nil), l.items...)
}

// Pending returns the number of incomplete tasks.
func (l *List) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, t := range l.items {
		if !t.Completed {
			n++
		}
	}
	return n
}

// persistLocked writes the full collection through the snapshotter.
// Caller must hold l.mu.
func (l *List) persistLocked() {
	data, err := json.Marshal(l.items)
	if err != nil {
		stdlog.Printf("TASKS: failed to serialize: %v", err)
		return
	}
	if err := l.snap.Save(data); err != nil {
		stdlog.Printf("TASKS: failed to persist: %v", err)
	}
}
