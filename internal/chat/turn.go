// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat holds the conversation log: an ordered, append-only sequence
// of turns, patched in place while a response streams and persisted in full
// after every mutation.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLES
// =============================================================================

// Role identifies the author of a turn.
type Role string

const (
	// RoleUser marks a turn written by the user.
	RoleUser Role = "user"

	// RoleAssistant marks a turn written by the assistant.
	RoleAssistant Role = "assistant"
)

// =============================================================================
// CITATIONS
// =============================================================================

// Citation is one grounding source attached to an assistant turn.
type Citation struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// =============================================================================
// TURN
// =============================================================================

// Turn is one message in the conversation log.
//
// Role, ImageURL and IsError are set at creation and never change. Text is
// mutable only while the turn is receiving streamed content. Citations are
// append-only while streaming and frozen afterwards; they are unique by URI.
type Turn struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Text      string     `json:"text"`
	ImageURL  string     `json:"image_url,omitempty"`
	IsError   bool       `json:"is_error,omitempty"`
	Citations []Citation `json:"citations,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewTurn creates a turn with a fresh ID and the current timestamp.
func NewTurn(role Role, text string) Turn {
	return Turn{
		ID:        uuid.New().String(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewErrorTurn creates a terminal assistant error turn.
func NewErrorTurn(text string) Turn {
	t := NewTurn(RoleAssistant, text)
	t.IsError = true
	return t
}

// AddCitations merges sources into the turn's citation list, deduplicating
// by URI. The first-seen title for a URI wins; later duplicates are dropped,
// not merged. First-seen order is preserved.
func (t *Turn) AddCitations(cs []Citation) {
	if len(cs) == 0 {
		return
	}
	seen := make(map[string]bool, len(t.Citations))
	for _, c := range t.Citations {
		seen[c.URI] = true
	}
	for _, c := range cs {
		if c.URI == "" || seen[c.URI] {
			continue
		}
		seen[c.URI] = true
		t.Citations = append(t.Citations, c)
	}
}
