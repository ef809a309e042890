// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// =============================================================================
// CHAT SESSION
// =============================================================================

// SessionConfig holds the fixed configuration of a chat session.
type SessionConfig struct {
	// Model is the model identifier used for conversational sends.
	Model string

	// SystemInstruction is the persona/system prompt for the session.
	SystemInstruction string

	// EnableSearch turns on search grounding for the session.
	EnableSearch bool
}

// Session is the stateful conversation handle: fixed configuration plus the
// accumulated turn history in provider format. Each SendStream call sends
// the full accumulated context and folds the exchange back into it.
//
// A Session must only be obtained through the session manager, which owns
// its lifecycle.
type Session struct {
	client *Client
	cfg    SessionConfig

	mu      sync.Mutex
	history []Content
}

// NewSession creates a session seeded with the given prior history.
// It fails if the client is not configured or the configuration is invalid.
func NewSession(client *Client, cfg SessionConfig, history []Content) (*Session, error) {
	if client == nil || !client.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if cfg.Model == "" {
		return nil, errors.New("session model not set")
	}

	return &Session{
		client:  client,
		cfg:     cfg,
		history: append([]Content(nil), history...),
	}, nil
}

// History returns a copy of the accumulated context.
func (s *Session) History() []Content {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Content(nil), s.history...)
}

// SendStream sends one user message (as ordered parts) within the session
// and returns the chunk stream for the reply. The user message and the
// accumulated reply text are folded into the session history once the stream
// finishes, so later sends carry the full context.
//
// The returned channel is finite, not restartable, and must be consumed
// exactly once.
func (s *Session) SendStream(ctx context.Context, parts []Part) (<-chan StreamChunk, error) {
	user := Content{Role: RoleUser, Parts: parts}

	s.mu.Lock()
	contents := make([]Content, 0, len(s.history)+1)
	contents = append(contents, s.history...)
	contents = append(contents, user)
	s.mu.Unlock()

	req := &GenerateRequest{
		Contents:          contents,
		SystemInstruction: s.systemContent(),
		Tools:             s.tools(),
	}

	in, err := s.client.StreamGenerate(ctx, s.cfg.Model, req)
	if err != nil {
		return nil, err
	}

	out := make(chan StreamChunk, 64)
	go func() {
		defer close(out)

		var reply strings.Builder
		for chunk := range in {
			if chunk.Error == nil {
				reply.WriteString(chunk.Text())
			} else {
				// Carry what was received so far on the terminal error.
				chunk.Error = &StreamError{Partial: reply.String(), Err: chunk.Error}
			}
			out <- chunk
		}

		// Fold the exchange into the accumulated context. A partially
		// streamed reply is kept as-is; the user still saw that text.
		s.mu.Lock()
		s.history = append(s.history, user)
		if reply.Len() > 0 {
			s.history = append(s.history, Content{
				Role:  RoleModel,
				Parts: []Part{{Text: reply.String()}},
			})
		}
		s.mu.Unlock()
	}()

	return out, nil
}

// systemContent wraps the system instruction, or nil when unset.
func (s *Session) systemContent() *Content {
	if s.cfg.SystemInstruction == "" {
		return nil
	}
	return &Content{Parts: []Part{{Text: s.cfg.SystemInstruction}}}
}

// tools returns the tool configuration for the session.
func (s *Session) tools() []Tool {
	if !s.cfg.EnableSearch {
		return nil
	}
	return []Tool{{GoogleSearch: &GoogleSearch{}}}
}
