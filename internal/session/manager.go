// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the single stateful conversation handle against the
// generative backend: lazy creation, context seeding from prior history,
// and invalidation on reset.
package session

import (
	stdlog "log"
	"sync"

	"github.com/morganforge/anita-tui/internal/attach"
	"github.com/morganforge/anita-tui/internal/chat"
	"github.com/morganforge/anita-tui/internal/provider"
)

// SystemInstruction is the assistant persona for the chat session.
const SystemInstruction = `You are Anita, an extremely capable, serious and professional virtual personal assistant.
You always address the user as "Boss".

YOUR MAIN ROLE:
1. Support the Boss in writing, planning and executing their projects.
2. Actively help break large goals down into small achievable tasks.
3. Regularly suggest concrete actions to add to the application's task list.
4. Use your search tools whenever factual, current or precise information is requested (prices, competitors, news, dates).

STYLE:
- Proactive, structured and concise.
- Never break character.
- If a project sounds vague, immediately propose a 3 to 5 point action plan.
- If you use information from web search, cite your sources at the end when relevant.

If asked to generate an image, say you are switching to visual creation mode.`

// =============================================================================
// MANAGER
// =============================================================================

// Manager exclusively owns the session handle. No other component may hold
// or mutate it; callers get the handle from Ensure and must not cache it
// across a Reset.
type Manager struct {
	client *provider.Client
	cfg    provider.SessionConfig

	mu     sync.Mutex
	handle *provider.Session
}

// NewManager creates a manager for the given client and session
// configuration.
func NewManager(client *provider.Client, cfg provider.SessionConfig) *Manager {
	return &Manager{client: client, cfg: cfg}
}

// Ensure returns the current session handle, creating one seeded from
// priorHistory if none exists. When a handle already exists the prior
// history argument is ignored: the handle already encodes the context.
//
// Construction fails only if the backend client rejects the configuration;
// the error is propagated, not retried.
func (m *Manager) Ensure(priorHistory []chat.Turn) (*provider.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle != nil {
		return m.handle, nil
	}

	handle, err := provider.NewSession(m.client, m.cfg, HistoryContents(priorHistory))
	if err != nil {
		return nil, err
	}
	m.handle = handle
	return m.handle, nil
}

// Reset discards the handle unconditionally. Idempotent; the next Ensure
// creates a fresh session seeded from whatever history it is given.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handle = nil
}

// Active reports whether a handle currently exists. Intended for tests and
// status display.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle != nil
}

// =============================================================================
// HISTORY CONVERSION
// =============================================================================

// HistoryContents converts local turns into provider format for session
// seeding and report synthesis. Error turns are excluded. Each remaining
// turn becomes one content with ordered parts: an inline-binary part first
// when the turn carries an image (parsed back out of the persisted data
// URL; on parse failure the image part is logged and omitted, the text part
// kept), then a text part. The text part is never empty: the transport
// requires non-empty text, so a single space is substituted.
func HistoryContents(turns []chat.Turn) []provider.Content {
	var out []provider.Content
	for _, t := range turns {
		if t.IsError {
			continue
		}

		var parts []provider.Part
		if t.ImageURL != "" {
			if blob, ok := imageBlob(t.ImageURL); ok {
				parts = append(parts, provider.Part{InlineData: blob})
			}
		}

		text := t.Text
		if text == "" {
			text = " "
		}
		parts = append(parts, provider.Part{Text: text})

		out = append(out, provider.Content{
			Role:  providerRole(t.Role),
			Parts: parts,
		})
	}
	return out
}

// imageBlob parses a persisted data URL back into an inline blob.
func imageBlob(dataURL string) (*provider.Blob, bool) {
	mime, raw, err := attach.ParseDataURL(dataURL)
	if err != nil {
		stdlog.Printf("SESSION: could not restore image from history: %v", err)
		return nil, false
	}
	// The provider wants the payload re-encoded as base64; reuse the
	// already-encoded portion by synthesizing the blob from raw bytes.
	return &provider.Blob{MimeType: mime, Data: attach.Base64(raw)}, true
}

// providerRole maps a local role onto the provider's role strings.
func providerRole(r chat.Role) string {
	if r == chat.RoleUser {
		return provider.RoleUser
	}
	return provider.RoleModel
}
