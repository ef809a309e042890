// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morganforge/anita-tui/internal/attach"
	"github.com/morganforge/anita-tui/internal/chat"
	"github.com/morganforge/anita-tui/internal/provider"
)

func testManager() *Manager {
	client := provider.NewClient(provider.Config{APIKey: "test-key"})
	return NewManager(client, provider.SessionConfig{
		Model:             "test-model",
		SystemInstruction: SystemInstruction,
		EnableSearch:      true,
	})
}

// =============================================================================
// LIFECYCLE TESTS
// =============================================================================

func TestManager_EnsureIsLazyAndStable(t *testing.T) {
	m := testManager()
	assert.False(t, m.Active())

	first, err := m.Ensure(nil)
	require.NoError(t, err)
	assert.True(t, m.Active())

	// Second Ensure returns the same handle and ignores the new history.
	second, err := m.Ensure([]chat.Turn{chat.NewTurn(chat.RoleUser, "ignored")})
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Empty(t, second.History())
}

func TestManager_ResetForcesNewHandle(t *testing.T) {
	m := testManager()

	first, err := m.Ensure([]chat.Turn{chat.NewTurn(chat.RoleUser, "hi")})
	require.NoError(t, err)

	m.Reset()
	assert.False(t, m.Active())

	// Seeded only with history present at the time of the next Ensure:
	// empty immediately after reset.
	second, err := m.Ensure(nil)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Empty(t, second.History())
}

func TestManager_ResetIsIdempotent(t *testing.T) {
	m := testManager()
	m.Reset()
	m.Reset()
	assert.False(t, m.Active())
}

func TestManager_EnsurePropagatesConstructionFailure(t *testing.T) {
	unconfigured := provider.NewClient(provider.Config{})
	m := NewManager(unconfigured, provider.SessionConfig{Model: "m"})

	_, err := m.Ensure(nil)
	assert.ErrorIs(t, err, provider.ErrNotConfigured)
	assert.False(t, m.Active())
}

// =============================================================================
// HISTORY CONVERSION TESTS
// =============================================================================

func TestHistoryContents_FiltersErrorTurns(t *testing.T) {
	turns := []chat.Turn{
		chat.NewTurn(chat.RoleUser, "hello"),
		chat.NewErrorTurn("boom"),
		chat.NewTurn(chat.RoleAssistant, "hi"),
	}

	contents := HistoryContents(turns)
	require.Len(t, contents, 2)
	assert.Equal(t, provider.RoleUser, contents[0].Role)
	assert.Equal(t, provider.RoleModel, contents[1].Role)
}

func TestHistoryContents_ImagePartComesFirst(t *testing.T) {
	turn := chat.NewTurn(chat.RoleUser, "look at this")
	turn.ImageURL = attach.DataURL("image/jpeg", []byte{1, 2, 3})

	contents := HistoryContents([]chat.Turn{turn})
	require.Len(t, contents, 1)
	require.Len(t, contents[0].Parts, 2)

	assert.NotNil(t, contents[0].Parts[0].InlineData)
	assert.Equal(t, "image/jpeg", contents[0].Parts[0].InlineData.MimeType)
	assert.Equal(t, attach.Base64([]byte{1, 2, 3}), contents[0].Parts[0].InlineData.Data)
	assert.Equal(t, "look at this", contents[0].Parts[1].Text)
}

func TestHistoryContents_BadImageKeepsTextPart(t *testing.T) {
	turn := chat.NewTurn(chat.RoleUser, "still here")
	turn.ImageURL = "data:image/png;base64,%%%not-base64%%%"

	contents := HistoryContents([]chat.Turn{turn})
	require.Len(t, contents, 1)
	require.Len(t, contents[0].Parts, 1)
	assert.Equal(t, "still here", contents[0].Parts[0].Text)
}

func TestHistoryContents_EmptyTextBecomesSpace(t *testing.T) {
	turn := chat.NewTurn(chat.RoleAssistant, "")

	contents := HistoryContents([]chat.Turn{turn})
	require.Len(t, contents, 1)
	assert.Equal(t, " ", contents[0].Parts[0].Text)
}
