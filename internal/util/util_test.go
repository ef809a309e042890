// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_Basic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")
	data := []byte("hello, world!")

	require.NoError(t, AtomicWriteFile(path, data, 0644))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, content)
}

func TestAtomicWriteFile_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "deep", "test.txt")

	require.NoError(t, AtomicWriteFile(path, []byte("test data"), 0644))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestAtomicWriteFile_OverwritesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")

	require.NoError(t, AtomicWriteFile(path, []byte("first"), 0644))
	require.NoError(t, AtomicWriteFile(path, []byte("second"), 0644))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))
}

func TestAtomicWriteFile_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")

	require.NoError(t, AtomicWriteFile(path, []byte("data"), 0644))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".tmp-"), "temp file left behind: %s", e.Name())
	}
}

// =============================================================================
// STRING TESTS
// =============================================================================

func TestTruncateWidth(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
		want  string
	}{
		{"fits", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"truncated", "hello world", 8, "hello..."},
		{"zero width", "hello", 0, ""},
		{"tiny width", "hello", 2, "he"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateWidth(tt.input, tt.width))
		})
	}
}

func TestWrapWidth(t *testing.T) {
	lines := WrapWidth("the quick brown fox jumps over the lazy dog", 10)
	for _, line := range lines {
		assert.LessOrEqual(t, runewidth.StringWidth(line), 10)
	}
	assert.Equal(t, "the quick brown fox jumps over the lazy dog", strings.Join(lines, " "))
}

func TestWrapWidth_PreservesNewlines(t *testing.T) {
	lines := WrapWidth("one\ntwo", 20)
	assert.Equal(t, []string{"one", "two"}, lines)
}

func TestWrapWidth_LongWord(t *testing.T) {
	lines := WrapWidth("abcdefghijklmnop", 5)
	for _, line := range lines {
		assert.LessOrEqual(t, runewidth.StringWidth(line), 5)
	}
	assert.Equal(t, "abcdefghijklmnop", strings.Join(lines, ""))
}

func TestWrapWidth_Empty(t *testing.T) {
	assert.Equal(t, []string{""}, WrapWidth("", 10))
}
