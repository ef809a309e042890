// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/morganforge/anita-tui/internal/config"
)

// LineReader provides input history and line editing for the REPL.
type LineReader struct {
	line        *liner.State
	historyFile string
}

// NewLineReader creates a reader with persistent input history.
func NewLineReader() *LineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.Dir()
	if err != nil {
		configDir = os.TempDir()
	}

	r := &LineReader{
		line:        line,
		historyFile: filepath.Join(configDir, "repl_history"),
	}
	r.loadHistory()
	return r
}

func (r *LineReader) loadHistory() {
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
}

func (r *LineReader) saveHistory() {
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0755); err != nil {
		return
	}
	f, err := os.Create(r.historyFile)
	if err != nil {
		return
	}
	defer f.Close()
	r.line.WriteHistory(f)
}

// ReadInput reads one line with history navigation.
func (r *LineReader) ReadInput(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history and restores the terminal.
func (r *LineReader) Close() {
	r.saveHistory()
	r.line.Close()
}
