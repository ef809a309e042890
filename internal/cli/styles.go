// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the plain-terminal surface: first-run setup and a
// line-oriented REPL alternative to the full TUI.
package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/morganforge/anita-tui/internal/ui/styles"
)

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(styles.Purple)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose)
)
