// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the application. It detects the
// terminal's color capability and adjusts accordingly.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// Header
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style

	// Message bubbles
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	UserText       lipgloss.Style
	ErrorText      lipgloss.Style
	Citation       lipgloss.Style
	ImageMarker    lipgloss.Style

	// Task panel
	TaskPanel   lipgloss.Style
	TaskPending lipgloss.Style
	TaskDone    lipgloss.Style

	// Input area
	InputContainer lipgloss.Style
	ModeChat       lipgloss.Style
	ModeImage      lipgloss.Style
	Recording      lipgloss.Style

	// Status bar
	StatusBar    lipgloss.Style
	Notice       lipgloss.Style
	NoticeError  lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
}

// NewTheme builds the theme for the current terminal. The preference is
// "dark", "light", or "auto".
func NewTheme(preference string) *Theme {
	isDark := true
	switch preference {
	case "light":
		isDark = false
	case "dark":
	default:
		isDark = termenv.HasDarkBackground()
	}

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}

	t.Header = lipgloss.NewStyle().
		Padding(0, 1).
		Background(SurfaceDim)
	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.UserText = lipgloss.NewStyle().Foreground(TextPrimary)
	t.ErrorText = lipgloss.NewStyle().Foreground(Rose)
	t.Citation = lipgloss.NewStyle().Foreground(TextMuted)
	t.ImageMarker = lipgloss.NewStyle().Foreground(Amber)

	t.TaskPanel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(TextMuted).
		Padding(0, 1)
	t.TaskPending = lipgloss.NewStyle().Foreground(TextPrimary)
	t.TaskDone = lipgloss.NewStyle().Foreground(TextMuted).Strikethrough(true)

	t.InputContainer = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(0, 1)
	t.ModeChat = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.ModeImage = lipgloss.NewStyle().Bold(true).Foreground(Amber)
	t.Recording = lipgloss.NewStyle().Bold(true).Foreground(Rose).Blink(true)

	t.StatusBar = lipgloss.NewStyle().
		Padding(0, 1).
		Background(SurfaceDim).
		Foreground(TextMuted)
	t.Notice = lipgloss.NewStyle().Foreground(Emerald)
	t.NoticeError = lipgloss.NewStyle().Bold(true).Foreground(Rose)
	t.ShortcutKey = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(TextMuted)

	return t
}

// GlamourStyle returns the glamour style name matching the theme.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}
