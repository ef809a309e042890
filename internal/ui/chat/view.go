// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	chatlog "github.com/morganforge/anita-tui/internal/chat"
	"github.com/morganforge/anita-tui/internal/reconcile"
	"github.com/morganforge/anita-tui/internal/util"
)

// View renders the whole conversation screen.
func (m *Model) View() string {
	if !m.ready {
		return "Starting anita..."
	}

	sections := []string{
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderStatusBar(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderHeader draws the title bar.
func (m *Model) renderHeader() string {
	t := m.deps.Theme
	title := t.HeaderTitle.Render("Anita")
	sub := t.ShortcutDesc.Render(" personal assistant")
	return t.Header.Width(m.width).Render(title + sub)
}

// renderLog renders every turn, plus the optional task and help panels.
func (m *Model) renderLog() string {
	var b strings.Builder

	for i, turn := range m.deps.Log.Turns() {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderTurn(turn))
	}

	if m.showTasks {
		b.WriteString("\n")
		b.WriteString(m.renderTasks())
	}
	if m.showHelp {
		b.WriteString("\n")
		b.WriteString(m.renderHelp())
	}
	return b.String()
}

// renderTurn renders one message with its label, body, and citations.
func (m *Model) renderTurn(turn chatlog.Turn) string {
	t := m.deps.Theme
	var b strings.Builder

	stamp := t.ShortcutDesc.Render(turn.Timestamp.Format("15:04"))
	switch {
	case turn.Role == chatlog.RoleUser:
		b.WriteString(t.UserLabel.Render(m.deps.DisplayName) + " " + stamp + "\n")
	default:
		b.WriteString(t.AssistantLabel.Render("Anita") + " " + stamp + "\n")
	}

	if turn.ImageURL != "" {
		b.WriteString(t.ImageMarker.Render("[image]") + "\n")
	}

	switch {
	case turn.IsError:
		b.WriteString(t.ErrorText.Render(turn.Text) + "\n")
	case turn.Role == chatlog.RoleAssistant && turn.Text != "":
		b.WriteString(m.renderMarkdown(turn.Text))
	case turn.Text != "":
		b.WriteString(t.UserText.Render(turn.Text) + "\n")
	}

	if len(turn.Citations) > 0 {
		b.WriteString(t.Citation.Render("Sources:") + "\n")
		for _, c := range turn.Citations {
			b.WriteString(t.Citation.Render(fmt.Sprintf("  * %s (%s)", c.Title, c.URI)) + "\n")
		}
	}
	return b.String()
}

// renderMarkdown renders assistant text through glamour, falling back to
// the raw text when the renderer is unavailable.
func (m *Model) renderMarkdown(content string) string {
	if m.renderer == nil {
		return content + "\n"
	}
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return content + "\n"
	}
	return strings.TrimLeft(rendered, "\n")
}

// renderTasks draws the task panel.
func (m *Model) renderTasks() string {
	t := m.deps.Theme
	items := m.deps.Tasks.Items()

	var b strings.Builder
	b.WriteString(t.AssistantLabel.Render("Tasks") + "\n")
	if len(items) == 0 {
		b.WriteString(t.ShortcutDesc.Render("nothing yet, /task add <text>"))
	}
	for i, task := range items {
		line := fmt.Sprintf("%d. %s", i+1, task.Text)
		if task.Completed {
			b.WriteString(t.TaskDone.Render("[x] "+line) + "\n")
		} else {
			b.WriteString(t.TaskPending.Render("[ ] "+line) + "\n")
		}
	}
	return t.TaskPanel.Render(b.String())
}

// renderHelp draws command and shortcut help.
func (m *Model) renderHelp() string {
	t := m.deps.Theme
	var b strings.Builder
	b.WriteString(t.AssistantLabel.Render("Commands") + "\n")
	for _, cmd := range m.parser.Registry().All() {
		b.WriteString(t.ShortcutKey.Render(cmd.Usage))
		b.WriteString(t.ShortcutDesc.Render("  " + cmd.Description))
		b.WriteString("\n")
	}
	b.WriteString("\n" + t.AssistantLabel.Render("Keys") + "\n")
	shortcuts := []struct{ key, desc string }{
		{"C-t", "toggle tasks"},
		{"C-g", "toggle image mode"},
		{"C-r", "record voice"},
		{"C-p", "export report"},
		{"C-n", "new conversation"},
		{"C-c", "quit"},
	}
	for _, s := range shortcuts {
		b.WriteString(t.ShortcutKey.Render(s.key) + t.ShortcutDesc.Render("  "+s.desc) + "\n")
	}
	return t.TaskPanel.Render(b.String())
}

// renderInput draws the input box.
func (m *Model) renderInput() string {
	return m.deps.Theme.InputContainer.Width(m.width - 2).Render(m.input.View())
}

// renderStatusBar draws mode, activity, and notices.
func (m *Model) renderStatusBar() string {
	t := m.deps.Theme
	var parts []string

	if m.mode == reconcile.ModeImage {
		parts = append(parts, t.ModeImage.Render("IMAGE"))
	} else {
		parts = append(parts, t.ModeChat.Render("CHAT"))
	}

	if m.deps.Recorder != nil && m.deps.Recorder.Recording() {
		parts = append(parts, t.Recording.Render("REC"))
	}
	if m.deps.Reconciler.Busy() {
		parts = append(parts, m.spinner.View()+t.ShortcutDesc.Render("thinking"))
	}
	if m.pending != nil {
		parts = append(parts, t.ShortcutDesc.Render("attached: "+m.pending.Name))
	}
	if n := m.deps.Tasks.Pending(); n > 0 {
		parts = append(parts, t.ShortcutDesc.Render(fmt.Sprintf("%d open tasks", n)))
	}

	if m.notice != "" {
		style := t.Notice
		if m.noticeErr {
			style = t.NoticeError
		}
		parts = append(parts, style.Render(util.TruncateWidth(m.notice, m.width-20)))
	} else {
		parts = append(parts, t.ShortcutDesc.Render("/help for commands"))
	}

	return t.StatusBar.Width(m.width).Render(strings.Join(parts, "  "))
}
