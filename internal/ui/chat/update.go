// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	chatlog "github.com/morganforge/anita-tui/internal/chat"
	"github.com/morganforge/anita-tui/internal/commands"
	"github.com/morganforge/anita-tui/internal/reconcile"
)

// Update handles all incoming messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refreshViewport(true)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case LogChangedMsg:
		m.refreshViewport(true)
		// Re-arm the listener for the next change.
		return m, listenUpdates(m.deps.Reconciler)

	case SendDoneMsg:
		if !msg.Accepted {
			return m, m.setNotice("Anita is still replying, hold on.", true)
		}
		return m, m.maybeSpeakReply()

	case AttachmentLoadedMsg:
		if msg.Err != nil {
			return m, m.setNotice(msg.Err.Error(), true)
		}
		m.pending = msg.Attachment
		kind := "document"
		if msg.Attachment.Kind == reconcile.AttachmentImage {
			kind = "image"
		}
		return m, m.setNotice(fmt.Sprintf("Attached %s %s, it goes with your next message.", kind, msg.Attachment.Name), false)

	case ReportDoneMsg:
		if msg.Err != nil {
			log.Printf("CHAT: report export failed: %v", msg.Err)
			return m, m.setNotice("The report could not be created, try again.", true)
		}
		if msg.Path == "" {
			return m, m.setNotice("Not enough conversation to report on yet.", true)
		}
		return m, m.setNotice("Report saved to "+msg.Path, false)

	case TranscriptMsg:
		if msg.Err != nil {
			log.Printf("VOICE: capture stop failed: %v", msg.Err)
			return m, m.setNotice("Voice capture failed, check your microphone.", true)
		}
		if msg.Text != "" {
			current := m.input.Value()
			if current != "" && !strings.HasSuffix(current, " ") {
				current += " "
			}
			m.input.SetValue(current + msg.Text)
			m.input.CursorEnd()
		}
		return m, nil

	case NoticeExpiredMsg:
		if msg.ID == m.noticeID {
			m.notice = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateComponents(msg)
}

// handleKey routes keyboard input.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.deps.Synthesizer.Stop()
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Submit):
		return m.submit()

	case key.Matches(msg, m.keyMap.Tasks):
		m.showTasks = !m.showTasks
		m.layout()
		m.refreshViewport(false)
		return m, nil

	case key.Matches(msg, m.keyMap.Mode):
		if m.mode == reconcile.ModeChat {
			m.mode = reconcile.ModeImage
		} else {
			m.mode = reconcile.ModeChat
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Record):
		return m.toggleRecording()

	case key.Matches(msg, m.keyMap.Report):
		return m, exportReportCmd(m.deps.Reporter)

	case key.Matches(msg, m.keyMap.Reset):
		return m.resetConversation()

	case key.Matches(msg, m.keyMap.Up), key.Matches(msg, m.keyMap.Down),
		key.Matches(msg, m.keyMap.PageUp), key.Matches(msg, m.keyMap.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit dispatches the input line: a slash command or a chat send.
func (m *Model) submit() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	if value == "" {
		return m, nil
	}

	if commands.IsCommand(value) {
		m.input.SetValue("")
		return m.runCommand(value)
	}

	m.input.SetValue("")
	req := reconcile.Request{Text: value, Attachment: m.pending, Mode: m.mode}
	m.pending = nil
	return m, sendCmd(m.deps.Reconciler, req)
}

// runCommand executes a parsed slash command.
func (m *Model) runCommand(input string) (tea.Model, tea.Cmd) {
	res := m.parser.Parse(input)
	if res.Error != nil {
		return m, m.setNotice(res.Error.Error(), true)
	}

	switch res.Command.Name {
	case "/help":
		m.showHelp = !m.showHelp
		m.refreshViewport(false)
		return m, nil

	case "/attach":
		return m, loadAttachmentCmd(res.RawArgs)

	case "/image":
		m.mode = reconcile.ModeImage
		return m, m.setNotice("Image generation mode. /chat to switch back.", false)

	case "/chat":
		m.mode = reconcile.ModeChat
		return m, m.setNotice("Conversation mode.", false)

	case "/task":
		return m.runTaskCommand(res.Args)

	case "/tasks":
		m.showTasks = !m.showTasks
		m.layout()
		m.refreshViewport(false)
		return m, nil

	case "/report":
		return m, exportReportCmd(m.deps.Reporter)

	case "/reset":
		return m.resetConversation()

	case "/speak":
		m.speakReplies = !m.speakReplies
		if !m.speakReplies {
			m.deps.Synthesizer.Stop()
			return m, m.setNotice("Replies stay silent now.", false)
		}
		return m, m.setNotice("Replies will be read aloud.", false)

	case "/quit":
		m.deps.Synthesizer.Stop()
		return m, tea.Quit
	}

	return m, nil
}

// runTaskCommand handles /task add|done|rm.
func (m *Model) runTaskCommand(args []string) (tea.Model, tea.Cmd) {
	switch args[0] {
	case "add":
		text := strings.Join(args[1:], " ")
		if strings.TrimSpace(text) == "" {
			return m, m.setNotice("usage: /task add <text>", true)
		}
		m.deps.Tasks.Add(text)
		m.showTasks = true
		m.layout()
		m.refreshViewport(false)
		return m, nil

	case "done", "rm":
		if len(args) < 2 {
			return m, m.setNotice(fmt.Sprintf("usage: /task %s <number>", args[0]), true)
		}
		n, err := strconv.Atoi(args[1])
		items := m.deps.Tasks.Items()
		if err != nil || n < 1 || n > len(items) {
			return m, m.setNotice(fmt.Sprintf("no task number %s", args[1]), true)
		}
		if args[0] == "done" {
			m.deps.Tasks.Toggle(items[n-1].ID)
		} else {
			m.deps.Tasks.Remove(items[n-1].ID)
		}
		m.refreshViewport(false)
		return m, nil
	}

	return m, m.setNotice("usage: /task add <text> | done <n> | rm <n>", true)
}

// toggleRecording starts or finishes a voice capture.
func (m *Model) toggleRecording() (tea.Model, tea.Cmd) {
	if !m.deps.VoiceEnabled || m.deps.Recorder == nil {
		return m, m.setNotice("Voice input is disabled.", true)
	}

	if m.deps.Recorder.Recording() {
		return m, finishRecordingCmd(m.deps.Recorder, m.deps.Transcriber)
	}
	if err := m.deps.Recorder.Start(); err != nil {
		log.Printf("VOICE: capture start failed: %v", err)
		return m, m.setNotice("The microphone is unavailable.", true)
	}
	return m, nil
}

// resetConversation discards the session and seeds a fresh log.
func (m *Model) resetConversation() (tea.Model, tea.Cmd) {
	if !m.deps.Reconciler.Reset() {
		return m, m.setNotice("Anita is still replying, hold on.", true)
	}
	m.pending = nil
	m.mode = reconcile.ModeChat
	m.refreshViewport(true)
	return m, nil
}

// maybeSpeakReply reads the newest assistant reply aloud when enabled.
func (m *Model) maybeSpeakReply() tea.Cmd {
	if !m.speakReplies {
		return nil
	}
	turns := m.deps.Log.Turns()
	for i := len(turns) - 1; i >= 0; i-- {
		t := turns[i]
		if t.Role != chatlog.RoleAssistant || t.IsError {
			continue
		}
		if t.ID != m.lastSpokenID && t.Text != "" {
			m.lastSpokenID = t.ID
			m.deps.Synthesizer.Speak(t.Text)
		}
		break
	}
	return nil
}

// setNotice shows a transient status message.
func (m *Model) setNotice(text string, isErr bool) tea.Cmd {
	m.notice = text
	m.noticeErr = isErr
	m.noticeID++
	return expireNoticeCmd(m.noticeID)
}

// updateComponents forwards unhandled messages to the focused components.
func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// layout recomputes component dimensions after a resize or panel toggle.
func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}

	// Header, input box, and status bar take fixed rows.
	contentHeight := m.height - 6
	if contentHeight < 3 {
		contentHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(m.width, contentHeight)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = contentHeight
	}
	m.input.Width = m.width - 6
}

// refreshViewport re-renders the log into the viewport.
func (m *Model) refreshViewport(follow bool) {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderLog())
	if follow && atBottom {
		m.viewport.GotoBottom()
	}
}
