// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the main conversation view for the TUI.
package chat

import (
	"context"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	chatlog "github.com/morganforge/anita-tui/internal/chat"
	"github.com/morganforge/anita-tui/internal/commands"
	"github.com/morganforge/anita-tui/internal/reconcile"
	"github.com/morganforge/anita-tui/internal/report"
	"github.com/morganforge/anita-tui/internal/tasklist"
	"github.com/morganforge/anita-tui/internal/ui/styles"
	"github.com/morganforge/anita-tui/internal/voice"
)

// noticeDuration is how long transient status notices stay visible.
const noticeDuration = 4 * time.Second

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Deps wires the conversation view's collaborators.
type Deps struct {
	Reconciler  *reconcile.Reconciler
	Log         *chatlog.Log
	Tasks       *tasklist.List
	Reporter    *report.Exporter
	Recorder    voice.Recorder
	Transcriber voice.Transcriber
	Synthesizer voice.Synthesizer

	DisplayName  string
	Theme        *styles.Theme
	VoiceEnabled bool
	SpeakReplies bool
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the conversation view.
type Model struct {
	deps   Deps
	parser *commands.Parser
	keyMap KeyMap

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	// Dimensions
	width  int
	height int
	ready  bool

	// Send state
	mode    reconcile.Mode
	pending *reconcile.Attachment

	// Voice state
	speakReplies bool
	lastSpokenID string

	// Panels and notices
	showTasks bool
	showHelp  bool
	notice    string
	noticeErr bool
	noticeID  int
}

// New creates the conversation view.
func New(deps Deps) *Model {
	input := textinput.New()
	input.Placeholder = "Message Anita, or / for commands"
	input.Prompt = "> "
	input.CharLimit = 0
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = deps.Theme.AssistantLabel

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(deps.Theme.GlamourStyle()),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		renderer = nil
	}

	return &Model{
		deps:         deps,
		parser:       commands.NewParser(commands.NewRegistry()),
		keyMap:       DefaultKeyMap(),
		input:        input,
		spinner:      sp,
		renderer:     renderer,
		speakReplies: deps.SpeakReplies,
	}
}

// Init starts the background listeners.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		listenUpdates(m.deps.Reconciler),
	)
}

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// listenUpdates blocks until the reconciler signals a change, then delivers
// it as a message. Update re-issues it after each delivery.
func listenUpdates(r *reconcile.Reconciler) tea.Cmd {
	return func() tea.Msg {
		<-r.Updates()
		return LogChangedMsg{}
	}
}

// sendCmd runs one full send lifecycle off the UI loop.
func sendCmd(r *reconcile.Reconciler, req reconcile.Request) tea.Cmd {
	return func() tea.Msg {
		ok := r.Send(context.Background(), req)
		return SendDoneMsg{Accepted: ok}
	}
}

// loadAttachmentCmd reads a file for the next send.
func loadAttachmentCmd(path string) tea.Cmd {
	return func() tea.Msg {
		a, err := reconcile.LoadAttachment(path)
		return AttachmentLoadedMsg{Attachment: a, Err: err}
	}
}

// exportReportCmd runs the report pipeline off the UI loop.
func exportReportCmd(rep *report.Exporter) tea.Cmd {
	return func() tea.Msg {
		path, err := rep.Export(context.Background())
		return ReportDoneMsg{Path: path, Err: err}
	}
}

// finishRecordingCmd stops the capture and transcribes it. Capture failures
// surface to the user; transcription failures are only logged and the input
// simply stays as typed.
func finishRecordingCmd(rec voice.Recorder, tr voice.Transcriber) tea.Cmd {
	return func() tea.Msg {
		clip, err := rec.Stop()
		if err != nil {
			return TranscriptMsg{Err: err}
		}
		text, err := tr.Transcribe(context.Background(), clip)
		if err != nil {
			log.Printf("VOICE: transcription failed: %v", err)
			return TranscriptMsg{}
		}
		return TranscriptMsg{Text: text}
	}
}

// expireNoticeCmd clears a notice after its display window.
func expireNoticeCmd(id int) tea.Cmd {
	return tea.Tick(noticeDuration, func(time.Time) tea.Msg {
		return NoticeExpiredMsg{ID: id}
	})
}
