// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chatlog "github.com/morganforge/anita-tui/internal/chat"
	"github.com/morganforge/anita-tui/internal/reconcile"
	"github.com/morganforge/anita-tui/internal/tasklist"
	"github.com/morganforge/anita-tui/internal/ui/styles"
	"github.com/morganforge/anita-tui/internal/voice"
)

type memSnapshotter struct{ data []byte }

func (m *memSnapshotter) Save(data []byte) error { m.data = data; return nil }
func (m *memSnapshotter) Load() ([]byte, error)  { return m.data, nil }

type stubSource struct{}

func (stubSource) Ensure(prior []chatlog.Turn) (reconcile.ChatStream, error) {
	return nil, assert.AnError
}
func (stubSource) Reset() {}

type stubSynth struct{}

func (stubSynth) Speak(text string) error { return nil }
func (stubSynth) Stop()                   {}

func newTestModel(t *testing.T) *Model {
	t.Helper()
	log := chatlog.NewLog(&memSnapshotter{})
	tasks := tasklist.NewList(&memSnapshotter{})
	rec := reconcile.New(reconcile.Config{
		Log:         log,
		Sessions:    stubSource{},
		DisplayName: "Sam",
	})
	m := New(Deps{
		Reconciler:  rec,
		Log:         log,
		Tasks:       tasks,
		Synthesizer: stubSynth{},
		DisplayName: "Sam",
		Theme:       styles.NewTheme("dark"),
	})
	m.width = 100
	m.height = 40
	m.layout()
	return m
}

func TestRenderTurn_UserShowsDisplayName(t *testing.T) {
	m := newTestModel(t)
	turn := chatlog.NewTurn(chatlog.RoleUser, "hello there")
	out := m.renderTurn(turn)
	assert.Contains(t, out, "Sam")
	assert.Contains(t, out, "hello there")
}

func TestRenderTurn_ErrorTextShownRaw(t *testing.T) {
	m := newTestModel(t)
	turn := chatlog.NewErrorTurn("Technical error, please try again.")
	out := m.renderTurn(turn)
	assert.Contains(t, out, "Anita")
	assert.Contains(t, out, "Technical error")
}

func TestRenderTurn_CitationsListed(t *testing.T) {
	m := newTestModel(t)
	turn := chatlog.NewTurn(chatlog.RoleAssistant, "grounded answer")
	turn.AddCitations([]chatlog.Citation{{Title: "Article", URI: "https://a"}})
	out := m.renderTurn(turn)
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "Article")
	assert.Contains(t, out, "https://a")
}

func TestRenderTurn_ImageMarker(t *testing.T) {
	m := newTestModel(t)
	turn := chatlog.NewTurn(chatlog.RoleAssistant, "")
	turn.ImageURL = "data:image/png;base64,aW1n"
	out := m.renderTurn(turn)
	assert.Contains(t, out, "[image]")
}

func TestRunTaskCommand_AddDoneRemove(t *testing.T) {
	m := newTestModel(t)

	m.runTaskCommand([]string{"add", "buy", "milk"})
	items := m.deps.Tasks.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "buy milk", items[0].Text)

	m.runTaskCommand([]string{"done", "1"})
	assert.True(t, m.deps.Tasks.Items()[0].Completed)

	m.runTaskCommand([]string{"rm", "1"})
	assert.Empty(t, m.deps.Tasks.Items())
}

func TestRunTaskCommand_BadNumberSetsNotice(t *testing.T) {
	m := newTestModel(t)
	m.runTaskCommand([]string{"done", "7"})
	assert.True(t, m.noticeErr)
	assert.Contains(t, m.notice, "no task number")
}

func TestToggleRecording_DisabledNotice(t *testing.T) {
	m := newTestModel(t)
	m.toggleRecording()
	assert.True(t, m.noticeErr)
	assert.Contains(t, m.notice, "disabled")
}

func TestResetConversation_SeedsWelcome(t *testing.T) {
	m := newTestModel(t)
	m.deps.Log.Append(chatlog.NewTurn(chatlog.RoleUser, "hi"))
	m.resetConversation()

	turns := m.deps.Log.Turns()
	require.Len(t, turns, 1)
	assert.Contains(t, turns[0].Text, "Sam")
	assert.Equal(t, reconcile.ModeChat, m.mode)
}

func TestRenderTasks_NumbersItems(t *testing.T) {
	m := newTestModel(t)
	m.deps.Tasks.Add("second")
	m.deps.Tasks.Add("first")
	out := m.renderTasks()
	assert.Contains(t, out, "1. first")
	assert.Contains(t, out, "2. second")
}

// =============================================================================
// VOICE AND NOTICE TESTS
// =============================================================================

type stubRecorder struct {
	clip    *voice.Clip
	stopErr error
}

func (r *stubRecorder) Start() error               { return nil }
func (r *stubRecorder) Stop() (*voice.Clip, error) { return r.clip, r.stopErr }
func (r *stubRecorder) Recording() bool            { return true }

type stubTranscriber struct {
	text string
	err  error
}

func (tr *stubTranscriber) Transcribe(ctx context.Context, clip *voice.Clip) (string, error) {
	return tr.text, tr.err
}

func TestFinishRecording_TranscribeErrorIsSilent(t *testing.T) {
	rec := &stubRecorder{clip: &voice.Clip{Data: []byte{1}, MimeType: "audio/wav"}}
	tr := &stubTranscriber{err: errors.New("provider error (HTTP 429)")}

	msg := finishRecordingCmd(rec, tr)().(TranscriptMsg)
	assert.NoError(t, msg.Err)
	assert.Empty(t, msg.Text)
}

func TestFinishRecording_CaptureErrorIsSurfaced(t *testing.T) {
	rec := &stubRecorder{stopErr: errors.New("arecord exited")}
	tr := &stubTranscriber{text: "never reached"}

	msg := finishRecordingCmd(rec, tr)().(TranscriptMsg)
	assert.Error(t, msg.Err)
	assert.Empty(t, msg.Text)

	m := newTestModel(t)
	m.Update(msg)
	assert.True(t, m.noticeErr)
	assert.Equal(t, "Voice capture failed, check your microphone.", m.notice)
}

func TestFinishRecording_TranscriptFillsInput(t *testing.T) {
	rec := &stubRecorder{clip: &voice.Clip{Data: []byte{1}, MimeType: "audio/wav"}}
	tr := &stubTranscriber{text: "dictated words"}

	msg := finishRecordingCmd(rec, tr)().(TranscriptMsg)
	require.NoError(t, msg.Err)

	m := newTestModel(t)
	m.input.SetValue("note:")
	m.Update(msg)
	assert.Equal(t, "note: dictated words", m.input.Value())
}

func TestReportFailureNoticeStaysPlain(t *testing.T) {
	m := newTestModel(t)
	m.Update(ReportDoneMsg{Err: errors.New("provider error (HTTP 429): quota")})

	assert.True(t, m.noticeErr)
	assert.Equal(t, "The report could not be created, try again.", m.notice)
	assert.NotContains(t, m.notice, "429")
}
