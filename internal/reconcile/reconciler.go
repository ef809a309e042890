// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reconcile drives the request lifecycle of a chat send: exactly one
// outstanding request at a time, an optimistic user turn, an assistant
// placeholder turn that is patched in place as stream chunks arrive, and
// error turns for every failure mode. The message log is the only state it
// mutates.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/morganforge/anita-tui/internal/attach"
	"github.com/morganforge/anita-tui/internal/chat"
	"github.com/morganforge/anita-tui/internal/provider"
)

// ErrorTurnText is the fixed message appended when a dispatch fails.
const ErrorTurnText = "Technical error, please try again."

// DefaultImagePrompt substitutes for empty user text when an image is
// attached in chat mode.
const DefaultImagePrompt = "Analyze this image for me, Anita."

// =============================================================================
// REQUESTS
// =============================================================================

// Mode selects one of the two mutually exclusive dispatch paths.
type Mode int

const (
	// ModeChat streams a conversational reply within the session.
	ModeChat Mode = iota

	// ModeImage performs a single non-streaming image generation call.
	ModeImage
)

// AttachmentKind distinguishes the two attachment pipelines.
type AttachmentKind int

const (
	// AttachmentImage is inlined as binary data on the turn.
	AttachmentImage AttachmentKind = iota

	// AttachmentDocument is routed through text extraction.
	AttachmentDocument
)

// Attachment is a user-selected file folded into a single send.
type Attachment struct {
	Name     string
	MimeType string
	Data     []byte
	Kind     AttachmentKind
}

// Request is one user send.
type Request struct {
	Text       string
	Attachment *Attachment
	Mode       Mode
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// ChatStream is the session handle surface the reconciler needs.
type ChatStream interface {
	SendStream(ctx context.Context, parts []provider.Part) (<-chan provider.StreamChunk, error)
}

// SessionSource hands out the conversation handle, creating it lazily from
// the supplied prior history, and discards it on reset.
type SessionSource interface {
	Ensure(prior []chat.Turn) (ChatStream, error)
	Reset()
}

// ImageGenerator performs a single non-streaming image generation call.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (*provider.Blob, error)
}

// =============================================================================
// RECONCILER
// =============================================================================

// Config wires the reconciler's collaborators.
type Config struct {
	Log         *chat.Log
	Sessions    SessionSource
	Images      ImageGenerator
	Extractor   attach.Extractor
	DisplayName string
}

// Reconciler owns the send lifecycle. All mutations flow through the
// message log; the UI re-reads the log whenever Updates signals.
type Reconciler struct {
	log         *chat.Log
	sessions    SessionSource
	images      ImageGenerator
	extract     attach.Extractor
	displayName string

	busy    atomic.Bool
	updates chan struct{}
}

// New creates a reconciler.
func New(cfg Config) *Reconciler {
	return &Reconciler{
		log:         cfg.Log,
		sessions:    cfg.Sessions,
		images:      cfg.Images,
		extract:     cfg.Extractor,
		displayName: cfg.DisplayName,
		updates:     make(chan struct{}, 1),
	}
}

// Busy reports whether a send is currently in flight.
func (r *Reconciler) Busy() bool {
	return r.busy.Load()
}

// Updates is a coalescing change signal: a receive means the log (or the
// busy flag) changed since the last receive. Consumers re-read the log.
func (r *Reconciler) Updates() <-chan struct{} {
	return r.updates
}

// notify signals a change without ever blocking the pipeline.
func (r *Reconciler) notify() {
	select {
	case r.updates <- struct{}{}:
	default:
	}
}

// Send runs one full request lifecycle. It returns false without touching
// any state when another send is already in flight. It blocks until the
// request completes; run it from a goroutine when the caller must stay
// responsive. All failures surface as error turns in the log.
func (r *Reconciler) Send(ctx context.Context, req Request) bool {
	if !r.busy.CompareAndSwap(false, true) {
		return false
	}
	// Release on every exit path, then wake the UI one last time so it
	// observes the cleared flag.
	defer func() {
		r.busy.Store(false)
		r.notify()
	}()

	r.send(ctx, req)
	return true
}

// Reset discards the session handle and replaces the log with a fresh
// welcome turn. It is rejected while a send is in flight.
func (r *Reconciler) Reset() bool {
	if !r.busy.CompareAndSwap(false, true) {
		return false
	}
	defer func() {
		r.busy.Store(false)
		r.notify()
	}()

	r.sessions.Reset()
	r.log.Reset(r.displayName)
	return true
}

// send is the request pipeline. The busy flag is already held.
func (r *Reconciler) send(ctx context.Context, req Request) {
	// Snapshot history before appending the user turn so lazy session
	// creation seeds context that excludes the turn being sent.
	prior := r.log.Turns()

	displayText := req.Text
	prompt := req.Text
	var imageURL string
	var parts []provider.Part

	if a := req.Attachment; a != nil {
		switch a.Kind {
		case AttachmentImage:
			imageURL = attach.DataURL(a.MimeType, a.Data)
			text := req.Text
			if strings.TrimSpace(text) == "" {
				text = DefaultImagePrompt
			}
			parts = []provider.Part{
				{InlineData: &provider.Blob{MimeType: a.MimeType, Data: attach.Base64(a.Data)}},
				{Text: text},
			}

		case AttachmentDocument:
			placeholder := chat.NewTurn(chat.RoleAssistant, fmt.Sprintf("Analyzing %s...", a.Name))
			r.log.Append(placeholder)
			r.notify()

			extracted, err := r.extract.Extract(a.Data, a.MimeType, a.Name)
			r.log.Remove(placeholder.ID)
			if err != nil {
				r.log.Append(chat.NewErrorTurn(attachmentErrorText(a.Name, err)))
				r.notify()
				return
			}
			prompt = req.Text + attach.WrapExtracted(a.Name, extracted)
			displayText = attach.DisplayText(a.Name, req.Text)
		}
	}
	if parts == nil {
		parts = []provider.Part{{Text: prompt}}
	}

	user := chat.NewTurn(chat.RoleUser, displayText)
	user.ImageURL = imageURL
	r.log.Append(user)
	r.notify()

	if req.Mode == ModeImage {
		r.sendImage(ctx, req.Text)
		return
	}
	r.sendChat(ctx, prior, parts)
}

// sendImage handles the non-streaming image generation path.
func (r *Reconciler) sendImage(ctx context.Context, prompt string) {
	blob, err := r.images.GenerateImage(ctx, prompt)
	if err != nil {
		r.log.Append(chat.NewErrorTurn(ErrorTurnText))
		r.notify()
		return
	}

	turn := chat.NewTurn(chat.RoleAssistant, "")
	turn.ImageURL = attach.DataURLFromBase64(blob.MimeType, blob.Data)
	r.log.Append(turn)
	r.notify()
}

// sendChat handles the streaming conversational path.
func (r *Reconciler) sendChat(ctx context.Context, prior []chat.Turn, parts []provider.Part) {
	sess, err := r.sessions.Ensure(prior)
	if err != nil {
		r.log.Append(chat.NewErrorTurn(ErrorTurnText))
		r.notify()
		return
	}

	stream, err := sess.SendStream(ctx, parts)
	if err != nil {
		r.log.Append(chat.NewErrorTurn(ErrorTurnText))
		r.notify()
		return
	}

	// Placeholder goes in immediately so the UI shows a response underway.
	placeholder := chat.NewTurn(chat.RoleAssistant, "")
	r.log.Append(placeholder)
	r.notify()

	for chunk := range stream {
		if chunk.Error != nil {
			// The placeholder keeps whatever partial text it
			// accumulated; the failure gets its own turn.
			log.Printf("CHAT: stream failed: %v", chunk.Error)
			r.log.Append(chat.NewErrorTurn(ErrorTurnText))
			r.notify()
			for range stream {
			}
			return
		}

		delta := chunk.Text()
		citations := toCitations(chunk.WebSources())
		if delta == "" && len(citations) == 0 {
			continue
		}

		// Chunks are incremental deltas: always append, never replace.
		// Located by ID so intervening log mutations cannot corrupt it.
		r.log.Patch(placeholder.ID, func(t *chat.Turn) {
			t.Text += delta
			t.AddCitations(citations)
		})
		r.notify()
	}
}

// toCitations converts provider grounding sources into log citations,
// substituting a generic title when the source has none.
func toCitations(sources []provider.WebSource) []chat.Citation {
	if len(sources) == 0 {
		return nil
	}
	out := make([]chat.Citation, 0, len(sources))
	for _, s := range sources {
		title := s.Title
		if title == "" {
			title = "Web source"
		}
		out = append(out, chat.Citation{Title: title, URI: s.URI})
	}
	return out
}

// attachmentErrorText builds the user-facing message for a failed
// attachment, naming the file and avoiding technical detail.
func attachmentErrorText(name string, err error) string {
	switch {
	case errors.Is(err, attach.ErrUnsupportedFormat):
		return fmt.Sprintf("I can't read this file type yet: %s.", name)
	case errors.Is(err, attach.ErrCorruptDocument):
		return fmt.Sprintf("The file %s looks damaged or protected, I couldn't read it.", name)
	default:
		return fmt.Sprintf("I couldn't read the file %s.", name)
	}
}
