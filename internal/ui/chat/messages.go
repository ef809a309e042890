// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the main conversation view for the TUI.
//
// This file defines the Bubble Tea message types flowing through Update.
package chat

import (
	"github.com/morganforge/anita-tui/internal/reconcile"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// LogChangedMsg signals the message log (or busy flag) changed; the view
// re-reads the log.
type LogChangedMsg struct{}

// SendDoneMsg signals a send lifecycle finished.
type SendDoneMsg struct {
	// Accepted is false when the send was rejected because one was
	// already in flight.
	Accepted bool
}

// AttachmentLoadedMsg carries a file read off disk for the next send.
type AttachmentLoadedMsg struct {
	Attachment *reconcile.Attachment
	Err        error
}

// ReportDoneMsg signals report export finished.
type ReportDoneMsg struct {
	// Path is empty when the conversation was too short to report on.
	Path string
	Err  error
}

// TranscriptMsg carries the text of a finished voice capture.
type TranscriptMsg struct {
	Text string
	Err  error
}

// NoticeExpiredMsg clears a transient status notice.
type NoticeExpiredMsg struct {
	ID int
}
