// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package voice provides microphone capture, speech transcription, and
// speech synthesis. Capture and synthesis shell out to the platform's
// audio tools; transcription goes through the model.
package voice

import (
	"context"
	"errors"
)

// ErrNoCaptureTool means no supported recording command was found on PATH.
var ErrNoCaptureTool = errors.New("voice: no audio capture tool found")

// ErrNotRecording means Stop was called without a recording in progress.
var ErrNotRecording = errors.New("voice: not recording")

// ErrAlreadyRecording means Start was called while a recording is active.
var ErrAlreadyRecording = errors.New("voice: already recording")

// Clip is a finished audio capture.
type Clip struct {
	Data     []byte
	MimeType string
}

// Recorder captures microphone audio between Start and Stop.
type Recorder interface {
	// Start begins capturing. Fails if a capture is already running or
	// the device is unavailable.
	Start() error

	// Stop finalizes the capture and returns the recorded clip.
	Stop() (*Clip, error)

	// Recording reports whether a capture is in progress.
	Recording() bool
}

// Transcriber turns captured audio into text. Empty text is a valid
// result (silence).
type Transcriber interface {
	Transcribe(ctx context.Context, clip *Clip) (string, error)
}

// Synthesizer speaks text aloud. Speak returns once playback has been
// handed off; Stop interrupts any playback in progress.
type Synthesizer interface {
	Speak(text string) error
	Stop()
}
