// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package voice

import (
	"context"
	"fmt"
	"strings"

	"github.com/morganforge/anita-tui/internal/attach"
	"github.com/morganforge/anita-tui/internal/provider"
)

// transcribeInstruction precedes the audio part in a transcription call.
const transcribeInstruction = "Transcribe the following audio exactly as spoken. Return only the transcribed text, with no commentary and no quotation marks. If the audio contains no speech, return an empty response."

// Generator is the non-streaming model call transcription depends on.
// *provider.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, model string, req *provider.GenerateRequest) (*provider.GenerateResponse, error)
}

// ModelTranscriber transcribes audio through the model.
type ModelTranscriber struct {
	gen   Generator
	model string
}

// NewModelTranscriber creates a transcriber using the given model.
func NewModelTranscriber(gen Generator, model string) *ModelTranscriber {
	return &ModelTranscriber{gen: gen, model: model}
}

// Transcribe sends the clip inline and returns the spoken text. Silence
// transcribes to "".
func (t *ModelTranscriber) Transcribe(ctx context.Context, clip *Clip) (string, error) {
	if clip == nil || len(clip.Data) == 0 {
		return "", nil
	}

	req := &provider.GenerateRequest{
		Contents: []provider.Content{{
			Role: provider.RoleUser,
			Parts: []provider.Part{
				{Text: transcribeInstruction},
				{InlineData: &provider.Blob{
					MimeType: clip.MimeType,
					Data:     attach.Base64(clip.Data),
				}},
			},
		}},
	}

	resp, err := t.gen.Generate(ctx, t.model, req)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
