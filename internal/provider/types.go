// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider implements the generative-language backend client for
// anita.
//
// The backend speaks the Gemini REST API: non-streaming generateContent for
// one-shot calls (image generation, transcription, report synthesis) and
// streamGenerateContent with SSE for conversational responses. This package
// owns the wire types, the HTTP plumbing, and the stateful chat Session that
// accumulates conversation context between sends.
package provider

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Blob carries inline binary data as base64 with a declared media type.
type Blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Part is one unit of content: either text or inline binary data.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Content is one conversation turn in provider format: a role plus an
// ordered list of parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Roles understood by the backend.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Tool enables a backend-side tool. Only search grounding is used here.
type Tool struct {
	GoogleSearch *GoogleSearch `json:"googleSearch,omitempty"`
}

// GoogleSearch is the (empty) configuration for search grounding.
type GoogleSearch struct{}

// GenerationConfig tunes a single generation call.
type GenerationConfig struct {
	Temperature        float64      `json:"temperature,omitempty"`
	MaxOutputTokens    int          `json:"maxOutputTokens,omitempty"`
	ResponseModalities []string     `json:"responseModalities,omitempty"`
	ImageConfig        *ImageConfig `json:"imageConfig,omitempty"`
}

// ImageConfig configures image generation output.
type ImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

// GenerateRequest is the request body for both generateContent and
// streamGenerateContent.
type GenerateRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	Tools             []Tool            `json:"tools,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// WebSource is one grounding citation: a web page the backend consulted.
type WebSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// GroundingChunk wraps a single grounding source.
type GroundingChunk struct {
	Web *WebSource `json:"web,omitempty"`
}

// GroundingMetadata carries search-grounding results for a candidate.
type GroundingMetadata struct {
	GroundingChunks []GroundingChunk `json:"groundingChunks,omitempty"`
}

// Candidate is one generated answer.
type Candidate struct {
	Content           Content            `json:"content"`
	FinishReason      string             `json:"finishReason,omitempty"`
	GroundingMetadata *GroundingMetadata `json:"groundingMetadata,omitempty"`
}

// GenerateResponse is the response body of generateContent, and the payload
// of each SSE event of streamGenerateContent.
type GenerateResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// Text returns the concatenated text parts of the first candidate.
func (r *GenerateResponse) Text() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	var out string
	for _, p := range r.Candidates[0].Content.Parts {
		out += p.Text
	}
	return out
}

// InlineImage returns the first inline-data part of the first candidate, if
// any.
func (r *GenerateResponse) InlineImage() (*Blob, bool) {
	if r == nil || len(r.Candidates) == 0 {
		return nil, false
	}
	for _, p := range r.Candidates[0].Content.Parts {
		if p.InlineData != nil {
			return p.InlineData, true
		}
	}
	return nil, false
}

// WebSources returns the grounding sources attached to the first candidate.
// Sources without a web entry are skipped.
func (r *GenerateResponse) WebSources() []WebSource {
	if r == nil || len(r.Candidates) == 0 {
		return nil
	}
	md := r.Candidates[0].GroundingMetadata
	if md == nil {
		return nil
	}
	var out []WebSource
	for _, gc := range md.GroundingChunks {
		if gc.Web != nil {
			out = append(out, *gc.Web)
		}
	}
	return out
}

// =============================================================================
// STREAM CHUNK
// =============================================================================

// StreamChunk is one element of a streaming response. Exactly one of
// Response and Error is set; a chunk with Error set is terminal.
type StreamChunk struct {
	Response *GenerateResponse
	Error    error
}

// Text returns the text delta carried by this chunk.
func (c StreamChunk) Text() string {
	return c.Response.Text()
}

// WebSources returns the grounding sources carried by this chunk.
func (c StreamChunk) WebSources() []WebSource {
	return c.Response.WebSources()
}

// HasError reports whether the chunk carries a terminal error.
func (c StreamChunk) HasError() bool {
	return c.Error != nil
}
