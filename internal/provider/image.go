// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import "context"

// ImageModel binds a client to a fixed image-capable model so callers can
// request generations with just a prompt.
type ImageModel struct {
	client *Client
	model  string
}

// NewImageModel creates an image generation handle.
func NewImageModel(client *Client, model string) *ImageModel {
	return &ImageModel{client: client, model: model}
}

// GenerateImage runs a single non-streaming generation and returns the
// inline image from the response. A response without an image yields
// ErrNoImage.
func (m *ImageModel) GenerateImage(ctx context.Context, prompt string) (*Blob, error) {
	req := &GenerateRequest{
		Contents: []Content{{Role: RoleUser, Parts: []Part{{Text: prompt}}}},
		GenerationConfig: &GenerationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}

	resp, err := m.client.Generate(ctx, m.model, req)
	if err != nil {
		return nil, err
	}
	blob, ok := resp.InlineImage()
	if !ok {
		return nil, ErrNoImage
	}
	return blob, nil
}
