// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// MaxChunkSize is the maximum allowed size for a single SSE event (256KB).
const MaxChunkSize = 256 * 1024

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{
		reader: bufio.NewReader(r),
	}
}

// ReadEvent reads the next SSE event and returns its data payload.
// Returns io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() ([]byte, error) {
	var dataLines [][]byte
	size := 0

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				// If we have data, return it before EOF
				if len(dataLines) > 0 {
					return bytes.Join(dataLines, []byte("\n")), nil
				}
				return nil, io.EOF
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line signals end of event
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("data:")) {
			data := bytes.TrimSpace(line[5:])
			size += len(data)
			if size > MaxChunkSize {
				return nil, fmt.Errorf("SSE event too large: %d bytes", size)
			}
			dataLines = append(dataLines, data)
		}
		// Ignore other fields (event:, id:, retry:, comments starting with :)
	}
}

// =============================================================================
// STREAMING GENERATION
// =============================================================================

// StreamGenerate performs a streamGenerateContent call and returns a channel
// of chunks. The HTTP exchange is started synchronously so configuration and
// transport errors surface as the returned error; errors occurring
// mid-stream are delivered as a terminal chunk with the Error field set.
//
// The channel is closed when the stream completes, fails, or the context is
// canceled. It must be consumed exactly once; the stream is not restartable.
func (c *Client) StreamGenerate(ctx context.Context, model string, req *GenerateRequest) (<-chan StreamChunk, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := c.endpoint(model, "streamGenerateContent") + "?alt=sse"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := sharedStreamingClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		resp.Body.Close()
		return nil, parseErrorResponse(resp.StatusCode, body)
	}

	chunks := make(chan StreamChunk, 64)

	go func() {
		defer close(chunks)
		defer resp.Body.Close()

		reader := NewSSEReader(resp.Body)
		for {
			select {
			case <-ctx.Done():
				chunks <- StreamChunk{Error: ctx.Err()}
				return
			default:
			}

			data, err := reader.ReadEvent()
			if err != nil {
				if err == io.EOF {
					return
				}
				chunks <- StreamChunk{Error: fmt.Errorf("read error: %w", err)}
				return
			}

			var payload GenerateResponse
			if err := json.Unmarshal(data, &payload); err != nil {
				// Skip malformed events rather than aborting the stream.
				continue
			}

			chunks <- StreamChunk{Response: &payload}
		}
	}()

	return chunks, nil
}
