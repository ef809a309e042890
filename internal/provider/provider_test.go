// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// SSE READER TESTS
// =============================================================================

func TestSSEReader_SingleEvent(t *testing.T) {
	input := "data: {\"a\":1}\n\n"
	r := NewSSEReader(strings.NewReader(input))

	data, err := r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	_, err = r.ReadEvent()
	assert.Equal(t, io.EOF, err)
}

func TestSSEReader_MultipleEvents(t *testing.T) {
	input := "data: one\n\ndata: two\n\n"
	r := NewSSEReader(strings.NewReader(input))

	data, err := r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	data, err = r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestSSEReader_IgnoresNonDataFields(t *testing.T) {
	input := ": comment\nevent: message\nid: 7\ndata: payload\n\n"
	r := NewSSEReader(strings.NewReader(input))

	data, err := r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestSSEReader_DataBeforeEOF(t *testing.T) {
	// Missing trailing blank line before EOF still yields the data.
	input := "data: tail"
	r := NewSSEReader(strings.NewReader(input))

	data, err := r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "tail", string(data))
}

func TestSSEReader_CRLF(t *testing.T) {
	input := "data: payload\r\n\r\n"
	r := NewSSEReader(strings.NewReader(input))

	data, err := r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

// =============================================================================
// RESPONSE TYPE TESTS
// =============================================================================

func TestGenerateResponse_Text(t *testing.T) {
	resp := &GenerateResponse{
		Candidates: []Candidate{{
			Content: Content{Parts: []Part{{Text: "Hello, "}, {Text: "Boss."}}},
		}},
	}
	assert.Equal(t, "Hello, Boss.", resp.Text())

	var empty *GenerateResponse
	assert.Equal(t, "", empty.Text())
	assert.Equal(t, "", (&GenerateResponse{}).Text())
}

func TestGenerateResponse_InlineImage(t *testing.T) {
	resp := &GenerateResponse{
		Candidates: []Candidate{{
			Content: Content{Parts: []Part{
				{Text: "here"},
				{InlineData: &Blob{MimeType: "image/png", Data: "aGk="}},
			}},
		}},
	}

	blob, ok := resp.InlineImage()
	require.True(t, ok)
	assert.Equal(t, "image/png", blob.MimeType)

	_, ok = (&GenerateResponse{}).InlineImage()
	assert.False(t, ok)
}

func TestGenerateResponse_WebSources(t *testing.T) {
	resp := &GenerateResponse{
		Candidates: []Candidate{{
			GroundingMetadata: &GroundingMetadata{
				GroundingChunks: []GroundingChunk{
					{Web: &WebSource{URI: "https://a", Title: "A"}},
					{Web: nil},
					{Web: &WebSource{URI: "https://b", Title: "B"}},
				},
			},
		}},
	}

	sources := resp.WebSources()
	require.Len(t, sources, 2)
	assert.Equal(t, "https://a", sources[0].URI)
	assert.Equal(t, "https://b", sources[1].URI)
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestProviderError_SentinelMapping(t *testing.T) {
	assert.ErrorIs(t, &ProviderError{Status: 401}, ErrAuthFailed)
	assert.ErrorIs(t, &ProviderError{Status: 403}, ErrAuthFailed)
	assert.ErrorIs(t, &ProviderError{Status: 429}, ErrRateLimited)
	assert.ErrorIs(t, &ProviderError{Status: 400}, ErrInvalidRequest)
	assert.NotErrorIs(t, &ProviderError{Status: 500}, ErrAuthFailed)
}

func TestParseErrorResponse(t *testing.T) {
	body := []byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`)
	err := parseErrorResponse(429, body)

	var provErr *ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, 429, provErr.Status)
	assert.Equal(t, "RESOURCE_EXHAUSTED", provErr.Code)
	assert.Equal(t, "quota exceeded", provErr.Message)
}

func TestParseErrorResponse_MalformedBody(t *testing.T) {
	err := parseErrorResponse(500, []byte("<html>oops</html>"))

	var provErr *ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, 500, provErr.Status)
}

func TestCalculateBackoff(t *testing.T) {
	assert.Equal(t, retryBaseDelay, calculateBackoff(1))
	assert.Equal(t, 2*retryBaseDelay, calculateBackoff(2))
	assert.Equal(t, retryMaxDelay, calculateBackoff(20))
}

// =============================================================================
// CLIENT TESTS
// =============================================================================

func TestClient_NotConfigured(t *testing.T) {
	c := NewClient(Config{})

	_, err := c.Generate(context.Background(), "m", &GenerateRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = c.StreamGenerate(context.Background(), "m", &GenerateRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewClient_ConfiguresRateLimiter(t *testing.T) {
	c := NewClient(Config{APIKey: "k"})
	require.NotNil(t, c.Limiter())
	assert.InDelta(t, float64(DefaultRequestsPerMinute)/60.0, float64(c.Limiter().Limit()), 0.001)
	assert.Equal(t, DefaultRequestsPerMinute, c.Limiter().Burst())

	c = NewClient(Config{APIKey: "k", RequestsPerMinute: 120})
	assert.InDelta(t, 2.0, float64(c.Limiter().Limit()), 0.001)
}

func TestClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"pong"}]}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "secret", BaseURL: srv.URL, RequestsPerMinute: 6000})
	resp, err := c.Generate(context.Background(), "test-model", &GenerateRequest{
		Contents: []Content{{Role: RoleUser, Parts: []Part{{Text: "ping"}}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Text())
}

func TestClient_Generate_AuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"bad key","status":"PERMISSION_DENIED"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "wrong", BaseURL: srv.URL, RequestsPerMinute: 6000})
	_, err := c.Generate(context.Background(), "m", &GenerateRequest{})
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestClient_StreamGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test-model:streamGenerateContent", r.URL.Path)
		assert.Equal(t, "sse", r.URL.Query().Get("alt"))
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"Hel\"}]}}]}\n\n")
		io.WriteString(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"lo\"}]}}]}\n\n")
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "secret", BaseURL: srv.URL, RequestsPerMinute: 6000})
	chunks, err := c.StreamGenerate(context.Background(), "test-model", &GenerateRequest{})
	require.NoError(t, err)

	var got strings.Builder
	for chunk := range chunks {
		require.NoError(t, chunk.Error)
		got.WriteString(chunk.Text())
	}
	assert.Equal(t, "Hello", got.String())
}

func TestClient_StreamGenerate_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"slow down","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "secret", BaseURL: srv.URL, RequestsPerMinute: 6000})
	_, err := c.StreamGenerate(context.Background(), "m", &GenerateRequest{})
	assert.ErrorIs(t, err, ErrRateLimited)
}

// =============================================================================
// SESSION TESTS
// =============================================================================

func TestNewSession_RequiresConfiguredClient(t *testing.T) {
	_, err := NewSession(NewClient(Config{}), SessionConfig{Model: "m"}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewSession(nil, SessionConfig{Model: "m"}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewSession_RequiresModel(t *testing.T) {
	c := NewClient(Config{APIKey: "k"})
	_, err := NewSession(c, SessionConfig{}, nil)
	assert.Error(t, err)
}

func TestSession_SeededHistoryIsCopied(t *testing.T) {
	c := NewClient(Config{APIKey: "k"})
	seed := []Content{{Role: RoleUser, Parts: []Part{{Text: "hi"}}}}

	s, err := NewSession(c, SessionConfig{Model: "m"}, seed)
	require.NoError(t, err)

	seed[0].Role = RoleModel
	assert.Equal(t, RoleUser, s.History()[0].Role)
}

func TestSession_SendStream_AccumulatesContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"reply\"}]}}]}\n\n")
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, RequestsPerMinute: 6000})
	s, err := NewSession(c, SessionConfig{Model: "m", SystemInstruction: "be brief"}, nil)
	require.NoError(t, err)

	chunks, err := s.SendStream(context.Background(), []Part{{Text: "question"}})
	require.NoError(t, err)
	for range chunks {
	}

	// History folding happens asynchronously after the channel closes.
	require.Eventually(t, func() bool {
		return len(s.History()) == 2
	}, time.Second, 10*time.Millisecond)

	hist := s.History()
	assert.Equal(t, RoleUser, hist[0].Role)
	assert.Equal(t, "question", hist[0].Parts[0].Text)
	assert.Equal(t, RoleModel, hist[1].Role)
	assert.Equal(t, "reply", hist[1].Parts[0].Text)
}

func TestSession_SendStream_ErrorCarriesPartialReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"partial answer\"}]}}]}\n\n")
		// An oversized event aborts the stream mid-reply.
		io.WriteString(w, "data: "+strings.Repeat("x", MaxChunkSize+1)+"\n\n")
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, RequestsPerMinute: 6000})
	s, err := NewSession(c, SessionConfig{Model: "m"}, nil)
	require.NoError(t, err)

	chunks, err := s.SendStream(context.Background(), []Part{{Text: "question"}})
	require.NoError(t, err)

	var finalErr error
	var got strings.Builder
	for chunk := range chunks {
		if chunk.Error != nil {
			finalErr = chunk.Error
			continue
		}
		got.WriteString(chunk.Text())
	}
	require.Error(t, finalErr)

	var streamErr *StreamError
	require.ErrorAs(t, finalErr, &streamErr)
	assert.Equal(t, "partial answer", streamErr.Partial)
	assert.Equal(t, "partial answer", got.String())
}

// =============================================================================
// IMAGE MODEL TESTS
// =============================================================================

func TestImageModel_GenerateImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/img-model:generateContent", r.URL.Path)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"aW1n"}}]}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, RequestsPerMinute: 6000})
	m := NewImageModel(c, "img-model")

	blob, err := m.GenerateImage(context.Background(), "a red fox")
	require.NoError(t, err)
	assert.Equal(t, "image/png", blob.MimeType)
	assert.Equal(t, "aW1n", blob.Data)
}

func TestImageModel_GenerateImage_NoImageInResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"sorry, text only"}]}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, RequestsPerMinute: 6000})
	m := NewImageModel(c, "img-model")

	_, err := m.GenerateImage(context.Background(), "a red fox")
	assert.ErrorIs(t, err, ErrNoImage)
}
