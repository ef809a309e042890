// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Configuration constants for the generative-language API.
const (
	// DefaultBaseURL is the base URL for the Gemini REST API.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultTimeout is the default timeout for non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for
	// transient errors on non-streaming requests.
	DefaultMaxRetries = 3

	// DefaultRequestsPerMinute is the default client-side rate limit.
	DefaultRequestsPerMinute = 30

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 32 * 1024 * 1024
)

var (
	// Shared HTTP client with connection pooling for all non-streaming
	// requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for streaming requests. No client
	// timeout - stream lifetime is controlled via context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// =============================================================================
// CLIENT
// =============================================================================

// Config holds client construction parameters.
type Config struct {
	// APIKey is the provider credential. Required.
	APIKey string

	// BaseURL overrides the API endpoint. Defaults to DefaultBaseURL.
	BaseURL string

	// MaxRetries caps retry attempts for transient errors.
	// Defaults to DefaultMaxRetries.
	MaxRetries int

	// RequestsPerMinute is the client-side rate limit.
	// Defaults to DefaultRequestsPerMinute.
	RequestsPerMinute int
}

// Client is an HTTP client for the generative-language backend.
type Client struct {
	apiKey     string
	baseURL    string
	maxRetries int
	limiter    *rate.Limiter
}

// NewClient creates a client from the given configuration.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = DefaultRequestsPerMinute
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxRetries: maxRetries,
		limiter:    rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
	}
}

// IsConfigured reports whether an API key is set.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// Limiter exposes the client-side rate limiter.
func (c *Client) Limiter() *rate.Limiter {
	return c.limiter
}

// setHeaders sets the required request headers.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)
}

// endpoint builds the URL for a model method, e.g.
// {base}/models/{model}:generateContent.
func (c *Client) endpoint(model, method string) string {
	return fmt.Sprintf("%s/models/%s:%s", c.baseURL, model, method)
}

// =============================================================================
// NON-STREAMING GENERATION
// =============================================================================

// Generate performs a non-streaming generateContent call against the given
// model. Transient failures (HTTP 429 and 5xx) are retried with exponential
// backoff up to the configured retry limit; 4xx responses are returned
// immediately.
func (c *Client) Generate(ctx context.Context, model string, req *GenerateRequest) (*GenerateResponse, error) {
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

	url := c.endpoint(model, "generateContent")

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		c.setHeaders(httpReq)

		resp, err := sharedHTTPClient.Do(httpReq)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("failed to read response: %w", readErr)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			provErr := parseErrorResponse(resp.StatusCode, body)
			// Retry only rate limits and server errors.
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				lastErr = provErr
				continue
			}
			return nil, provErr
		}

		var out GenerateResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		return &out, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// =============================================================================
// ERROR RESPONSES
// =============================================================================

// errorEnvelope matches the backend's error body:
// {"error": {"code": 429, "message": "...", "status": "RESOURCE_EXHAUSTED"}}
type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// parseErrorResponse converts a non-2xx response into a *ProviderError.
func parseErrorResponse(status int, body []byte) error {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		return &ProviderError{
			Status:  status,
			Code:    env.Error.Status,
			Message: env.Error.Message,
		}
	}
	return &ProviderError{Status: status}
}

// calculateBackoff returns the delay before the given retry attempt,
// doubling from retryBaseDelay and capped at retryMaxDelay.
func calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= retryMaxDelay {
			return retryMaxDelay
		}
	}
	return delay
}
