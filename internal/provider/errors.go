// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"errors"
	"fmt"
)

// Sentinel errors for common backend failures.
var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("provider API key not configured")

	// ErrAuthFailed indicates authentication failed (invalid or expired key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates the backend rejected the request for quota.
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidRequest indicates the backend rejected the request body.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNoImage indicates an image-generation call returned no image part.
	ErrNoImage = errors.New("no image was generated")
)

// ProviderError is a typed error for non-2xx backend responses.
type ProviderError struct {
	Status  int    // HTTP status code
	Code    string // backend status string, e.g. "RESOURCE_EXHAUSTED"
	Message string // backend-supplied message
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("provider error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("provider error (HTTP %d)", e.Status)
}

// Is maps HTTP status classes onto the package sentinels so callers can use
// errors.Is without inspecting status codes.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrAuthFailed:
		return e.Status == 401 || e.Status == 403
	case ErrRateLimited:
		return e.Status == 429
	case ErrInvalidRequest:
		return e.Status == 400
	}
	return false
}

// StreamError preserves partial content received before a stream failed.
type StreamError struct {
	Partial string // content received before the error
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}
