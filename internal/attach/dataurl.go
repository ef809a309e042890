// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attach converts user-selected files into something a turn can
// carry: images become inline binary data plus a self-describing data URL
// for persistence, documents become extracted plain text folded into the
// model prompt.
package attach

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrNotDataURL indicates a persisted image payload that is not a
// well-formed data URL.
var ErrNotDataURL = errors.New("not a data URL")

// Base64 encodes raw bytes the way the provider transport expects inline
// payloads.
func Base64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DataURL synthesizes a self-describing data URL
// (data:<mimetype>;base64,<payload>) from raw bytes.
func DataURL(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// DataURLFromBase64 synthesizes a data URL from an already-encoded payload,
// as returned inline by the provider.
func DataURLFromBase64(mimeType, encoded string) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, encoded)
}

// ParseDataURL parses a data URL back into its declared media type and raw
// bytes. Only base64-encoded payloads are supported, which is the only form
// this application ever writes.
func ParseDataURL(url string) (mimeType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(url, "data:")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	mimeType, ok = strings.CutSuffix(meta, ";base64")
	if !ok || mimeType == "" {
		return "", nil, ErrNotDataURL
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: bad base64 payload: %v", ErrNotDataURL, err)
	}
	return mimeType, data, nil
}
