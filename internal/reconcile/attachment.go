// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// MaxAttachmentSize caps attachment reads (10MB).
const MaxAttachmentSize = 10 * 1024 * 1024

// extensionMimeTypes covers types the platform mime table may not know.
var extensionMimeTypes = map[string]string{
	".md":   "text/markdown",
	".csv":  "text/csv",
	".json": "application/json",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".webp": "image/webp",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".doc":  "application/msword",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":  "application/vnd.ms-excel",
}

// LoadAttachment reads a file from disk and classifies it as an image or
// document attachment based on its extension.
func LoadAttachment(path string) (*Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("attachment: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("attachment: %s is a directory", path)
	}
	if info.Size() > MaxAttachmentSize {
		return nil, fmt.Errorf("attachment: %s is too large (%d bytes, max %d)", path, info.Size(), MaxAttachmentSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("attachment: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	mimeType := extensionMimeTypes[ext]
	if mimeType == "" {
		mimeType = mime.TypeByExtension(ext)
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	// Strip any charset parameter the mime table appends.
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}

	kind := AttachmentDocument
	if strings.HasPrefix(mimeType, "image/") {
		kind = AttachmentImage
	}

	return &Attachment{
		Name:     filepath.Base(path),
		MimeType: mimeType,
		Data:     data,
		Kind:     kind,
	}, nil
}
