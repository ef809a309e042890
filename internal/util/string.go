// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// TruncateWidth truncates a string to a maximum display width, accounting for
// double-width (CJK) characters. If the string is truncated, "..." is
// appended within the width budget.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// WrapWidth breaks text into lines no wider than maxWidth display columns.
// Existing newlines are preserved; words longer than the width are split
// hard. Empty input yields a single empty line.
func WrapWidth(s string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{s}
	}

	var out []string
	for _, raw := range strings.Split(s, "\n") {
		if runewidth.StringWidth(raw) <= maxWidth {
			out = append(out, raw)
			continue
		}

		var line strings.Builder
		lineWidth := 0
		for _, word := range strings.Fields(raw) {
			w := runewidth.StringWidth(word)

			// Hard-split words wider than the whole line.
			for w > maxWidth {
				if lineWidth > 0 {
					out = append(out, line.String())
					line.Reset()
					lineWidth = 0
				}
				head := runewidth.Truncate(word, maxWidth, "")
				out = append(out, head)
				word = strings.TrimPrefix(word, head)
				w = runewidth.StringWidth(word)
			}
			if w == 0 {
				continue
			}

			sep := 0
			if lineWidth > 0 {
				sep = 1
			}
			if lineWidth+sep+w > maxWidth {
				out = append(out, line.String())
				line.Reset()
				lineWidth = 0
				sep = 0
			}
			if sep == 1 {
				line.WriteByte(' ')
				lineWidth++
			}
			line.WriteString(word)
			lineWidth += w
		}
		out = append(out, line.String())
	}
	if out == nil {
		out = []string{""}
	}
	return out
}
