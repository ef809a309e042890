// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	pageMarginLeft  = 15.0
	pageMarginTop   = 20.0
	pageMarginRight = 15.0
	bodyLineHeight  = 5.5
)

// Render lays out the report body as an A4 PDF: a title block with the
// generation date, the wrapped body text, and a footer on the first page.
func Render(title, body string, generatedAt time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetMargins(pageMarginLeft, pageMarginTop, pageMarginRight)
	pdf.SetAutoPageBreak(true, pageMarginTop)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		// Only the opening page carries the attribution footer.
		if pdf.PageNo() != 1 {
			return
		}
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, tr("Generated by Anita"), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	// Title block.
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(110, 110, 110)
	pdf.CellFormat(0, 6, tr(generatedAt.Format("January 2, 2006")), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	// Body. Section headings are detected as short all-caps lines and set
	// in bold so the five report sections stand out.
	for _, line := range strings.Split(body, "\n") {
		if isHeading(line) {
			pdf.Ln(2)
			pdf.SetFont("Helvetica", "B", 12)
			pdf.MultiCell(0, bodyLineHeight+1, tr(strings.TrimSpace(line)), "", "L", false)
			pdf.SetFont("Helvetica", "", 11)
			continue
		}
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, bodyLineHeight, tr(line), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf output: %w", err)
	}
	return buf.Bytes(), nil
}

// isHeading reports whether a body line is a section heading: short,
// non-empty, and containing no lowercase letters.
func isHeading(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || len(trimmed) > 40 {
		return false
	}
	hasLetter := false
	for _, r := range trimmed {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasLetter = true
		}
	}
	return hasLetter
}
