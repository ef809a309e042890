// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attach

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// DATA URL TESTS
// =============================================================================

func TestDataURL_RoundTrip(t *testing.T) {
	raw := []byte{0x89, 0x50, 0x4e, 0x47, 0x00, 0xff}
	url := DataURL("image/png", raw)

	assert.Equal(t, "data:image/png;base64,iVBORwD/", url)

	mime, data, err := ParseDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, raw, data)
}

func TestParseDataURL_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no scheme", "https://example.com/x.png"},
		{"no comma", "data:image/png;base64"},
		{"not base64 marker", "data:image/png,rawdata"},
		{"missing mime", "data:;base64,aGk="},
		{"bad payload", "data:image/png;base64,!!!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseDataURL(tt.input)
			assert.ErrorIs(t, err, ErrNotDataURL)
		})
	}
}

// =============================================================================
// EXTRACTION TESTS
// =============================================================================

func TestExtract_PlainText(t *testing.T) {
	e := NewDocumentExtractor()

	text, err := e.Extract([]byte("line one\nline two"), "text/plain", "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", text)
}

func TestExtract_Markdown(t *testing.T) {
	e := NewDocumentExtractor()

	text, err := e.Extract([]byte("# Title"), "", "readme.md")
	require.NoError(t, err)
	assert.Equal(t, "# Title", text)
}

func TestExtract_CSV(t *testing.T) {
	e := NewDocumentExtractor()

	text, err := e.Extract([]byte("name,age\nsam,4\n"), "text/csv", "people.csv")
	require.NoError(t, err)
	assert.Equal(t, "name\tage\nsam\t4\n", text)
}

func TestExtract_JSON(t *testing.T) {
	e := NewDocumentExtractor()

	text, err := e.Extract([]byte(`{"a":1}`), "application/json", "data.json")
	require.NoError(t, err)
	assert.Contains(t, text, "\"a\": 1")
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	e := NewDocumentExtractor()

	_, err := e.Extract([]byte("x"), "application/octet-stream", "binary.exe")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "binary.exe")
}

func TestExtract_CorruptJSON(t *testing.T) {
	e := NewDocumentExtractor()

	_, err := e.Extract([]byte(`{broken`), "", "data.json")
	assert.ErrorIs(t, err, ErrCorruptDocument)
}

func TestExtract_CorruptPDF(t *testing.T) {
	e := NewDocumentExtractor()

	_, err := e.Extract([]byte("definitely not a pdf"), "application/pdf", "report.pdf")
	assert.ErrorIs(t, err, ErrCorruptDocument)
	assert.Contains(t, err.Error(), "report.pdf")
}

func TestExtract_InvalidUTF8Text(t *testing.T) {
	e := NewDocumentExtractor()

	_, err := e.Extract([]byte{0xff, 0xfe, 0x00}, "text/plain", "weird.txt")
	assert.ErrorIs(t, err, ErrCorruptDocument)
}

// buildDOCX assembles a minimal OOXML container with the given paragraphs.
func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()

	var body strings.Builder
	body.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	body.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	body.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(body.String()))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtract_DOCX(t *testing.T) {
	e := NewDocumentExtractor()

	text, err := e.Extract(buildDOCX(t, "First paragraph", "Second paragraph"), "", "notes.docx")
	require.NoError(t, err)
	assert.Equal(t, "First paragraph\nSecond paragraph\n", text)
}

func TestExtract_DOCX_ByMimeType(t *testing.T) {
	e := NewDocumentExtractor()

	mime := "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	text, err := e.Extract(buildDOCX(t, "Hello"), mime, "attachment")
	require.NoError(t, err)
	assert.Equal(t, "Hello\n", text)
}

func TestExtract_CorruptDOCX(t *testing.T) {
	e := NewDocumentExtractor()

	_, err := e.Extract([]byte("not a zip archive"), "", "broken.docx")
	assert.ErrorIs(t, err, ErrCorruptDocument)
	assert.Contains(t, err.Error(), "broken.docx")
}

func TestExtract_DOCXMissingBody(t *testing.T) {
	e := NewDocumentExtractor()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/styles.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte("<styles/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = e.Extract(buf.Bytes(), "", "empty.docx")
	assert.ErrorIs(t, err, ErrCorruptDocument)
}

func TestExtract_LegacyDocIsCorrupt(t *testing.T) {
	e := NewDocumentExtractor()

	// Old binary .doc containers are not OOXML zips.
	_, err := e.Extract([]byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1}, "application/msword", "memo.doc")
	assert.ErrorIs(t, err, ErrCorruptDocument)
}

func TestExtract_XLSX(t *testing.T) {
	e := NewDocumentExtractor()

	book := excelize.NewFile()
	require.NoError(t, book.SetCellValue("Sheet1", "A1", "name"))
	require.NoError(t, book.SetCellValue("Sheet1", "B1", "age"))
	require.NoError(t, book.SetCellValue("Sheet1", "A2", "sam"))
	require.NoError(t, book.SetCellValue("Sheet1", "B2", 4))
	buf, err := book.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, book.Close())

	text, err := e.Extract(buf.Bytes(), "", "people.xlsx")
	require.NoError(t, err)
	assert.Contains(t, text, "[Sheet: Sheet1]")
	assert.Contains(t, text, "name\tage")
	assert.Contains(t, text, "sam\t4")
}

func TestExtract_CorruptXLSX(t *testing.T) {
	e := NewDocumentExtractor()

	_, err := e.Extract([]byte("not a workbook"), "", "broken.xlsx")
	assert.ErrorIs(t, err, ErrCorruptDocument)
	assert.Contains(t, err.Error(), "broken.xlsx")
}

// =============================================================================
// FORMATTING TESTS
// =============================================================================

func TestWrapExtracted(t *testing.T) {
	wrapped := WrapExtracted("notes.txt", "the content")
	assert.Contains(t, wrapped, "[DOCUMENT CONTEXT: notes.txt]")
	assert.Contains(t, wrapped, "the content")
	assert.Contains(t, wrapped, "[END OF DOCUMENT]")
}

func TestDisplayText(t *testing.T) {
	display := DisplayText("notes.txt", "summarize this")
	assert.Contains(t, display, "notes.txt")
	assert.Contains(t, display, "summarize this")
	assert.NotContains(t, display, "DOCUMENT CONTEXT")
}
