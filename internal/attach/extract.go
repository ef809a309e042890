// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attach

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// Typed extraction failures. The reconciler turns these into a plain
// user-facing error turn; callers can branch on them with errors.Is.
var (
	// ErrUnsupportedFormat indicates a file type the pipeline cannot read.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrCorruptDocument indicates a file that matched a supported type
	// but could not be decoded.
	ErrCorruptDocument = errors.New("corrupt or protected document")
)

// Extractor converts document bytes into plain text.
type Extractor interface {
	Extract(data []byte, mimeType, fileName string) (string, error)
}

// DocumentExtractor is the default Extractor. It handles plain text,
// Markdown, CSV, JSON, PDF, Word and Excel files.
type DocumentExtractor struct{}

// NewDocumentExtractor returns the default document extractor.
func NewDocumentExtractor() *DocumentExtractor {
	return &DocumentExtractor{}
}

// Extract converts the document to plain text. The file extension decides
// the decoder; the declared MIME type is a fallback when the name carries no
// usable extension.
func (e *DocumentExtractor) Extract(data []byte, mimeType, fileName string) (string, error) {
	switch kind := documentKind(mimeType, fileName); kind {
	case "text":
		return extractPlainText(data, fileName)
	case "csv":
		return extractCSV(data, fileName)
	case "json":
		return extractJSON(data, fileName)
	case "pdf":
		return extractPDF(data, fileName)
	case "word":
		return extractDOCX(data, fileName)
	case "sheet":
		return extractXLSX(data, fileName)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileName)
	}
}

// documentKind maps an extension (or MIME type) to a decoder name. Legacy
// Office extensions route to the OOXML decoders, which reject the old binary
// containers as corrupt rather than unsupported.
func documentKind(mimeType, fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".txt", ".md", ".log":
		return "text"
	case ".csv":
		return "csv"
	case ".json":
		return "json"
	case ".pdf":
		return "pdf"
	case ".docx", ".doc":
		return "word"
	case ".xlsx", ".xls":
		return "sheet"
	}
	switch {
	case strings.HasPrefix(mimeType, "text/csv"):
		return "csv"
	case strings.HasPrefix(mimeType, "application/json"):
		return "json"
	case strings.HasPrefix(mimeType, "application/pdf"):
		return "pdf"
	case strings.HasPrefix(mimeType, "application/vnd.openxmlformats-officedocument.wordprocessingml"),
		strings.HasPrefix(mimeType, "application/msword"):
		return "word"
	case strings.HasPrefix(mimeType, "application/vnd.openxmlformats-officedocument.spreadsheetml"),
		strings.HasPrefix(mimeType, "application/vnd.ms-excel"):
		return "sheet"
	case strings.HasPrefix(mimeType, "text/"):
		return "text"
	}
	return ""
}

func extractPlainText(data []byte, fileName string) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not valid text", ErrCorruptDocument, fileName)
	}
	return string(data), nil
}

// extractCSV renders rows as tab-separated lines so column structure
// survives into the prompt.
func extractCSV(data []byte, fileName string) (string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrCorruptDocument, fileName, err)
	}
	var sb strings.Builder
	for _, row := range rows {
		sb.WriteString(strings.Join(row, "\t"))
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// extractJSON validates and re-indents the document.
func extractJSON(data []byte, fileName string) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrCorruptDocument, fileName, err)
	}
	return buf.String(), nil
}

func extractPDF(data []byte, fileName string) (text string, err error) {
	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %s", ErrCorruptDocument, fileName)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrCorruptDocument, fileName, err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrCorruptDocument, fileName, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrCorruptDocument, fileName, err)
	}
	return buf.String(), nil
}

// extractDOCX pulls paragraph text out of the word/document.xml part of the
// OOXML container. Formatting is dropped; paragraphs become lines.
func extractDOCX(data []byte, fileName string) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrCorruptDocument, fileName, err)
	}

	var doc io.ReadCloser
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			doc, err = f.Open()
			if err != nil {
				return "", fmt.Errorf("%w: %s: %v", ErrCorruptDocument, fileName, err)
			}
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("%w: %s has no document body", ErrCorruptDocument, fileName)
	}
	defer doc.Close()

	var sb strings.Builder
	var inText bool
	decoder := xml.NewDecoder(doc)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrCorruptDocument, fileName, err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(el)
			}
		}
	}
	return sb.String(), nil
}

// extractXLSX renders every sheet as tab-separated rows, one sheet after
// another, matching the shape extractCSV produces.
func extractXLSX(data []byte, fileName string) (string, error) {
	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrCorruptDocument, fileName, err)
	}
	defer book.Close()

	var sb strings.Builder
	for _, sheet := range book.GetSheetList() {
		rows, err := book.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrCorruptDocument, fileName, err)
		}
		sb.WriteString(fmt.Sprintf("[Sheet: %s]\n", sheet))
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}

// =============================================================================
// PROMPT AND DISPLAY FORMATTING
// =============================================================================

// WrapExtracted wraps extracted document text in delimiting markers for
// inclusion in the model prompt. The markers keep the document clearly
// separated from the user's own words.
func WrapExtracted(fileName, text string) string {
	return fmt.Sprintf("\n\n[DOCUMENT CONTEXT: %s]\n%s\n[END OF DOCUMENT]\n\n", fileName, text)
}

// DisplayText builds the turn text shown for a message with an attached
// document: an attachment marker plus the user's literal text. The extracted
// content itself is deliberately not displayed or persisted.
func DisplayText(fileName, userText string) string {
	return fmt.Sprintf("[Attached file: %s]\n%s", fileName, userText)
}
