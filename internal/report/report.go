// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package report summarizes a conversation through the model and renders
// the summary as a paginated PDF saved next to the user's other reports.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/morganforge/anita-tui/internal/chat"
	"github.com/morganforge/anita-tui/internal/provider"
	"github.com/morganforge/anita-tui/internal/session"
	"github.com/morganforge/anita-tui/internal/util"
)

// summaryInstruction is the fixed final turn asking for the report body.
const summaryInstruction = `Write a structured plain-text report of our conversation with exactly these five sections, each introduced by its heading on its own line:

OBJECTIVES
KEY POINTS
DECISIONS
ACTION PLAN
NOTES

Be factual and concise. Do not use markdown syntax, only plain text.`

// Generator is the non-streaming model call the exporter depends on.
// *provider.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, model string, req *provider.GenerateRequest) (*provider.GenerateResponse, error)
}

// Options configures report export.
type Options struct {
	// OutputDir is the directory reports are written to.
	OutputDir string

	// Model is the model identifier used for the summary call.
	Model string
}

// Exporter builds conversation reports.
type Exporter struct {
	log  *chat.Log
	gen  Generator
	opts Options
}

// NewExporter creates a report exporter over the given log.
func NewExporter(log *chat.Log, gen Generator, opts Options) *Exporter {
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	return &Exporter{log: log, gen: gen, opts: opts}
}

// Export summarizes the conversation and writes the PDF. It returns the
// written file path, or "" when the conversation is too short to report
// on (fewer than two turns), which is not an error. On success a
// confirmation turn is appended to the log; on failure the log is left
// unchanged and the error is returned for the caller to surface.
func (e *Exporter) Export(ctx context.Context) (string, error) {
	turns := e.log.Turns()
	if len(turns) < 2 {
		return "", nil
	}

	contents := session.HistoryContents(turns)
	contents = append(contents, provider.Content{
		Role:  provider.RoleUser,
		Parts: []provider.Part{{Text: summaryInstruction}},
	})

	resp, err := e.gen.Generate(ctx, e.opts.Model, &provider.GenerateRequest{Contents: contents})
	if err != nil {
		return "", fmt.Errorf("summarize conversation: %w", err)
	}
	body := resp.Text()
	if body == "" {
		return "", fmt.Errorf("summarize conversation: empty response")
	}

	now := time.Now()
	doc, err := Render("Conversation Report", body, now)
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	if err := os.MkdirAll(e.opts.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	path := filepath.Join(e.opts.OutputDir, Filename(now))
	if err := util.AtomicWriteFile(path, doc, 0644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	e.log.Append(chat.NewTurn(chat.RoleAssistant,
		fmt.Sprintf("Done, Boss. Your report is saved as %s.", Filename(now))))
	return path, nil
}

// Filename derives the report file name from a date.
func Filename(t time.Time) string {
	return fmt.Sprintf("Anita_Report_%s.pdf", t.Format("2006-01-02"))
}
