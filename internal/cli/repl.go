// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	chatlog "github.com/morganforge/anita-tui/internal/chat"
	"github.com/morganforge/anita-tui/internal/commands"
	"github.com/morganforge/anita-tui/internal/reconcile"
	"github.com/morganforge/anita-tui/internal/report"
	"github.com/morganforge/anita-tui/internal/tasklist"
	"github.com/morganforge/anita-tui/internal/util"
)

// replWrapWidth is the column budget for replayed history lines.
const replWrapWidth = 100

// =============================================================================
// REPL
// =============================================================================

// Deps wires the REPL's collaborators.
type Deps struct {
	Reconciler  *reconcile.Reconciler
	Log         *chatlog.Log
	Tasks       *tasklist.List
	Reporter    *report.Exporter
	DisplayName string
}

// REPL is the plain line-oriented alternative to the TUI, for terminals
// (or users) that don't want a full-screen program.
type REPL struct {
	deps    Deps
	reader  *LineReader
	parser  *commands.Parser
	out     io.Writer
	mode    reconcile.Mode
	pending *reconcile.Attachment
}

// NewREPL creates the REPL.
func NewREPL(deps Deps, out io.Writer) *REPL {
	return &REPL{
		deps:   deps,
		reader: NewLineReader(),
		parser: commands.NewParser(commands.NewRegistry()),
		out:    out,
	}
}

// Run reads and dispatches input until the user quits.
func (r *REPL) Run(ctx context.Context) error {
	defer r.reader.Close()

	fmt.Fprintln(r.out, welcomeStyle.Render("anita")+infoStyle.Render("  /help for commands, /quit to leave"))
	r.printLastTurns()

	for {
		input, err := r.reader.ReadInput(promptStyle.Render(r.deps.DisplayName + "> "))
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if commands.IsCommand(input) {
			quit := r.runCommand(ctx, input)
			if quit {
				return nil
			}
			continue
		}

		r.send(ctx, reconcile.Request{Text: input, Attachment: r.pending, Mode: r.mode})
		r.pending = nil
	}
}

// printLastTurns replays the tail of a restored conversation for context.
func (r *REPL) printLastTurns() {
	turns := r.deps.Log.Turns()
	start := len(turns) - 4
	if start < 0 {
		start = 0
	}
	for _, t := range turns[start:] {
		label := promptStyle.Render(r.deps.DisplayName + "> ")
		if t.Role == chatlog.RoleAssistant {
			label = assistantStyle.Render("Anita: ")
		}
		lines := util.WrapWidth(t.Text, replWrapWidth)
		for i, line := range lines {
			if t.IsError {
				line = errorStyle.Render(line)
			}
			if i == 0 {
				fmt.Fprintln(r.out, label+line)
				continue
			}
			fmt.Fprintln(r.out, "  "+line)
		}
	}
}

// send runs one request, printing streamed text as it lands in the log.
func (r *REPL) send(ctx context.Context, req reconcile.Request) {
	printer := newStreamPrinter(r.out, r.deps.Log.Len())

	done := make(chan struct{})
	go func() {
		r.deps.Reconciler.Send(ctx, req)
		close(done)
	}()

	for {
		select {
		case <-done:
			printer.flush(r.deps.Log.Turns())
			printer.finish(r.deps.Log.Turns())
			return
		case <-r.deps.Reconciler.Updates():
			printer.flush(r.deps.Log.Turns())
		}
	}
}

// runCommand executes a slash command; the returned flag requests exit.
func (r *REPL) runCommand(ctx context.Context, input string) bool {
	res := r.parser.Parse(input)
	if res.Error != nil {
		fmt.Fprintln(r.out, errorStyle.Render(res.Error.Error()))
		return false
	}

	switch res.Command.Name {
	case "/help":
		for _, cmd := range r.parser.Registry().All() {
			fmt.Fprintf(r.out, "  %-40s %s\n", cmd.Usage, infoStyle.Render(cmd.Description))
		}

	case "/attach":
		a, err := reconcile.LoadAttachment(res.RawArgs)
		if err != nil {
			fmt.Fprintln(r.out, errorStyle.Render(err.Error()))
			return false
		}
		r.pending = a
		fmt.Fprintln(r.out, infoStyle.Render("Attached "+a.Name+", it goes with your next message."))

	case "/image":
		r.mode = reconcile.ModeImage
		fmt.Fprintln(r.out, infoStyle.Render("Image generation mode. /chat to switch back."))

	case "/chat":
		r.mode = reconcile.ModeChat
		fmt.Fprintln(r.out, infoStyle.Render("Conversation mode."))

	case "/task":
		r.runTaskCommand(res.Args)

	case "/tasks":
		r.printTasks()

	case "/report":
		path, err := r.deps.Reporter.Export(ctx)
		switch {
		case err != nil:
			fmt.Fprintln(r.out, errorStyle.Render("Report failed: "+err.Error()))
		case path == "":
			fmt.Fprintln(r.out, infoStyle.Render("Not enough conversation to report on yet."))
		default:
			fmt.Fprintln(r.out, infoStyle.Render("Report saved to "+path))
		}

	case "/reset":
		if !r.deps.Reconciler.Reset() {
			fmt.Fprintln(r.out, errorStyle.Render("Anita is still replying, hold on."))
			return false
		}
		r.pending = nil
		r.mode = reconcile.ModeChat
		r.printLastTurns()

	case "/speak":
		fmt.Fprintln(r.out, infoStyle.Render("Spoken replies are available in the full TUI."))

	case "/quit":
		return true
	}
	return false
}

func (r *REPL) runTaskCommand(args []string) {
	switch args[0] {
	case "add":
		text := strings.Join(args[1:], " ")
		if strings.TrimSpace(text) == "" {
			fmt.Fprintln(r.out, errorStyle.Render("usage: /task add <text>"))
			return
		}
		r.deps.Tasks.Add(text)
		r.printTasks()

	case "done", "rm":
		if len(args) < 2 {
			fmt.Fprintln(r.out, errorStyle.Render("usage: /task "+args[0]+" <number>"))
			return
		}
		n, err := strconv.Atoi(args[1])
		items := r.deps.Tasks.Items()
		if err != nil || n < 1 || n > len(items) {
			fmt.Fprintln(r.out, errorStyle.Render("no task number "+args[1]))
			return
		}
		if args[0] == "done" {
			r.deps.Tasks.Toggle(items[n-1].ID)
		} else {
			r.deps.Tasks.Remove(items[n-1].ID)
		}
		r.printTasks()

	default:
		fmt.Fprintln(r.out, errorStyle.Render("usage: /task add <text> | done <n> | rm <n>"))
	}
}

func (r *REPL) printTasks() {
	items := r.deps.Tasks.Items()
	if len(items) == 0 {
		fmt.Fprintln(r.out, infoStyle.Render("nothing yet, /task add <text>"))
		return
	}
	for i, task := range items {
		box := "[ ]"
		if task.Completed {
			box = "[x]"
		}
		fmt.Fprintf(r.out, "%s %d. %s\n", box, i+1, task.Text)
	}
}

// =============================================================================
// STREAM PRINTING
// =============================================================================

// streamPrinter writes new log content to the terminal as a send streams
// into the log. It tracks per-turn progress by ID so chunk patches print
// as incremental deltas.
type streamPrinter struct {
	out  io.Writer
	skip int
	// printed maps turn ID to how many bytes of its text were written.
	printed map[string]int
	// openID is the turn whose line is currently unterminated.
	openID string
}

func newStreamPrinter(out io.Writer, skip int) *streamPrinter {
	return &streamPrinter{out: out, skip: skip, printed: make(map[string]int)}
}

// flush writes everything new since the last call.
func (p *streamPrinter) flush(turns []chatlog.Turn) {
	for i := p.skip; i < len(turns); i++ {
		t := turns[i]
		if t.Role == chatlog.RoleUser {
			// The user's own line was already echoed by the prompt.
			continue
		}

		done, seen := p.printed[t.ID]
		if !seen {
			p.closeLine()
			label := assistantStyle.Render("Anita: ")
			fmt.Fprint(p.out, label)
			p.openID = t.ID
			done = 0
		}

		if done < len(t.Text) {
			text := t.Text[done:]
			if t.IsError {
				text = errorStyle.Render(text)
			}
			fmt.Fprint(p.out, text)
		}
		p.printed[t.ID] = len(t.Text)
	}
}

// finish terminates the open line and prints trailing image markers and
// citations.
func (p *streamPrinter) finish(turns []chatlog.Turn) {
	p.closeLine()
	for i := p.skip; i < len(turns); i++ {
		t := turns[i]
		if t.Role == chatlog.RoleAssistant && t.ImageURL != "" {
			fmt.Fprintln(p.out, infoStyle.Render("[image received]"))
		}
		if len(t.Citations) > 0 {
			fmt.Fprintln(p.out, infoStyle.Render("Sources:"))
			for _, c := range t.Citations {
				fmt.Fprintln(p.out, infoStyle.Render("  * "+c.Title+" ("+c.URI+")"))
			}
		}
	}
}

func (p *streamPrinter) closeLine() {
	if p.openID != "" {
		fmt.Fprintln(p.out)
		p.openID = ""
	}
}
