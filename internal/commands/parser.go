// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"strings"
	"unicode"
)

// =============================================================================
// PARSE RESULT
// =============================================================================

// ParseResult contains the result of parsing user input.
type ParseResult struct {
	// IsCommand is true if the input starts with /
	IsCommand bool

	// Command is the matched command (nil if not found)
	Command *Command

	// CommandName is the raw command name (e.g., "/help")
	CommandName string

	// Args are the parsed arguments
	Args []string

	// RawArgs is the unparsed arguments portion
	RawArgs string

	// Error if the command is unknown or its arguments are invalid
	Error error
}

// =============================================================================
// PARSER
// =============================================================================

// Parser handles parsing of slash commands and their arguments.
type Parser struct {
	registry *Registry
}

// NewParser creates a parser over the given registry.
func NewParser(registry *Registry) *Parser {
	return &Parser{registry: registry}
}

// Registry returns the registry the parser resolves against.
func (p *Parser) Registry() *Registry {
	return p.registry
}

// Parse parses user input. Returns IsCommand=false when the input doesn't
// start with /.
func (p *Parser) Parse(input string) ParseResult {
	input = strings.TrimSpace(input)

	var result ParseResult
	if !strings.HasPrefix(input, "/") {
		return result
	}
	result.IsCommand = true

	parts := splitCommandLine(input)
	if len(parts) == 0 {
		return result
	}

	result.CommandName = strings.ToLower(parts[0])
	result.Args = parts[1:]
	if idx := strings.IndexFunc(input, unicode.IsSpace); idx >= 0 {
		result.RawArgs = strings.TrimSpace(input[idx:])
	}

	result.Command = p.registry.Get(result.CommandName)
	if result.Command == nil {
		result.Error = fmt.Errorf("unknown command %s, try /help", result.CommandName)
		return result
	}
	if len(result.Args) < result.Command.MinArgs {
		result.Error = fmt.Errorf("usage: %s", result.Command.Usage)
	}
	return result
}

// splitCommandLine splits a command line into tokens, respecting single
// and double quotes so paths with spaces survive.
func splitCommandLine(input string) []string {
	var tokens []string
	var current strings.Builder
	var inSingleQuote, inDoubleQuote bool

	for i := 0; i < len(input); i++ {
		char := rune(input[i])

		switch {
		case char == '\'' && !inDoubleQuote:
			inSingleQuote = !inSingleQuote

		case char == '"' && !inSingleQuote:
			inDoubleQuote = !inDoubleQuote

		case char == '\\' && i+1 < len(input) && (inDoubleQuote || inSingleQuote):
			next := rune(input[i+1])
			if next == '"' || next == '\'' || next == '\\' {
				current.WriteRune(next)
				i++
			} else {
				current.WriteRune(char)
			}

		case unicode.IsSpace(char) && !inSingleQuote && !inDoubleQuote:
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}

		default:
			current.WriteRune(char)
		}
	}

	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// IsCommand returns true if the input appears to be a command.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// ExtractCommandName extracts just the command name from input.
// e.g., "/attach notes.txt" -> "/attach"
func ExtractCommandName(input string) string {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return ""
	}
	if end := strings.IndexFunc(input, unicode.IsSpace); end != -1 {
		return input[:end]
	}
	return input
}
