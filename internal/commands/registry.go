// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system for the TUI and the
// plain REPL.
package commands

import "sort"

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Command represents a slash command.
type Command struct {
	// Name is the primary command name (e.g., "/help")
	Name string

	// Aliases are alternative names (e.g., "/h", "/?")
	Aliases []string

	// Description is shown in help
	Description string

	// Usage shows argument syntax (e.g., "/attach <path>")
	Usage string

	// MinArgs is the number of arguments the command requires
	MinArgs int
}

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds all registered commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates a registry with all built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command to the registry.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get retrieves a command by name or alias.
func (r *Registry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns every registered command sorted by name.
func (r *Registry) All() []*Command {
	out := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name: "/help", Aliases: []string{"/h", "/?"},
		Description: "Show available commands",
		Usage:       "/help",
	})
	r.Register(&Command{
		Name: "/attach", Aliases: []string{"/a"},
		Description: "Attach an image or document to the next message",
		Usage:       "/attach <path>",
		MinArgs:     1,
	})
	r.Register(&Command{
		Name: "/image", Aliases: []string{"/img"},
		Description: "Switch to image generation mode",
		Usage:       "/image",
	})
	r.Register(&Command{
		Name:        "/chat",
		Description: "Switch back to conversation mode",
		Usage:       "/chat",
	})
	r.Register(&Command{
		Name: "/task", Aliases: []string{"/t"},
		Description: "Manage tasks: add <text>, done <n>, rm <n>",
		Usage:       "/task add <text> | done <n> | rm <n>",
		MinArgs:     1,
	})
	r.Register(&Command{
		Name:        "/tasks",
		Description: "Toggle the task panel",
		Usage:       "/tasks",
	})
	r.Register(&Command{
		Name:        "/report",
		Description: "Export a PDF report of the conversation",
		Usage:       "/report",
	})
	r.Register(&Command{
		Name: "/reset", Aliases: []string{"/clear"},
		Description: "Reset the conversation",
		Usage:       "/reset",
	})
	r.Register(&Command{
		Name:        "/speak",
		Description: "Toggle speaking replies aloud",
		Usage:       "/speak",
	})
	r.Register(&Command{
		Name: "/quit", Aliases: []string{"/q", "/exit"},
		Description: "Quit",
		Usage:       "/quit",
	})
}
