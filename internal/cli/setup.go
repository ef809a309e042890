// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/morganforge/anita-tui/internal/config"
)

// EnsureSetup prompts for anything required that the config does not have
// yet: the display name the assistant addresses the user by, and the
// provider API key. The completed config is saved back to disk.
func EnsureSetup(cfg *config.Config) error {
	changed := false

	if cfg.UI.DisplayName == "" {
		name, err := promptLine("How should Anita address you? ")
		if err != nil {
			return err
		}
		if name == "" {
			name = "Boss"
		}
		cfg.UI.DisplayName = name
		changed = true
	}

	if cfg.Provider.APIKey == "" {
		fmt.Println(infoStyle.Render("A Gemini API key is required (or set GEMINI_API_KEY)."))
		key, err := promptSecret("API key: ")
		if err != nil {
			return err
		}
		if key == "" {
			return fmt.Errorf("no API key provided")
		}
		cfg.Provider.APIKey = key
		changed = true
	}

	if !changed {
		return nil
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// promptLine reads one visible line from stdin.
func promptLine(prompt string) (string, error) {
	fmt.Print(promptStyle.Render(prompt))
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads a line without echoing it.
func promptSecret(prompt string) (string, error) {
	fmt.Print(promptStyle.Render(prompt))
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return promptLine("")
	}
	keyBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(keyBytes)), nil
}
