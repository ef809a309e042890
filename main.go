// anita - a personal assistant in the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/anita-tui/internal/attach"
	chatlog "github.com/morganforge/anita-tui/internal/chat"
	"github.com/morganforge/anita-tui/internal/cli"
	"github.com/morganforge/anita-tui/internal/config"
	"github.com/morganforge/anita-tui/internal/provider"
	"github.com/morganforge/anita-tui/internal/reconcile"
	"github.com/morganforge/anita-tui/internal/report"
	"github.com/morganforge/anita-tui/internal/session"
	"github.com/morganforge/anita-tui/internal/storage"
	"github.com/morganforge/anita-tui/internal/tasklist"
	uichat "github.com/morganforge/anita-tui/internal/ui/chat"
	"github.com/morganforge/anita-tui/internal/ui/styles"
	"github.com/morganforge/anita-tui/internal/voice"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	plain := flag.Bool("plain", false, "run the line-oriented REPL instead of the full TUI")
	configPath := flag.String("config", "", "config file path (default ~/.anita/config.toml)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("anita %s (%s, %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if err := run(*plain, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(plain bool, configPath string) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	if err := cli.EnsureSetup(cfg); err != nil {
		return err
	}

	client := provider.NewClient(provider.Config{
		APIKey:            cfg.Provider.APIKey,
		BaseURL:           cfg.Provider.BaseURL,
		MaxRetries:        cfg.Provider.MaxRetries,
		RequestsPerMinute: cfg.Provider.RequestsPerMinute,
	})

	dbPath, err := cfg.StoragePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	store, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	log := chatlog.NewLog(store.Slot("history"))
	log.SeedWelcome(cfg.UI.DisplayName)
	tasks := tasklist.NewList(store.Slot("tasks"))

	manager := session.NewManager(client, provider.SessionConfig{
		Model:             cfg.Provider.ChatModel,
		SystemInstruction: session.SystemInstruction,
		EnableSearch:      true,
	})

	rec := reconcile.New(reconcile.Config{
		Log:         log,
		Sessions:    managerSource{manager},
		Images:      provider.NewImageModel(client, cfg.Provider.ImageModel),
		Extractor:   attach.NewDocumentExtractor(),
		DisplayName: cfg.UI.DisplayName,
	})

	reportDir, err := cfg.ReportDir()
	if err != nil {
		return err
	}
	reporter := report.NewExporter(log, client, report.Options{
		OutputDir: reportDir,
		Model:     cfg.Provider.ChatModel,
	})

	if plain {
		repl := cli.NewREPL(cli.Deps{
			Reconciler:  rec,
			Log:         log,
			Tasks:       tasks,
			Reporter:    reporter,
			DisplayName: cfg.UI.DisplayName,
		}, os.Stdout)
		return repl.Run(context.Background())
	}

	model := uichat.New(uichat.Deps{
		Reconciler:   rec,
		Log:          log,
		Tasks:        tasks,
		Reporter:     reporter,
		Recorder:     voice.NewExecRecorder(),
		Transcriber:  voice.NewModelTranscriber(client, cfg.Provider.TranscribeModel),
		Synthesizer:  voice.NewExecSynthesizer(),
		DisplayName:  cfg.UI.DisplayName,
		Theme:        styles.NewTheme(cfg.UI.Theme),
		VoiceEnabled: cfg.Voice.Enabled,
		SpeakReplies: cfg.Voice.SpeakReplies,
	})

	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	return err
}

// managerSource adapts the concrete session manager to the reconciler's
// collaborator interface.
type managerSource struct {
	m *session.Manager
}

func (s managerSource) Ensure(prior []chatlog.Turn) (reconcile.ChatStream, error) {
	handle, err := s.m.Ensure(prior)
	if err != nil {
		return nil, err
	}
	return handle, nil
}

func (s managerSource) Reset() {
	s.m.Reset()
}
