// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for anita.
//
// Configuration lives in ~/.anita/config.toml with sensible defaults and a
// GEMINI_API_KEY environment override for the provider credential.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete anita configuration.
type Config struct {
	// Provider configuration
	Provider ProviderConfig `toml:"provider"`

	// Storage configuration
	Storage StorageConfig `toml:"storage"`

	// Voice configuration
	Voice VoiceConfig `toml:"voice"`

	// Report configuration
	Report ReportConfig `toml:"report"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// ProviderConfig contains the generative model provider settings.
type ProviderConfig struct {
	// APIKey is the provider API key. The GEMINI_API_KEY environment
	// variable overrides it when set.
	APIKey string `toml:"api_key"`
	// BaseURL overrides the provider endpoint (empty = default).
	BaseURL string `toml:"base_url"`
	// ChatModel is the model used for conversation and reports.
	ChatModel string `toml:"chat_model"`
	// ImageModel is the model used for image generation.
	ImageModel string `toml:"image_model"`
	// TranscribeModel is the model used for speech transcription.
	TranscribeModel string `toml:"transcribe_model"`
	// RequestsPerMinute caps outgoing provider calls (0 = default).
	RequestsPerMinute int `toml:"requests_per_minute"`
	// MaxRetries caps automatic retries on transient provider errors.
	MaxRetries int `toml:"max_retries"`
}

// StorageConfig contains durable state settings.
type StorageConfig struct {
	// Path is the SQLite database location (empty = ~/.anita/anita.db).
	Path string `toml:"path"`
}

// VoiceConfig contains voice input/output settings.
type VoiceConfig struct {
	// Enabled turns the microphone binding on.
	Enabled bool `toml:"enabled"`
	// SpeakReplies reads assistant replies aloud when true.
	SpeakReplies bool `toml:"speak_replies"`
}

// ReportConfig contains report export settings.
type ReportConfig struct {
	// OutputDir is where generated reports are written (empty = ~/Documents,
	// falling back to the home directory).
	OutputDir string `toml:"output_dir"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// DisplayName is how the assistant addresses the user. Prompted for
	// on first run when empty.
	DisplayName string `toml:"display_name"`
	// Theme selects the markdown rendering style: "dark", "light", "auto".
	Theme string `toml:"theme"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			ChatModel:         "gemini-2.5-flash",
			ImageModel:        "gemini-2.5-flash-image",
			TranscribeModel:   "gemini-2.5-flash",
			RequestsPerMinute: 60,
			MaxRetries:        2,
		},
		Voice: VoiceConfig{
			Enabled:      true,
			SpeakReplies: false,
		},
		UI: UIConfig{
			Theme: "auto",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// Dir returns the anita configuration directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".anita"), nil
}

// Path returns the path to the config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureDir ensures the config directory exists.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// StoragePath resolves the database location, defaulting under the config
// directory.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "anita.db"), nil
}

// ReportDir resolves the report output directory, preferring ~/Documents.
func (c *Config) ReportDir() (string, error) {
	if c.Report.OutputDir != "" {
		return c.Report.OutputDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	docs := filepath.Join(home, "Documents")
	if info, err := os.Stat(docs); err == nil && info.IsDir() {
		return docs, nil
	}
	return home, nil
}

// ensureSecurePermissions fixes permissions on the config file, which holds
// the API key and must stay owner-only.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm() != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", info.Mode().Perm(), err)
		}
	}
	return nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the config file, falling back to defaults when it does not
// exist. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads configuration from an explicit file path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if err := ensureSecurePermissions(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the default config file path.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath writes the configuration as TOML with owner-only permissions.
func SaveToPath(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# anita configuration file")
	fmt.Fprintln(file, "# Generated by anita - edit with care")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// OVERRIDES / VALIDATION
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Provider.APIKey = key
	}
}

// SetDefaults fills zero-valued fields the file left out.
func (c *Config) SetDefaults() {
	def := Default()
	if c.Provider.ChatModel == "" {
		c.Provider.ChatModel = def.Provider.ChatModel
	}
	if c.Provider.ImageModel == "" {
		c.Provider.ImageModel = def.Provider.ImageModel
	}
	if c.Provider.TranscribeModel == "" {
		c.Provider.TranscribeModel = def.Provider.TranscribeModel
	}
	if c.Provider.RequestsPerMinute <= 0 {
		c.Provider.RequestsPerMinute = def.Provider.RequestsPerMinute
	}
	if c.Provider.MaxRetries < 0 {
		c.Provider.MaxRetries = def.Provider.MaxRetries
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		return fmt.Errorf("ui.theme must be one of dark, light, auto (got %q)", c.UI.Theme)
	}
	if c.Provider.RequestsPerMinute < 1 {
		return fmt.Errorf("provider.requests_per_minute must be positive (got %d)", c.Provider.RequestsPerMinute)
	}
	return nil
}
