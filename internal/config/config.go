// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and manages chatbot configuration.
//
// Configuration comes from, in order of precedence: environment variables,
// ~/.chatbot/config.toml, built-in defaults. The credential is bootstrap
// data passed down to the API client; the core treats its absence as a
// configuration error at submission time, not at load time.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Storage backend names.
const (
	StorageJSON   = "json"
	StorageSQLite = "sqlite"
)

// Config is the complete chatbot configuration.
type Config struct {
	// APIKey is the bearer credential for the chat-completion endpoint.
	APIKey string `toml:"api_key"`

	// BaseURL overrides the chat-completion endpoint.
	BaseURL string `toml:"base_url"`

	// Model is the model identifier sent with each request.
	Model string `toml:"model"`

	// DataDir is where conversation state lives.
	DataDir string `toml:"data_dir"`

	// Storage selects the persistence backend: "json" or "sqlite".
	Storage string `toml:"storage"`

	// WrapWidth is the markdown word-wrap column for rendered replies.
	WrapWidth int `toml:"wrap_width"`
}

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BaseURL:   "https://openrouter.ai/api/v1",
		Model:     "openrouter/auto",
		DataDir:   "", // resolved against the config dir when empty
		Storage:   StorageJSON,
		WrapWidth: 80,
	}
}

// Dir returns the chatbot configuration directory (~/.chatbot).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".chatbot"), nil
}

// Path returns the configuration file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file if present, layers environment overrides on
// top, fills defaults and validates. A missing file is not an error.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath is Load against an explicit file path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides layers CHATBOT_* environment variables over the config.
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("CHATBOT_API_KEY"); key != "" {
		c.APIKey = key
	}
	if url := os.Getenv("CHATBOT_BASE_URL"); url != "" {
		c.BaseURL = url
	}
	if model := os.Getenv("CHATBOT_MODEL"); model != "" {
		c.Model = model
	}
	if dir := os.Getenv("CHATBOT_DATA_DIR"); dir != "" {
		c.DataDir = dir
	}
	if backend := os.Getenv("CHATBOT_STORAGE"); backend != "" {
		c.Storage = strings.ToLower(backend)
	}
}

// fillDefaults replaces zero values with their defaults.
func (c *Config) fillDefaults() {
	def := Default()
	if c.BaseURL == "" {
		c.BaseURL = def.BaseURL
	}
	if c.Model == "" {
		c.Model = def.Model
	}
	if c.Storage == "" {
		c.Storage = def.Storage
	}
	if c.WrapWidth <= 0 {
		c.WrapWidth = def.WrapWidth
	}
	if c.DataDir == "" {
		if dir, err := Dir(); err == nil {
			c.DataDir = filepath.Join(dir, "data")
		}
	}
}

// Validate checks field values. A missing API key is deliberately not a
// validation error; submissions fail with a configuration error instead,
// so the app can still browse existing conversations.
func (c *Config) Validate() error {
	if c.Storage != StorageJSON && c.Storage != StorageSQLite {
		return ValidationError{Field: "storage", Message: fmt.Sprintf("unknown backend %q (want %q or %q)", c.Storage, StorageJSON, StorageSQLite)}
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return ValidationError{Field: "base_url", Message: "must be an http(s) URL"}
	}
	return nil
}

// Save writes the config to its default path with owner-only permissions;
// the file carries the credential.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath is Save against an explicit file path.
func SaveToPath(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// SECURITY: 0600, the file holds the API key.
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# chatbot configuration file")
	fmt.Fprintln(file, "# edit with care")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
