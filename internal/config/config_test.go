// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	def := Default()
	if cfg.BaseURL != def.BaseURL || cfg.Model != def.Model || cfg.Storage != StorageJSON {
		t.Errorf("Defaults not applied: %+v", cfg)
	}
	if cfg.APIKey != "" {
		t.Errorf("APIKey = %q, want empty", cfg.APIKey)
	}
}

func TestLoadFromPath_ReadsTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
api_key = "sk-test"
model = "test/model"
storage = "sqlite"
wrap_width = 100
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.APIKey != "sk-test" || cfg.Model != "test/model" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Storage != StorageSQLite || cfg.WrapWidth != 100 {
		t.Errorf("cfg = %+v", cfg)
	}
	// Unset fields still default.
	if cfg.BaseURL != Default().BaseURL {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
}

func TestLoadFromPath_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`api_key = "from-file"`), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	t.Setenv("CHATBOT_API_KEY", "from-env")
	t.Setenv("CHATBOT_MODEL", "env/model")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.APIKey != "from-env" {
		t.Errorf("APIKey = %q, want env override", cfg.APIKey)
	}
	if cfg.Model != "env/model" {
		t.Errorf("Model = %q", cfg.Model)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"sqlite valid", func(c *Config) { c.Storage = StorageSQLite }, false},
		{"unknown storage", func(c *Config) { c.Storage = "flatfile" }, true},
		{"bad base url", func(c *Config) { c.BaseURL = "ftp://example.com" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.fillDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveToPath_RoundTripAndPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := Default()
	cfg.APIKey = "sk-secret"
	cfg.Model = "saved/model"

	if err := SaveToPath(cfg, path); err != nil {
		t.Fatalf("SaveToPath failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("Permissions = %o, want 0600", perm)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.APIKey != "sk-secret" || loaded.Model != "saved/model" {
		t.Errorf("Round trip lost fields: %+v", loaded)
	}
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`model = "before"`), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	loaded := make(chan *Config, 1)
	w, err := Watch(path, func(cfg *Config) {
		select {
		case loaded <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte(`model = "after"`), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	select {
	case cfg := <-loaded:
		if cfg.Model != "after" {
			t.Errorf("Model = %q, want %q", cfg.Model, "after")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for reload")
	}
}
