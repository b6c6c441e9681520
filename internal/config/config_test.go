// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// TestConfig_ConcurrentAccess tests that Global(), SetGlobal(), and ReloadGlobal()
// can be safely called concurrently without race conditions.
// Run with: go test -race -v ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	// Reset state before test
	ResetGlobalForTesting()

	var wg sync.WaitGroup

	// 50 writers using SetGlobal, 50 readers using Global
	for i := 0; i < 50; i++ {
		wg.Add(2)

		// Writer goroutine
		go func(id int) {
			defer wg.Done()
			c := &Config{
				Version: "test",
				Server: ServerConfig{
					URL:      "http://127.0.0.1:8000",
					TenantID: "test-tenant",
				},
			}
			SetGlobal(c)
		}(i)

		// Reader goroutine
		go func(id int) {
			defer wg.Done()
			cfg := Global()
			if cfg == nil {
				t.Error("Global() returned nil")
			}
		}(i)
	}

	wg.Wait()
}

// TestConfig_ConcurrentReload tests concurrent ReloadGlobal and Global calls.
func TestConfig_ConcurrentReload(t *testing.T) {
	// Reset state before test
	ResetGlobalForTesting()

	// Initialize config first
	_ = Global()

	var wg sync.WaitGroup

	// 20 reloaders, 80 readers
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// ReloadGlobal may fail if config file doesn't exist, that's ok
			_ = ReloadGlobal()
		}()
	}

	for i := 0; i < 80; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cfg := Global()
			if cfg == nil {
				t.Error("Global() returned nil")
			}
		}()
	}

	wg.Wait()
}

// TestConfig_GlobalInitialization tests that Global() properly initializes
// the config on first access.
func TestConfig_GlobalInitialization(t *testing.T) {
	// Reset state before test
	ResetGlobalForTesting()

	cfg := Global()
	if cfg == nil {
		t.Fatal("Global() returned nil")
	}

	// Verify defaults are applied
	if cfg.Version == "" {
		t.Error("Config version should not be empty")
	}
	if cfg.Server.URL == "" {
		t.Error("Server URL should not be empty")
	}
}

// TestConfig_SetGlobalOverwrites tests that SetGlobal properly overwrites
// the existing global config.
func TestConfig_SetGlobalOverwrites(t *testing.T) {
	// Reset state before test
	ResetGlobalForTesting()

	// Initialize with defaults
	_ = Global()

	// Set custom config
	customCfg := &Config{
		Version: "custom-version",
		Server: ServerConfig{
			TenantID: "custom-tenant",
		},
	}
	SetGlobal(customCfg)

	// Verify the custom config is returned
	result := Global()
	if result.Version != "custom-version" {
		t.Errorf("Expected version 'custom-version', got '%s'", result.Version)
	}
	if result.Server.TenantID != "custom-tenant" {
		t.Errorf("Expected tenant 'custom-tenant', got '%s'", result.Server.TenantID)
	}
}

// TestConfig_Default tests that Default() returns a valid config with defaults.
func TestConfig_Default(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.Version == "" {
		t.Error("Default config should have a version")
	}

	if cfg.Server.URL != "http://127.0.0.1:8000" {
		t.Errorf("Expected default server URL 'http://127.0.0.1:8000', got '%s'", cfg.Server.URL)
	}

	if cfg.Server.TenantID == "" {
		t.Error("Default config should have a tenant ID")
	}

	if cfg.Server.TimeoutSecs == 0 {
		t.Error("Default config should have a request timeout")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
}

// TestConfig_Validate tests configuration validation.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "valid default config",
			config:  Default(),
			wantErr: false,
		},
		{
			name: "empty server URL",
			config: func() *Config {
				c := Default()
				c.Server.URL = ""
				return c
			}(),
			wantErr: true,
		},
		{
			name: "URL without scheme",
			config: func() *Config {
				c := Default()
				c.Server.URL = "127.0.0.1:8000"
				return c
			}(),
			wantErr: true,
		},
		{
			name: "unsupported scheme",
			config: func() *Config {
				c := Default()
				c.Server.URL = "ftp://example.com"
				return c
			}(),
			wantErr: true,
		},
		{
			name: "https URL accepted",
			config: func() *Config {
				c := Default()
				c.Server.URL = "https://chat.example.com"
				return c
			}(),
			wantErr: false,
		},
		{
			name: "empty tenant",
			config: func() *Config {
				c := Default()
				c.Server.TenantID = ""
				return c
			}(),
			wantErr: true,
		},
		{
			name: "timeout zero",
			config: func() *Config {
				c := Default()
				c.Server.TimeoutSecs = 0
				return c
			}(),
			wantErr: true,
		},
		{
			name: "timeout above maximum",
			config: func() *Config {
				c := Default()
				c.Server.TimeoutSecs = 500
				return c
			}(),
			wantErr: true,
		},
		{
			name: "timeout at maximum (300)",
			config: func() *Config {
				c := Default()
				c.Server.TimeoutSecs = 300
				return c
			}(),
			wantErr: false,
		},
		{
			name: "negative request rate",
			config: func() *Config {
				c := Default()
				c.Server.RequestsPerSecond = -1
				return c
			}(),
			wantErr: true,
		},
		{
			name: "unlimited request rate (zero)",
			config: func() *Config {
				c := Default()
				c.Server.RequestsPerSecond = 0
				return c
			}(),
			wantErr: false,
		},
		{
			name: "invalid theme",
			config: func() *Config {
				c := Default()
				c.UI.Theme = "invalid"
				return c
			}(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestConfig_SaveLoadRoundTrip tests that a saved config loads back identical.
func TestConfig_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.Server.URL = "https://docs.example.com"
	cfg.Server.TenantID = "acme"
	cfg.Chat.WebSearch = true
	cfg.UI.Theme = "light"

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML() error = %v", err)
	}

	// Saved file must be owner-only
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config file permissions = %o, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if loaded.Server.URL != "https://docs.example.com" {
		t.Errorf("loaded URL = %s, want https://docs.example.com", loaded.Server.URL)
	}
	if loaded.Server.TenantID != "acme" {
		t.Errorf("loaded tenant = %s, want acme", loaded.Server.TenantID)
	}
	if !loaded.Chat.WebSearch {
		t.Error("loaded config should keep web_search enabled")
	}
	if loaded.UI.Theme != "light" {
		t.Errorf("loaded theme = %s, want light", loaded.UI.Theme)
	}
}

// TestConfig_EnvOverrides tests environment variable overrides.
func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DOCCHAT_SERVER_URL", "https://override.example.com")
	t.Setenv("DOCCHAT_TENANT_ID", "env-tenant")
	t.Setenv("DOCCHAT_WEB_SEARCH", "true")
	t.Setenv("DOCCHAT_THEME", "light")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Server.URL != "https://override.example.com" {
		t.Errorf("Server URL = %s, want env override", cfg.Server.URL)
	}
	if cfg.Server.TenantID != "env-tenant" {
		t.Errorf("TenantID = %s, want env-tenant", cfg.Server.TenantID)
	}
	if !cfg.Chat.WebSearch {
		t.Error("WebSearch should be enabled by env override")
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("Theme = %s, want light", cfg.UI.Theme)
	}
}

// TestConfig_GetSet tests Get and Set methods with dot notation.
func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	// Test Get
	val, err := cfg.Get("server.tenant_id")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if val != "default" {
		t.Errorf("Get('server.tenant_id') = %v, want 'default'", val)
	}

	// Test Set
	err = cfg.Set("ui.theme", "light")
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	val, _ = cfg.Get("ui.theme")
	if val != "light" {
		t.Errorf("Get('ui.theme') after Set = %v, want 'light'", val)
	}

	// Test Set with string-to-bool conversion
	err = cfg.Set("chat.web_search", "true")
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !cfg.Chat.WebSearch {
		t.Error("Set('chat.web_search', 'true') should enable web search")
	}

	// Test Get with invalid key
	_, err = cfg.Get("invalid.key")
	if err == nil {
		t.Error("Get() with invalid key should return error")
	}
}

// TestConfig_Clone tests that Clone creates an independent copy.
func TestConfig_Clone(t *testing.T) {
	original := Default()
	original.Version = "original"

	clone := original.Clone()

	// Modify clone
	clone.Version = "cloned"

	// Verify original unchanged
	if original.Version != "original" {
		t.Error("Clone should create an independent copy")
	}
	if clone.Version != "cloned" {
		t.Error("Clone version should be modified")
	}
}

// TestConfig_Merge tests merging two configs.
func TestConfig_Merge(t *testing.T) {
	base := Default()
	base.Version = "base"

	other := &Config{
		Version: "merged",
		Server: ServerConfig{
			TenantID: "merged-tenant",
		},
	}

	base.Merge(other)

	if base.Version != "merged" {
		t.Errorf("Merge should overwrite Version, got '%s'", base.Version)
	}
	if base.Server.TenantID != "merged-tenant" {
		t.Errorf("Merge should overwrite TenantID, got '%s'", base.Server.TenantID)
	}
	// Verify non-overwritten values remain
	if base.Server.URL != "http://127.0.0.1:8000" {
		t.Error("Merge should not overwrite unset fields")
	}
}

// TestWatcher_ReloadsOnChange tests that the watcher picks up config edits.
func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.Server.TenantID = "before"
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML() error = %v", err)
	}

	changed := make(chan *Config, 1)
	w, err := NewWatcher(path, func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	cfg.Server.TenantID = "after"
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML() error = %v", err)
	}

	select {
	case got := <-changed:
		if got.Server.TenantID != "after" {
			t.Errorf("reloaded tenant = %s, want after", got.Server.TenantID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the config change")
	}
}

// TestWatcher_IgnoresBrokenConfig tests that a malformed edit keeps the
// last good config instead of firing the change callback.
func TestWatcher_IgnoresBrokenConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := SaveTOML(Default(), path); err != nil {
		t.Fatalf("SaveTOML() error = %v", err)
	}

	changed := make(chan *Config, 1)
	w, err := NewWatcher(path, func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("not = [valid toml"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case <-changed:
		t.Fatal("broken config should not trigger the change callback")
	case <-time.After(time.Second):
		// expected: reload failed, last good config retained
	}
}
