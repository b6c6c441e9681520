// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for docchat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ServerConfig: Backend URL, tenant, and request limits
//   - ChatConfig: Conversation behavior (web search, suggestions, sources)
//   - UIConfig: Theme and rendering preferences
//   - Watcher: Live reload when the config file changes on disk
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (DOCCHAT_*)
//   - ~/.docchat/config.toml
//   - ~/.docchat/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	serverURL := cfg.Server.URL
//	tenant := cfg.Server.TenantID
package config
