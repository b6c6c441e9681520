// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// env.go - Shared command environment: config, profile store, API client.
//
// Every network-facing subcommand begins with the same dance: load the
// config, apply flag overrides, open the profile database, resolve the
// local identity and install the stored credential. cmdEnv does it once.
package cli

import (
	"context"
	"strings"
	"time"

	"github.com/jeranaias/docchat-tui/internal/api"
	"github.com/jeranaias/docchat-tui/internal/config"
	"github.com/jeranaias/docchat-tui/internal/profile"
)

// cmdEnv bundles the dependencies a command handler needs.
type cmdEnv struct {
	Config   *config.Config
	Store    profile.Store
	Client   *api.Client
	Identity string
}

// newCmdEnv loads configuration, opens the profile store, and builds an
// authenticated API client. The caller must Close the env.
func newCmdEnv(args Args) (*cmdEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, WrapError(err, "loading configuration")
	}
	if args.Server != "" {
		cfg.Server.URL = args.Server
	}
	if args.Tenant != "" {
		cfg.Server.TenantID = args.Tenant
	}

	profilePath, err := cfg.ProfilePath()
	if err != nil {
		return nil, WrapError(err, "resolving profile path")
	}
	store, err := profile.OpenSQLite(profilePath)
	if err != nil {
		return nil, WrapError(err, "opening profile store")
	}

	identity, err := profile.Identity(store)
	if err != nil {
		store.Close()
		return nil, WrapError(err, "resolving identity")
	}

	client := api.NewClientWithConfig(&api.ClientConfig{
		BaseURL:           cfg.Server.URL,
		Timeout:           time.Duration(cfg.Server.TimeoutSecs) * time.Second,
		RequestsPerSecond: cfg.Server.RequestsPerSecond,
	})
	if token, err := profile.LoadCredential(store); err == nil && token != "" {
		client.SetCredential(token)
	}

	return &cmdEnv{
		Config:   cfg,
		Store:    store,
		Client:   client,
		Identity: identity,
	}, nil
}

// Close releases the profile store.
func (e *cmdEnv) Close() {
	if e.Store != nil {
		e.Store.Close()
	}
}

// streamAnswer runs one question against the answer stream, forwarding
// each content fragment to onDelta as it arrives. A stream that ends
// without a final record returns api.ErrStreamTruncated along with
// whatever partial text was received, so callers never report a cut-off
// answer as complete.
func streamAnswer(ctx context.Context, client *api.Client, req api.AskRequest, onDelta func(string)) (string, api.StreamChunk, error) {
	var (
		answer   strings.Builder
		final    api.StreamChunk
		sawFinal bool
	)
	err := client.AskStream(ctx, req, func(chunk api.StreamChunk) {
		if chunk.IsFinal {
			final = chunk
			sawFinal = true
			return
		}
		if chunk.Content == "" {
			return
		}
		answer.WriteString(chunk.Content)
		if onDelta != nil {
			onDelta(chunk.Content)
		}
	})
	if err != nil {
		return answer.String(), final, err
	}
	if !sawFinal {
		return answer.String(), final, api.ErrStreamTruncated
	}
	return answer.String(), final, nil
}
