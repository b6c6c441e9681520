// docchat - a terminal client for document-grounded chat.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docchat-tui/internal/api"
	"github.com/jeranaias/docchat-tui/internal/chat"
	"github.com/jeranaias/docchat-tui/internal/cli"
	"github.com/jeranaias/docchat-tui/internal/config"
	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/profile"
	"github.com/jeranaias/docchat-tui/internal/session"
	chatui "github.com/jeranaias/docchat-tui/internal/ui/chat"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with the cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		os.Exit(runTUI(args))
	case cli.CmdAsk:
		os.Exit(cli.HandleAsk(args))
	case cli.CmdChat:
		os.Exit(cli.HandleChat(args))
	case cli.CmdSession:
		os.Exit(cli.HandleSession(args))
	case cli.CmdConfig:
		os.Exit(cli.HandleConfig(args))
	case cli.CmdLogin:
		os.Exit(cli.HandleLogin(args))
	case cli.CmdLogout:
		os.Exit(cli.HandleLogout(args))
	case cli.CmdWhoami:
		os.Exit(cli.HandleWhoami(args))
	case cli.CmdDoctor:
		os.Exit(cli.HandleDoctor(args))
	case cli.CmdVersion:
		if err := cli.HandleVersionCommand(args); err != nil {
			os.Exit(cli.ExitGeneralError)
		}
	case cli.CmdHelp:
		cli.PrintUsage()
	default:
		cli.PrintUsage()
		os.Exit(cli.ExitUsageError)
	}
}

// runTUI wires the full-screen interface: config, profile store, API
// client, session manager, orchestrator and the Bubble Tea program.
func runTUI(args cli.Args) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return cli.ExitConfigError
	}
	if args.Server != "" {
		cfg.Server.URL = args.Server
	}
	if args.Tenant != "" {
		cfg.Server.TenantID = args.Tenant
	}
	config.SetGlobal(cfg)

	profilePath, err := cfg.ProfilePath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving profile path: %v\n", err)
		return cli.ExitConfigError
	}
	store, err := profile.OpenSQLite(profilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening profile store: %v\n", err)
		return cli.ExitGeneralError
	}
	defer store.Close()

	client := api.NewClientWithConfig(&api.ClientConfig{
		BaseURL:           cfg.Server.URL,
		Timeout:           time.Duration(cfg.Server.TimeoutSecs) * time.Second,
		RequestsPerSecond: cfg.Server.RequestsPerSecond,
	})
	if token, err := profile.LoadCredential(store); err == nil && token != "" {
		client.SetCredential(token)
	}

	conv := model.NewConversation()
	sessions, err := session.NewManager(client, store, conv, cfg.Server.TenantID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing sessions: %v\n", err)
		return cli.ExitGeneralError
	}

	// The bridge carries orchestrator events into the Bubble Tea loop.
	// Deltas land in the streaming buffer; everything else is Sent once
	// the program is attached below.
	bridge := chatui.NewEventBridge(chatui.NewStreamingBuffer())

	orch := chat.NewOrchestrator(client, conv, chat.Options{
		TenantID: cfg.Server.TenantID,
		Identity: sessions.Identity,
		Notify:   bridge.Notify,
	})

	theme := styles.NewThemeForMode(cfg.UI.Theme)
	m := chatui.New(theme, orch, sessions, bridge, chatui.Options{
		WebSearch:       cfg.Chat.WebSearch,
		Markdown:        cfg.UI.Markdown,
		ShowSources:     cfg.Chat.ShowSources,
		ShowSuggestions: cfg.Chat.ShowSuggestions,
		ShowStats:       cfg.Chat.ShowStats,
		Identity:        sessions.Identity(),
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	bridge.Attach(p)

	// Live-reload the config file so edits land without a restart.
	if path, err := config.ConfigPathTOML(); err == nil {
		if watcher, err := config.NewWatcher(path, func(next *config.Config) {
			config.SetGlobal(next)
		}); err == nil {
			defer watcher.Close()
		}
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		return cli.ExitGeneralError
	}
	return cli.ExitSuccess
}
