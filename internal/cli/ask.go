// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question answering for scripts and quick lookups.
//
// The answer streams to stdout token by token. Citations, follow-up
// suggestions and timing go to stderr so `docchat ask ... > out.txt`
// captures only the answer text.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/jeranaias/docchat-tui/internal/api"
	"github.com/jeranaias/docchat-tui/internal/util"
)

// HandleAskCommand asks a single question and streams the answer.
func HandleAskCommand(args Args) error {
	question := util.CleanQuestion(args.Query)
	if question == "" {
		return ErrMissingArgument("question", `docchat ask "What is the leave policy?"`)
	}

	env, err := newCmdEnv(args)
	if err != nil {
		return err
	}
	defer env.Close()

	webSearch := args.WebSearch || (env.Config.Chat.WebSearch && !args.NoWeb)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	req := api.AskRequest{
		Question:       question,
		TenantID:       env.Config.Server.TenantID,
		SessionID:      args.Session,
		UserIdentifier: env.Identity,
		WebSearch:      webSearch,
	}

	if !args.Quiet && !args.JSON && IsStderrTTY() {
		label := "Thinking..."
		if webSearch {
			label = "Searching the web..."
		}
		StderrPrint("%s\n", DimStyle.Render(label))
	}

	var (
		started = time.Now()
		ttft    time.Duration
	)

	answer, final, err := streamAnswer(ctx, env.Client, req, func(delta string) {
		if ttft == 0 {
			ttft = time.Since(started)
		}
		if !args.JSON {
			fmt.Print(delta)
		}
	})
	if err != nil {
		// A truncated stream exits non-zero even though partial text
		// already reached stdout; the failure must never look settled.
		if !args.JSON && answer != "" {
			fmt.Println()
		}
		return err
	}
	total := time.Since(started)

	if args.JSON {
		return printAskJSON(env, question, answer, webSearch, final, total, ttft)
	}

	fmt.Println()
	printAskMetadata(env, final, total, ttft, args)
	return nil
}

// printAskMetadata writes citations, suggestions and timing to stderr.
func printAskMetadata(env *cmdEnv, final api.StreamChunk, total, ttft time.Duration, args Args) {
	if args.Quiet {
		return
	}

	if env.Config.Chat.ShowSources && len(final.RetrievedChunks) > 0 {
		StderrPrint("\n%s\n", SectionStyle.Render("Sources"))
		for _, src := range final.RetrievedChunks {
			line := "  - " + src.SourceFilename
			if src.PageLabel != "" {
				line += ", p. " + src.PageLabel
			}
			if src.IsWebSource() {
				line += "  " + src.SourceURL(env.Config.Server.URL)
			}
			StderrPrint("%s\n", SourceStyle.Render(line))
		}
	}

	if env.Config.Chat.ShowSuggestions && len(final.Suggestions) > 0 {
		StderrPrint("\n%s\n", SectionStyle.Render("Follow-ups"))
		for _, s := range final.Suggestions {
			StderrPrint("%s\n", SuggestionStyle.Render("  ? "+s))
		}
	}

	if env.Config.Chat.ShowStats {
		stats := fmt.Sprintf("answered in %s", formatDuration(total))
		if ttft > 0 {
			stats += fmt.Sprintf(" (first token %s)", formatDuration(ttft))
		}
		StderrPrint("\n%s\n", DimStyle.Render(stats))
	}

	if args.Verbose && final.SessionID != "" {
		StderrPrint("%s\n", DimStyle.Render("session: "+final.SessionID))
	}
}

// printAskJSON emits the complete answer record as one JSON document.
func printAskJSON(env *cmdEnv, question, answer string, webSearch bool, final api.StreamChunk, total, ttft time.Duration) error {
	data := AskData{
		Question:   question,
		Answer:     answer,
		SessionID:  final.SessionID,
		MessageID:  final.AssistantMessageID,
		WebSearch:  webSearch,
		DurationMs: total.Milliseconds(),
		TTFTMs:     ttft.Milliseconds(),
	}
	for _, src := range final.RetrievedChunks {
		data.Sources = append(data.Sources, SourceData{
			Filename: src.SourceFilename,
			Page:     src.PageLabel,
			URL:      src.SourceURL(env.Config.Server.URL),
			Web:      src.IsWebSource(),
		})
	}
	data.Suggestions = final.Suggestions
	return NewJSONResponse("ask", data).Print()
}

// HandleVersionCommand prints version information, honoring --json.
func HandleVersionCommand(args Args) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoOS:      runtime.GOOS,
			GoArch:    runtime.GOARCH,
		}).Print()
	}
	PrintVersion()
	return nil
}
