// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// session_cmd.go - Session management: list, show, export, delete.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jeranaias/docchat-tui/internal/api"
)

// sessionCmdTimeout bounds each non-streaming session call.
const sessionCmdTimeout = 15 * time.Second

// HandleSessionCommand dispatches session subcommands.
func HandleSessionCommand(args Args) error {
	env, err := newCmdEnv(args)
	if err != nil {
		return err
	}
	defer env.Close()

	switch args.Subcommand {
	case "list", "ls", "l", "":
		return handleSessionList(env, args)
	case "show", "view":
		return handleSessionShow(env, args)
	case "export":
		return handleSessionExport(env, args)
	case "delete", "rm":
		return handleSessionDelete(env, args)
	default:
		return NewValidationError("subcommand", args.Subcommand,
			"expected list, show, export, or delete")
	}
}

// =============================================================================
// LIST
// =============================================================================

func handleSessionList(env *cmdEnv, args Args) error {
	ctx, cancel := context.WithTimeout(context.Background(), sessionCmdTimeout)
	defer cancel()

	sessions, err := env.Client.ListSessions(ctx, env.Config.Server.TenantID)
	if err != nil {
		return err
	}

	if args.JSON {
		data := SessionListData{Count: len(sessions)}
		for _, s := range sessions {
			data.Sessions = append(data.Sessions, SessionRow{
				ID:           s.ID,
				Title:        s.Title,
				MessageCount: s.MessageCount,
				UpdatedAt:    s.UpdatedAt,
			})
		}
		return NewJSONResponse("sessions.list", data).Print()
	}

	if len(sessions) == 0 {
		fmt.Println(DimStyle.Render("No saved sessions."))
		return nil
	}

	fmt.Println(TitleStyle.Render("Sessions"))
	for _, s := range sessions {
		fmt.Printf("%s  %-40s  %3d msgs  %s\n",
			DimStyle.Render(s.ID),
			ValueStyle.Render(truncateString(s.Title, 40)),
			s.MessageCount,
			DimStyle.Render(formatTimestamp(s.UpdatedAt)))
	}
	fmt.Printf("\n%s\n", DimStyle.Render(fmt.Sprintf("%d session(s)", len(sessions))))
	return nil
}

// =============================================================================
// SHOW
// =============================================================================

func handleSessionShow(env *cmdEnv, args Args) error {
	if args.Session == "" {
		return ErrMissingArgument("session id", "docchat sessions show <id>")
	}

	ctx, cancel := context.WithTimeout(context.Background(), sessionCmdTimeout)
	defer cancel()

	detail, err := env.Client.GetSession(ctx, args.Session)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("sessions.show", detail).Print()
	}

	fmt.Println(TitleStyle.Render(detail.Title))
	fmt.Printf("%s %s   %s %d   %s %s\n\n",
		DimStyle.Render("id:"), detail.ID,
		DimStyle.Render("messages:"), len(detail.Messages),
		DimStyle.Render("updated:"), formatTimestamp(detail.UpdatedAt))

	for _, msg := range detail.Messages {
		printTranscriptMessage(msg)
	}
	return nil
}

func printTranscriptMessage(msg api.MessageRecord) {
	label := InfoStyle.Render("You")
	if msg.Role == "assistant" {
		label = HighlightStyle.Render("Assistant")
		if msg.Rating > 0 {
			label += " " + SuccessStyle.Render("[+1]")
		} else if msg.Rating < 0 {
			label += " " + ErrorStyle.Render("[-1]")
		}
	}
	fmt.Printf("%s %s\n", label, DimStyle.Render(formatTimestamp(msg.CreatedAt)))
	fmt.Println(WrapText(msg.Content, GetTerminalWidth()))
	fmt.Println()
}

// =============================================================================
// EXPORT
// =============================================================================

func handleSessionExport(env *cmdEnv, args Args) error {
	if args.Session == "" {
		return ErrMissingArgument("session id", "docchat sessions export <id> --format md")
	}

	ctx, cancel := context.WithTimeout(context.Background(), sessionCmdTimeout)
	defer cancel()

	detail, err := env.Client.GetSession(ctx, args.Session)
	if err != nil {
		return err
	}

	format := strings.ToLower(args.Options["format"])
	if format == "" {
		format = "txt"
	}

	var out string
	switch format {
	case "json":
		raw, err := json.MarshalIndent(detail, "", "  ")
		if err != nil {
			return WrapError(err, "encoding transcript")
		}
		out = string(raw) + "\n"
	case "md", "markdown":
		out = exportMarkdown(detail)
	case "txt", "text":
		out = exportText(detail)
	default:
		return NewValidationError("format", format, "expected json, md, or txt")
	}

	if path := args.Options["output"]; path != "" {
		if err := os.WriteFile(path, []byte(out), 0644); err != nil {
			return WrapError(err, "writing "+path)
		}
		if !args.Quiet {
			fmt.Printf("%s exported to %s\n", RenderStatus("ok"), path)
		}
		return nil
	}
	fmt.Print(out)
	return nil
}

func exportMarkdown(detail *api.SessionDetail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", detail.Title)
	fmt.Fprintf(&b, "Exported %s from session %s\n\n",
		time.Now().Format("2006-01-02"), detail.ID)
	for _, msg := range detail.Messages {
		if msg.Role == "assistant" {
			fmt.Fprintf(&b, "**Assistant:**\n\n%s\n\n", msg.Content)
		} else {
			fmt.Fprintf(&b, "**You:** %s\n\n", msg.Content)
		}
	}
	return b.String()
}

func exportText(detail *api.SessionDetail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n\n", detail.Title, strings.Repeat("=", len(detail.Title)))
	for _, msg := range detail.Messages {
		role := "You"
		if msg.Role == "assistant" {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "[%s] %s\n%s\n\n",
			msg.CreatedAt.Local().Format("2006-01-02 15:04"), role, msg.Content)
	}
	return b.String()
}

// =============================================================================
// DELETE
// =============================================================================

func handleSessionDelete(env *cmdEnv, args Args) error {
	if args.Session == "" {
		return ErrMissingArgument("session id", "docchat sessions delete <id> --confirm")
	}

	if args.Options["confirm"] != "true" {
		if !CanPrompt() {
			return NewValidationError("confirm", "",
				"deletion requires --confirm when not running interactively")
		}
		if !promptYesNo(fmt.Sprintf("Delete session %s?", args.Session)) {
			fmt.Println(DimStyle.Render("Cancelled."))
			return nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), sessionCmdTimeout)
	defer cancel()

	if err := env.Client.DeleteSession(ctx, args.Session); err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("sessions.delete", map[string]string{"id": args.Session}).Print()
	}
	fmt.Printf("%s deleted session %s\n", RenderStatus("ok"), args.Session)
	return nil
}
