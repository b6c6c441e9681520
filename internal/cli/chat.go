// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-oriented interactive chat for docchat.
//
// Handles "docchat chat": a liner-backed REPL for terminals where the
// full-screen TUI is unwanted (ssh sessions, screen readers, scripts
// driving a pty). Answers stream to stdout as they arrive.
//
// Interactive commands (during chat):
//   /help, /h           Show available commands
//   /new, /n            Start a fresh conversation
//   /web                Toggle web search for subsequent questions
//   /sessions           List saved sessions
//   /load <id>          Resume a saved session
//   /status, /s         Show session state and statistics
//   /history            Show the conversation so far
//   /quit, /q           Exit chat
//   Ctrl+C              Cancel the current answer
//   Ctrl+D              Exit chat
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/jeranaias/docchat-tui/internal/api"
	"github.com/jeranaias/docchat-tui/internal/config"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
	"github.com/jeranaias/docchat-tui/internal/util"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	commandStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	warningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	summaryHeaderStyle = lipgloss.NewStyle().
				Foreground(styles.Cyan).
				Bold(true)
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	historyFile := filepath.Join(configDir, "chat_history")

	cli := &ChatCLI{
		line:        line,
		historyFile: historyFile,
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt. Arrow keys
// navigate history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// chatEntry is one local transcript line.
type chatEntry struct {
	Role    string
	Content string
}

// ChatSession holds the state for an interactive chat session.
type ChatSession struct {
	Env   *cmdEnv
	Quiet bool

	// Conversation state
	SessionID  string
	WebSearch  bool
	Transcript []chatEntry

	// Statistics
	StartTime     time.Time
	Questions     int
	TotalDuration time.Duration

	// Cancel function for the in-flight answer. Written by the REPL
	// goroutine, invoked from the signal handler.
	cancelFunc atomic.Pointer[context.CancelFunc]

	InputCLI *ChatCLI
}

// NewChatSession creates a new chat session.
func NewChatSession(env *cmdEnv, args Args) *ChatSession {
	return &ChatSession{
		Env:       env,
		Quiet:     args.Quiet,
		SessionID: args.Session,
		WebSearch: args.WebSearch || env.Config.Chat.WebSearch,
		StartTime: time.Now(),
		InputCLI:  NewChatCLI(),
	}
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChatCommand handles the "chat" command with full interactive support.
func HandleChatCommand(args Args) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
	}

	env, err := newCmdEnv(args)
	if err != nil {
		return err
	}
	defer env.Close()

	session := NewChatSession(env, args)
	defer session.InputCLI.Close()

	if session.SessionID != "" {
		if err := session.resume(session.SessionID); err != nil {
			return err
		}
	}

	if !session.Quiet {
		printWelcome(session)
	}

	// First Ctrl+C cancels the in-flight answer; at the prompt liner
	// reports it as ErrPromptAborted instead.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		for range sigChan {
			if cancel := session.cancelFunc.Swap(nil); cancel != nil {
				(*cancel)()
				fmt.Fprintln(os.Stderr, "\n"+warningStyle.Render("[Cancelled]"))
			}
		}
	}()

	for {
		input, err := session.InputCLI.ReadInput(promptStyle.Render("docchat> "))
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D, or a closed stdin all end
			// the session gracefully.
			fmt.Println()
			printExitSummary(session)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			shouldContinue, err := handleSlashCommand(input, session)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			if !shouldContinue {
				printExitSummary(session)
				return nil
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			printExitSummary(session)
			return nil
		}

		if err := session.processQuestion(input); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
	}
}

// =============================================================================
// QUESTION PROCESSING
// =============================================================================

// processQuestion sends a question to the answer service and streams
// the response to stdout.
func (s *ChatSession) processQuestion(input string) error {
	question := util.CleanQuestion(input)
	if question == "" {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelFunc.Store(&cancel)
	defer func() {
		s.cancelFunc.Store(nil)
		cancel()
	}()

	req := api.AskRequest{
		Question:       question,
		TenantID:       s.Env.Config.Server.TenantID,
		SessionID:      s.SessionID,
		UserIdentifier: s.Env.Identity,
		WebSearch:      s.WebSearch,
	}

	if !s.Quiet && s.WebSearch {
		fmt.Println(infoStyle.Render("  (searching the web)"))
	}
	fmt.Println()

	started := time.Now()
	answer, final, err := streamAnswer(ctx, s.Env.Client, req, func(delta string) {
		fmt.Print(delta)
	})
	if err != nil {
		// A failed or truncated stream never lands in the transcript;
		// the partial text on screen is followed by the error line.
		if answer != "" {
			fmt.Println()
		}
		return err
	}
	fmt.Println()
	fmt.Println()

	if final.SessionID != "" {
		s.SessionID = final.SessionID
	}
	s.Transcript = append(s.Transcript,
		chatEntry{Role: "user", Content: question},
		chatEntry{Role: "assistant", Content: answer},
	)
	s.Questions++
	s.TotalDuration += time.Since(started)

	if !s.Quiet {
		s.printAnswerFooter(final, time.Since(started))
	}
	return nil
}

// printAnswerFooter shows citations and timing under a settled answer.
func (s *ChatSession) printAnswerFooter(final api.StreamChunk, took time.Duration) {
	if s.Env.Config.Chat.ShowSources && len(final.RetrievedChunks) > 0 {
		for _, src := range final.RetrievedChunks {
			line := "  [" + src.SourceFilename
			if src.PageLabel != "" {
				line += ", p. " + src.PageLabel
			}
			line += "]"
			fmt.Println(SourceStyle.Render(line))
		}
	}
	if s.Env.Config.Chat.ShowSuggestions && len(final.Suggestions) > 0 {
		for _, sug := range final.Suggestions {
			fmt.Println(SuggestionStyle.Render("  ? " + sug))
		}
	}
	if s.Env.Config.Chat.ShowStats {
		fmt.Println(infoStyle.Render("  " + formatDuration(took)))
	}
	fmt.Println()
}

// resume loads a stored session transcript into the local state.
func (s *ChatSession) resume(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	detail, err := s.Env.Client.GetSession(ctx, id)
	if err != nil {
		return WrapError(err, "loading session "+id)
	}
	s.SessionID = detail.ID
	s.Transcript = s.Transcript[:0]
	for _, msg := range detail.Messages {
		s.Transcript = append(s.Transcript, chatEntry{Role: msg.Role, Content: msg.Content})
	}
	if !s.Quiet {
		fmt.Printf("%s %s (%d messages)\n\n",
			commandStyle.Render("Resumed:"),
			detail.Title, len(detail.Messages))
	}
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand dispatches an interactive command. Returns false
// when the session should end.
func handleSlashCommand(cmd string, session *ChatSession) (bool, error) {
	fields := strings.Fields(cmd)
	name := strings.ToLower(fields[0])

	switch name {
	case "/help", "/h", "/?":
		printHelp()
		return true, nil

	case "/new", "/n":
		session.SessionID = ""
		session.Transcript = session.Transcript[:0]
		fmt.Println(commandStyle.Render("Started a new conversation."))
		return true, nil

	case "/web", "/w":
		session.WebSearch = !session.WebSearch
		state := "off"
		if session.WebSearch {
			state = "on"
		}
		fmt.Println(commandStyle.Render("Web search " + state + "."))
		return true, nil

	case "/sessions", "/ls":
		return true, printSessionList(session)

	case "/load":
		if len(fields) < 2 {
			return true, ErrMissingArgument("session id", "/load <id>")
		}
		return true, session.resume(fields[1])

	case "/status", "/s":
		printStatus(session)
		return true, nil

	case "/history":
		printHistory(session)
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command %q (try /help)", name)
	}
}

// printSessionList shows the stored sessions for the tenant.
func printSessionList(session *ChatSession) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sessions, err := session.Env.Client.ListSessions(ctx, session.Env.Config.Server.TenantID)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println(infoStyle.Render("No saved sessions."))
		return nil
	}
	for _, info := range sessions {
		marker := "  "
		if info.ID == session.SessionID {
			marker = commandStyle.Render("> ")
		}
		fmt.Printf("%s%s  %s (%d messages, %s)\n",
			marker,
			DimStyle.Render(info.ID),
			truncateString(info.Title, 40),
			info.MessageCount,
			formatTimestamp(info.UpdatedAt))
	}
	return nil
}

// =============================================================================
// DISPLAY
// =============================================================================

func printWelcome(session *ChatSession) {
	fmt.Println()
	fmt.Println(welcomeStyle.Render("docchat interactive chat"))
	fmt.Printf("%s %s\n",
		infoStyle.Render("Server:"),
		session.Env.Config.Server.URL)
	fmt.Printf("%s %s\n",
		infoStyle.Render("Identity:"),
		session.Env.Identity)
	if session.WebSearch {
		fmt.Println(warningStyle.Render("Web search is on."))
	}
	fmt.Println(infoStyle.Render("Type /help for commands, /quit to exit."))
	fmt.Println()
}

func printHelp() {
	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Commands"))
	rows := [][2]string{
		{"/help, /h", "Show this help"},
		{"/new, /n", "Start a fresh conversation"},
		{"/web", "Toggle web search"},
		{"/sessions", "List saved sessions"},
		{"/load <id>", "Resume a saved session"},
		{"/status, /s", "Show session state"},
		{"/history", "Show the conversation so far"},
		{"/quit, /q", "Exit chat"},
	}
	for _, row := range rows {
		fmt.Printf("  %s %s\n",
			commandStyle.Render(fmt.Sprintf("%-12s", row[0])),
			infoStyle.Render(row[1]))
	}
	fmt.Println()
}

func printStatus(session *ChatSession) {
	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Session"))
	sessionID := session.SessionID
	if sessionID == "" {
		sessionID = "(not yet persisted)"
	}
	web := "off"
	if session.WebSearch {
		web = "on"
	}
	fmt.Printf("  %s %s\n", RenderLabel("Session:"), ValueStyle.Render(sessionID))
	fmt.Printf("  %s %s\n", RenderLabel("Web search:"), ValueStyle.Render(web))
	fmt.Printf("  %s %s\n", RenderLabel("Questions:"), ValueStyle.Render(fmt.Sprintf("%d", session.Questions)))
	fmt.Printf("  %s %s\n", RenderLabel("Elapsed:"), ValueStyle.Render(formatDuration(time.Since(session.StartTime))))
	fmt.Println()
}

func printHistory(session *ChatSession) {
	if len(session.Transcript) == 0 {
		fmt.Println(infoStyle.Render("No messages yet."))
		return
	}
	fmt.Println()
	for _, entry := range session.Transcript {
		label := infoStyle.Render("you:")
		if entry.Role == "assistant" {
			label = commandStyle.Render("bot:")
		}
		fmt.Printf("%s %s\n", label, truncateString(entry.Content, 100))
	}
	fmt.Println()
}

func printExitSummary(session *ChatSession) {
	if session.Quiet || session.Questions == 0 {
		return
	}
	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Session summary"))
	fmt.Printf("  %s %d\n", infoStyle.Render("Questions answered:"), session.Questions)
	fmt.Printf("  %s %s\n", infoStyle.Render("Total answer time:"), formatDuration(session.TotalDuration))
	if session.SessionID != "" {
		fmt.Printf("  %s %s\n", infoStyle.Render("Saved as session:"), session.SessionID)
	}
	fmt.Println()
}
