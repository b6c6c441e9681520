// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command routing for docchat.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdSession
	CmdConfig
	CmdLogin
	CmdLogout
	CmdWhoami
	CmdDoctor
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool // Output in JSON format
	Server  string
	Tenant  string

	// Command-specific
	Query      string
	WebSearch  bool
	NoWeb      bool // explicit --no-web wins over config default
	Session    string
	Subcommand string

	// Raw args (remaining after flag parsing)
	Raw []string

	// Options holds command-specific named options (e.g., --format, --output)
	Options map[string]string
}

const usageText = `docchat - chat with your document corpus from the terminal

Docchat is a terminal client for a retrieval-augmented answer service.
Questions are answered from the documents indexed for your tenant,
streamed token by token, with source citations attached.

Usage:
  docchat                      Start the TUI (default)
  docchat ask "question"       Ask one question, stream the answer to stdout
  docchat chat                 Line-oriented interactive chat
  docchat sessions [subcmd]    Session management
  docchat login                Sign in with email and password
    --register                 Create the account first
  docchat logout               Discard the stored credential
  docchat whoami               Show the active identity
  docchat config [subcmd]      Configuration
  docchat doctor               Connectivity and environment checks
  docchat version              Print version information

Ask:
  docchat ask "question"
    --web                      Augment retrieval with a live web search
    --session ID               Continue an existing session
    --json                     Emit the full answer record as JSON

Chat:
  docchat chat
    --web                      Start with web search enabled
    --session ID               Resume an existing session
  Slash commands inside chat: /help /new /web /sessions /load /quit

Sessions:
  docchat sessions list        List sessions for the tenant
  docchat sessions show <id>   Show a session transcript
  docchat sessions export <id> Export a transcript
    --format json|md|txt       Export format (default: txt)
  docchat sessions delete <id> Delete a session
    --confirm                  Skip the confirmation prompt

Config:
  docchat config show          Show current configuration
  docchat config get <key>     Print one value
  docchat config set <key> <value>
  docchat config path          Print the config file location
  docchat config reset         Restore defaults
    --confirm                  Skip the confirmation prompt

Global Flags:
  --server URL    Override the answer service URL
  --tenant ID     Override the tenant
  -q, --quiet     Minimal output
  -v, --verbose   Debug output
  --json          Output in JSON format

Examples:
  docchat ask "What is the leave policy?"
  docchat ask --web "Any recent changes to GDPR retention rules?"
  docchat sessions export 1 --format md > transcript.md
  docchat config set server.url https://docs.example.com
  NO_COLOR=1 docchat ask "summary of the onboarding guide" | less

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("docchat version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
	fmt.Printf("  Platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses the given argument list. Split out from Parse so
// tests can drive it without touching os.Args.
func ParseArgs(args []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(args)

	// No command defaults to the TUI
	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs

	case "ask":
		parseAskArgs(&parsedArgs, remaining)
		return CmdAsk, parsedArgs

	case "chat":
		parseChatArgs(&parsedArgs, remaining)
		return CmdChat, parsedArgs

	case "session", "sessions":
		parseSessionArgs(&parsedArgs, remaining)
		return CmdSession, parsedArgs

	case "config":
		parseConfigArgs(&parsedArgs, remaining)
		return CmdConfig, parsedArgs

	case "login", "signin":
		for _, arg := range remaining {
			if arg == "--register" {
				parsedArgs.Options["register"] = "true"
			}
		}
		return CmdLogin, parsedArgs

	case "logout", "signout":
		return CmdLogout, parsedArgs

	case "whoami":
		return CmdWhoami, parsedArgs

	case "doctor":
		return CmdDoctor, parsedArgs

	case "version", "-v", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Unknown word: treat the whole tail as an ask question, so
		// `docchat what is the refund policy` just works.
		parsedArgs.Raw = append([]string{cmd}, remaining...)
		parseAskArgs(&parsedArgs, parsedArgs.Raw)
		return CmdAsk, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	parsedArgs := Args{
		Options: make(map[string]string),
	}

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "--json":
			parsedArgs.JSON = true
		case "--server":
			if i+1 < len(args) {
				i++
				parsedArgs.Server = args[i]
			}
		case "--tenant":
			if i+1 < len(args) {
				i++
				parsedArgs.Tenant = args[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--server="):
				parsedArgs.Server = strings.TrimPrefix(arg, "--server=")
			case strings.HasPrefix(arg, "--tenant="):
				parsedArgs.Tenant = strings.TrimPrefix(arg, "--tenant=")
			default:
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsedArgs
}

// parseAskArgs parses ask command specific arguments.
func parseAskArgs(args *Args, remaining []string) {
	var query []string

	i := 0
	for i < len(remaining) {
		arg := remaining[i]

		switch arg {
		case "-w", "--web":
			args.WebSearch = true
		case "--no-web":
			args.NoWeb = true
		case "-s", "--session":
			if i+1 < len(remaining) {
				i++
				args.Session = remaining[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--session="):
				args.Session = strings.TrimPrefix(arg, "--session=")
			case strings.HasPrefix(arg, "--"):
				// Unknown option: record it so handlers can reject or ignore
				key := strings.TrimPrefix(arg, "--")
				if k, v, ok := strings.Cut(key, "="); ok {
					args.Options[k] = v
				} else {
					args.Options[key] = "true"
				}
			default:
				query = append(query, arg)
			}
		}
		i++
	}

	args.Query = strings.Join(query, " ")
}

// parseChatArgs parses chat command specific arguments.
func parseChatArgs(args *Args, remaining []string) {
	i := 0
	for i < len(remaining) {
		arg := remaining[i]

		switch arg {
		case "-w", "--web":
			args.WebSearch = true
		case "-s", "--session":
			if i+1 < len(remaining) {
				i++
				args.Session = remaining[i]
			}
		default:
			if strings.HasPrefix(arg, "--session=") {
				args.Session = strings.TrimPrefix(arg, "--session=")
			}
		}
		i++
	}
}

// parseSessionArgs parses session command arguments: subcommand, target
// id, and named options like --format and --confirm.
func parseSessionArgs(args *Args, remaining []string) {
	if len(remaining) == 0 {
		args.Subcommand = "list"
		return
	}
	args.Subcommand = strings.ToLower(remaining[0])
	remaining = remaining[1:]

	i := 0
	for i < len(remaining) {
		arg := remaining[i]

		switch {
		case arg == "--confirm":
			args.Options["confirm"] = "true"
		case arg == "--format":
			if i+1 < len(remaining) {
				i++
				args.Options["format"] = remaining[i]
			}
		case strings.HasPrefix(arg, "--format="):
			args.Options["format"] = strings.TrimPrefix(arg, "--format=")
		case arg == "--output", arg == "-o":
			if i+1 < len(remaining) {
				i++
				args.Options["output"] = remaining[i]
			}
		case strings.HasPrefix(arg, "--output="):
			args.Options["output"] = strings.TrimPrefix(arg, "--output=")
		default:
			if args.Session == "" && !strings.HasPrefix(arg, "--") {
				args.Session = arg
			}
		}
		i++
	}
}

// parseConfigArgs parses config command arguments.
func parseConfigArgs(args *Args, remaining []string) {
	if len(remaining) == 0 {
		args.Subcommand = "show"
		return
	}
	args.Subcommand = strings.ToLower(remaining[0])

	var positional []string
	for _, arg := range remaining[1:] {
		if arg == "--confirm" {
			args.Options["confirm"] = "true"
			continue
		}
		positional = append(positional, arg)
	}
	args.Raw = positional
}

// Handle wrappers: each prints the mapped error and returns the process
// exit code, so main stays a thin switch.

// HandleAsk executes the ask command.
func HandleAsk(args Args) int {
	if err := HandleAskCommand(args); err != nil {
		DisplayError(err, args.JSON)
		return GetExitCode(err)
	}
	return 0
}

// HandleChat executes the interactive chat command.
func HandleChat(args Args) int {
	if err := HandleChatCommand(args); err != nil {
		DisplayError(err, args.JSON)
		return GetExitCode(err)
	}
	return 0
}

// HandleSession executes the session management command.
func HandleSession(args Args) int {
	if err := HandleSessionCommand(args); err != nil {
		DisplayError(err, args.JSON)
		return GetExitCode(err)
	}
	return 0
}

// HandleConfig executes the config command.
func HandleConfig(args Args) int {
	if err := HandleConfigCommand(args); err != nil {
		DisplayError(err, args.JSON)
		return GetExitCode(err)
	}
	return 0
}

// HandleLogin executes the login command.
func HandleLogin(args Args) int {
	if err := HandleLoginCommand(args); err != nil {
		DisplayError(err, args.JSON)
		return GetExitCode(err)
	}
	return 0
}

// HandleLogout executes the logout command.
func HandleLogout(args Args) int {
	if err := HandleLogoutCommand(args); err != nil {
		DisplayError(err, args.JSON)
		return GetExitCode(err)
	}
	return 0
}

// HandleWhoami executes the whoami command.
func HandleWhoami(args Args) int {
	if err := HandleWhoamiCommand(args); err != nil {
		DisplayError(err, args.JSON)
		return GetExitCode(err)
	}
	return 0
}

// HandleDoctor executes the doctor command.
func HandleDoctor(args Args) int {
	if err := HandleDoctorCommand(args); err != nil {
		DisplayError(err, args.JSON)
		return GetExitCode(err)
	}
	return 0
}
