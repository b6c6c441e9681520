// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the docchat command line surface.
//
// The binary defaults to the full-screen TUI; everything else is a
// subcommand intended for scripts and quick one-offs:
//
//	docchat                    full-screen chat (default)
//	docchat ask "question"     one streamed answer to stdout
//	docchat chat               line-oriented REPL for dumb terminals
//	docchat sessions ...       list / show / export / delete sessions
//	docchat login / logout     account credential management
//	docchat config ...         show / get / set configuration
//	docchat doctor             connectivity and environment checks
//
// Parsing is deliberately flag-package-free: Parse walks os.Args once,
// peels global flags, and hands the remainder to per-command parsers.
// Output honors NO_COLOR and degrades to plain text when stdout is not
// a terminal, so every command is pipe-safe.
package cli
