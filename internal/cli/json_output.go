// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - Structured JSON output for scriptable commands.
//
// Every command accepts --json and emits exactly one JSON document on
// stdout, so docchat composes with jq and CI pipelines.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// JSONResponse is the envelope for all JSON command output.
type JSONResponse struct {
	Success   bool        `json:"success"`
	Command   string      `json:"command"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// NewJSONResponse creates a success response for a command.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Command:   command,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// Print writes the response to stdout with indentation.
func (r *JSONResponse) Print() error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// StderrPrint writes a status line to stderr, keeping stdout clean for
// the JSON document.
func StderrPrint(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
}

// =============================================================================
// COMMAND DATA SHAPES
// =============================================================================

// AskData is the JSON payload of a completed ask command.
type AskData struct {
	Question    string       `json:"question"`
	Answer      string       `json:"answer"`
	SessionID   string       `json:"session_id,omitempty"`
	MessageID   string       `json:"message_id,omitempty"`
	WebSearch   bool         `json:"web_search"`
	Sources     []SourceData `json:"sources,omitempty"`
	Suggestions []string     `json:"suggestions,omitempty"`
	DurationMs  int64        `json:"duration_ms"`
	TTFTMs      int64        `json:"ttft_ms,omitempty"`
}

// SourceData is one citation in JSON output.
type SourceData struct {
	Filename string `json:"filename"`
	Page     string `json:"page,omitempty"`
	URL      string `json:"url,omitempty"`
	Web      bool   `json:"web"`
}

// SessionListData is the JSON payload of sessions list.
type SessionListData struct {
	Sessions []SessionRow `json:"sessions"`
	Count    int          `json:"count"`
}

// SessionRow is one session entry in JSON output.
type SessionRow struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// WhoamiData is the JSON payload of whoami.
type WhoamiData struct {
	Identity string `json:"identity"`
	Guest    bool   `json:"guest"`
	Server   string `json:"server"`
	Tenant   string `json:"tenant"`
}

// DoctorData is the JSON payload of doctor.
type DoctorData struct {
	Checks  []DoctorCheck `json:"checks"`
	Passed  int           `json:"passed"`
	Warned  int           `json:"warned"`
	Failed  int           `json:"failed"`
	Healthy bool          `json:"healthy"`
}

// DoctorCheck is one health check result.
type DoctorCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Fix     string `json:"fix,omitempty"`
}

// VersionData is the JSON payload of version.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoOS      string `json:"os"`
	GoArch    string `json:"arch"`
}
