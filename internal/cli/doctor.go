// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// doctor.go - Environment and connectivity diagnostics.
//
// Runs a fixed battery of checks and prints one line per check. Exit
// code is non-zero when any check fails, so doctor doubles as a probe
// in provisioning scripts.
package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jeranaias/docchat-tui/internal/api"
	"github.com/jeranaias/docchat-tui/internal/config"
	"github.com/jeranaias/docchat-tui/internal/profile"
)

// CheckStatus is the outcome of one health check.
type CheckStatus int

const (
	CheckPass CheckStatus = iota
	CheckWarn
	CheckFail
)

func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarn:
		return "warn"
	default:
		return "fail"
	}
}

// Symbol returns the rendered status indicator.
func (s CheckStatus) Symbol() string {
	switch s {
	case CheckPass:
		return RenderStatus("ok")
	case CheckWarn:
		return RenderStatus("warn")
	default:
		return RenderStatus("fail")
	}
}

// HealthCheck is one diagnostic result.
type HealthCheck struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // suggested remediation, shown on warn/fail
}

// Render formats the check as a single output line.
func (c *HealthCheck) Render() string {
	line := fmt.Sprintf("%s %-22s %s", c.Status.Symbol(), c.Name, c.Message)
	if c.Status != CheckPass && c.Fix != "" {
		line += "\n" + DimStyle.Render("       fix: "+c.Fix)
	}
	return line
}

// HandleDoctorCommand runs all checks and reports the results.
func HandleDoctorCommand(args Args) error {
	checks := runAllChecks(args)

	var passed, warned, failed int
	for _, c := range checks {
		switch c.Status {
		case CheckPass:
			passed++
		case CheckWarn:
			warned++
		default:
			failed++
		}
	}

	if args.JSON {
		data := DoctorData{
			Passed:  passed,
			Warned:  warned,
			Failed:  failed,
			Healthy: failed == 0,
		}
		for _, c := range checks {
			data.Checks = append(data.Checks, DoctorCheck{
				Name:    c.Name,
				Status:  c.Status.String(),
				Message: c.Message,
				Fix:     c.Fix,
			})
		}
		if err := NewJSONResponse("doctor", data).Print(); err != nil {
			return err
		}
	} else {
		fmt.Println(TitleStyle.Render("docchat doctor"))
		for _, c := range checks {
			fmt.Println(c.Render())
		}
		fmt.Printf("\n%d passed, %d warnings, %d failed\n", passed, warned, failed)
	}

	if failed > 0 {
		return fmt.Errorf("%d health check(s) failed", failed)
	}
	return nil
}

// runAllChecks executes the diagnostic battery in order.
func runAllChecks(args Args) []*HealthCheck {
	cfg, cfgCheck := checkConfig(args)
	checks := []*HealthCheck{cfgCheck}

	checks = append(checks, checkConfigDir())
	checks = append(checks, checkProfileStore(cfg))
	checks = append(checks, checkServerReachable(cfg))
	checks = append(checks, checkCredential(cfg))
	checks = append(checks, checkTerminal())
	return checks
}

func checkConfig(args Args) (*config.Config, *HealthCheck) {
	cfg, err := config.Load()
	if err != nil {
		return config.Default(), &HealthCheck{
			Name:    "configuration",
			Status:  CheckFail,
			Message: err.Error(),
			Fix:     "docchat config reset --confirm",
		}
	}
	if args.Server != "" {
		cfg.Server.URL = args.Server
	}
	if args.Tenant != "" {
		cfg.Server.TenantID = args.Tenant
	}
	if err := cfg.Validate(); err != nil {
		return cfg, &HealthCheck{
			Name:    "configuration",
			Status:  CheckFail,
			Message: err.Error(),
			Fix:     "docchat config show",
		}
	}
	return cfg, &HealthCheck{
		Name:    "configuration",
		Status:  CheckPass,
		Message: "valid",
	}
}

func checkConfigDir() *HealthCheck {
	dir, err := config.ConfigDir()
	if err != nil {
		return &HealthCheck{
			Name:    "config directory",
			Status:  CheckFail,
			Message: err.Error(),
		}
	}
	if err := config.EnsureConfigDir(); err != nil {
		return &HealthCheck{
			Name:    "config directory",
			Status:  CheckFail,
			Message: "not writable: " + err.Error(),
			Fix:     "check permissions on " + dir,
		}
	}
	return &HealthCheck{
		Name:    "config directory",
		Status:  CheckPass,
		Message: dir,
	}
}

func checkProfileStore(cfg *config.Config) *HealthCheck {
	path, err := cfg.ProfilePath()
	if err != nil {
		return &HealthCheck{
			Name:    "profile store",
			Status:  CheckFail,
			Message: err.Error(),
		}
	}
	store, err := profile.OpenSQLite(path)
	if err != nil {
		return &HealthCheck{
			Name:    "profile store",
			Status:  CheckFail,
			Message: err.Error(),
			Fix:     "remove " + path + " to recreate it",
		}
	}
	defer store.Close()

	identity, err := profile.Identity(store)
	if err != nil {
		return &HealthCheck{
			Name:    "profile store",
			Status:  CheckWarn,
			Message: "open, but identity unreadable: " + err.Error(),
		}
	}
	return &HealthCheck{
		Name:    "profile store",
		Status:  CheckPass,
		Message: fmt.Sprintf("%s (identity %s)", path, identity),
	}
}

func checkServerReachable(cfg *config.Config) *HealthCheck {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := cfg.Server.URL + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &HealthCheck{
			Name:    "answer service",
			Status:  CheckFail,
			Message: "invalid server URL: " + cfg.Server.URL,
			Fix:     "docchat config set server.url http://localhost:8000",
		}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return &HealthCheck{
			Name:    "answer service",
			Status:  CheckFail,
			Message: "unreachable at " + cfg.Server.URL,
			Fix:     "start the service or point server.url at a running instance",
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return &HealthCheck{
			Name:    "answer service",
			Status:  CheckFail,
			Message: fmt.Sprintf("unhealthy (HTTP %d)", resp.StatusCode),
		}
	}
	return &HealthCheck{
		Name:    "answer service",
		Status:  CheckPass,
		Message: cfg.Server.URL,
	}
}

func checkCredential(cfg *config.Config) *HealthCheck {
	path, err := cfg.ProfilePath()
	if err != nil {
		return &HealthCheck{Name: "credential", Status: CheckWarn, Message: err.Error()}
	}
	store, err := profile.OpenSQLite(path)
	if err != nil {
		return &HealthCheck{Name: "credential", Status: CheckWarn, Message: "profile store unavailable"}
	}
	defer store.Close()

	token, err := profile.LoadCredential(store)
	if err != nil || token == "" {
		return &HealthCheck{
			Name:    "credential",
			Status:  CheckWarn,
			Message: "not signed in (anonymous turns only)",
			Fix:     "docchat login",
		}
	}

	// Validate against the server: a session list with a bad token
	// comes back as an auth error.
	client := api.NewClientWithConfig(&api.ClientConfig{BaseURL: cfg.Server.URL})
	client.SetCredential(token)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.ListSessions(ctx, cfg.Server.TenantID); err != nil {
		if api.IsAuthError(err) {
			return &HealthCheck{
				Name:    "credential",
				Status:  CheckFail,
				Message: "stored credential rejected",
				Fix:     "docchat login",
			}
		}
		return &HealthCheck{
			Name:    "credential",
			Status:  CheckWarn,
			Message: "present, could not validate: " + err.Error(),
		}
	}
	return &HealthCheck{
		Name:    "credential",
		Status:  CheckPass,
		Message: "valid",
	}
}

func checkTerminal() *HealthCheck {
	if !IsStdoutTTY() {
		return &HealthCheck{
			Name:    "terminal",
			Status:  CheckWarn,
			Message: "stdout is not a terminal (TUI unavailable, plain output)",
		}
	}
	msg := fmt.Sprintf("%d columns", GetTerminalWidth())
	if os.Getenv("NO_COLOR") != "" {
		msg += ", colors disabled by NO_COLOR"
	}
	return &HealthCheck{
		Name:    "terminal",
		Status:  CheckPass,
		Message: msg,
	}
}
