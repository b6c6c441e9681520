// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - login, logout and whoami.
//
// A successful login stores the bearer credential in the profile
// database and adopts the account id as the local identity, so the TUI,
// ask and chat all attribute turns to the account from then on.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/jeranaias/docchat-tui/internal/auth"
	"github.com/jeranaias/docchat-tui/internal/profile"
)

const authTimeout = 15 * time.Second

// HandleLoginCommand signs in, optionally registering the account first.
func HandleLoginCommand(args Args) error {
	if err := RequiresTTY("log in"); err != nil {
		return err
	}

	env, err := newCmdEnv(args)
	if err != nil {
		return err
	}
	defer env.Close()

	email := promptInput("Email: ")
	if email == "" || !strings.Contains(email, "@") {
		return NewValidationError("email", email, "a valid email address is required")
	}
	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	if password == "" {
		return NewValidationError("password", "", "password must not be empty")
	}

	client := auth.NewClient(env.Config.Server.URL, env.Config.Server.TenantID)
	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()

	if args.Options["register"] == "true" {
		confirm, err := readPassword("Confirm password: ")
		if err != nil {
			return err
		}
		if confirm != password {
			return NewValidationError("password", "", "passwords do not match")
		}
		account, err := client.Register(ctx, email, password)
		if err != nil {
			return WrapError(err, "registration")
		}
		fmt.Printf("%s account created for %s\n", RenderStatus("ok"), account.Email)
	}

	token, err := client.Login(ctx, email, password)
	if err != nil {
		return WrapError(err, "login")
	}

	// Identity first, credential second: a half-applied login must not
	// leave an account credential attributed to the guest identity.
	if err := profile.SetIdentity(env.Store, token.UserID); err != nil {
		return WrapError(err, "storing identity")
	}
	if err := profile.StoreCredential(env.Store, token.AccessToken); err != nil {
		return WrapError(err, "storing credential")
	}

	if args.JSON {
		return NewJSONResponse("login", WhoamiData{
			Identity: token.UserID,
			Guest:    false,
			Server:   env.Config.Server.URL,
			Tenant:   env.Config.Server.TenantID,
		}).Print()
	}
	fmt.Printf("%s signed in as %s\n", RenderStatus("ok"), HighlightStyle.Render(token.Email))
	return nil
}

// HandleLogoutCommand discards the stored credential and identity.
func HandleLogoutCommand(args Args) error {
	env, err := newCmdEnv(args)
	if err != nil {
		return err
	}
	defer env.Close()

	if profile.IsGuest(env.Identity) {
		if !args.Quiet {
			fmt.Println(DimStyle.Render("Not signed in."))
		}
		return nil
	}

	if err := profile.ClearCredential(env.Store); err != nil {
		return WrapError(err, "clearing credential")
	}
	if err := env.Store.Delete(profile.KeyIdentity); err != nil {
		return WrapError(err, "clearing identity")
	}

	if args.JSON {
		return NewJSONResponse("logout", map[string]bool{"signed_out": true}).Print()
	}
	fmt.Printf("%s signed out\n", RenderStatus("ok"))
	return nil
}

// HandleWhoamiCommand prints the active identity.
func HandleWhoamiCommand(args Args) error {
	env, err := newCmdEnv(args)
	if err != nil {
		return err
	}
	defer env.Close()

	guest := profile.IsGuest(env.Identity)

	if args.JSON {
		return NewJSONResponse("whoami", WhoamiData{
			Identity: env.Identity,
			Guest:    guest,
			Server:   env.Config.Server.URL,
			Tenant:   env.Config.Server.TenantID,
		}).Print()
	}

	kind := "account"
	if guest {
		kind = "guest"
	}
	fmt.Printf("%s %s\n", RenderLabel("Identity:"), ValueStyle.Render(env.Identity))
	fmt.Printf("%s %s\n", RenderLabel("Type:"), ValueStyle.Render(kind))
	fmt.Printf("%s %s\n", RenderLabel("Server:"), ValueStyle.Render(env.Config.Server.URL))
	fmt.Printf("%s %s\n", RenderLabel("Tenant:"), ValueStyle.Render(env.Config.Server.TenantID))
	return nil
}

// readPassword reads a password without echo.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", WrapError(err, "reading password")
	}
	return string(raw), nil
}
