// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - show, get, set, path and reset for the config file.
package cli

import (
	"fmt"

	"github.com/jeranaias/docchat-tui/internal/config"
)

// HandleConfigCommand dispatches config subcommands.
func HandleConfigCommand(args Args) error {
	switch args.Subcommand {
	case "show", "":
		return handleConfigShow(args)
	case "get":
		return handleConfigGet(args)
	case "set":
		return handleConfigSet(args)
	case "path":
		return handleConfigPath(args)
	case "reset":
		return handleConfigReset(args)
	default:
		return NewValidationError("subcommand", args.Subcommand,
			"expected show, get, set, path, or reset")
	}
}

func handleConfigShow(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return WrapError(err, "loading configuration")
	}

	if args.JSON {
		return NewJSONResponse("config.show", cfg).Print()
	}

	fmt.Println(TitleStyle.Render("Configuration"))
	for _, key := range config.GetAllKeys() {
		value, err := cfg.Get(key)
		if err != nil {
			continue
		}
		fmt.Printf("%s %v\n", RenderLabel(key, 28), ValueStyle.Render(fmt.Sprintf("%v", value)))
	}

	path, err := config.ConfigPathTOML()
	if err == nil {
		fmt.Printf("\n%s\n", DimStyle.Render("file: "+path))
	}
	return nil
}

func handleConfigGet(args Args) error {
	if len(args.Raw) < 1 {
		return ErrMissingArgument("key", "docchat config get server.url")
	}
	key := args.Raw[0]

	cfg, err := config.Load()
	if err != nil {
		return WrapError(err, "loading configuration")
	}

	value, err := cfg.Get(key)
	if err != nil {
		return NewValidationError("key", key, err.Error())
	}

	if args.JSON {
		return NewJSONResponse("config.get", map[string]interface{}{key: value}).Print()
	}
	fmt.Printf("%v\n", value)
	return nil
}

func handleConfigSet(args Args) error {
	if len(args.Raw) < 2 {
		return ErrMissingArgument("key and value", "docchat config set server.url http://localhost:8000")
	}
	key, value := args.Raw[0], args.Raw[1]

	cfg, err := config.Load()
	if err != nil {
		return WrapError(err, "loading configuration")
	}

	if err := cfg.Set(key, value); err != nil {
		return NewValidationError("key", key, err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return WrapError(err, "validating configuration")
	}
	if err := config.Save(cfg); err != nil {
		return WrapError(err, "saving configuration")
	}

	if args.JSON {
		return NewJSONResponse("config.set", map[string]string{key: value}).Print()
	}
	fmt.Printf("%s %s = %s\n", RenderStatus("ok"), key, HighlightStyle.Render(value))
	return nil
}

func handleConfigPath(args Args) error {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return WrapError(err, "resolving config path")
	}
	if args.JSON {
		return NewJSONResponse("config.path", map[string]string{"path": path}).Print()
	}
	fmt.Println(path)
	return nil
}

func handleConfigReset(args Args) error {
	if args.Options["confirm"] != "true" {
		if !CanPrompt() {
			return NewValidationError("confirm", "",
				"reset requires --confirm when not running interactively")
		}
		if !promptYesNo("Reset all configuration to defaults?") {
			fmt.Println(DimStyle.Render("Cancelled."))
			return nil
		}
	}

	cfg := config.Default()
	if err := config.Save(cfg); err != nil {
		return WrapError(err, "saving configuration")
	}

	if args.JSON {
		return NewJSONResponse("config.reset", map[string]bool{"reset": true}).Print()
	}
	fmt.Printf("%s configuration reset to defaults\n", RenderStatus("ok"))
	return nil
}
