package main

import (
	"context"
	"fmt"
	"io"

	"github.com/HerbHall/sportdesk/internal/theme"
)

// themeState is what the theme command prints.
type themeState struct {
	Preference theme.Preference `json:"preference" yaml:"preference"`
	Resolved   theme.Resolved   `json:"resolved" yaml:"resolved"`
}

func runTheme(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("theme", stderr)
	configPath := fs.String("config", "", "path to configuration file")
	output := fs.String("o", "", "output format: json or yaml (default: plain text)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	ctx := context.Background()
	a, err := newApp(ctx, *configPath)
	if err != nil {
		return fail(stderr, "theme", err)
	}
	defer a.close()

	ctrl, _ := a.themeController(nil)
	defer ctrl.Close()
	ctrl.Initialize(ctx)

	if code := applyThemeAction(ctx, ctrl, fs.Arg(0), fs.Arg(1), stderr); code != exitOK {
		return code
	}

	state := themeState{ctrl.Preference(), ctrl.Resolved()}
	if *output == "" {
		fmt.Fprintf(stdout, "preference: %s\nresolved:   %s\n", state.Preference, state.Resolved)
		return exitOK
	}
	if err := writeOutput(stdout, *output, state); err != nil {
		return fail(stderr, "theme", err)
	}
	return exitOK
}

// applyThemeAction runs one theme subcommand against ctrl.
func applyThemeAction(ctx context.Context, ctrl *theme.Controller, action, arg string, stderr io.Writer) int {
	switch action {
	case "", "show":
	case "set":
		pref, ok := theme.ParsePreference(arg)
		if !ok {
			fmt.Fprintf(stderr, "theme set: want light, dark or system, got %q\n", arg)
			return exitUsage
		}
		ctrl.SetTheme(ctx, pref)
	case "toggle":
		ctrl.ToggleTheme(ctx)
	case "reset":
		ctrl.Reset(ctx)
	default:
		fmt.Fprintf(stderr, "theme: unknown action %q (want show, set, toggle or reset)\n", action)
		return exitUsage
	}
	return exitOK
}
