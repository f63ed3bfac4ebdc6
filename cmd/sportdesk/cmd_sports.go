package main

import (
	"context"
	"errors"
	"io"

	"github.com/HerbHall/sportdesk/internal/apiclient"
)

func runSports(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("sports", stderr)
	configPath := fs.String("config", "", "path to configuration file")
	group := fs.String("group", "", "sport group ID (default: all sports)")
	output := fs.String("o", "json", "output format: json or yaml")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	ctx := context.Background()
	a, err := newApp(ctx, *configPath)
	if err != nil {
		return fail(stderr, "sports", err)
	}
	defer a.close()

	api, err := a.apiClient()
	if err != nil {
		return fail(stderr, "sports", err)
	}
	sports, err := api.Sports(ctx, *group)
	if err != nil {
		return fail(stderr, "sports", errors.New(apiclient.Message(err)))
	}
	if err := writeOutput(stdout, *output, sports); err != nil {
		return fail(stderr, "sports", err)
	}
	return exitOK
}
