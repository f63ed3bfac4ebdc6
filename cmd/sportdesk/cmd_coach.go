package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/HerbHall/sportdesk/internal/apiclient"
	"github.com/HerbHall/sportdesk/internal/coach"
)

func runCoach(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("coach", stderr)
	configPath := fs.String("config", "", "path to configuration file")
	output := fs.String("o", "yaml", "output format: json or yaml")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: sportdesk coach [-o json|yaml] <id>")
		return exitUsage
	}

	ctx := context.Background()
	a, err := newApp(ctx, *configPath)
	if err != nil {
		return fail(stderr, "coach", err)
	}
	defer a.close()

	api, err := a.apiClient()
	if err != nil {
		return fail(stderr, "coach", err)
	}
	loader := coach.NewLoader(api, a.logger.Named("coach"))
	detail, err := loader.Load(ctx, fs.Arg(0))
	if err != nil {
		return fail(stderr, "coach", errors.New(apiclient.Message(err)))
	}
	for _, section := range detail.Omitted {
		fmt.Fprintf(stderr, "note: %s could not be loaded\n", section)
	}
	if err := writeOutput(stdout, *output, detail); err != nil {
		return fail(stderr, "coach", err)
	}
	return exitOK
}
