package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

func runSettings(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("settings", stderr)
	configPath := fs.String("config", "", "path to configuration file")
	prefix := fs.String("prefix", "", "only list keys starting with this prefix")
	output := fs.String("o", "", "output format: json or yaml (default: table)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	ctx := context.Background()
	a, err := newApp(ctx, *configPath)
	if err != nil {
		return fail(stderr, "settings", err)
	}
	defer a.close()

	all, err := a.settings.List(ctx, *prefix)
	if err != nil {
		return fail(stderr, "settings", err)
	}
	if *output != "" {
		if err := writeOutput(stdout, *output, all); err != nil {
			return fail(stderr, "settings", err)
		}
		return exitOK
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tVALUE\tUPDATED")
	for _, s := range all {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Key, s.Value, s.UpdatedAt.Format(time.RFC3339))
	}
	if err := tw.Flush(); err != nil {
		return fail(stderr, "settings", err)
	}
	return exitOK
}
