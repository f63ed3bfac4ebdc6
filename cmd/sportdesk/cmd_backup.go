package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/HerbHall/sportdesk/internal/backup"
	"github.com/HerbHall/sportdesk/internal/config"
)

func runBackup(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("backup", stderr)
	configPath := fs.String("config", "", "path to configuration file (included in the backup)")
	output := fs.String("output", "", "output file path (default: sportdesk-backup-{timestamp}.tar.gz)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fail(stderr, "backup", fmt.Errorf("load configuration: %w", err))
	}
	if *output == "" {
		*output = fmt.Sprintf("sportdesk-backup-%s.tar.gz", time.Now().Format("20060102-150405"))
	}

	m, err := backup.Backup(context.Background(), cfg.GetString("database.path"), *configPath, *output)
	if err != nil {
		return fail(stderr, "backup", err)
	}
	fmt.Fprintf(stdout, "Backup created: %s (database %s)\n", *output, m.Database)
	return exitOK
}

func runRestore(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("restore", stderr)
	input := fs.String("input", "", "backup archive to restore (required)")
	dataDir := fs.String("data-dir", ".", "target directory for restored files")
	force := fs.Bool("force", false, "overwrite existing files")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if *input == "" {
		fmt.Fprintln(stderr, "restore: -input is required")
		fs.Usage()
		return exitUsage
	}

	m, err := backup.Restore(context.Background(), *input, *dataDir, *force)
	if err != nil {
		return fail(stderr, "restore", err)
	}
	fmt.Fprintf(stdout, "Restore complete: backup of %s from %s restored to %s\n",
		m.Database, m.CreatedAt.Format(time.RFC3339), *dataDir)
	return exitOK
}
