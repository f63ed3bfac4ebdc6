// Command sportdesk is the sports-events admin desk: theme settings,
// entity search, coach lookups and the dashboard HTTP server.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/HerbHall/sportdesk/internal/version"
)

const usage = `Usage: sportdesk <command> [flags]

Commands:
  theme [show|set <light|dark|system>|toggle|reset]
                                               show or change the display theme
  settings [-prefix p]                         list locally stored settings
  search [-kind users] [-q text] [-group id] [-sport id] [-page n]
                                               run a debounced entity search
  sports [-group id]                           list sports, optionally of one group
  coach <id>                                   show a coach with their clubs and groups
  serve                                        run the dashboard HTTP server
  backup [-output file]                        archive the settings database and config
  restore -input file [-data-dir dir] [-force] restore a backup archive
  version                                      print version information

Every command accepts -config <file>.
`

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches one command line and returns the process exit code.
// Commands return instead of exiting so their deferred cleanup runs.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	rest := args[1:]
	switch args[0] {
	case "theme":
		return runTheme(rest, stdout, stderr)
	case "settings":
		return runSettings(rest, stdout, stderr)
	case "search":
		return runSearch(rest, stdout, stderr)
	case "sports":
		return runSports(rest, stdout, stderr)
	case "coach":
		return runCoach(rest, stdout, stderr)
	case "serve":
		return runServe(rest, stderr)
	case "backup":
		return runBackup(rest, stdout, stderr)
	case "restore":
		return runRestore(rest, stdout, stderr)
	case "version", "-version", "--version":
		fmt.Fprintln(stdout, version.Info())
		return exitOK
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return exitUsage
	}
}

// fail reports err for command and returns the generic failure code.
func fail(stderr io.Writer, command string, err error) int {
	fmt.Fprintf(stderr, "%s: %v\n", command, err)
	return exitError
}

// newFlagSet returns a FlagSet that reports parse errors instead of
// exiting, writing usage to stderr.
func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// parseFlags parses args and maps failures onto exit codes. -h is not
// an error.
func parseFlags(fs *flag.FlagSet, args []string) (code int, ok bool) {
	err := fs.Parse(args)
	switch {
	case err == nil:
		return exitOK, true
	case errors.Is(err, flag.ErrHelp):
		return exitOK, false
	default:
		return exitUsage, false
	}
}
