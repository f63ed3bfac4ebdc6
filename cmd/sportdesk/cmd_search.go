package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/sportdesk/internal/search"
	"github.com/HerbHall/sportdesk/pkg/models"
)

func runSearch(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("search", stderr)
	configPath := fs.String("config", "", "path to configuration file")
	kind := fs.String("kind", string(models.KindUsers), "entity kind: users, coaches, clubs, groups, facilities or companies")
	text := fs.String("q", "", "free-text query (at least 2 characters)")
	group := fs.String("group", "", "sport group ID")
	sport := fs.String("sport", "", "sport ID within -group")
	page := fs.Int("page", 1, "page number")
	output := fs.String("o", "json", "output format: json or yaml")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	k := models.EntityKind(*kind)
	if !k.Valid() {
		fmt.Fprintf(stderr, "search: unknown kind %q\n", *kind)
		return exitUsage
	}

	ctx := context.Background()
	a, err := newApp(ctx, *configPath)
	if err != nil {
		return fail(stderr, "search", err)
	}
	defer a.close()

	api, err := a.apiClient()
	if err != nil {
		return fail(stderr, "search", err)
	}
	ctrl := search.New(api, search.Options{
		Kind:     k,
		Debounce: a.cfg.GetDuration("search.debounce"),
		PerPage:  a.cfg.GetInt("search.per_page"),
		Bus:      a.bus,
		Metrics:  search.NewMetrics(a.registry),
		Logger:   a.logger.Named("search"),
	})
	defer ctrl.Close()

	// The API client times out on its own; this bounds the debounce too.
	waitCtx, cancel := context.WithTimeout(ctx,
		a.cfg.GetDuration("search.debounce")+a.cfg.GetDuration("api.timeout")+5*time.Second)
	defer cancel()

	state, err := runQuery(waitCtx, ctrl, *text, *group, *sport, *page)
	if err != nil {
		return fail(stderr, "search", err)
	}
	if state.Phase == search.PhaseError {
		fmt.Fprintf(stderr, "search failed: %s\n", state.Error)
		return exitError
	}
	a.logger.Debug("search finished",
		zap.String("phase", string(state.Phase)),
		zap.Int("items", len(state.Page.Items)),
	)
	if err := writeOutput(stdout, *output, state.Page); err != nil {
		return fail(stderr, "search", err)
	}
	return exitOK
}

// runQuery feeds the filters through ctrl the way an interactive view
// would and waits for the query for the requested page to settle. Filters
// that do not warrant a query return the idle state at once.
func runQuery(ctx context.Context, ctrl *search.Controller, text, group, sport string, page int) (search.State, error) {
	if page < 1 {
		page = 1
	}
	settled := make(chan search.State, 1)
	unsubscribe := ctrl.Subscribe(func(s search.State) {
		if s.Phase != search.PhaseResults && s.Phase != search.PhaseError {
			return
		}
		if s.Filters.PageNumber != page {
			return
		}
		select {
		case settled <- s:
		default:
		}
	})
	defer unsubscribe()

	if group != "" {
		ctrl.SetCategoryFilter(group)
	}
	if err := ctrl.SetSubFilter(sport); err != nil {
		return search.State{}, err
	}
	ctrl.SetFreeText(text)

	if !search.ShouldQuery(ctrl.Snapshot().Filters) {
		return ctrl.Snapshot(), nil
	}
	if page > 1 {
		ctrl.FetchPage(page)
	}

	select {
	case s := <-settled:
		return s, nil
	case <-ctx.Done():
		return search.State{}, errors.Join(errors.New("search did not complete"), ctx.Err())
	}
}
