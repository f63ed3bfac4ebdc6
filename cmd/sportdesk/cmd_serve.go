package main

import (
	"context"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/sportdesk/internal/coach"
	"github.com/HerbHall/sportdesk/internal/event"
	"github.com/HerbHall/sportdesk/internal/server"
	"github.com/HerbHall/sportdesk/internal/settings"
	"github.com/HerbHall/sportdesk/internal/theme"
)

func runServe(args []string, stderr io.Writer) int {
	fs := newFlagSet("serve", stderr)
	configPath := fs.String("config", "", "path to configuration file")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, *configPath)
	if err != nil {
		return fail(stderr, "serve", err)
	}
	defer a.close()

	a.logger.Info("sportdesk server starting")

	// Resolve and apply before anything renders.
	root := theme.NewDocumentRoot()
	ctrl, scheme := a.themeController(root)
	theme.Prepaint(ctx, theme.NewSettingsStorage(a.settings), a.cfg.GetString("theme.storage_key"), scheme, root)
	ctrl.Initialize(ctx)
	defer ctrl.Close()
	go scheme.Poll(ctx, a.cfg.GetDuration("theme.scheme_poll"))

	a.bus.Subscribe(theme.TopicChanged, func(_ context.Context, e event.Event) {
		if changed, ok := e.Payload.(theme.Changed); ok {
			a.logger.Info("theme changed",
				zap.String("preference", string(changed.Preference)),
				zap.String("resolved", string(changed.Resolved)),
				zap.String("cause", string(changed.Cause)),
			)
		}
	})

	api, err := a.apiClient()
	if err != nil {
		a.logger.Error("cannot build API client", zap.Error(err))
		return exitError
	}
	srv := server.New(
		net.JoinHostPort(a.cfg.GetString("server.host"), a.cfg.GetString("server.port")),
		server.Deps{
			Theme:      ctrl,
			Root:       root,
			StorageKey: a.cfg.GetString("theme.storage_key"),
			API:        api,
			Coaches:    coach.NewLoader(api, a.logger.Named("coach")),
			PerPage:    a.cfg.GetInt("search.per_page"),
			Gatherer:   a.registry,
		},
		a.logger.Named("http"),
		settings.NewHandler(a.logger.Named("settings")),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	code := exitOK
	select {
	case sig := <-sigCh:
		a.logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			a.logger.Error("server error", zap.Error(err))
			code = exitError
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	a.logger.Info("sportdesk server stopped")
	return code
}
