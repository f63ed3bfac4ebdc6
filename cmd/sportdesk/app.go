package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/HerbHall/sportdesk/internal/apiclient"
	"github.com/HerbHall/sportdesk/internal/config"
	"github.com/HerbHall/sportdesk/internal/event"
	"github.com/HerbHall/sportdesk/internal/services"
	"github.com/HerbHall/sportdesk/internal/store"
	"github.com/HerbHall/sportdesk/internal/theme"
)

// app holds the collaborators shared by every command.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	bus      *event.Bus
	registry *prometheus.Registry
	db       *store.Store
	settings services.SettingsRepository
}

// newApp loads configuration, builds the logger and opens the local
// settings database. The caller owns the result and must close it.
func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	db, err := store.Open(ctx, cfg.GetString("database.path"))
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("open database: %w", err)
	}
	repo, err := services.NewSettingsRepository(ctx, db, nil)
	if err != nil {
		db.Close()
		_ = logger.Sync()
		return nil, fmt.Errorf("prepare settings: %w", err)
	}

	bus := event.NewBus(logger)
	bus.SubscribeAll(func(_ context.Context, e event.Event) {
		logger.Debug("event", zap.String("topic", e.Topic), zap.String("source", e.Source))
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		bus:      bus,
		registry: registry,
		db:       db,
		settings: repo,
	}, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.GetBool("log.development") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// close releases the database and flushes the logger.
func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("closing database", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// apiClient builds the sports-events API client from the api.* keys.
func (a *app) apiClient() (*apiclient.Client, error) {
	client, err := apiclient.New(apiclient.Config{
		BaseURL:   a.cfg.GetString("api.base_url"),
		Token:     a.cfg.GetString("api.token"),
		Timeout:   a.cfg.GetDuration("api.timeout"),
		RateLimit: a.cfg.GetFloat64("api.rate_limit"),
		Burst:     a.cfg.GetInt("api.burst"),
	}, a.logger.Named("api"), apiclient.WithMetrics(apiclient.NewMetrics(a.registry)))
	if err != nil {
		return nil, fmt.Errorf("invalid API configuration: %w", err)
	}
	return client, nil
}

// themeController builds a controller over the settings table. root may
// be nil when nothing renders the theme.
func (a *app) themeController(root *theme.DocumentRoot) (*theme.Controller, *theme.EnvScheme) {
	scheme := theme.NewEnvScheme(nil)
	opts := theme.Options{
		Storage: theme.NewSettingsStorage(a.settings),
		Key:     a.cfg.GetString("theme.storage_key"),
		Scheme:  scheme,
		Frames:  theme.TimerFrames{Interval: a.cfg.GetDuration("theme.frame_interval")},
		Bus:     a.bus,
		Logger:  a.logger.Named("theme"),
	}
	if root != nil {
		opts.Root = root
	}
	return theme.NewController(opts), scheme
}
