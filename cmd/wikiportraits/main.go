package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flogvit/wikiportraits/internal/api"
	"github.com/flogvit/wikiportraits/internal/config"
	"github.com/flogvit/wikiportraits/internal/database"
	"github.com/flogvit/wikiportraits/internal/event"
	"github.com/flogvit/wikiportraits/internal/graph"
	"github.com/flogvit/wikiportraits/internal/graph/wikidata"
	"github.com/flogvit/wikiportraits/internal/logging"
	"github.com/flogvit/wikiportraits/internal/pending"
	"github.com/flogvit/wikiportraits/internal/roster"
	"github.com/flogvit/wikiportraits/internal/search"
	"github.com/flogvit/wikiportraits/internal/session"
	"github.com/flogvit/wikiportraits/internal/snapshot"
	"github.com/flogvit/wikiportraits/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("WP_CONFIG_PATH")
	if configPath == "" {
		configPath = "/data/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Set up structured logging via the logging Manager
	logManager, logger := logging.NewManager(logging.Config{
		Level:         cfg.Logging.Level,
		Format:        cfg.Logging.Format,
		FilePath:      cfg.Logging.File,
		FileMaxSizeMB: cfg.Logging.MaxSizeMB,
		FileMaxFiles:  cfg.Logging.MaxBackups,
	})
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open database and run migrations
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("database ready", slog.String("path", cfg.Database.Path))

	// Snapshot store: local sqlite by default, redis for shared deployments
	var store snapshot.Store
	switch cfg.Snapshots.Backend {
	case "redis":
		rs, err := snapshot.NewRedisStore(ctx, cfg.Snapshots.RedisURL, cfg.Snapshots.TTL)
		if err != nil {
			return fmt.Errorf("connecting snapshot store: %w", err)
		}
		defer rs.Close() //nolint:errcheck
		store = rs
	default:
		store = snapshot.NewSQLiteStore(db)
	}
	logger.Info("snapshot store ready", slog.String("backend", cfg.Snapshots.Backend))

	// Event bus with a logging subscriber
	eventBus := event.NewBus(logger, 256)
	go eventBus.Start()
	defer eventBus.Stop()

	for _, t := range []event.Type{
		event.OrgSelected, event.RosterResolved, event.RosterRestored,
		event.PendingCreated, event.PendingPromoted, event.SearchFailed,
	} {
		eventBus.Subscribe(t, func(e event.Event) {
			logger.Debug("event", slog.String("type", string(e.Type)), slog.Any("data", e.Data))
		})
	}

	// Knowledge graph client
	limiters := graph.NewRateLimiterMap()
	graphClient := wikidata.NewWithEndpoints(limiters, logger, cfg.Graph.APIURL, cfg.Graph.SPARQLURL)
	graphClient.SetTimeout(cfg.Graph.Timeout)

	// Engine
	resolver := roster.NewResolver(graphClient, logger, cfg.Graph.Language)
	pendingManager := pending.NewManager(logger)
	sessionManager := session.NewManager(resolver, store, pendingManager, eventBus, logger)

	searchOpts := search.DefaultOptions()
	searchOpts.MinQueryLength = cfg.Search.MinQueryLength
	searchOpts.Debounce = cfg.Search.Debounce
	searchOpts.Limit = cfg.Search.Limit
	searchOpts.Language = cfg.Graph.Language
	searcher := search.NewSearcher(graphClient, sessionManager.RosterIDs, nil, logger, searchOpts)

	// Live reload of the logging section on config file changes
	configWatcher := config.NewWatcher(configPath, func(updated *config.Config) {
		logManager.Reconfigure(logging.Config{
			Level:         updated.Logging.Level,
			Format:        updated.Logging.Format,
			FilePath:      updated.Logging.File,
			FileMaxSizeMB: updated.Logging.MaxSizeMB,
			FileMaxFiles:  updated.Logging.MaxBackups,
		})
	}, logger)
	go configWatcher.Start(ctx)

	logger.Info("starting wikiportraits",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
	)

	router := api.NewRouter(api.RouterDeps{
		Session:  sessionManager,
		Searcher: searcher,
		Graph:    graphClient,
		Bus:      eventBus,
		Logger:   logger,
		BasePath: cfg.Server.BasePath,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(ctx),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", slog.String("addr", addr), slog.String("base_path", cfg.Server.BasePath))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
