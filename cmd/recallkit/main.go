package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/recallkit/recallkit/internal/config"
	"github.com/recallkit/recallkit/internal/logger"
	"github.com/recallkit/recallkit/internal/mcp"
	"github.com/recallkit/recallkit/internal/metrics"
	"github.com/recallkit/recallkit/internal/searcher"
	"github.com/recallkit/recallkit/internal/store"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if err := execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// execute is the CLI entry point, extracted for testing
func execute(args []string) error {
	rootCmd := &cobra.Command{
		Use:     "recallkit",
		Short:   "RecallKit MCP Server",
		Long:    "Personal knowledge store with multi-strategy search, served over MCP stdio",
		Version: fmt.Sprintf("%s (built %s, driver %s)", version, buildTime, store.DriverName),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.Flags())
		},
	}
	registerFlags(rootCmd.Flags())
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// registerFlags declares the CLI flags that override env and defaults
func registerFlags(flags *pflag.FlagSet) {
	flags.String("db-path", "", "SQLite database path (default ~/.recallkit/recallkit.db)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-file", "", "log file path, empty disables file output")
	flags.Int("cache-capacity", 0, "search result cache capacity")
	flags.Duration("cache-ttl", 0, "search result cache TTL")
	flags.Duration("search-timeout", 0, "per-search timeout")
	flags.Bool("metrics-enabled", false, "expose Prometheus metrics over HTTP")
	flags.String("metrics-addr", "", "metrics listen address")
}

func run(ctx context.Context, flags *pflag.FlagSet) error {
	settings, err := config.LoadSettingsWithFlags(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if err := config.ValidateSettings(settings); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:   settings.Log.Level,
		File:    settings.Log.File,
		Console: settings.Log.Console,
		Pretty:  settings.Log.Pretty,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Close() }()

	mainLog := log.Component("main")
	mainLog.Info().
		Str("version", version).
		Str("driver", store.DriverName).
		Str("db_path", settings.DBPath).
		Msg("recallkit starting")

	if settings.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(settings.DBPath), 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	st, err := store.NewSQLiteStore(settings.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() { _ = st.Close() }()

	m := metrics.New()
	srch, err := searcher.NewSearcher(st, m, log.Component("searcher"), searcher.Config{
		CacheCapacity:     settings.Cache.Capacity,
		CacheTTL:          settings.Cache.TTL,
		Timeout:           settings.Search.Timeout,
		DefaultLimit:      settings.Search.DefaultLimit,
		AutoCompleteLimit: settings.Search.AutoCompleteLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}
	if err := srch.WarmLoad(ctx); err != nil {
		// A failed warm load is recoverable: serving starts with empty
		// indexes and rebuild_index restores them.
		mainLog.Error().Err(err).Msg("warm load failed, starting with empty indexes")
	}

	if settings.Metrics.Enabled {
		shutdown := m.StartServer(settings.Metrics.Addr, log.Component("metrics"))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}

	server := mcp.NewServer(st, srch, log.Component("mcp"))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		mainLog.Info().Msg("MCP server ready, listening on stdio")
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		mainLog.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	mainLog.Info().Msg("server stopped")
	return nil
}
