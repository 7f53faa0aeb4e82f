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

	"github.com/lysyi3m/game-catalog/app/api"
	"github.com/lysyi3m/game-catalog/app/cfg"
	"github.com/lysyi3m/game-catalog/app/database"
	"github.com/lysyi3m/game-catalog/app/feed"
	"github.com/lysyi3m/game-catalog/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		// help was shown
		return
	}

	setupLogger(appCfg.Debug)

	if err := run(appCfg); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting Game Catalog", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	slog.Info("Connected to database", "path", appCfg.DBPath)

	version, dirty, err := database.RunMigrations(appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if dirty {
		return fmt.Errorf("database schema is dirty at version %d", version)
	}
	slog.Info("Database migrations applied", "version", version)

	sources, err := feed.LoadSources(appCfg.SourcesFile)
	if err != nil {
		return fmt.Errorf("failed to load sources: %w", err)
	}
	for _, source := range sources {
		slog.Info("Configured source", "platform", source.Platform, "url", source.URL)
	}

	gameRepo := database.NewGameRepository(db)
	fetcher := feed.NewFetcher(feed.NewHTTPClient(), appCfg.UserAgent, appCfg.GetFetchTimeout())
	populator := tasks.NewPopulator(gameRepo, fetcher, feed.NewParser(), feed.NewRanker(), sources)

	handler := api.NewHandler(gameRepo, populator, sources, appCfg.Version)
	router := api.NewServer(handler, appCfg.APIAccessKey, appCfg.StaticDir)

	// populate waits for every source, so the write timeout must outlast the
	// slowest fetch allowed
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: feed.LongestTimeout(sources, appCfg.GetFetchTimeout()) + 60*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		return err
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server stopped")
	return nil
}
