// Package main is the entry point for the polychat gateway server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"

	"polychat/config"
	"polychat/internal/conversation"
	"polychat/internal/httpclient"
	"polychat/internal/imagegen"
	"polychat/internal/providers"

	// Import provider packages to trigger their init() registration
	_ "polychat/internal/providers/anthropic"
	_ "polychat/internal/providers/gemini"
	_ "polychat/internal/providers/ollama"
	_ "polychat/internal/providers/openai"
	"polychat/internal/server"
	"polychat/internal/version"
)

func main() {
	versionFlag := flag.Bool("version", false, "Print version information")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging.Level)
	slog.SetDefault(logger)

	slog.Info("starting polychat",
		"version", version.Version,
		"commit", version.Commit,
		"build_date", version.Date,
		"providers", providers.IDs(),
	)

	ctx := context.Background()

	store, err := conversation.New(ctx, conversation.Config{
		Type: cfg.Store.Type,
		SQLite: conversation.SQLiteConfig{
			Path: cfg.Store.SQLitePath,
		},
		Postgres: conversation.PostgresConfig{
			URL:      cfg.Store.PostgresURL,
			MaxConns: cfg.Store.PostgresMaxConns,
		},
		Redis: conversation.RedisConfig{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
			TTL:      cfg.Store.RedisTTL,
		},
	})
	if err != nil {
		slog.Error("failed to initialize conversation store", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("conversation store ready", "type", cfg.Store.Type)

	if cfg.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	}

	dispatcher := providers.NewDispatcher(httpclient.NewDefaultHTTPClient())
	orchestrator := imagegen.NewOrchestrator(logger)

	handler := server.NewHandler(dispatcher, orchestrator, store, logger)
	srv := server.New(handler, &server.Config{
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsEndpoint: cfg.Metrics.Endpoint,
		BodySizeLimit:   cfg.Server.BodySizeLimit,
	}, logger)

	// Handle graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	slog.Info("starting server", "address", addr)

	if err := srv.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
		} else {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}
}

// newLogger picks a human-readable handler on a terminal and JSON otherwise.
func newLogger(level string) *slog.Logger {
	lvl := parseLevel(level)
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:      lvl,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
