package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	appcfg "github.com/visionrelay/visionrelay/internal/config"
	"github.com/visionrelay/visionrelay/internal/llm"
	"github.com/visionrelay/visionrelay/internal/llm/mock"
	"github.com/visionrelay/visionrelay/internal/llm/ollama"
	"github.com/visionrelay/visionrelay/internal/relay"
	"github.com/visionrelay/visionrelay/internal/server"
)

const shutdownGrace = 15 * time.Second

func main() {
	// Load config
	cfg, err := appcfg.Load("")
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	// Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	// LLM client
	var llmClient llm.Client
	switch strings.ToLower(cfg.LLM.Provider) {
	case "ollama":
		llmClient = ollama.New(logger, cfg.LLM.Ollama)
	case "mock":
		llmClient = mock.New(cfg.LLM.Mock)
	default:
		logger.Error("unsupported llm provider", "provider", cfg.LLM.Provider)
		os.Exit(1)
	}

	// Pipeline and HTTP server
	svc := &server.Service{
		Log:   logger,
		Cfg:   cfg,
		Relay: relay.New(logger, llmClient),
	}
	httpSrv := server.NewHTTPServer(svc)

	rootCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run server in background
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "address", cfg.Server.Addr, "model", cfg.LLM.Ollama.Model)
		if err := httpSrv.ListenAndServe(); err != nil && err.Error() != "http: Server closed" {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error
	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "err", err)
		}
	}

	// Graceful shutdown
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancelShutdown()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "err", err)
	}
	logger.Info("server stopped")
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
