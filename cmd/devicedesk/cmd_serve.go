package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/HerbHall/devicedesk/internal/mcpserver"
	"github.com/HerbHall/devicedesk/internal/server"
)

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	logger := newLogger()
	defer logger.Sync() //nolint:errcheck

	logger.Info("devicedesk server starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, *configPath, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}

	srv := server.New(a.settings.Server.Addr(), a.engine, logger.Named("http"), server.Options{
		RateLimit: a.settings.Server.RateLimit,
		RateBurst: a.settings.Server.RateBurst,
		JWTSecret: a.settings.Server.JWTSecret,
		Metrics:   a.metrics,
		MCP:       mcpserver.HTTPHandler(mcpserver.New(a.engine, logger.Named("mcp"))),
		Health:    a.store.Ping,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	logger.Info("devicedesk server ready", zap.String("addr", a.settings.Server.Addr()))

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.settings.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	a.Close(shutdownCtx)

	logger.Info("devicedesk server stopped")
}
