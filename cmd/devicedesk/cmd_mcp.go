package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/devicedesk/internal/mcpserver"
	"github.com/HerbHall/devicedesk/internal/tools"
)

func runMCP(args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	user := fs.String("user", "", "user that write activity is attributed to (default: engine.default_actor)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	// stdout carries the protocol; zap's production logger writes to stderr.
	logger := newLogger()
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, *configPath, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.Close(closeCtx)
	}()

	if *user != "" {
		ctx = tools.WithCaller(ctx, tools.Caller{UserID: *user})
	}

	logger.Info("serving MCP on stdio")
	if err := mcpserver.ServeStdio(ctx, mcpserver.New(a.engine, logger.Named("mcp"))); err != nil && ctx.Err() == nil {
		logger.Error("mcp server error", zap.Error(err))
	}
}
