package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/devicedesk/internal/tools"
)

func runCall(args []string) {
	fs := flag.NewFlagSet("call", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	user := fs.String("user", "", "user that write activity is attributed to")
	timeout := fs.Duration("timeout", 30*time.Second, "deadline for the call")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: devicedesk call [flags] TOOL [JSON-ARGS]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fs.Usage()
		os.Exit(2)
	}

	toolArgs := map[string]any{}
	if fs.NArg() == 2 {
		dec := json.NewDecoder(bytes.NewReader([]byte(fs.Arg(1))))
		dec.UseNumber()
		if err := dec.Decode(&toolArgs); err != nil {
			fmt.Fprintf(os.Stderr, "arguments must be a JSON object: %v\n", err)
			os.Exit(2)
		}
	}

	logger := newLogger()
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	a, err := bootstrap(ctx, *configPath, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	if *user != "" {
		ctx = tools.WithCaller(ctx, tools.Caller{UserID: *user})
	}

	resp := a.engine.Execute(ctx, fs.Arg(0), toolArgs)
	a.Close(context.Background())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(resp)
	if !resp.OK() {
		os.Exit(1)
	}
}
