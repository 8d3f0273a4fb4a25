package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/HerbHall/devicedesk/internal/seed"
)

func runSeed(args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	file := fs.String("file", "", "YAML fixture file to load")
	demo := fs.Bool("demo", false, "load the built-in demo fleet")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if (*file == "") == !*demo {
		fmt.Fprintln(os.Stderr, "error: exactly one of --file or --demo is required")
		fs.Usage()
		os.Exit(2)
	}

	logger := newLogger()
	defer logger.Sync() //nolint:errcheck

	var (
		fx  *seed.Fixtures
		err error
	)
	if *demo {
		fx, err = seed.Demo()
	} else {
		fx, err = seed.LoadFile(*file)
	}
	if err != nil {
		logger.Fatal("load fixtures", zap.Error(err))
	}

	ctx := context.Background()
	a, err := bootstrap(ctx, *configPath, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}

	c, err := seed.Apply(ctx, a.repos, fx, logger.Named("seed"))
	a.Close(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed after %d inserts: %v\n", c.Inserted, err)
		os.Exit(1)
	}
	fmt.Printf("Seeded %s: %d inserted, %d already present\n", a.settings.Database.Path, c.Inserted, c.Skipped)
}
