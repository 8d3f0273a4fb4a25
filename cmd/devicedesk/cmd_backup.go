package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/HerbHall/devicedesk/internal/backup"
	"github.com/HerbHall/devicedesk/internal/config"
)

func runBackup(args []string) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	output := fs.String("output", "", "output file path (default: devicedesk-backup-{timestamp}.tar.gz)")
	configFile := fs.String("config", "", "config file (default: ./devicedesk.yaml when present); its database.path is backed up and the file is included")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, settings, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backup failed: %v\n", err)
		os.Exit(1)
	}

	if *output == "" {
		*output = fmt.Sprintf("devicedesk-backup-%s.tar.gz", time.Now().Format("20060102-150405"))
	}

	ctx := context.Background()
	if err := backup.Backup(ctx, settings.Database.Path, cfg.ConfigFile(), *output); err != nil {
		fmt.Fprintf(os.Stderr, "backup failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Backup created: %s\n", *output)
}
