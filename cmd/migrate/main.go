package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"shelfscan/internal/app"
	"shelfscan/internal/config"
	"shelfscan/internal/logging"
)

func main() {
	var (
		command    = flag.String("command", "up", "Migration command: up, down, status")
		configPath = flag.String("config", "", "Configuration file path")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	if err := app.Migrate(context.Background(), cfg.Library, *command, logger); err != nil {
		log.Fatalf("Migration %s failed: %v", *command, err)
	}
	if *command != "status" {
		fmt.Printf("Migrations %s applied successfully (%s)\n", *command, cfg.Library.Backend)
	}
}
