package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/temcen/gamecore/internal/app"
	"github.com/temcen/gamecore/internal/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize application
	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Serve until interrupted; Run stops the HTTP server before draining
	// usage and closing the database.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		log.Printf("Server exited with error: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited")
}
