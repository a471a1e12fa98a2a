package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ai-notebook-companion/internal/bootstrap"
	"ai-notebook-companion/internal/config"
	"ai-notebook-companion/pkg/database"
)

// backfill embeds every notebook that lacks a vector for the configured
// model, across all users, then exits.
func main() {
	cfg := config.Load()

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.Database.LogLevel)
	if err != nil {
		log.Fatalf("Unable to connect to GORM DB: %v", err)
	}

	container := bootstrap.NewContainer(db, cfg)
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	job, err := container.MaintenanceService.RunSweep(ctx, nil)
	if err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}

	log.Printf("Sweep %s %s: processed=%d succeeded=%d failed=%d",
		job.Id, job.Status, job.Processed, job.Succeeded, job.Failed)
	if job.LastError != "" {
		log.Printf("Last error: %s", job.LastError)
	}
}
