package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"CampaignScraper/internal/app"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := flag.String("config", "config.yml", "Path to the YAML config file")
	task := flag.String("task", "run", "Task to run: run, items or cleanup")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.New(*configPath)
	defer application.Close()

	log.Printf("Running task: %s", *task)

	switch *task {
	case "run":
		application.RunScraper(ctx)

	case "items":
		if err := application.PrintItems(ctx); err != nil {
			log.Fatalf("Failed to list items: %v", err)
		}

	case "cleanup":
		if err := application.CleanupDiscord(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}

	default:
		log.Fatalf("Unknown task: %s.", *task)
	}
}
