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
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.New(*configPath)
	defer application.Close()

	log.Println("Starting scraper API server...")
	if err := application.RunServer(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
