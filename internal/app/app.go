package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"CampaignScraper/internal/database"
	"CampaignScraper/internal/metrics"
	"CampaignScraper/internal/models"
	"CampaignScraper/internal/monitor"
	"CampaignScraper/internal/notify"
	"CampaignScraper/internal/order"
	"CampaignScraper/internal/scraper"
	"CampaignScraper/internal/scraper/skeepers"
	"CampaignScraper/internal/server"
	"CampaignScraper/pkg/config"
	"CampaignScraper/utils"

	"github.com/bwmarrin/discordgo"
)

// App is the main application structure holding all dependencies.
type App struct {
	Config     *config.Config
	Repo       *database.DBRepository
	Events     *notify.InApp
	Metrics    *metrics.Metrics
	Controller *monitor.Controller

	discordMu      sync.Mutex
	discordSession *discordgo.Session
	discord        *notify.Discord
	connectDiscord func(token string) (*discordgo.Session, error)
}

// New creates a new application instance from the config file. Any error is fatal.
func New(configPath string) *App {
	cfg := config.LoadConfig(configPath)
	a, err := NewWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	return a
}

// NewWithConfig wires the store, channels and controller for cfg.
func NewWithConfig(cfg *config.Config) (*App, error) {
	repo, err := database.Open(cfg.Store.Path, cfg.Store.CacheSize)
	if err != nil {
		return nil, err
	}
	listing, err := skeepers.NewListing(cfg.Site)
	if err != nil {
		repo.Close()
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Repo:    repo,
		Events:  notify.NewInApp(200),
		Metrics: metrics.New(),

		connectDiscord: openDiscord,
	}

	workers := utils.GetOptimalWorkerCount(cfg.Scraper.OrderWorkers)
	log.Printf("Order workers per cycle: %d", workers)

	a.Controller = monitor.New(monitor.Options{
		Launcher: &scraper.RodLauncher{
			UserAgent:      cfg.Site.UserAgent,
			ElementTimeout: cfg.Scraper.ElementTimeout,
		},
		Listing: listing,
		Store:   repo,
		Login: func(ctx context.Context, sess scraper.Session, s models.ScraperSettings) error {
			return scraper.Login(ctx, sess, cfg.Site, s.Username, s.Password, cfg.Scraper.StepDelay)
		},
		NewSink: a.newSink,
		NewOrderer: func(sink notify.Sink) monitor.Orderer {
			return order.New(cfg.Site, sink, cfg.Scraper.ElementTimeout)
		},
		Metrics:       a.Metrics,
		ListingURL:    cfg.Site.ListingURL,
		ShortInterval: secondsToDuration(cfg.Scraper.ShortIntervalSec),
		Workers:       workers,
	})
	a.Controller.OnFinished(func() {
		a.Events.Publish(models.Event{Kind: models.KindFinished, Text: "Scraper finished"})
	})
	return a, nil
}

// newSink builds the notification hub for one run from its toggles.
func (a *App) newSink(s models.ScraperSettings) notify.Sink {
	var channels []notify.Channel
	if s.NotifyInApp {
		channels = append(channels, a.Events)
	}
	if s.NotifyDiscord {
		if d := a.discordChannel(); d != nil {
			channels = append(channels, d)
		}
	}
	hub := notify.NewHub(a.Config.Scraper.PromptTimeout, channels...)
	hub.OnCleaned(a.Metrics.AddCleaned)
	return hub
}

// discordChannel returns the bot channel, connecting when no session is up
// yet. It returns nil when the bot is not configured or cannot connect; the
// next call tries again.
func (a *App) discordChannel() *notify.Discord {
	a.discordMu.Lock()
	defer a.discordMu.Unlock()
	if a.discord != nil {
		return a.discord
	}

	dc := a.Config.Discord
	if dc.Token == "" {
		log.Println("Discord notifications enabled but no token configured, skipping")
		return nil
	}
	session, err := a.connectDiscord(dc.Token)
	if err != nil {
		log.Printf("Failed to connect to Discord: %v", err)
		return nil
	}
	a.discordSession = session
	a.discord = notify.NewDiscord(session, notify.DiscordOptions{
		ChannelID:     dc.ChannelID,
		UserID:        dc.UserID,
		CleanupMinAge: dc.CleanupMinAge,
		CleanupMaxAge: dc.CleanupMaxAge,
		CleanupLimit:  dc.CleanupLimit,
		DeleteRate:    dc.DeleteRate,
	})
	log.Println("Connected to Discord")
	return a.discord
}

func openDiscord(token string) (*discordgo.Session, error) {
	session, err := notify.NewDiscordSession(token)
	if err != nil {
		return nil, err
	}
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("open discord gateway: %w", err)
	}
	return session, nil
}

// RunScraper runs the controller in the foreground until ctx is cancelled,
// then stops it and waits for teardown.
func (a *App) RunScraper(ctx context.Context) {
	log.Println("--- Starting Scraper ---")
	settings := a.Config.Settings()
	if !a.Controller.Start(ctx, settings) {
		return
	}

	select {
	case <-a.Controller.Done():
	case <-ctx.Done():
		a.Controller.Stop()
		<-a.Controller.Done()
	}
	log.Println("--- Scraper Finished ---")
}

// PrintItems logs every stored item.
func (a *App) PrintItems(ctx context.Context) error {
	items, err := a.Repo.List(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		log.Println("No items stored yet.")
		return nil
	}
	for _, it := range items {
		fmt.Printf("%-60s %-10s %s\n", it.Title, it.Status, it.LastCheckedAt.Format("2006-01-02 15:04:05"))
	}
	log.Printf("%d items stored.", len(items))
	return nil
}

// CleanupDiscord runs one stale message cleanup on the Discord channel.
func (a *App) CleanupDiscord(ctx context.Context) error {
	d := a.discordChannel()
	if d == nil {
		return fmt.Errorf("discord is not configured")
	}
	n, err := d.CleanupExpired(ctx)
	if err != nil {
		return err
	}
	a.Metrics.AddCleaned(n)
	log.Printf("Removed %d expired Discord messages.", n)
	return nil
}

// Handler returns the HTTP handler for the control surface.
func (a *App) Handler(runCtx context.Context) *server.Handler {
	return &server.Handler{
		Controller: a.Controller,
		Events:     a.Events,
		Items:      a.Repo,
		Settings:   a.Config,
		Metrics:    a.Metrics,
		RunContext: runCtx,
	}
}

// RunServer serves the control surface until ctx is cancelled. An active run
// is stopped before it returns.
func (a *App) RunServer(ctx context.Context) error {
	router := server.SetupRouter(a.Handler(context.Background()))
	err := server.Run(ctx, a.Config.Server.Addr, router)
	if a.Controller.Stop() {
		<-a.Controller.Done()
	}
	return err
}

// Close releases the store and the Discord connection.
func (a *App) Close() {
	a.discordMu.Lock()
	defer a.discordMu.Unlock()
	if a.discordSession != nil {
		if err := a.discordSession.Close(); err != nil {
			log.Printf("Failed to close Discord session: %v", err)
		}
	}
	if err := a.Repo.Close(); err != nil {
		log.Printf("Failed to close database: %v", err)
	}
}

func secondsToDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
