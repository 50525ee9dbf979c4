// Package server exposes the in-app channel and the scraper controls over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"CampaignScraper/internal/metrics"
	"CampaignScraper/internal/models"
	"CampaignScraper/internal/monitor"
	"CampaignScraper/internal/notify"
	"CampaignScraper/utils"

	"github.com/gin-gonic/gin"
)

// Controller is the scraper control surface.
type Controller interface {
	Start(ctx context.Context, settings models.ScraperSettings) bool
	Stop() bool
	State() monitor.State
	Running() bool
}

// Events is the in-app channel.
type Events interface {
	Recent() []models.Event
	Subscribe() (<-chan models.Event, func())
	Answer(id string, yes bool) error
	Pending() []string
}

// ItemLister lists stored items.
type ItemLister interface {
	List(ctx context.Context) ([]models.ItemRecord, error)
}

// SettingsSource merges a partial settings document into the configured settings.
type SettingsSource interface {
	WithOverrides(raw []byte) (models.ScraperSettings, error)
}

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	Controller Controller
	Events     Events
	Items      ItemLister
	Settings   SettingsSource
	Metrics    *metrics.Metrics
	// Stats reads host resource usage; nil uses utils.ReadSystemStats.
	Stats func() (utils.SystemStats, error)
	// RunContext parents every run started through the API.
	RunContext context.Context
}

func (h *Handler) runContext() context.Context {
	if h.RunContext != nil {
		return h.RunContext
	}
	return context.Background()
}

// StartScraper starts a run. The optional JSON body overrides configured settings.
func (h *Handler) StartScraper(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}
	settings, err := h.Settings.WithOverrides(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.Controller.Start(h.runContext(), settings) {
		c.JSON(http.StatusConflict, gin.H{"error": "scraper is already running", "state": h.Controller.State()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

// StopScraper asks the active run to stop.
func (h *Handler) StopScraper(c *gin.Context) {
	if !h.Controller.Stop() {
		c.JSON(http.StatusConflict, gin.H{"error": "scraper is not running"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "stopping"})
}

// Status reports the controller state.
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running":         h.Controller.Running(),
		"state":           h.Controller.State(),
		"pending_prompts": h.Events.Pending(),
	})
}

// RecentEvents returns the in-app log.
func (h *Handler) RecentEvents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.Events.Recent()})
}

// StreamEvents pushes new in-app events as server-sent events.
func (h *Handler) StreamEvents(c *gin.Context) {
	stream, cancel := h.Events.Subscribe()
	defer cancel()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-stream:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Kind), ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

type promptAnswer struct {
	Answer string `json:"answer" binding:"required"`
}

// AnswerPrompt resolves a pending in-app confirmation.
func (h *Handler) AnswerPrompt(c *gin.Context) {
	var body promptAnswer
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "answer must be yes or no"})
		return
	}

	var yes bool
	switch strings.ToLower(strings.TrimSpace(body.Answer)) {
	case "yes":
		yes = true
	case "no":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "answer must be yes or no"})
		return
	}

	if err := h.Events.Answer(c.Param("id"), yes); err != nil {
		if errors.Is(err, notify.ErrUnknownPrompt) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "answered"})
}

// ListItems returns every stored item.
func (h *Handler) ListItems(c *gin.Context) {
	items, err := h.Items.List(c.Request.Context())
	if err != nil {
		log.Printf("Failed to list items: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list items"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "total": len(items)})
}

// SystemStats reports host CPU and memory usage.
func (h *Handler) SystemStats(c *gin.Context) {
	read := h.Stats
	if read == nil {
		read = func() (utils.SystemStats, error) { return utils.ReadSystemStats(200 * time.Millisecond) }
	}
	stats, err := read()
	if err != nil {
		log.Printf("Failed to read system stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read system stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Run serves router on addr until ctx is cancelled.
func Run(ctx context.Context, addr string, router http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("API server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
