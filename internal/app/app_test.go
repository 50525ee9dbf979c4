package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"CampaignScraper/internal/models"
	"CampaignScraper/internal/notify"
	"CampaignScraper/pkg/config"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Store.Path = filepath.Join(t.TempDir(), "items.db")
	cfg.Discord.Token = ""

	a, err := NewWithConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestNewSinkHonorsToggles(t *testing.T) {
	tests := []struct {
		name       string
		settings   models.ScraperSettings
		wantEvents int
	}{
		{"in-app enabled", models.ScraperSettings{NotifyInApp: true}, 1},
		{"everything disabled", models.ScraperSettings{}, 0},
		{"discord without token", models.ScraperSettings{NotifyInApp: true, NotifyDiscord: true}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestApp(t)
			sink := a.newSink(tt.settings)
			sink.Notify(context.Background(), notify.Message{Text: "Scraper starting..."})
			assert.Len(t, a.Events.Recent(), tt.wantEvents)
		})
	}
}

func TestDiscordReconnectsAfterFailure(t *testing.T) {
	a := newTestApp(t)
	a.Config.Discord.Token = "test-token"

	attempts := 0
	a.connectDiscord = func(token string) (*discordgo.Session, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("gateway unavailable")
		}
		return notify.NewDiscordSession(token)
	}

	assert.Nil(t, a.discordChannel())
	first := a.discordChannel()
	require.NotNil(t, first, "a failed connect is retried on the next run")
	assert.Same(t, first, a.discordChannel())
	assert.Equal(t, 2, attempts)

	a.newSink(models.ScraperSettings{NotifyDiscord: true})
	assert.Equal(t, 2, attempts)
}

func TestCleanupDiscordRequiresToken(t *testing.T) {
	a := newTestApp(t)
	assert.Error(t, a.CleanupDiscord(context.Background()))
}

func TestPrintItems(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.PrintItems(ctx))

	require.NoError(t, a.Repo.Upsert(ctx, "Serum", models.StatusInStock))
	require.NoError(t, a.PrintItems(ctx))
}

func TestHandlerWiring(t *testing.T) {
	a := newTestApp(t)
	h := a.Handler(context.Background())

	assert.Same(t, a.Events, h.Events)
	assert.Same(t, a.Metrics, h.Metrics)
	assert.False(t, a.Controller.Running())
}
