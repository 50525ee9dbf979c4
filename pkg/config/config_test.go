package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"SCRAPER_USERNAME", "SCRAPER_PASSWORD", "DISCORD_TOKEN", "DISCORD_CHANNEL_ID", "DISCORD_USER_ID"} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("defaults when the file is missing", func(t *testing.T) {
		clearEnv(t)
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}
		if cfg.Scraper.PollIntervalSec != 60 {
			t.Errorf("PollIntervalSec = %d, want 60", cfg.Scraper.PollIntervalSec)
		}
		if cfg.Scraper.PromptTimeout != 60*time.Second {
			t.Errorf("PromptTimeout = %v, want 60s", cfg.Scraper.PromptTimeout)
		}
		if cfg.Discord.CleanupMinAge != 10*time.Minute || cfg.Discord.CleanupMaxAge != 24*time.Hour {
			t.Errorf("cleanup window = %v..%v, want 10m..24h", cfg.Discord.CleanupMinAge, cfg.Discord.CleanupMaxAge)
		}
		if len(cfg.Site.OrderCheckboxes) != 3 {
			t.Errorf("OrderCheckboxes = %v, want 3 selectors", cfg.Site.OrderCheckboxes)
		}
	})

	t.Run("file values override defaults", func(t *testing.T) {
		clearEnv(t)
		path := writeConfig(t, `
scraper:
  headless: false
  username: someone@example.com
  poll_interval_sec: 90
  auto_order: true
  min_price: 35.5
  keywords: [serum, shampoo]
  element_timeout: 5s
discord:
  channel_id: "42"
  cleanup_min_age: 15m
store:
  path: /tmp/items.db
`)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}
		s := cfg.Settings()
		if s.Headless || s.Username != "someone@example.com" || s.PollIntervalSec != 90 {
			t.Errorf("unexpected settings: %+v", s)
		}
		if !s.AutoOrder || s.MinPrice != 35.5 || len(s.Keywords) != 2 {
			t.Errorf("unexpected order settings: %+v", s)
		}
		if !s.NotifyInApp {
			t.Error("NotifyInApp default was lost")
		}
		if cfg.Scraper.ElementTimeout != 5*time.Second {
			t.Errorf("ElementTimeout = %v, want 5s", cfg.Scraper.ElementTimeout)
		}
		if cfg.Discord.ChannelID != "42" || cfg.Discord.CleanupMinAge != 15*time.Minute {
			t.Errorf("unexpected discord config: %+v", cfg.Discord)
		}
		if cfg.Store.Path != "/tmp/items.db" {
			t.Errorf("Store.Path = %s, want /tmp/items.db", cfg.Store.Path)
		}
	})

	t.Run("environment overrides secrets", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SCRAPER_PASSWORD", "hunter2")
		t.Setenv("DISCORD_TOKEN", "bot-token")
		cfg, err := Load(writeConfig(t, "scraper:\n  password: from-file\n"))
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}
		if cfg.Scraper.Password != "hunter2" {
			t.Errorf("Password = %s, want hunter2", cfg.Scraper.Password)
		}
		if cfg.Discord.Token != "bot-token" {
			t.Errorf("Token = %s, want bot-token", cfg.Discord.Token)
		}
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		clearEnv(t)
		cases := map[string]string{
			"zero poll interval":    "scraper:\n  poll_interval_sec: 0\n",
			"negative min price":    "scraper:\n  min_price: -1\n",
			"inverted cleanup ages": "discord:\n  cleanup_min_age: 48h\n",
			"listing without host":  "site:\n  listing_url: /campaigns\n",
			"broken yaml":           "scraper: [\n",
		}
		for name, content := range cases {
			if _, err := Load(writeConfig(t, content)); err == nil {
				t.Errorf("%s: Load() error = nil, want error", name)
			}
		}
	})
}

func TestWithOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scraper.Username = "stored"
	cfg.Scraper.Keywords = []string{"serum"}

	s, err := cfg.WithOverrides([]byte(`{"auto_order": true, "min_price": 12}`))
	if err != nil {
		t.Fatalf("WithOverrides() error = %v", err)
	}
	if !s.AutoOrder || s.MinPrice != 12 {
		t.Errorf("override not applied: %+v", s)
	}
	if s.Username != "stored" || len(s.Keywords) != 1 {
		t.Errorf("stored values lost: %+v", s)
	}

	if _, err := cfg.WithOverrides([]byte(`{"poll_interval_sec": -5}`)); err == nil {
		t.Error("WithOverrides() accepted a negative poll interval")
	}

	s.Keywords[0] = "changed"
	if cfg.Scraper.Keywords[0] != "serum" {
		t.Error("Settings() shares the keyword slice with the config")
	}
}
