package config

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"CampaignScraper/internal/models"

	"gopkg.in/yaml.v3"
)

// ScraperConfig holds the run behavior plus the timing knobs of the poll loop.
type ScraperConfig struct {
	models.ScraperSettings `yaml:",inline"`

	ShortIntervalSec int           `yaml:"short_interval_sec"`
	OrderWorkers     string        `yaml:"order_workers"`
	ElementTimeout   time.Duration `yaml:"element_timeout"`
	PromptTimeout    time.Duration `yaml:"prompt_timeout"`
	StepDelay        time.Duration `yaml:"step_delay"`
}

// SiteConfig holds the URLs and selectors of the target catalog.
type SiteConfig struct {
	BaseURL    string `yaml:"base_url"`
	SignInURL  string `yaml:"signin_url"`
	ListingURL string `yaml:"listing_url"`
	UserAgent  string `yaml:"user_agent"`

	SignInForm      string `yaml:"signin_form"`
	EmailInput      string `yaml:"email_input"`
	PasswordInput   string `yaml:"password_input"`
	SubmitButton    string `yaml:"submit_button"`
	CookieHost      string `yaml:"cookie_host"`
	CookieDismiss   string `yaml:"cookie_dismiss"`
	LoginErrorToast string `yaml:"login_error_toast"`
	LoginErrorText  string `yaml:"login_error_text"`

	ListingReady string `yaml:"listing_ready"`
	ProductCard  string `yaml:"product_card"`
	CardTitle    string `yaml:"card_title"`
	CardLink     string `yaml:"card_link"`
	CardSoldOut  string `yaml:"card_sold_out"`
	CardOrdered  string `yaml:"card_ordered"`
	CardBuy      string `yaml:"card_buy"`

	DetailPrice       string   `yaml:"detail_price"`
	DetailPriceLabel  string   `yaml:"detail_price_label"`
	DetailImage       string   `yaml:"detail_image"`
	OrderButton       string   `yaml:"order_button"`
	OrderDialog       string   `yaml:"order_dialog"`
	OrderCheckboxes   []string `yaml:"order_checkboxes"`
	OrderSubmitButton string   `yaml:"order_submit_button"`
}

// DiscordConfig holds the chat bot settings.
type DiscordConfig struct {
	Token         string        `yaml:"token"`
	ChannelID     string        `yaml:"channel_id"`
	UserID        string        `yaml:"user_id"`
	CleanupMinAge time.Duration `yaml:"cleanup_min_age"`
	CleanupMaxAge time.Duration `yaml:"cleanup_max_age"`
	CleanupLimit  int           `yaml:"cleanup_limit"`
	DeleteRate    float64       `yaml:"delete_rate"`
}

// StoreConfig holds the item store settings.
type StoreConfig struct {
	Path      string `yaml:"path"`
	CacheSize int    `yaml:"cache_size"`
}

// ServerConfig holds the in-app API settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the complete structure for the config.yml file.
type Config struct {
	Scraper ScraperConfig `yaml:"scraper"`
	Site    SiteConfig    `yaml:"site"`
	Discord DiscordConfig `yaml:"discord"`
	Store   StoreConfig   `yaml:"store"`
	Server  ServerConfig  `yaml:"server"`
}

// Provider supplies the settings for one run.
type Provider interface {
	Settings() models.ScraperSettings
}

// Settings implements Provider. The returned value is a copy.
func (c *Config) Settings() models.ScraperSettings {
	s := c.Scraper.ScraperSettings
	s.Keywords = append([]string(nil), s.Keywords...)
	return s
}

// DefaultConfig returns the defaults for the original catalog.
func DefaultConfig() *Config {
	return &Config{
		Scraper: ScraperConfig{
			ScraperSettings: models.ScraperSettings{
				Headless:        true,
				PollIntervalSec: 60,
				NotifyInApp:     true,
				MinPrice:        20,
			},
			ShortIntervalSec: 25,
			OrderWorkers:     "auto",
			ElementTimeout:   10 * time.Second,
			PromptTimeout:    60 * time.Second,
			StepDelay:        2 * time.Second,
		},
		Site: DefaultSite(),
		Discord: DiscordConfig{
			CleanupMinAge: 10 * time.Minute,
			CleanupMaxAge: 24 * time.Hour,
			CleanupLimit:  100,
			DeleteRate:    2,
		},
		Store:  StoreConfig{Path: "items.db", CacheSize: 256},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// DefaultSite returns URLs and selectors for creator.im.skeepers.io.
func DefaultSite() SiteConfig {
	return SiteConfig{
		BaseURL:    "https://creator.im.skeepers.io",
		SignInURL:  "https://creator.im.skeepers.io/auth/signin/en",
		ListingURL: "https://creator.im.skeepers.io/campaigns/search",
		UserAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/111.0.0.0 Safari/537.36",

		SignInForm:      "form#signin",
		EmailInput:      "input#email",
		PasswordInput:   "input#password",
		SubmitButton:    `button[type="submit"][data-testid="submit"]`,
		CookieHost:      ".needsclick",
		CookieDismiss:   "#axeptio_btn_dismiss",
		LoginErrorToast: ".Toastify__toast",
		LoginErrorText:  "Invalid email or password",

		ListingReady: ".free-store",
		ProductCard:  ".col-md-4.col-xs-6",
		CardTitle:    ".Title-sc-99so87-5",
		CardLink:     "a",
		CardSoldOut:  ".OutOfStock-sc-99so87-0",
		CardOrdered:  `skp-tag[text="ORDERED"], .skp-tag-root`,
		CardBuy:      "button.btn-order-campaign",

		DetailPrice:       "div.mt-10 > div.text-muted:last-of-type",
		DetailPriceLabel:  "Retail price",
		DetailImage:       "img.img-responsive",
		OrderButton:       `skp-button[text="Order"] button`,
		OrderDialog:       "dialog[open]",
		OrderCheckboxes:   []string{"#checkAddress", "#requestedViewCount", "#licensing_checkbox"},
		OrderSubmitButton: "button.btn-responsive.btn-order-campaign.btn.btn-primary",
	}
}

// Load reads filepath on top of the defaults, applies environment overrides and validates.
// A missing file is not an error: defaults and the environment are used instead.
func Load(filepath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filepath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error unmarshalling config YAML: %w", err)
		}
	case os.IsNotExist(err):
		log.Printf("Config file %s not found, using defaults and environment", filepath)
	default:
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadConfig is Load for process bootstrap: any error is fatal.
func LoadConfig(filepath string) *Config {
	cfg, err := Load(filepath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	return cfg
}

func (c *Config) applyEnv() {
	overrides := []struct {
		env    string
		target *string
	}{
		{"SCRAPER_USERNAME", &c.Scraper.Username},
		{"SCRAPER_PASSWORD", &c.Scraper.Password},
		{"DISCORD_TOKEN", &c.Discord.Token},
		{"DISCORD_CHANNEL_ID", &c.Discord.ChannelID},
		{"DISCORD_USER_ID", &c.Discord.UserID},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.env); ok && v != "" {
			*o.target = v
		}
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if err := ValidateSettings(c.Scraper.ScraperSettings); err != nil {
		return err
	}
	if c.Scraper.ShortIntervalSec <= 0 {
		return fmt.Errorf("short interval must be positive")
	}
	if c.Scraper.ElementTimeout <= 0 {
		return fmt.Errorf("element timeout must be positive")
	}
	if c.Scraper.PromptTimeout <= 0 {
		return fmt.Errorf("prompt timeout must be positive")
	}
	if c.Scraper.StepDelay < 0 {
		return fmt.Errorf("step delay cannot be negative")
	}

	for name, raw := range map[string]string{
		"base url":    c.Site.BaseURL,
		"sign-in url": c.Site.SignInURL,
		"listing url": c.Site.ListingURL,
	} {
		parsed, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("%s must include a host", name)
		}
	}

	if c.Discord.CleanupMinAge < 0 || c.Discord.CleanupMaxAge < 0 {
		return fmt.Errorf("cleanup ages cannot be negative")
	}
	if c.Discord.CleanupMaxAge > 0 && c.Discord.CleanupMinAge >= c.Discord.CleanupMaxAge {
		return fmt.Errorf("cleanup min age (%s) must be below cleanup max age (%s)", c.Discord.CleanupMinAge, c.Discord.CleanupMaxAge)
	}
	if c.Discord.CleanupLimit <= 0 || c.Discord.CleanupLimit > 100 {
		return fmt.Errorf("cleanup limit must be between 1 and 100")
	}
	if c.Discord.DeleteRate <= 0 {
		return fmt.Errorf("delete rate must be positive")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store path cannot be empty")
	}
	if c.Store.CacheSize <= 0 {
		return fmt.Errorf("store cache size must be positive")
	}
	return nil
}

// ValidateSettings checks the per-run settings.
func ValidateSettings(s models.ScraperSettings) error {
	if s.PollIntervalSec <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if s.MinPrice < 0 {
		return fmt.Errorf("minimum price cannot be negative")
	}
	return nil
}

// WithOverrides returns the settings with the fields present in a partial JSON
// document replaced. Absent fields keep their configured values.
func (c *Config) WithOverrides(raw []byte) (models.ScraperSettings, error) {
	s := c.Settings()
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("decode settings override: %w", err)
	}
	if err := ValidateSettings(s); err != nil {
		return s, err
	}
	return s, nil
}
