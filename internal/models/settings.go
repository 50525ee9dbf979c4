package models

// ScraperSettings is the per-run behavior supplied by the settings provider.
// The controller treats it as immutable for the duration of a run.
type ScraperSettings struct {
	Headless        bool     `json:"headless" yaml:"headless"`
	Username        string   `json:"username" yaml:"username"`
	Password        string   `json:"password" yaml:"password"`
	PollIntervalSec int      `json:"poll_interval_sec" yaml:"poll_interval_sec"`
	NotifyInApp     bool     `json:"notify_in_app" yaml:"notify_in_app"`
	NotifyDiscord   bool     `json:"notify_discord" yaml:"notify_discord"`
	AutoOrder       bool     `json:"auto_order" yaml:"auto_order"`
	MinPrice        float64  `json:"min_price" yaml:"min_price"`
	Keywords        []string `json:"keywords" yaml:"keywords"`
}
