package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for StayWatch.
type Config struct {
	Browser  BrowserConfig  `mapstructure:"browser"  yaml:"browser"`
	Extract  ExtractConfig  `mapstructure:"extract"  yaml:"extract"`
	Export   ExportConfig   `mapstructure:"export"   yaml:"export"`
	Batch    BatchConfig    `mapstructure:"batch"    yaml:"batch"`
	Schedule ScheduleConfig `mapstructure:"schedule" yaml:"schedule"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  yaml:"metrics"`
}

// BrowserConfig controls the session provider.
type BrowserConfig struct {
	// Backend selects the session provider: "local" launches headless
	// Chromium, "remote" attaches to a pooled-browser control API.
	Backend string `mapstructure:"backend" yaml:"backend"`

	// ControlURL is the base URL of the remote pool's control API.
	ControlURL string `mapstructure:"control_url" yaml:"control_url"`

	Headless    bool   `mapstructure:"headless"     yaml:"headless"`
	WindowSize  string `mapstructure:"window_size"  yaml:"window_size"`
	Stealth     bool   `mapstructure:"stealth"      yaml:"stealth"`
	UserDataDir string `mapstructure:"user_data_dir" yaml:"user_data_dir"`

	// ProxyURL is an optional proxy with credentials already embedded
	// (user:pass@host:port); credential signing happens upstream.
	ProxyURL string `mapstructure:"proxy_url" yaml:"proxy_url"`

	NavigateTimeout time.Duration `mapstructure:"navigate_timeout" yaml:"navigate_timeout"`
}

// ExtractConfig controls the calendar and price extractors.
type ExtractConfig struct {
	// ReadyTimeout bounds the DOM-readiness wait after navigation.
	// Exceeding it is a soft failure: extraction proceeds anyway.
	ReadyTimeout time.Duration `mapstructure:"ready_timeout" yaml:"ready_timeout"`

	// LocatorTimeout bounds each single candidate in a locator cascade.
	LocatorTimeout time.Duration `mapstructure:"locator_timeout" yaml:"locator_timeout"`

	// ClickRetries bounds the expand-and-repoll loop on the price panel.
	ClickRetries int `mapstructure:"click_retries" yaml:"click_retries"`

	Guests           int `mapstructure:"guests"             yaml:"guests"`
	DefaultMinNights int `mapstructure:"default_min_nights" yaml:"default_min_nights"`

	// CooldownEvery inserts CooldownPause after this many processed dates.
	CooldownEvery int           `mapstructure:"cooldown_every" yaml:"cooldown_every"`
	CooldownPause time.Duration `mapstructure:"cooldown_pause" yaml:"cooldown_pause"`

	// VerifySkipped re-checks dates skipped by the minimum-stay cursor
	// advancement, since a wrong auto-detection could skip real bookable
	// dates. Off by default; skip-ahead is a throughput hint.
	VerifySkipped bool `mapstructure:"verify_skipped" yaml:"verify_skipped"`
}

// ExportConfig controls spreadsheet output and mirrors.
type ExportConfig struct {
	OutputDir       string `mapstructure:"output_dir"        yaml:"output_dir"`
	MirrorByDate    bool   `mapstructure:"mirror_by_date"    yaml:"mirror_by_date"`
	MirrorByListing bool   `mapstructure:"mirror_by_listing" yaml:"mirror_by_listing"`

	Mongo MongoConfig `mapstructure:"mongo" yaml:"mongo"`
}

// MongoConfig controls the optional archival mirror.
type MongoConfig struct {
	Enabled    bool   `mapstructure:"enabled"    yaml:"enabled"`
	URI        string `mapstructure:"uri"        yaml:"uri"`
	Database   string `mapstructure:"database"   yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// BatchConfig controls the orchestrator.
type BatchConfig struct {
	// Workers is the number of concurrent sessions; 1 means sequential.
	Workers int `mapstructure:"workers" yaml:"workers"`

	// BaseURL is the listing page prefix the listing id is appended to.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// CalendarRetries bounds listing-level retries of calendar extraction.
	CalendarRetries int           `mapstructure:"calendar_retries" yaml:"calendar_retries"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"      yaml:"retry_delay"`

	// MaxListings truncates the input when > 0.
	MaxListings int `mapstructure:"max_listings" yaml:"max_listings"`
}

// ScheduleConfig controls the daily trigger loop.
type ScheduleConfig struct {
	// At is the daily run time in "15:04" form, local time.
	At string `mapstructure:"at" yaml:"at"`

	// LivenessPoll is how often to re-check for a still-running prior run.
	LivenessPoll time.Duration `mapstructure:"liveness_poll" yaml:"liveness_poll"`

	// LivenessMarker identifies a prior run in process command lines.
	LivenessMarker string `mapstructure:"liveness_marker" yaml:"liveness_marker"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`

	// Dir, when set, tees logs into a timestamped file under this directory.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// MetricsConfig controls the metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Backend:         "local",
			ControlURL:      "http://127.0.0.1:54345",
			Headless:        true,
			WindowSize:      "1920,1080",
			NavigateTimeout: 60 * time.Second,
		},
		Extract: ExtractConfig{
			ReadyTimeout:     10 * time.Second,
			LocatorTimeout:   3 * time.Second,
			ClickRetries:     3,
			Guests:           3,
			DefaultMinNights: 1,
			CooldownEvery:    5,
			CooldownPause:    10 * time.Second,
		},
		Export: ExportConfig{
			OutputDir:       "./data",
			MirrorByDate:    true,
			MirrorByListing: true,
			Mongo: MongoConfig{
				Database:   "staywatch",
				Collection: "records",
			},
		},
		Batch: BatchConfig{
			Workers:         1,
			BaseURL:         "https://www.airbnb.co.nz/rooms",
			CalendarRetries: 2,
			RetryDelay:      5 * time.Second,
		},
		Schedule: ScheduleConfig{
			At:             "01:00",
			LivenessPoll:   time.Minute,
			LivenessMarker: "staywatch run",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
			Dir:    "./logs",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
