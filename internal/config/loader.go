package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and CLI flags.
// Priority (highest to lowest): CLI flags > env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	// Set defaults from struct
	setDefaults(v, cfg)

	// Environment variable support
	v.SetEnvPrefix("STAYWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Search default locations
		v.SetConfigName("staywatch")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".staywatch"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("browser.backend", cfg.Browser.Backend)
	v.SetDefault("browser.control_url", cfg.Browser.ControlURL)
	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.window_size", cfg.Browser.WindowSize)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.navigate_timeout", cfg.Browser.NavigateTimeout)

	v.SetDefault("extract.ready_timeout", cfg.Extract.ReadyTimeout)
	v.SetDefault("extract.locator_timeout", cfg.Extract.LocatorTimeout)
	v.SetDefault("extract.click_retries", cfg.Extract.ClickRetries)
	v.SetDefault("extract.guests", cfg.Extract.Guests)
	v.SetDefault("extract.default_min_nights", cfg.Extract.DefaultMinNights)
	v.SetDefault("extract.cooldown_every", cfg.Extract.CooldownEvery)
	v.SetDefault("extract.cooldown_pause", cfg.Extract.CooldownPause)
	v.SetDefault("extract.verify_skipped", cfg.Extract.VerifySkipped)

	v.SetDefault("export.output_dir", cfg.Export.OutputDir)
	v.SetDefault("export.mirror_by_date", cfg.Export.MirrorByDate)
	v.SetDefault("export.mirror_by_listing", cfg.Export.MirrorByListing)
	v.SetDefault("export.mongo.enabled", cfg.Export.Mongo.Enabled)
	v.SetDefault("export.mongo.uri", cfg.Export.Mongo.URI)
	v.SetDefault("export.mongo.database", cfg.Export.Mongo.Database)
	v.SetDefault("export.mongo.collection", cfg.Export.Mongo.Collection)

	v.SetDefault("batch.workers", cfg.Batch.Workers)
	v.SetDefault("batch.base_url", cfg.Batch.BaseURL)
	v.SetDefault("batch.calendar_retries", cfg.Batch.CalendarRetries)
	v.SetDefault("batch.retry_delay", cfg.Batch.RetryDelay)
	v.SetDefault("batch.max_listings", cfg.Batch.MaxListings)

	v.SetDefault("schedule.at", cfg.Schedule.At)
	v.SetDefault("schedule.liveness_poll", cfg.Schedule.LivenessPoll)
	v.SetDefault("schedule.liveness_marker", cfg.Schedule.LivenessMarker)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)
	v.SetDefault("logging.dir", cfg.Logging.Dir)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
