package config

import (
	"fmt"
	"net/url"
	"time"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Browser.Backend != "local" && cfg.Browser.Backend != "remote" {
		return fmt.Errorf("browser.backend must be 'local' or 'remote', got %q", cfg.Browser.Backend)
	}
	if cfg.Browser.Backend == "remote" {
		if _, err := url.Parse(cfg.Browser.ControlURL); err != nil || cfg.Browser.ControlURL == "" {
			return fmt.Errorf("browser.control_url %q is not a valid URL", cfg.Browser.ControlURL)
		}
	}
	if cfg.Browser.ProxyURL != "" {
		if _, err := url.Parse(cfg.Browser.ProxyURL); err != nil {
			return fmt.Errorf("invalid browser.proxy_url %q: %w", cfg.Browser.ProxyURL, err)
		}
	}
	if cfg.Browser.NavigateTimeout <= 0 {
		return fmt.Errorf("browser.navigate_timeout must be > 0")
	}

	if cfg.Extract.ReadyTimeout <= 0 {
		return fmt.Errorf("extract.ready_timeout must be > 0")
	}
	if cfg.Extract.LocatorTimeout <= 0 {
		return fmt.Errorf("extract.locator_timeout must be > 0")
	}
	if cfg.Extract.ClickRetries < 1 {
		return fmt.Errorf("extract.click_retries must be >= 1, got %d", cfg.Extract.ClickRetries)
	}
	if cfg.Extract.Guests < 1 {
		return fmt.Errorf("extract.guests must be >= 1, got %d", cfg.Extract.Guests)
	}
	if cfg.Extract.DefaultMinNights < 1 {
		return fmt.Errorf("extract.default_min_nights must be >= 1, got %d", cfg.Extract.DefaultMinNights)
	}
	if cfg.Extract.CooldownEvery < 0 {
		return fmt.Errorf("extract.cooldown_every must be >= 0, got %d", cfg.Extract.CooldownEvery)
	}

	if cfg.Export.OutputDir == "" {
		return fmt.Errorf("export.output_dir must not be empty")
	}
	if cfg.Export.Mongo.Enabled && cfg.Export.Mongo.URI == "" {
		return fmt.Errorf("export.mongo.uri is required when export.mongo.enabled")
	}

	if cfg.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be >= 1, got %d", cfg.Batch.Workers)
	}
	if cfg.Batch.Workers > 64 {
		return fmt.Errorf("batch.workers must be <= 64, got %d", cfg.Batch.Workers)
	}
	if cfg.Batch.CalendarRetries < 0 {
		return fmt.Errorf("batch.calendar_retries must be >= 0, got %d", cfg.Batch.CalendarRetries)
	}

	if _, err := time.Parse("15:04", cfg.Schedule.At); err != nil {
		return fmt.Errorf("schedule.at must be HH:MM, got %q", cfg.Schedule.At)
	}
	if cfg.Schedule.LivenessPoll <= 0 {
		return fmt.Errorf("schedule.liveness_poll must be > 0")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}
