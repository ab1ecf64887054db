package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/staywatch/staywatch/internal/batch"
	"github.com/staywatch/staywatch/internal/browser"
	"github.com/staywatch/staywatch/internal/config"
	"github.com/staywatch/staywatch/internal/export"
	"github.com/staywatch/staywatch/internal/observability"
	"github.com/staywatch/staywatch/internal/schedule"
)

var (
	cfgFile     string
	verbose     bool
	inputPath   string
	outputDir   string
	workers     int
	guests      int
	backend     string
	controlURL  string
	maxListings int
	scheduleAt  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "staywatch",
		Short: "StayWatch rental calendar and price watcher",
		Long: `StayWatch extracts availability calendars and nightly price quotes
from short-term rental listings and exports them as spreadsheets.

Features:
  • Selector cascades that survive markup churn
  • Local headless browser or remote pooled-browser backend
  • Per-listing calendar and price exports with by-date/by-room mirrors
  • Concurrent workers, one browser session each
  • Daily scheduling with prior-run liveness guard
  • Prometheus metrics endpoint`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runCmd creates the "run" subcommand.
func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one batch over the input file",
		Long:  "Read listing ids from the input spreadsheet and extract calendars and prices once.",
		RunE:  runBatch,
	}
	addBatchFlags(cmd)
	return cmd
}

// scheduleCmd creates the "schedule" subcommand.
func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the batch daily at a fixed time",
		RunE:  runSchedule,
	}
	addBatchFlags(cmd)
	cmd.Flags().StringVar(&scheduleAt, "at", "", "daily run time, HH:MM local (default from config)")
	return cmd
}

func addBatchFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "input .xlsx with listing ids (required)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "export output directory")
	cmd.Flags().IntVarP(&workers, "workers", "n", 0, "number of concurrent sessions")
	cmd.Flags().IntVar(&guests, "guests", 0, "guest count for price quotes")
	cmd.Flags().StringVar(&backend, "backend", "", "session backend: local or remote")
	cmd.Flags().StringVar(&controlURL, "control-url", "", "remote pool control API base URL")
	cmd.Flags().IntVar(&maxListings, "max-listings", 0, "process at most this many listings (0 = all)")
	_ = cmd.MarkFlagRequired("input")
}

// runBatch executes the run command.
func runBatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadEverything()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	return executeBatch(ctx, cfg, logger)
}

// runSchedule executes the schedule command: the same batch, wrapped in
// the daily trigger loop.
func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadEverything()
	if err != nil {
		return err
	}
	if scheduleAt != "" {
		cfg.Schedule.At = scheduleAt
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	scheduler := schedule.NewScheduler(&cfg.Schedule, logger)
	err = scheduler.Run(ctx, func(runCtx context.Context) error {
		return executeBatch(runCtx, cfg, logger)
	})
	if err != nil && ctx.Err() != nil {
		// Interrupt during the wait loop is a clean exit.
		return nil
	}
	return err
}

// executeBatch wires the provider, exporter and orchestrator and runs
// one batch end to end.
func executeBatch(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	jobs, err := batch.ReadJobs(inputPath, logger)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return fmt.Errorf("input file %s yielded no listings", inputPath)
	}

	provider, err := browser.NewProvider(&cfg.Browser, logger)
	if err != nil {
		return fmt.Errorf("create session provider: %w", err)
	}
	defer provider.Close()

	exporter, err := buildExporter(cfg, logger)
	if err != nil {
		return fmt.Errorf("create exporter: %w", err)
	}
	defer exporter.Close()

	metrics := observability.NewMetrics(logger)
	if cfg.Metrics.Enabled {
		if err := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
	}

	orchestrator := batch.NewOrchestrator(provider, exporter, cfg, metrics, logger)

	start := time.Now()
	summary, err := orchestrator.Run(ctx, jobs)
	if err != nil {
		return err
	}

	elapsed := time.Since(start)
	fmt.Printf("\nBatch %s complete in %s\n", summary.RunID, elapsed.Round(time.Second))
	fmt.Printf("   Listings:  %d attempted, %d succeeded, %d failed\n",
		summary.Attempted, summary.Succeeded, summary.Failed)
	fmt.Printf("   Output:    %s\n", cfg.Export.OutputDir)
	return nil
}

// buildExporter assembles the primary spreadsheet exporter plus the
// optional archive mirror.
func buildExporter(cfg *config.Config, logger *slog.Logger) (export.Exporter, error) {
	excel := export.NewExcelExporter(cfg.Export.OutputDir,
		cfg.Export.MirrorByDate, cfg.Export.MirrorByListing, logger)

	if !cfg.Export.Mongo.Enabled {
		return excel, nil
	}

	mongo, err := export.NewMongoExporter(cfg.Export.Mongo.URI,
		cfg.Export.Mongo.Database, cfg.Export.Mongo.Collection, logger)
	if err != nil {
		return nil, err
	}
	return export.NewMultiExporter([]export.Exporter{excel, mongo}, logger), nil
}

// loadEverything loads config, applies CLI overrides and builds the
// logger. Shared by run and schedule.
func loadEverything() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := setupLogger(&cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// signalContext cancels on SIGINT/SIGTERM so sessions get released.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down...", "signal", sig)
		cancel()
	}()
	return ctx, cancel
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("StayWatch %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Browser:\n")
			fmt.Printf("  Backend:           %s\n", cfg.Browser.Backend)
			fmt.Printf("  Control URL:       %s\n", cfg.Browser.ControlURL)
			fmt.Printf("  Headless:          %v\n", cfg.Browser.Headless)
			fmt.Printf("  Stealth:           %v\n", cfg.Browser.Stealth)
			fmt.Printf("  Navigate Timeout:  %s\n", cfg.Browser.NavigateTimeout)
			fmt.Printf("\nExtract:\n")
			fmt.Printf("  Ready Timeout:     %s\n", cfg.Extract.ReadyTimeout)
			fmt.Printf("  Locator Timeout:   %s\n", cfg.Extract.LocatorTimeout)
			fmt.Printf("  Guests:            %d\n", cfg.Extract.Guests)
			fmt.Printf("  Cooldown:          every %d dates, %s\n", cfg.Extract.CooldownEvery, cfg.Extract.CooldownPause)
			fmt.Printf("  Verify Skipped:    %v\n", cfg.Extract.VerifySkipped)
			fmt.Printf("\nExport:\n")
			fmt.Printf("  Output Dir:        %s\n", cfg.Export.OutputDir)
			fmt.Printf("  Mirror By Date:    %v\n", cfg.Export.MirrorByDate)
			fmt.Printf("  Mirror By Room:    %v\n", cfg.Export.MirrorByListing)
			fmt.Printf("  Mongo Mirror:      %v\n", cfg.Export.Mongo.Enabled)
			fmt.Printf("\nBatch:\n")
			fmt.Printf("  Workers:           %d\n", cfg.Batch.Workers)
			fmt.Printf("  Base URL:          %s\n", cfg.Batch.BaseURL)
			fmt.Printf("  Calendar Retries:  %d\n", cfg.Batch.CalendarRetries)
			fmt.Printf("\nSchedule:\n")
			fmt.Printf("  At:                %s\n", cfg.Schedule.At)
			fmt.Printf("  Liveness Marker:   %q\n", cfg.Schedule.LivenessMarker)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}

// setupLogger creates the structured logger, optionally teeing into a
// timestamped file under the configured log directory.
func setupLogger(cfg *config.LoggingConfig) (*slog.Logger, error) {
	level := parseLevel(cfg.Level)
	if verbose {
		level = slog.LevelDebug
	}

	var out io.Writer
	switch cfg.Output {
	case "stdout":
		out = os.Stdout
	default:
		out = os.Stderr
	}

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		name := fmt.Sprintf("staywatch_%s.log", time.Now().Format("20060102_150405"))
		file, err := os.OpenFile(filepath.Join(cfg.Dir, name),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(out, file)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler), nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if outputDir != "" {
		cfg.Export.OutputDir = outputDir
	}
	if workers > 0 {
		cfg.Batch.Workers = workers
	}
	if guests > 0 {
		cfg.Extract.Guests = guests
	}
	if backend != "" {
		cfg.Browser.Backend = backend
	}
	if controlURL != "" {
		cfg.Browser.ControlURL = controlURL
	}
	if maxListings > 0 {
		cfg.Batch.MaxListings = maxListings
	}
}
