package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/staywatch/staywatch/internal/browser"
	"github.com/staywatch/staywatch/internal/config"
	"github.com/staywatch/staywatch/internal/export"
	"github.com/staywatch/staywatch/internal/extract"
	"github.com/staywatch/staywatch/internal/observability"
	"github.com/staywatch/staywatch/internal/pipeline"
	"github.com/staywatch/staywatch/internal/types"
)

// Orchestrator runs a batch of listings through calendar and price
// extraction and hands the records to the exporter. One worker owns one
// session and one contiguous chunk of the input; chunks run in parallel
// and merge at the join barrier.
type Orchestrator struct {
	provider browser.Provider
	exporter export.Exporter
	calendar *extract.CalendarExtractor
	price    *extract.PriceExtractor
	cfg      *config.Config
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewOrchestrator wires a batch orchestrator.
func NewOrchestrator(provider browser.Provider, exporter export.Exporter, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		provider: provider,
		exporter: exporter,
		calendar: extract.NewCalendarExtractor(&cfg.Extract, logger),
		price:    extract.NewPriceExtractor(&cfg.Extract, logger),
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger.With("component", "orchestrator"),
	}
	onFallback := func() { metrics.LocatorFallbacks.Add(1) }
	o.calendar.OnLocatorFallback(onFallback)
	o.price.OnLocatorFallback(onFallback)
	return o
}

// Run processes every job and returns the batch summary. Listing-level
// failures are recorded and skipped; only fatal conditions (cancelation,
// pool exhaustion, a failed primary export) stop the batch early.
func (o *Orchestrator) Run(ctx context.Context, jobs []types.ListingJob) (*types.BatchSummary, error) {
	if max := o.cfg.Batch.MaxListings; max > 0 && len(jobs) > max {
		o.logger.Warn("input truncated", "jobs", len(jobs), "max_listings", max)
		jobs = jobs[:max]
	}

	summary := &types.BatchSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Attempted: len(jobs),
	}
	if len(jobs) == 0 {
		summary.FinishedAt = time.Now()
		return summary, nil
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	// fail records the first batch-fatal error and cancels the run.
	var fatalMu sync.Mutex
	var fatalErr error
	fail := func(err error) {
		fatalMu.Lock()
		if fatalErr == nil {
			fatalErr = err
		}
		fatalMu.Unlock()
		stop()
	}

	chunks := ChunkJobs(jobs, o.cfg.Batch.Workers)
	o.logger.Info("batch starting",
		"run_id", summary.RunID, "jobs", len(jobs), "workers", len(chunks))

	results := make([][]*types.ListingResult, len(chunks))
	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(slot int, chunk []types.ListingJob) {
			defer wg.Done()
			o.metrics.ActiveWorkers.Add(1)
			defer o.metrics.ActiveWorkers.Add(-1)
			results[slot] = o.runChunk(runCtx, fail, chunk)
		}(i, chunk)
	}
	wg.Wait()

	for _, chunkResults := range results {
		for _, result := range chunkResults {
			summary.Results = append(summary.Results, result)
			if result.Processed() {
				summary.Succeeded++
			} else {
				summary.Failed++
			}
		}
	}
	summary.FinishedAt = time.Now()

	// The summary stays auditable even when the run was interrupted, so
	// it is written outside the run's cancelation scope.
	o.exportSummary(context.WithoutCancel(ctx), summary)
	o.logger.Info("batch finished",
		"run_id", summary.RunID,
		"attempted", summary.Attempted,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"duration", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Second),
		"metrics", o.metrics.Snapshot())

	if fatalErr != nil {
		return summary, fmt.Errorf("%w: %v", types.ErrBatchStopped, fatalErr)
	}
	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("%w: %v", types.ErrBatchStopped, err)
	}
	return summary, nil
}

// runChunk leases one session and walks its chunk sequentially. A dead
// pool fails the whole chunk; everything else fails one listing at most.
func (o *Orchestrator) runChunk(ctx context.Context, fail func(error), chunk []types.ListingJob) []*types.ListingResult {
	results := make([]*types.ListingResult, 0, len(chunk))

	session, err := o.provider.Session(ctx)
	if err != nil {
		o.metrics.SessionsFailed.Add(1)
		if errors.Is(err, types.ErrPoolExhausted) {
			o.logger.Error("session pool exhausted, stopping batch", "error", err)
			fail(err)
		}
		for _, job := range chunk {
			results = append(results, &types.ListingResult{
				ListingID: job.ListingID,
				URL:       o.listingURL(job.ListingID),
				Err:       err,
			})
		}
		return results
	}
	defer session.Close()
	o.metrics.SessionsOpened.Add(1)

	for _, job := range chunk {
		if ctx.Err() != nil {
			results = append(results, &types.ListingResult{
				ListingID: job.ListingID,
				URL:       o.listingURL(job.ListingID),
				Err:       types.ErrBatchStopped,
			})
			continue
		}

		result := o.processListing(ctx, session, job)
		if result.Processed() {
			o.metrics.ListingsDone.Add(1)
		} else {
			o.metrics.ListingsFailed.Add(1)
			var exportErr *types.ExportError
			if errors.As(result.Err, &exportErr) {
				o.logger.Error("primary export failed, stopping batch", "error", result.Err)
				fail(result.Err)
			}
		}
		results = append(results, result)
	}
	return results
}

// processListing runs the full pass for one listing: calendar, per-date
// quotes, post-processing, exports, aggregates.
func (o *Orchestrator) processListing(ctx context.Context, session browser.Session, job types.ListingJob) *types.ListingResult {
	result := &types.ListingResult{
		ListingID: job.ListingID,
		URL:       o.listingURL(job.ListingID),
	}
	logger := o.logger.With("listing_id", job.ListingID)
	logger.Info("processing listing", "url", result.URL)

	days, err := o.extractCalendarWithRetry(ctx, session, result.URL)
	if err != nil {
		result.Err = &types.ExtractError{ListingID: job.ListingID, Stage: "calendar", Err: err}
		logger.Error("calendar extraction failed", "error", err)
		return result
	}
	result.Calendar = days
	o.metrics.CalendarsParsed.Add(1)
	o.metrics.CalendarDays.Add(int64(len(days)))

	minNights := o.resolveMinNights(ctx, session, job, logger)
	rawQuotes := o.collectQuotes(ctx, session, result, minNights, logger)

	quotePipeline := pipeline.DefaultQuotePipeline(pipeline.New(logger))
	kept, err := quotePipeline.ProcessAll(rawQuotes)
	if err != nil {
		result.Err = err
		return result
	}
	result.Quotes = kept
	result.Stats.QuotesDiscarded = len(rawQuotes) - len(kept)
	o.metrics.QuotesExtracted.Add(int64(len(kept)))
	o.metrics.QuotesDiscarded.Add(int64(result.Stats.QuotesDiscarded))

	if err := o.exportListing(ctx, result); err != nil {
		result.Err = err
		return result
	}

	attempted, skipped := result.Stats.QuotesAttempted, result.Stats.DatesSkipped
	result.Stats = ComputeStats(result)
	result.Stats.QuotesAttempted = attempted
	result.Stats.QuotesDiscarded = len(rawQuotes) - len(kept)
	result.Stats.DatesSkipped = skipped

	logger.Info("listing done",
		"days", result.Stats.DaysTotal,
		"bookable", result.Stats.DaysBookable,
		"quotes", result.Stats.QuotesCollected,
		"failures", len(result.Failures),
		"skipped", result.Stats.DatesSkipped)
	return result
}

// extractCalendarWithRetry applies the listing-level retry policy to the
// calendar stage. The extractor itself never retries.
func (o *Orchestrator) extractCalendarWithRetry(ctx context.Context, session browser.Session, url string) ([]types.CalendarDay, error) {
	attempts := o.cfg.Batch.CalendarRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		days, err := o.calendar.Extract(ctx, session, url)
		o.metrics.PagesNavigated.Add(1)
		if err == nil {
			return days, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, err
		}
		if attempt < attempts {
			o.logger.Warn("calendar attempt failed, retrying",
				"url", url, "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(o.cfg.Batch.RetryDelay):
			}
		}
	}
	return nil, lastErr
}

// resolveMinNights combines the per-listing override with page-text
// auto-detection. The session is still on the listing page after the
// calendar pass, so one snapshot covers it.
func (o *Orchestrator) resolveMinNights(ctx context.Context, session browser.Session, job types.ListingJob, logger *slog.Logger) int {
	pageText := ""
	if job.MinNights == 0 {
		if markup, err := session.HTML(ctx); err == nil {
			pageText = markup
		}
	}
	return extract.ResolveMinNights(job.MinNights, pageText, o.cfg.Extract.DefaultMinNights, logger)
}

// collectQuotes walks the bookable dates with the minimum-stay cursor.
// A successful quote covers the following minNights-1 dates, so the
// cursor skips them; with verify_skipped on, only dates inside the
// quoted stay are skipped. Failures are per-date, never fatal.
func (o *Orchestrator) collectQuotes(ctx context.Context, session browser.Session, result *types.ListingResult, minNights int, logger *slog.Logger) []types.PriceQuote {
	var bookable []types.CalendarDay
	for _, day := range result.Calendar {
		if day.Bookable() {
			bookable = append(bookable, day)
		}
	}
	if len(bookable) == 0 {
		logger.Info("no bookable dates, listing processed with zero quotes")
		return nil
	}
	sort.Slice(bookable, func(a, b int) bool { return bookable[a].Date.Before(bookable[b].Date) })

	var quotes []types.PriceQuote
	processed := 0
	i := 0
	for i < len(bookable) {
		if ctx.Err() != nil {
			break
		}
		date := bookable[i].Date
		result.Stats.QuotesAttempted++

		quote, err := o.price.Quote(ctx, session, result.URL, date, minNights)
		o.metrics.PagesNavigated.Add(1)
		if err != nil {
			stage := "price"
			if errors.Is(err, types.ErrRangeNotBookable) {
				stage = "booking"
			}
			result.Failures = append(result.Failures, types.DateFailure{
				Date: date, Stage: stage, Reason: err.Error(),
			})
			logger.Warn("date failed", "date", date.Format("2006-01-02"), "stage", stage, "error", err)
			i++
		} else {
			quotes = append(quotes, *quote)
			i += 1 + o.skipCovered(bookable, i, quote, result)
		}

		processed++
		o.cooldown(ctx, processed, logger)
	}
	return quotes
}

// skipCovered counts how many following bookable dates the quoted stay
// lets the cursor skip.
func (o *Orchestrator) skipCovered(bookable []types.CalendarDay, i int, quote *types.PriceQuote, result *types.ListingResult) int {
	skipped := 0
	for j := i + 1; j < len(bookable) && skipped < quote.MinNights-1; j++ {
		if o.cfg.Extract.VerifySkipped && !bookable[j].Date.Before(quote.CheckOut) {
			break
		}
		skipped++
	}
	result.Stats.DatesSkipped += skipped
	o.metrics.DatesSkipped.Add(int64(skipped))
	return skipped
}

// cooldown pauses after every N processed dates to stay under the
// target's rate expectations.
func (o *Orchestrator) cooldown(ctx context.Context, processed int, logger *slog.Logger) {
	every := o.cfg.Extract.CooldownEvery
	if every <= 0 || processed%every != 0 {
		return
	}
	logger.Debug("cooldown pause", "processed", processed)
	select {
	case <-ctx.Done():
	case <-time.After(o.cfg.Extract.CooldownPause):
	}
}

// exportListing writes the per-listing calendar and price files. Empty
// datasets are skipped, not errors.
func (o *Orchestrator) exportListing(ctx context.Context, result *types.ListingResult) error {
	now := time.Now()

	if len(result.Calendar) > 0 {
		sheet := export.CalendarSheet(result.ListingID, result.Calendar)
		sheet.DateKey = now.Format("2006-01-02")
		path, err := o.exporter.Export(ctx, sheet, export.CalendarFilename(result.ListingID, now))
		if err != nil {
			o.metrics.ExportsFailed.Add(1)
			return err
		}
		result.ExportPaths = append(result.ExportPaths, path)
		o.metrics.ExportsWritten.Add(1)
	}

	if len(result.Quotes) > 0 {
		sheet := export.QuoteSheet(result.ListingID, result.Quotes)
		sheet.DateKey = now.Format("2006-01-02")
		path, err := o.exporter.Export(ctx, sheet, export.QuoteFilename(result.ListingID, now))
		if err != nil {
			o.metrics.ExportsFailed.Add(1)
			return err
		}
		result.ExportPaths = append(result.ExportPaths, path)
		o.metrics.ExportsWritten.Add(1)
	}
	return nil
}

// exportSummary writes the cross-listing summary. Failure here is
// logged, not fatal: the per-listing files already exist.
func (o *Orchestrator) exportSummary(ctx context.Context, summary *types.BatchSummary) {
	if len(summary.Results) == 0 {
		return
	}
	sheet := export.SummarySheet(summary)
	path, err := o.exporter.Export(ctx, sheet, export.SummaryFilename(summary.StartedAt))
	if err != nil {
		o.metrics.ExportsFailed.Add(1)
		o.logger.Error("summary export failed", "error", err)
		return
	}
	o.metrics.ExportsWritten.Add(1)
	o.logger.Info("summary written", "path", path)
}

func (o *Orchestrator) listingURL(listingID string) string {
	return strings.TrimRight(o.cfg.Batch.BaseURL, "/") + "/" + listingID
}
