package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Metrics tracks operational counters for a batch run.
type Metrics struct {
	// Session metrics
	SessionsOpened atomic.Int64
	SessionsFailed atomic.Int64
	PagesNavigated atomic.Int64

	// Extraction metrics
	CalendarsParsed  atomic.Int64
	CalendarDays     atomic.Int64
	QuotesExtracted  atomic.Int64
	QuotesDiscarded  atomic.Int64
	DatesSkipped     atomic.Int64
	LocatorFallbacks atomic.Int64

	// Export metrics
	ExportsWritten atomic.Int64
	ExportsFailed  atomic.Int64

	// Batch metrics
	ActiveWorkers  atomic.Int32
	ListingsDone   atomic.Int64
	ListingsFailed atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		value int64
	}{
		{"staywatch_sessions_opened_total", "Total browser sessions leased", m.SessionsOpened.Load()},
		{"staywatch_sessions_failed_total", "Total session lease failures", m.SessionsFailed.Load()},
		{"staywatch_pages_navigated_total", "Total page navigations", m.PagesNavigated.Load()},
		{"staywatch_calendars_parsed_total", "Total calendars parsed", m.CalendarsParsed.Load()},
		{"staywatch_calendar_days_total", "Total day records parsed", m.CalendarDays.Load()},
		{"staywatch_quotes_extracted_total", "Total price quotes extracted", m.QuotesExtracted.Load()},
		{"staywatch_quotes_discarded_total", "Total price quotes discarded", m.QuotesDiscarded.Load()},
		{"staywatch_dates_skipped_total", "Total dates skipped by the stay cursor", m.DatesSkipped.Load()},
		{"staywatch_locator_fallbacks_total", "Total fallback locator matches", m.LocatorFallbacks.Load()},
		{"staywatch_exports_written_total", "Total export files written", m.ExportsWritten.Load()},
		{"staywatch_exports_failed_total", "Total export failures", m.ExportsFailed.Load()},
		{"staywatch_active_workers", "Currently active workers", int64(m.ActiveWorkers.Load())},
		{"staywatch_listings_done_total", "Total listings processed", m.ListingsDone.Load()},
		{"staywatch_listings_failed_total", "Total listings failed", m.ListingsFailed.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer starts the metrics HTTP server.
func (m *Metrics) StartServer(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Snapshot returns all counters as a map for the end-of-run summary.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"sessions_opened":   m.SessionsOpened.Load(),
		"sessions_failed":   m.SessionsFailed.Load(),
		"pages_navigated":   m.PagesNavigated.Load(),
		"calendars_parsed":  m.CalendarsParsed.Load(),
		"calendar_days":     m.CalendarDays.Load(),
		"quotes_extracted":  m.QuotesExtracted.Load(),
		"quotes_discarded":  m.QuotesDiscarded.Load(),
		"dates_skipped":     m.DatesSkipped.Load(),
		"locator_fallbacks": m.LocatorFallbacks.Load(),
		"exports_written":   m.ExportsWritten.Load(),
		"exports_failed":    m.ExportsFailed.Load(),
		"active_workers":    int64(m.ActiveWorkers.Load()),
		"listings_done":     m.ListingsDone.Load(),
		"listings_failed":   m.ListingsFailed.Load(),
	}
}
