package types

import "time"

// ListingJob identifies one listing to process, with an optional
// per-listing minimum-stay override from the input file.
type ListingJob struct {
	// ListingID is the stable external identifier of the rentable unit.
	ListingID string

	// MinNights overrides minimum-stay auto-detection when > 0.
	MinNights int
}

// DateFailure records a single date whose price extraction failed.
// Failures are informational; they never abort the listing.
type DateFailure struct {
	Date   time.Time
	Stage  string
	Reason string
}

// ListingStats aggregates one listing's extraction outcome.
type ListingStats struct {
	DaysTotal         int
	DaysBookable      int
	DaysNotBookable   int
	DaysCheckoutOnly  int
	DaysNoCheckout    int
	QuotesAttempted   int
	QuotesCollected   int
	QuotesDiscarded   int
	DatesSkipped      int
	NightlyPriceMin   float64
	NightlyPriceMean  float64
	NightlyPriceMax   float64
	NightlyPriceCount int
}

// ListingResult is the complete outcome of processing one listing. It is
// owned by the orchestrator for the duration of the listing pass, handed
// to the exporter for serialization, and never mutated afterwards.
type ListingResult struct {
	ListingID   string
	URL         string
	Calendar    []CalendarDay
	Quotes      []PriceQuote
	Failures    []DateFailure
	ExportPaths []string
	Stats       ListingStats

	// Err is set when the listing failed at the listing level (calendar
	// extraction or session acquisition); the batch continues regardless.
	Err error
}

// Processed reports whether the listing completed its pass, even with
// zero bookable days.
func (r *ListingResult) Processed() bool {
	return r.Err == nil
}

// BatchSummary aggregates one batch run across all listings.
type BatchSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Attempted  int
	Succeeded  int
	Failed     int
	Results    []*ListingResult
}
