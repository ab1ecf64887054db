package extract

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/staywatch/staywatch/internal/browser"
	"github.com/staywatch/staywatch/internal/config"
	"github.com/staywatch/staywatch/internal/locator"
	"github.com/staywatch/staywatch/internal/types"
)

// Locators for the booking panel. The class-based entries are brittle
// by nature, which is why every one of them sits inside a cascade.
var (
	ctaStrategy = locator.CSS(`button[data-testid='homes-pdp-cta-btn']`)

	priceDetailCandidates = []locator.Strategy{
		locator.CSS(`button[aria-label='Show price details']`),
		locator.CSS(`button._12wl7g09`),
		locator.XPath(`//button[contains(text(), 'Show price details')]`),
		locator.XPath(`//button[.//span[contains(text(), 'Show price details')]]`),
	}

	priceAreaCandidates = []locator.Strategy{
		locator.CSS(`div[data-testid='book-it-default']`),
		locator.CSS(`div._wgmchy`),
	}

	totalCandidates = []locator.Strategy{
		locator.CSS(`div._1avmy66 span._j1kt73`),
		locator.XPath(`//div[contains(@class, '_1avmy66')]//span[contains(text(), '$')]`),
	}

	priceItemStrategy       = locator.CSS(`div._14omvfj`)
	nightlyFallbackStrategy = locator.CSS(`span._11jcbg2`)
	errorBannerStrategy     = locator.CSS(`[data-testid*='error']`)
	progressBarStrategy     = locator.CSS(`[role='progressbar']`)
)

// Line-item keyword sets. Matching is case-insensitive substring so the
// labels survive copy tweaks like "Cleaning fee" vs "cleaning fees".
const (
	keywordNight      = "night"
	keywordCleaning   = "cleaning fee"
	keywordServiceFee = "service fee"
	keywordTax        = "tax"
)

// PriceExtractor collects one price quote per check-in date by loading
// the listing with a dated booking URL and reading the expanded price
// breakdown. A failed date is that date's problem only.
type PriceExtractor struct {
	resolver *locator.Resolver
	cfg      *config.ExtractConfig
	logger   *slog.Logger
}

// NewPriceExtractor creates a price extractor.
func NewPriceExtractor(cfg *config.ExtractConfig, logger *slog.Logger) *PriceExtractor {
	return &PriceExtractor{
		resolver: locator.NewResolver(logger),
		cfg:      cfg,
		logger:   logger.With("component", "price_extractor"),
	}
}

// OnLocatorFallback registers a hook fired when a fallback locator wins
// a cascade resolution.
func (e *PriceExtractor) OnLocatorFallback(fn func()) {
	e.resolver.OnFallback(fn)
}

// Quote fetches the price breakdown for a stay of minNights starting at
// checkIn. A date whose range cannot be booked returns
// types.ErrRangeNotBookable; the caller records it and moves on.
func (e *PriceExtractor) Quote(ctx context.Context, session browser.Session, listingURL string, checkIn time.Time, minNights int) (*types.PriceQuote, error) {
	checkOut := checkIn.AddDate(0, 0, minNights)

	dated, err := datedBookingURL(listingURL, checkIn, checkOut, e.cfg.Guests)
	if err != nil {
		return nil, err
	}
	if err := session.Navigate(ctx, dated); err != nil {
		return nil, err
	}
	if err := e.waitSettled(ctx, session); err != nil {
		return nil, err
	}

	if err := e.checkBookable(ctx, session, checkIn, checkOut); err != nil {
		return nil, err
	}
	if err := e.expandDetails(ctx, session); err != nil {
		return nil, err
	}

	markup, err := session.HTML(ctx)
	if err != nil {
		return nil, err
	}

	quote, err := ParsePriceDetails(markup, checkIn, checkOut, minNights, e.cfg.Guests)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("quote collected",
		"check_in", quote.CheckIn.Format("2006-01-02"),
		"nightly", quote.NightlyPrice.String(),
		"total", quote.Total.String(),
		"usable", quote.Usable())
	return quote, nil
}

// datedBookingURL appends the stay parameters to the listing URL.
func datedBookingURL(listingURL string, checkIn, checkOut time.Time, guests int) (string, error) {
	u, err := url.Parse(listingURL)
	if err != nil {
		return "", fmt.Errorf("listing url: %w", err)
	}
	q := u.Query()
	q.Set("check_in", checkIn.Format("2006-01-02"))
	q.Set("check_out", checkOut.Format("2006-01-02"))
	q.Set("adults", fmt.Sprintf("%d", guests))
	q.Set("children", "0")
	q.Set("infants", "0")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// waitSettled polls until the page shows neither an error banner nor a
// progress indicator and the booking panel is present. The retry counter
// is bounded; a page that never settles fails the date.
func (e *PriceExtractor) waitSettled(ctx context.Context, session browser.Session) error {
	if err := session.WaitReady(ctx, e.cfg.ReadyTimeout); err != nil {
		e.logger.Warn("page readiness timed out, continuing", "error", err)
	}

	retries := e.cfg.ClickRetries
	if retries < 1 {
		retries = 1
	}
	for attempt := 1; attempt <= retries; attempt++ {
		if e.pageSettled(ctx, session) {
			return nil
		}
		e.logger.Debug("page not settled", "attempt", attempt, "max", retries)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return fmt.Errorf("booking page did not settle after %d checks", retries)
}

func (e *PriceExtractor) pageSettled(ctx context.Context, session browser.Session) bool {
	probe := 500 * time.Millisecond

	if _, err := session.Probe(ctx, errorBannerStrategy, probe); err == nil {
		return false
	}
	if _, err := session.Probe(ctx, progressBarStrategy, probe); err == nil {
		return false
	}
	area := e.resolver.Resolve(ctx, session, priceAreaCandidates, probe)
	return area.Found
}

// checkBookable verifies the booking CTA accepts the selected range. A
// present but disabled CTA means the range is rejected outright.
func (e *PriceExtractor) checkBookable(ctx context.Context, session browser.Session, checkIn, checkOut time.Time) error {
	cta, err := session.Probe(ctx, ctaStrategy, e.cfg.ReadyTimeout)
	if err != nil {
		return fmt.Errorf("booking control missing: %w", types.ErrRangeNotBookable)
	}
	enabled, err := cta.Enabled(ctx)
	if err != nil {
		return fmt.Errorf("booking control state: %w", err)
	}
	if !enabled {
		e.logger.Debug("range rejected by booking control",
			"check_in", checkIn.Format("2006-01-02"),
			"check_out", checkOut.Format("2006-01-02"))
		return types.ErrRangeNotBookable
	}
	return nil
}

// expandDetails opens the price breakdown, retrying the click while the
// expanded panel fails to appear.
func (e *PriceExtractor) expandDetails(ctx context.Context, session browser.Session) error {
	retries := e.cfg.ClickRetries
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		button := e.resolver.Resolve(ctx, session, priceDetailCandidates, e.cfg.LocatorTimeout)
		if !button.Found {
			return fmt.Errorf("price details control not found")
		}
		if err := e.resolver.Click(ctx, button.Element); err != nil {
			lastErr = err
			continue
		}
		if _, err := session.Probe(ctx, priceItemStrategy, e.cfg.LocatorTimeout); err == nil {
			return nil
		}
		lastErr = fmt.Errorf("price details did not expand")
		e.logger.Debug("details panel not visible after click", "attempt", attempt)
	}
	return fmt.Errorf("expand price details: %w", lastErr)
}

// ParsePriceDetails reads the expanded price breakdown out of a page
// snapshot. Line items are matched by keyword, the total comes from its
// own cascade, and any value that fails money parsing stays nil.
func ParsePriceDetails(markup string, checkIn, checkOut time.Time, minNights, guests int) (*types.PriceQuote, error) {
	snapshot, err := ParseSnapshot(markup)
	if err != nil {
		return nil, err
	}

	quote := &types.PriceQuote{
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		MinNights: minNights,
		Guests:    guests,
	}

	snapshot.Doc().Find(priceItemStrategy.Value).Each(func(_ int, item *goquery.Selection) {
		label := strings.ToLower(strings.TrimSpace(item.Find("div.l1x1206l").Text()))
		value := strings.TrimSpace(item.Find("span._1k4xcdh").Text())
		if label == "" || value == "" {
			return
		}
		switch {
		case strings.Contains(label, keywordNight):
			quote.NightlyPrice = ParseMoney(value)
		case strings.Contains(label, keywordCleaning):
			quote.CleaningFee = ParseMoney(value)
		case strings.Contains(label, keywordServiceFee):
			quote.ServiceFee = ParseMoney(value)
		case strings.Contains(label, keywordTax):
			quote.Taxes = ParseMoney(value)
		}
	})

	if quote.NightlyPrice == nil {
		if text, ok := snapshot.Text(nightlyFallbackStrategy); ok {
			quote.NightlyPrice = ParseMoney(text)
		}
	}
	if text, _, ok := snapshot.FirstText(totalCandidates); ok {
		quote.Total = ParseMoney(text)
	}
	return quote, nil
}
