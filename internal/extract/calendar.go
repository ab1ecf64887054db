package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/staywatch/staywatch/internal/browser"
	"github.com/staywatch/staywatch/internal/config"
	"github.com/staywatch/staywatch/internal/locator"
	"github.com/staywatch/staywatch/internal/types"
)

// Locator cascades for the availability calendar. Ordered most-specific
// first; the trailing XPath entries survive cosmetic test-id renames.
var (
	modalCloseCandidates = []locator.Strategy{
		locator.CSS(`button[aria-label='Close']`),
		locator.CSS(`button[aria-label='关闭']`),
	}

	calendarTriggerCandidates = []locator.Strategy{
		locator.CSS(`button[data-testid='calendar-button']`),
		locator.CSS(`button[data-testid='homes-pdp-calendar-button']`),
		locator.CSS(`button[data-testid='homes-pdp-calendar-availability-button']`),
		locator.CSS(`button[data-testid='pdp-availability-calendar-button']`),
		locator.XPath(`//button[contains(@data-testid, 'calendar')]`),
		locator.XPath(`//button[contains(@aria-label, 'Choose')]`),
		locator.XPath(`//button[contains(@aria-label, 'calendar')]`),
		locator.XPath(`//button[contains(@aria-label, 'availability')]`),
	}

	calendarContentCandidates = []locator.Strategy{
		locator.CSS(`div[data-testid='calendar-container']`),
		locator.CSS(`div[data-testid='availability-calendar']`),
		locator.XPath(`//div[contains(@data-testid, 'calendar')]`),
		locator.XPath(`//div[contains(@class, '_calendar')]//table`),
	}

	dateCellStrategy = locator.CSS(`td[role='button']`)
)

const dayTestIDPrefix = "calendar-day-"

// CalendarExtractor walks a listing page to its availability calendar
// and parses every visible day into a typed record. One call is one
// attempt: retries belong to the orchestrator.
type CalendarExtractor struct {
	resolver *locator.Resolver
	cfg      *config.ExtractConfig
	logger   *slog.Logger
}

// NewCalendarExtractor creates a calendar extractor.
func NewCalendarExtractor(cfg *config.ExtractConfig, logger *slog.Logger) *CalendarExtractor {
	return &CalendarExtractor{
		resolver: locator.NewResolver(logger),
		cfg:      cfg,
		logger:   logger.With("component", "calendar_extractor"),
	}
}

// OnLocatorFallback registers a hook fired when a fallback locator wins
// a cascade resolution.
func (e *CalendarExtractor) OnLocatorFallback(fn func()) {
	e.resolver.OnFallback(fn)
}

// Extract loads the listing page, opens the calendar widget and returns
// the deduplicated day records. An open calendar with no parseable cells
// yields an empty slice, not an error.
func (e *CalendarExtractor) Extract(ctx context.Context, session browser.Session, url string) ([]types.CalendarDay, error) {
	if err := session.Navigate(ctx, url); err != nil {
		return nil, err
	}
	if err := session.WaitReady(ctx, e.cfg.ReadyTimeout); err != nil {
		// Progressive rendering keeps readyState pending on some pages.
		e.logger.Warn("page readiness timed out, continuing", "url", url, "error", err)
	}

	e.dismissModal(ctx, session)

	trigger := e.resolver.Resolve(ctx, session, calendarTriggerCandidates, e.cfg.LocatorTimeout)
	if !trigger.Found {
		return nil, fmt.Errorf("calendar trigger: %w", types.ErrNoCalendar)
	}
	if err := e.resolver.Click(ctx, trigger.Element); err != nil {
		return nil, fmt.Errorf("open calendar: %w", err)
	}

	content := e.resolver.Resolve(ctx, session, calendarContentCandidates, e.cfg.LocatorTimeout)
	if !content.Found {
		return nil, fmt.Errorf("calendar content: %w", types.ErrNoCalendar)
	}

	if _, err := session.Probe(ctx, dateCellStrategy, e.cfg.LocatorTimeout); err != nil {
		return nil, fmt.Errorf("date cells: %w", types.ErrNoDateCells)
	}

	markup, err := session.HTML(ctx)
	if err != nil {
		return nil, err
	}

	days, err := ParseCalendar(markup)
	if err != nil {
		return nil, err
	}
	e.logger.Info("calendar parsed", "url", url, "days", len(days))
	return days, nil
}

// dismissModal closes interstitial dialogs when present. Best effort:
// a missing or stubborn dialog never fails the extraction.
func (e *CalendarExtractor) dismissModal(ctx context.Context, session browser.Session) {
	result := e.resolver.Resolve(ctx, session, modalCloseCandidates, e.cfg.LocatorTimeout)
	if !result.Found {
		return
	}
	if err := result.Element.ScriptClick(ctx); err != nil {
		e.logger.Debug("modal dismissal failed", "error", err)
		return
	}
	e.logger.Debug("dismissed modal dialog")
}

// ParseCalendar reads day records out of a page snapshot. Day identity
// is the date key; when the widget renders a date twice the first cell
// wins and later duplicates are dropped.
func ParseCalendar(markup string) ([]types.CalendarDay, error) {
	snapshot, err := ParseSnapshot(markup)
	if err != nil {
		return nil, err
	}

	var days []types.CalendarDay
	seen := make(map[string]bool)

	snapshot.Doc().Find(dateCellStrategy.Value).Each(func(_ int, cell *goquery.Selection) {
		dayDiv := cell.Find("div[data-testid^='" + dayTestIDPrefix + "']").First()
		if dayDiv.Length() == 0 {
			return
		}

		testID, _ := dayDiv.Attr("data-testid")
		date, err := parseCellDate(strings.TrimPrefix(testID, dayTestIDPrefix))
		if err != nil {
			return
		}

		key := date.Format("2006-01-02")
		if seen[key] {
			return
		}
		seen[key] = true

		blocked := dayDiv.AttrOr("data-is-day-blocked", "") == "true"
		label := cell.AttrOr("aria-label", "")
		disabled := cell.AttrOr("aria-disabled", "") == "true"

		days = append(days, types.CalendarDay{
			Date:      date,
			Status:    dayStatus(blocked, disabled, label),
			Blocked:   blocked,
			CellClass: firstClass(cell),
			Label:     label,
		})
	})

	return days, nil
}

// dayStatus applies the status precedence: a blocked or disabled cell is
// never bookable regardless of its label, and checkout-only or
// no-eligible-checkout qualifiers override plain availability.
func dayStatus(blocked, disabled bool, label string) types.DayStatus {
	if blocked || disabled {
		return types.StatusNotBookable
	}
	// The availability keyword is matched case-sensitively: the widget
	// capitalizes "Available", and "Unavailable" would otherwise match
	// through its lowercase suffix.
	if !strings.Contains(label, "Available") {
		return types.StatusNotBookable
	}
	lower := strings.ToLower(label)
	switch {
	case strings.Contains(lower, "only available for checkout"):
		return types.StatusCheckoutOnly
	case strings.Contains(lower, "no eligible checkout date"):
		return types.StatusNoEligibleCheckout
	default:
		return types.StatusBookable
	}
}

// parseCellDate accepts the day/month/year form the widget embeds in its
// test ids, plus the ISO form newer markup uses.
func parseCellDate(raw string) (time.Time, error) {
	for _, layout := range []string{"02/01/2006", "2006-01-02"} {
		if date, err := time.Parse(layout, raw); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

func firstClass(sel *goquery.Selection) string {
	classes := strings.Fields(sel.AttrOr("class", ""))
	if len(classes) == 0 {
		return ""
	}
	return classes[0]
}
