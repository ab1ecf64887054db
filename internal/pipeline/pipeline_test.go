package pipeline

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/staywatch/staywatch/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func usableQuote(day int) types.PriceQuote {
	checkIn := time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC)
	return types.PriceQuote{
		CheckIn:      checkIn,
		CheckOut:     checkIn.AddDate(0, 0, 1),
		MinNights:    1,
		NightlyPrice: &types.Money{Amount: 165, Currency: "nzd", Raw: " $165  NZD "},
		Total:        &types.Money{Amount: 204, Currency: "NZD", Raw: "$204 NZD"},
	}
}

func TestUsableQuoteFilter(t *testing.T) {
	p := DefaultQuotePipeline(New(testLogger))

	quotes := []types.PriceQuote{
		usableQuote(10),
		{CheckIn: time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC)}, // no prices at all
	}

	kept, err := p.ProcessAll(quotes)
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if len(kept) != 1 {
		t.Fatalf("expected 1 survivor, got %d", len(kept))
	}
	if p.Dropped() != 1 {
		t.Fatalf("expected 1 drop, got %d", p.Dropped())
	}
}

func TestDedupByCheckIn(t *testing.T) {
	p := DefaultQuotePipeline(New(testLogger))

	kept, err := p.ProcessAll([]types.PriceQuote{
		usableQuote(10),
		usableQuote(10),
		usableQuote(12),
	})
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if len(kept) != 2 {
		t.Fatalf("expected duplicate check-in dropped, got %d quotes", len(kept))
	}
}

func TestNormalizeMoney(t *testing.T) {
	p := New(testLogger)
	p.Use(&NormalizeMoneyMiddleware{})

	quote := usableQuote(10)
	parsed := quote.NightlyPrice
	result, err := p.Process(&quote)
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if result.NightlyPrice.Raw != "$165 NZD" {
		t.Fatalf("expected collapsed whitespace, got %q", result.NightlyPrice.Raw)
	}
	if result.NightlyPrice.Currency != "NZD" {
		t.Fatalf("expected upper-cased code, got %q", result.NightlyPrice.Currency)
	}

	// The value parsed from the page stays as parsed; normalization
	// replaces it with a copy.
	if parsed.Raw != " $165  NZD " || parsed.Currency != "nzd" {
		t.Fatalf("parsed money mutated: %q %q", parsed.Raw, parsed.Currency)
	}
}
