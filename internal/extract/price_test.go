package extract

import (
	"strings"
	"testing"
	"time"
)

const priceHTML = `<!DOCTYPE html>
<html><body>
<div data-testid="book-it-default">
  <div class="_14omvfj">
    <div class="l1x1206l">$165 NZD x 3 nights</div>
    <span class="_1k4xcdh">$495 NZD</span>
  </div>
  <div class="_14omvfj">
    <div class="l1x1206l">Cleaning fee</div>
    <span class="_1k4xcdh">$80 NZD</span>
  </div>
  <div class="_14omvfj">
    <div class="l1x1206l">Airbnb service fee</div>
    <span class="_1k4xcdh">$95 NZD</span>
  </div>
  <div class="_14omvfj">
    <div class="l1x1206l">Taxes</div>
    <span class="_1k4xcdh">$34 NZD</span>
  </div>
  <div class="_1avmy66"><span class="_j1kt73">$704 NZD</span></div>
</div>
</body></html>`

func TestParsePriceDetails(t *testing.T) {
	checkIn := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	checkOut := checkIn.AddDate(0, 0, 3)

	quote, err := ParsePriceDetails(priceHTML, checkIn, checkOut, 3, 3)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if quote.NightlyPrice == nil || quote.NightlyPrice.Amount != 495 {
		t.Fatalf("nightly price wrong: %v", quote.NightlyPrice)
	}
	if quote.CleaningFee == nil || quote.CleaningFee.Amount != 80 {
		t.Fatalf("cleaning fee wrong: %v", quote.CleaningFee)
	}
	if quote.ServiceFee == nil || quote.ServiceFee.Amount != 95 {
		t.Fatalf("service fee wrong: %v", quote.ServiceFee)
	}
	if quote.Taxes == nil || quote.Taxes.Amount != 34 {
		t.Fatalf("taxes wrong: %v", quote.Taxes)
	}
	if quote.Total == nil || quote.Total.Amount != 704 {
		t.Fatalf("total wrong: %v", quote.Total)
	}
	if !quote.Usable() {
		t.Fatal("expected a usable quote")
	}
}

// A breakdown without a total parses, but the quote must report itself
// unusable so downstream filtering drops it.
func TestParsePriceDetailsMissingTotalIsUnusable(t *testing.T) {
	partial := strings.Replace(priceHTML, `$704 NZD`, ``, 1)
	checkIn := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	quote, err := ParsePriceDetails(partial, checkIn, checkIn.AddDate(0, 0, 1), 1, 3)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if quote.NightlyPrice == nil {
		t.Fatal("nightly price should still parse")
	}
	if quote.Total != nil {
		t.Fatalf("expected nil total, got %v", quote.Total)
	}
	if quote.Usable() {
		t.Fatal("quote without a total must not be usable")
	}
}

func TestParseMoney(t *testing.T) {
	cases := []struct {
		raw      string
		amount   float64
		currency string
	}{
		{"$165", 165, "$"},
		{"$495 NZD", 495, "NZD"},
		{"NZ$1,234.50", 1234.50, "NZ$"},
		{"€89", 89, "€"},
		{"Total: $704 NZD", 704, "NZD"},
	}
	for _, tc := range cases {
		money := ParseMoney(tc.raw)
		if money == nil {
			t.Fatalf("parse %q: expected a value", tc.raw)
		}
		if money.Amount != tc.amount || money.Currency != tc.currency {
			t.Fatalf("parse %q: got %.2f %s", tc.raw, money.Amount, money.Currency)
		}
	}

	if ParseMoney("free cancellation") != nil {
		t.Fatal("expected nil for text without an amount")
	}
	if ParseMoney("") != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestDetectMinStay(t *testing.T) {
	cases := map[string]int{
		"This home has a 3 night minimum.": 3,
		"Minimum stay: 5 nights":           5,
		"minimum of 2 nights required":     2,
		"minimum nights 4":                 4,
		"此房源至少入住3晚":                        3,
	}
	for text, want := range cases {
		got, ok := DetectMinStay(text)
		if !ok {
			t.Fatalf("detect %q: expected a match", text)
		}
		if got != want {
			t.Fatalf("detect %q: expected %d, got %d", text, want, got)
		}
	}

	if _, ok := DetectMinStay("book any number of nights"); ok {
		t.Fatal("expected no match without a rule phrase")
	}
}

func TestResolveMinNightsPrecedence(t *testing.T) {
	if got := ResolveMinNights(4, "3 night minimum", 1, testLogger); got != 4 {
		t.Fatalf("override must win, got %d", got)
	}
	if got := ResolveMinNights(0, "3 night minimum", 1, testLogger); got != 3 {
		t.Fatalf("auto-detect must beat the default, got %d", got)
	}
	if got := ResolveMinNights(0, "nothing here", 1, testLogger); got != 1 {
		t.Fatalf("default must apply last, got %d", got)
	}
}

func TestDatedBookingURL(t *testing.T) {
	checkIn := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	checkOut := checkIn.AddDate(0, 0, 3)

	dated, err := datedBookingURL("https://www.airbnb.co.nz/rooms/830193102361409290", checkIn, checkOut, 3)
	if err != nil {
		t.Fatalf("url error: %v", err)
	}
	for _, want := range []string{"check_in=2026-01-10", "check_out=2026-01-13", "adults=3"} {
		if !strings.Contains(dated, want) {
			t.Fatalf("expected %q in %s", want, dated)
		}
	}
}
