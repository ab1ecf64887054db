package types

import (
	"fmt"
	"time"
)

// Money is an amount plus currency parsed from free-text price labels.
// A nil *Money means the field was never located on the page, which is a
// valid state rather than an error.
type Money struct {
	// Amount is the numeric value.
	Amount float64

	// Currency is the currency code or symbol as seen on the page
	// (e.g. "NZD", "$").
	Currency string

	// Raw is the original text the value was parsed from.
	Raw string
}

// String renders the money value for logs and exports.
func (m *Money) String() string {
	if m == nil {
		return ""
	}
	if m.Raw != "" {
		return m.Raw
	}
	return fmt.Sprintf("%.2f %s", m.Amount, m.Currency)
}

// PriceQuote is a priced booking proposal for one check-in/check-out pair.
// Quotes are append-only: created during a single listing pass and never
// mutated afterwards.
type PriceQuote struct {
	// CheckIn is the stay's start date.
	CheckIn time.Time

	// CheckOut is the stay's end date (CheckIn + MinNights).
	CheckOut time.Time

	// MinNights is the effective minimum stay used for the quote.
	MinNights int

	// Guests is the guest count the quote was requested for.
	Guests int

	NightlyPrice *Money
	CleaningFee  *Money
	ServiceFee   *Money
	Taxes        *Money
	Total        *Money
}

// Usable reports whether the quote carries the minimum fields required to
// be worth exporting: a nightly price and a total. Partial coverage of the
// remaining fee fields is acceptable.
func (q *PriceQuote) Usable() bool {
	return q.NightlyPrice != nil && q.Total != nil
}
