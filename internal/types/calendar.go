package types

import "time"

// DayStatus classifies one calendar day's bookability.
type DayStatus string

const (
	// StatusBookable means the day can start a stay.
	StatusBookable DayStatus = "bookable"

	// StatusNotBookable means the day is blocked or disabled.
	StatusNotBookable DayStatus = "not_bookable"

	// StatusCheckoutOnly means the day is available only as a checkout date.
	StatusCheckoutOnly DayStatus = "checkout_only"

	// StatusNoEligibleCheckout means the day is available but no valid
	// checkout date exists for a stay starting on it.
	StatusNoEligibleCheckout DayStatus = "no_eligible_checkout"
)

// CalendarDay is one parsed date cell from the availability widget.
// Records are immutable once parsed; a calendar holds at most one record
// per date (first occurrence wins).
type CalendarDay struct {
	// Date is the calendar date of the cell.
	Date time.Time

	// Status is the derived bookability status.
	Status DayStatus

	// Blocked reports the cell's blocked flag from the markup.
	Blocked bool

	// CellClass is the raw class attribute of the cell, kept for audit.
	CellClass string

	// Label is the raw accessibility label the status was derived from.
	Label string
}

// DateKey returns the canonical dedup key for the day.
func (d CalendarDay) DateKey() string {
	return d.Date.Format("2006-01-02")
}

// Bookable reports whether a stay can start on this day.
func (d CalendarDay) Bookable() bool {
	return d.Status == StatusBookable
}
