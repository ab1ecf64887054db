package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/staywatch/staywatch/internal/types"
)

// Column layouts for the three export shapes.
var (
	calendarColumns = []string{"date", "status", "is_blocked", "cell_class", "description"}
	calendarFields  = RequiredFieldSet{"date", "status"}

	priceColumns = []string{"check_in", "check_out", "min_nights", "guests",
		"nightly_price", "cleaning_fee", "service_fee", "taxes", "total"}
	priceFields = RequiredFieldSet{"check_in", "check_out", "nightly_price", "total"}

	summaryColumns = []string{"listing_id", "url", "days_total", "days_bookable",
		"days_not_bookable", "days_checkout_only", "days_no_checkout",
		"quotes_collected", "nightly_min", "nightly_mean", "nightly_max", "data_files"}
	summaryFields = RequiredFieldSet{"listing_id"}
)

// CalendarSheet converts day records into their export shape.
func CalendarSheet(listingID string, days []types.CalendarDay) Sheet {
	sheet := Sheet{
		Name:      "calendar",
		Columns:   calendarColumns,
		Required:  calendarFields,
		ListingID: listingID,
	}
	for _, day := range days {
		sheet.Rows = append(sheet.Rows, Row{
			"date":        day.DateKey(),
			"status":      string(day.Status),
			"is_blocked":  fmt.Sprintf("%t", day.Blocked),
			"cell_class":  day.CellClass,
			"description": day.Label,
		})
	}
	return sheet
}

// QuoteSheet converts price quotes into their export shape. Callers
// filter to usable quotes first; the required-field validation backstops
// that by rejecting rows without a nightly price or total.
func QuoteSheet(listingID string, quotes []types.PriceQuote) Sheet {
	sheet := Sheet{
		Name:      "price",
		Columns:   priceColumns,
		Required:  priceFields,
		ListingID: listingID,
	}
	for _, q := range quotes {
		sheet.Rows = append(sheet.Rows, Row{
			"check_in":      q.CheckIn.Format("2006-01-02"),
			"check_out":     q.CheckOut.Format("2006-01-02"),
			"min_nights":    fmt.Sprintf("%d", q.MinNights),
			"guests":        fmt.Sprintf("%d", q.Guests),
			"nightly_price": q.NightlyPrice.String(),
			"cleaning_fee":  q.CleaningFee.String(),
			"service_fee":   q.ServiceFee.String(),
			"taxes":         q.Taxes.String(),
			"total":         q.Total.String(),
		})
	}
	return sheet
}

// SummarySheet converts a batch summary into one row per listing.
func SummarySheet(summary *types.BatchSummary) Sheet {
	sheet := Sheet{
		Name:     "summary",
		Columns:  summaryColumns,
		Required: summaryFields,
		DateKey:  summary.StartedAt.Format("2006-01-02"),
	}
	for _, result := range summary.Results {
		stats := result.Stats
		row := Row{
			"listing_id":         result.ListingID,
			"url":                result.URL,
			"days_total":         fmt.Sprintf("%d", stats.DaysTotal),
			"days_bookable":      fmt.Sprintf("%d", stats.DaysBookable),
			"days_not_bookable":  fmt.Sprintf("%d", stats.DaysNotBookable),
			"days_checkout_only": fmt.Sprintf("%d", stats.DaysCheckoutOnly),
			"days_no_checkout":   fmt.Sprintf("%d", stats.DaysNoCheckout),
			"quotes_collected":   fmt.Sprintf("%d", stats.QuotesCollected),
			"data_files":         strings.Join(result.ExportPaths, ";"),
		}
		if stats.NightlyPriceCount > 0 {
			row["nightly_min"] = fmt.Sprintf("%.2f", stats.NightlyPriceMin)
			row["nightly_mean"] = fmt.Sprintf("%.2f", stats.NightlyPriceMean)
			row["nightly_max"] = fmt.Sprintf("%.2f", stats.NightlyPriceMax)
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

// CalendarFilename names a per-listing calendar export.
func CalendarFilename(listingID string, at time.Time) string {
	return fmt.Sprintf("calendar_%s_%s.xlsx", listingID, at.Format("20060102_150405"))
}

// QuoteFilename names a per-listing price export.
func QuoteFilename(listingID string, at time.Time) string {
	return fmt.Sprintf("price_%s_%s.xlsx", listingID, at.Format("20060102_150405"))
}

// SummaryFilename names the cross-listing summary export.
func SummaryFilename(at time.Time) string {
	return fmt.Sprintf("summary_%s.xlsx", at.Format("20060102_150405"))
}
