package export

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/staywatch/staywatch/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func sampleDays() []types.CalendarDay {
	return []types.CalendarDay{
		{
			Date:    time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
			Status:  types.StatusBookable,
			Label:   "Available.",
			Blocked: false,
		},
		{
			Date:    time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC),
			Status:  types.StatusNotBookable,
			Label:   "Unavailable.",
			Blocked: true,
		},
	}
}

// Writing a sheet and reading it back yields the same row count and the
// same required fields.
func TestExcelRoundTrip(t *testing.T) {
	dir := t.TempDir()
	exporter := NewExcelExporter(dir, false, false, testLogger)

	sheet := CalendarSheet("830193102361409290", sampleDays())
	path, err := exporter.Export(context.Background(), sheet, "calendar_test.xlsx")
	if err != nil {
		t.Fatalf("export error: %v", err)
	}

	read, err := ReadSheet(path)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if len(read.Rows) != len(sheet.Rows) {
		t.Fatalf("row count changed: wrote %d, read %d", len(sheet.Rows), len(read.Rows))
	}
	for i, row := range read.Rows {
		for _, field := range calendarFields {
			if row[field] != sheet.Rows[i][field] {
				t.Fatalf("row %d field %s: wrote %q, read %q",
					i, field, sheet.Rows[i][field], row[field])
			}
		}
	}
}

func TestExcelMirrors(t *testing.T) {
	dir := t.TempDir()
	exporter := NewExcelExporter(dir, true, true, testLogger)

	sheet := CalendarSheet("42", sampleDays())
	sheet.DateKey = "2026-01-10"
	if _, err := exporter.Export(context.Background(), sheet, "calendar_42.xlsx"); err != nil {
		t.Fatalf("export error: %v", err)
	}

	for _, path := range []string{
		filepath.Join(dir, "calendar_42.xlsx"),
		filepath.Join(dir, "by_date", "2026-01-10", "calendar_42.xlsx"),
		filepath.Join(dir, "by_room", "42", "calendar_42.xlsx"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected mirror at %s: %v", path, err)
		}
	}
}

// A row missing a required field rejects the whole sheet before any
// file is written.
func TestExportFailsClosedOnMissingFields(t *testing.T) {
	dir := t.TempDir()
	exporter := NewExcelExporter(dir, false, false, testLogger)

	quotes := []types.PriceQuote{{
		CheckIn:  time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC),
		// NightlyPrice and Total deliberately absent.
	}}

	_, err := exporter.Export(context.Background(), QuoteSheet("42", quotes), "price_42.xlsx")
	if err == nil {
		t.Fatal("expected validation error")
	}
	var exportErr *types.ExportError
	if !errors.As(err, &exportErr) {
		t.Fatalf("expected ExportError, got %T", err)
	}

	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatalf("read dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("expected nothing written, found %d entries", len(entries))
	}
}

func TestQuoteSheetRendersMoney(t *testing.T) {
	quotes := []types.PriceQuote{{
		CheckIn:      time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		CheckOut:     time.Date(2026, 1, 13, 0, 0, 0, 0, time.UTC),
		MinNights:    3,
		Guests:       3,
		NightlyPrice: &types.Money{Amount: 165, Currency: "NZD", Raw: "$165 NZD"},
		Total:        &types.Money{Amount: 704, Currency: "NZD", Raw: "$704 NZD"},
	}}

	sheet := QuoteSheet("42", quotes)
	if err := sheet.Validate(); err != nil {
		t.Fatalf("expected a valid sheet: %v", err)
	}
	row := sheet.Rows[0]
	if row["check_in"] != "2026-01-10" || row["check_out"] != "2026-01-13" {
		t.Fatalf("dates wrong: %+v", row)
	}
	if row["nightly_price"] == "" || row["total"] == "" {
		t.Fatalf("money cells empty: %+v", row)
	}
	if row["cleaning_fee"] != "" {
		t.Fatalf("absent fee must render empty, got %q", row["cleaning_fee"])
	}
}

func TestMultiExporterMirrorFailureIsSwallowed(t *testing.T) {
	dir := t.TempDir()
	primary := NewExcelExporter(dir, false, false, testLogger)
	multi := NewMultiExporter([]Exporter{primary, &failingExporter{}}, testLogger)

	sheet := CalendarSheet("42", sampleDays())
	path, err := multi.Export(context.Background(), sheet, "calendar_42.xlsx")
	if err != nil {
		t.Fatalf("primary success must win: %v", err)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatalf("expected primary file: %v", statErr)
	}
}

func TestMultiExporterPrimaryFailureIsFatal(t *testing.T) {
	multi := NewMultiExporter([]Exporter{&failingExporter{}}, testLogger)

	_, err := multi.Export(context.Background(), CalendarSheet("42", sampleDays()), "x.xlsx")
	if err == nil {
		t.Fatal("expected primary failure to surface")
	}
}

type failingExporter struct{}

func (f *failingExporter) Name() string { return "failing" }

func (f *failingExporter) Export(ctx context.Context, sheet Sheet, filename string) (string, error) {
	return "", errors.New("backend down")
}

func (f *failingExporter) Close() error { return nil }
