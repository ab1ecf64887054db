package extract

import (
	"log/slog"
	"os"
	"testing"

	"github.com/staywatch/staywatch/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const calendarHTML = `<!DOCTYPE html>
<html><body>
<div data-testid="calendar-container"><table>
<tr>
  <td role="button" class="_cell1" aria-label="10, Saturday, January 2026. Available. Select as check-in date.">
    <div data-testid="calendar-day-10/01/2026" data-is-day-blocked="false"></div>
  </td>
  <td role="button" class="_cell2" aria-label="11, Sunday, January 2026. Unavailable.">
    <div data-testid="calendar-day-11/01/2026" data-is-day-blocked="true"></div>
  </td>
  <td role="button" class="_cell3" aria-label="12, Monday, January 2026. Available. This day is only available for checkout.">
    <div data-testid="calendar-day-12/01/2026" data-is-day-blocked="false"></div>
  </td>
  <td role="button" class="_cell4" aria-label="13, Tuesday, January 2026. Available, but has no eligible checkout date.">
    <div data-testid="calendar-day-13/01/2026" data-is-day-blocked="false"></div>
  </td>
  <td role="button" class="_cell5" aria-label="14, Wednesday, January 2026. Available." aria-disabled="true">
    <div data-testid="calendar-day-14/01/2026" data-is-day-blocked="false"></div>
  </td>
</tr>
<tr>
  <td role="button" class="_dup" aria-label="10, Saturday, January 2026. Unavailable.">
    <div data-testid="calendar-day-10/01/2026" data-is-day-blocked="true"></div>
  </td>
  <td role="button" class="_noday"><div class="filler"></div></td>
</tr>
</table></div>
</body></html>`

func TestParseCalendarStatuses(t *testing.T) {
	days, err := ParseCalendar(calendarHTML)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(days) != 5 {
		t.Fatalf("expected 5 day records, got %d", len(days))
	}

	want := map[string]types.DayStatus{
		"2026-01-10": types.StatusBookable,
		"2026-01-11": types.StatusNotBookable,
		"2026-01-12": types.StatusCheckoutOnly,
		"2026-01-13": types.StatusNoEligibleCheckout,
		"2026-01-14": types.StatusNotBookable, // aria-disabled overrides the label
	}
	for _, day := range days {
		status, ok := want[day.DateKey()]
		if !ok {
			t.Fatalf("unexpected date %s", day.DateKey())
		}
		if day.Status != status {
			t.Fatalf("date %s: expected %s, got %s", day.DateKey(), status, day.Status)
		}
	}
}

// A date rendered twice keeps its first cell; re-parsing yields the
// same single record.
func TestParseCalendarDedupFirstWins(t *testing.T) {
	days, err := ParseCalendar(calendarHTML)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	var first *types.CalendarDay
	count := 0
	for i := range days {
		if days[i].DateKey() == "2026-01-10" {
			count++
			first = &days[i]
		}
	}
	if count != 1 {
		t.Fatalf("expected one record for the duplicated date, got %d", count)
	}
	if first.Blocked || first.Status != types.StatusBookable {
		t.Fatal("expected the first cell to win over the blocked duplicate")
	}

	again, err := ParseCalendar(calendarHTML)
	if err != nil {
		t.Fatalf("reparse error: %v", err)
	}
	if len(again) != len(days) {
		t.Fatalf("reparse changed record count: %d vs %d", len(again), len(days))
	}
}

func TestParseCalendarEmpty(t *testing.T) {
	days, err := ParseCalendar(`<html><body><div data-testid="calendar-container"></div></body></html>`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(days) != 0 {
		t.Fatalf("expected no records, got %d", len(days))
	}
}

func TestParseCellDateForms(t *testing.T) {
	cases := map[string]string{
		"10/01/2026": "2026-01-10",
		"2026-03-05": "2026-03-05",
	}
	for raw, want := range cases {
		date, err := parseCellDate(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got := date.Format("2006-01-02"); got != want {
			t.Fatalf("parse %q: expected %s, got %s", raw, want, got)
		}
	}
	if _, err := parseCellDate("not-a-date"); err == nil {
		t.Fatal("expected error for junk input")
	}
}

func TestDayStatusPrecedence(t *testing.T) {
	if got := dayStatus(true, false, "Available."); got != types.StatusNotBookable {
		t.Fatalf("blocked must override the label, got %s", got)
	}
	if got := dayStatus(false, false, "no availability"); got != types.StatusNotBookable {
		t.Fatalf("missing available keyword must be not-bookable, got %s", got)
	}
	if got := dayStatus(false, false, "15, Thursday, January 2026. Unavailable."); got != types.StatusNotBookable {
		t.Fatalf("unavailable label must be not-bookable, got %s", got)
	}
}

// An "Unavailable." cell without the blocked flag must still come out
// not-bookable; the label's lowercase "available" suffix is not an
// availability signal.
func TestParseCalendarUnavailableLabelWithoutBlockedFlag(t *testing.T) {
	markup := `<html><body><div data-testid="calendar-container"><table><tr>
	  <td role="button" aria-label="15, Thursday, January 2026. Unavailable.">
	    <div data-testid="calendar-day-15/01/2026" data-is-day-blocked="false"></div>
	  </td>
	</tr></table></div></body></html>`

	days, err := ParseCalendar(markup)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(days) != 1 {
		t.Fatalf("expected 1 record, got %d", len(days))
	}
	if days[0].Status != types.StatusNotBookable {
		t.Fatalf("expected not_bookable, got %s", days[0].Status)
	}
	if days[0].Bookable() {
		t.Fatal("unavailable day must not start a stay")
	}
}
