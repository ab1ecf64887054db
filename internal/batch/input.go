package batch

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/staywatch/staywatch/internal/types"
)

var digitsOnly = regexp.MustCompile(`^\d+$`)

// ReadJobs reads listing jobs from an .xlsx input file: column 1 holds
// listing ids, column 2 an optional minimum-stay override. Duplicate ids
// keep their first row; unusable rows are logged and skipped.
func ReadJobs(path string, logger *slog.Logger) ([]types.ListingJob, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read input rows: %w", err)
	}

	var jobs []types.ListingJob
	seen := make(map[string]bool)

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}

		id, err := normalizeListingID(row[0])
		if err != nil {
			// The header row lands here too; only warn past row one.
			if i > 0 {
				logger.Warn("skipping input row", "row", i+1, "value", row[0], "error", err)
			}
			continue
		}
		if seen[id] {
			logger.Debug("duplicate listing id in input", "row", i+1, "listing_id", id)
			continue
		}
		seen[id] = true

		job := types.ListingJob{ListingID: id}
		if len(row) > 1 {
			if nights, err := strconv.Atoi(strings.TrimSpace(row[1])); err == nil && nights > 0 {
				job.MinNights = nights
			}
		}
		jobs = append(jobs, job)
	}

	logger.Info("input file read", "path", path, "rows", len(rows), "jobs", len(jobs))
	return jobs, nil
}

// normalizeListingID undoes the damage spreadsheets do to long numeric
// ids: scientific notation rendering and spurious ".0" decimals.
func normalizeListingID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", types.ErrMissingListingID
	}

	if strings.ContainsAny(id, "eE") {
		value, err := strconv.ParseFloat(id, 64)
		if err != nil {
			return "", fmt.Errorf("unparseable listing id %q", raw)
		}
		id = strconv.FormatFloat(value, 'f', 0, 64)
	}
	id = strings.TrimSuffix(id, ".0")

	if !digitsOnly.MatchString(id) {
		return "", fmt.Errorf("listing id %q is not numeric", raw)
	}
	return id, nil
}
