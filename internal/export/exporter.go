package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/staywatch/staywatch/internal/types"
)

// Row is one export record, column name to rendered cell value.
type Row map[string]string

// Sheet is a named tabular dataset with a fixed column order. ListingID
// and DateKey carry the grouping hints the mirror writers use; either
// may be empty.
type Sheet struct {
	Name      string
	Columns   []string
	Required  RequiredFieldSet
	Rows      []Row
	ListingID string
	DateKey   string
}

// RequiredFieldSet lists the columns every row must populate before the
// sheet may be written.
type RequiredFieldSet []string

// Validate fails closed: any row missing a required column rejects the
// whole sheet and nothing is written.
func (s Sheet) Validate() error {
	for i, row := range s.Rows {
		for _, field := range s.Required {
			if row[field] == "" {
				return &types.ExportError{
					Backend: "schema",
					Err:     fmt.Errorf("row %d of %s: missing required field %q", i, s.Name, field),
				}
			}
		}
	}
	return nil
}

// Exporter writes one sheet to a backend. The returned path identifies
// the written artifact; backends without a filesystem path return a
// descriptive identifier instead.
type Exporter interface {
	Export(ctx context.Context, sheet Sheet, filename string) (string, error)
	Name() string
	Close() error
}

// MultiExporter fans a sheet out to several backends. The first backend
// is the primary and its failure fails the export; the remaining
// backends are mirrors whose failures are logged and swallowed.
type MultiExporter struct {
	backends []Exporter
	logger   *slog.Logger
}

// NewMultiExporter creates a fan-out exporter. The primary backend goes
// first.
func NewMultiExporter(backends []Exporter, logger *slog.Logger) *MultiExporter {
	return &MultiExporter{
		backends: backends,
		logger:   logger.With("component", "multi_exporter"),
	}
}

func (m *MultiExporter) Name() string { return "multi" }

func (m *MultiExporter) Export(ctx context.Context, sheet Sheet, filename string) (string, error) {
	if len(m.backends) == 0 {
		return "", fmt.Errorf("no export backends configured")
	}

	path, err := m.backends[0].Export(ctx, sheet, filename)
	if err != nil {
		return "", err
	}

	for _, mirror := range m.backends[1:] {
		if _, err := mirror.Export(ctx, sheet, filename); err != nil {
			m.logger.Warn("mirror export failed",
				"backend", mirror.Name(), "sheet", sheet.Name, "error", err)
		}
	}
	return path, nil
}

func (m *MultiExporter) Close() error {
	var firstErr error
	for _, backend := range m.backends {
		if err := backend.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
