package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/staywatch/staywatch/internal/types"
)

const worksheetName = "Sheet1"

// ExcelExporter writes sheets as .xlsx workbooks under an output
// directory. When mirroring is enabled each write also lands in
// by_date/<date>/ and by_room/<listing>/ groupings; mirror failures are
// logged, never fatal.
type ExcelExporter struct {
	outputDir       string
	mirrorByDate    bool
	mirrorByListing bool
	logger          *slog.Logger
}

// NewExcelExporter creates an exporter rooted at outputDir.
func NewExcelExporter(outputDir string, mirrorByDate, mirrorByListing bool, logger *slog.Logger) *ExcelExporter {
	return &ExcelExporter{
		outputDir:       outputDir,
		mirrorByDate:    mirrorByDate,
		mirrorByListing: mirrorByListing,
		logger:          logger.With("component", "excel_exporter"),
	}
}

func (e *ExcelExporter) Name() string { return "excel" }

// Export validates the sheet, writes the primary workbook and then the
// configured mirrors. The primary path is returned.
func (e *ExcelExporter) Export(ctx context.Context, sheet Sheet, filename string) (string, error) {
	if err := sheet.Validate(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	primary := filepath.Join(e.outputDir, filename)
	if err := e.writeWorkbook(sheet, primary); err != nil {
		return "", &types.ExportError{Backend: e.Name(), Path: primary, Err: err}
	}
	e.logger.Info("export written", "path", primary, "rows", len(sheet.Rows))

	e.writeMirrors(sheet, filename)
	return primary, nil
}

// writeMirrors writes the grouped copies. Best effort only: the primary
// file already exists, so a mirror failure costs nothing but the copy.
func (e *ExcelExporter) writeMirrors(sheet Sheet, filename string) {
	if e.mirrorByDate && sheet.DateKey != "" {
		path := filepath.Join(e.outputDir, "by_date", sheet.DateKey, filename)
		if err := e.writeWorkbook(sheet, path); err != nil {
			e.logger.Warn("by-date mirror failed", "path", path, "error", err)
		}
	}
	if e.mirrorByListing && sheet.ListingID != "" {
		path := filepath.Join(e.outputDir, "by_room", sheet.ListingID, filename)
		if err := e.writeWorkbook(sheet, path); err != nil {
			e.logger.Warn("by-listing mirror failed", "path", path, "error", err)
		}
	}
}

func (e *ExcelExporter) writeWorkbook(sheet Sheet, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	for col, name := range sheet.Columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(worksheetName, cell, name); err != nil {
			return err
		}
	}
	for rowIdx, row := range sheet.Rows {
		for col, name := range sheet.Columns {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(worksheetName, cell, row[name]); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func (e *ExcelExporter) Close() error { return nil }

// ReadSheet reads a previously exported workbook back into a sheet.
// Used by the round-trip checks and by anything consuming past exports.
func ReadSheet(path string) (Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Sheet{}, &types.ExportError{Backend: "excel", Path: path, Err: err}
	}
	defer f.Close()

	rows, err := f.GetRows(worksheetName)
	if err != nil {
		return Sheet{}, &types.ExportError{Backend: "excel", Path: path, Err: err}
	}
	if len(rows) == 0 {
		return Sheet{Name: filepath.Base(path)}, nil
	}

	sheet := Sheet{Name: filepath.Base(path), Columns: rows[0]}
	for _, raw := range rows[1:] {
		row := make(Row, len(sheet.Columns))
		for i, col := range sheet.Columns {
			if i < len(raw) {
				row[col] = raw[i]
			}
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet, nil
}
