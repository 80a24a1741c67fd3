package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	apperrors "twcpi/internal/errors"
	"twcpi/internal/infrastructure"
	"twcpi/pkg/contracts/domain"
)

// RebasedSheet is the worksheet holding the audit table
const RebasedSheet = "rebased"

// WorkbookWriter exports tables as XLSX workbooks
type WorkbookWriter struct {
	logger *slog.Logger
}

// NewWorkbookWriter creates a new workbook writer
func NewWorkbookWriter(logger *slog.Logger) *WorkbookWriter {
	return &WorkbookWriter{logger: infrastructure.WithComponent(logger, "xlsx_exporter")}
}

// WriteRebased writes the rebased table to a single-sheet workbook. Numbers
// are stored as numbers; missing values are left blank.
func (w *WorkbookWriter) WriteRebased(filePath string, rows []domain.RebasedObservation) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), RebasedSheet); err != nil {
		return apperrors.NewStorageError("failed to name sheet", err)
	}

	header := make([]interface{}, len(RebasedHeaders))
	for i, h := range RebasedHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(RebasedSheet, "A1", &header); err != nil {
		return apperrors.NewStorageError("failed to write header", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return apperrors.NewStorageError("invalid cell", err)
		}
		values := []interface{}{
			formatDate(row.Date),
			row.Category,
			numberOrBlank(row.Value),
			numberOrBlank(row.BaseValue),
			numberOrBlank(row.Index100),
		}
		if err := f.SetSheetRow(RebasedSheet, cell, &values); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to write row %d", i), err)
		}
	}

	if err := f.SetColWidth(RebasedSheet, "A", "B", 16); err != nil {
		return apperrors.NewStorageError("failed to size columns", err)
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.NewStorageError("failed to create directory", err)
	}
	if err := f.SaveAs(filePath); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to save %s", filePath), err)
	}

	w.logger.Info("Wrote audit workbook",
		slog.String("file_path", filePath),
		slog.String("sheet", RebasedSheet),
		slog.Int("record_count", len(rows)))
	return nil
}

func numberOrBlank(v float64) interface{} {
	if domain.IsMissing(v) {
		return nil
	}
	return v
}
