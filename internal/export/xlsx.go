package export

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"
)

// XLSXWriter writes reports to a local workbook. Each Write replaces the file.
type XLSXWriter struct {
	path string
}

// NewXLSXWriter creates a writer targeting path.
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

func (w *XLSXWriter) Write(_ context.Context, report Report) error {
	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", w.path, err)
	}
	if err := WriteWorkbook(f, report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteWorkbook renders the report as an XLSX workbook with STATUS and REBALANCES sheets.
func WriteWorkbook(out io.Writer, report Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", statusSheet); err != nil {
		return fmt.Errorf("naming %s sheet: %w", statusSheet, err)
	}
	if _, err := f.NewSheet(rebalanceSheet); err != nil {
		return fmt.Errorf("adding %s sheet: %w", rebalanceSheet, err)
	}

	if err := writeRows(f, statusSheet, statusTable(report.Status)); err != nil {
		return err
	}
	rebalances := append([][]any{rebalanceHeader}, rebalanceTable(report.Rebalances)...)
	if err := writeRows(f, rebalanceSheet, rebalances); err != nil {
		return err
	}

	if err := f.SetColWidth(statusSheet, "A", "B", 60); err != nil {
		return fmt.Errorf("sizing %s columns: %w", statusSheet, err)
	}

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
