package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/jonathan/comparable-finder/internal/types"
)

// SheetName is the single worksheet holding the results.
const SheetName = "Comparable Companies"

// maxColumnWidth caps auto-sized columns so long descriptions stay readable.
const maxColumnWidth = 50

// WriteExcel writes the results as an .xlsx workbook with a header row and
// columns auto-sized to their longest cell value.
func WriteExcel(w io.Writer, results []types.CandidateCompany) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(Columns))
	widths := make([]int, len(Columns))
	for i, col := range Columns {
		header[i] = col
		widths[i] = len(col)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, c := range results {
		values := row(c)
		cells := make([]any, len(values))
		for j, v := range values {
			cells[j] = v
			if len(v) > widths[j] {
				widths[j] = len(v)
			}
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to compute cell name: %w", err)
		}
		if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", c.Name, err)
		}
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to compute column name: %w", err)
		}
		w := width + 2
		if w > maxColumnWidth {
			w = maxColumnWidth
		}
		if err := f.SetColWidth(SheetName, col, col, float64(w)); err != nil {
			return fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
