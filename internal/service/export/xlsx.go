package export

import (
	"fmt"
	"io"
	"strings"

	"fieldcrm-service/internal/domain/report"

	"github.com/xuri/excelize/v2"
)

const repPerformanceSheet = "Rep Performance"

var repPerformanceWidths = []float64{24, 30, 28, 12, 16, 16, 16, 16, 22, 20, 12}

// WriteRepPerformanceXLSX writes the rep performance report as a workbook
// with the same columns as the CSV export. Numeric columns stay numeric.
func WriteRepPerformanceXLSX(w io.Writer, rows []report.RepPerformance) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(repPerformanceSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range RepPerformanceHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(repPerformanceSheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(repPerformanceSheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for i, width := range repPerformanceWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column: %w", err)
		}
		if err := f.SetColWidth(repPerformanceSheet, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, r := range rows {
		values := []any{
			deref(r.RepName),
			deref(r.RepEmail),
			strings.Join(r.TerritoryNames, "; "),
			r.TotalVisits,
			r.CompletedVisits,
			r.ScheduledVisits,
			r.CancelledVisits,
			r.UniqueAccounts,
			r.TotalOrderValueJOD,
			r.AvgOrderValueJOD,
			r.AvgRating,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(repPerformanceSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
