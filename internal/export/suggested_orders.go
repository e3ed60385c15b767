// Package export renders reports as spreadsheets.
package export

import (
	"bytes"
	"fmt"

	"parstock/internal/core"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const suggestedOrdersSheet = "Suggested Orders"

var suggestedOrderHeadings = []string{
	"Vendor", "Item", "Code", "Location", "Suggested Qty", "On Hand", "Available",
	"Par Min", "Par Max", "Avg Daily Usage", "Lead Time (days)", "Projected On Hand",
	"Days Until Below Par", "Unit Cost", "Estimated Value", "Reason",
}

// SuggestedOrdersXLSX writes the report as a single-sheet workbook with a
// header row, one row per suggestion and a total row.
func SuggestedOrdersXLSX(report *core.SuggestedOrdersReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", suggestedOrdersSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, h := range suggestedOrderHeadings {
		if err := f.SetCellValue(suggestedOrdersSheet, cell(i, 1), h); err != nil {
			return nil, err
		}
	}
	if err := f.SetRowStyle(suggestedOrdersSheet, 1, 1, bold); err != nil {
		return nil, err
	}

	row := 2
	for _, s := range report.Suggestions {
		values := []any{
			s.VendorName, s.ItemName, s.ShortCode, s.LocationName,
			num(s.SuggestedQty), num(s.CurrentOnHand), num(s.CurrentStock),
			num(s.Par), num(s.ParMax), num(s.AvgDailyUsage), s.LeadTimeDays, num(s.ProjectedOnHand),
			optNum(s.DaysUntilBelowPar), optNum(s.UnitCost), optNum(s.EstimatedValue), s.Reason,
		}
		for col, v := range values {
			if err := f.SetCellValue(suggestedOrdersSheet, cell(col, row), v); err != nil {
				return nil, err
			}
		}
		row++
	}

	totalCol := len(suggestedOrderHeadings) - 2
	if err := f.SetCellValue(suggestedOrdersSheet, cell(totalCol-1, row), "Total"); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(suggestedOrdersSheet, cell(totalCol, row), num(report.TotalSuggestedValue)); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(suggestedOrdersSheet, row, row, bold); err != nil {
		return nil, err
	}
	if err := f.SetPanes(suggestedOrdersSheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// cell converts a zero-based column and one-based row into an A1 reference.
func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col+1, row)
	return name
}

func num(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func optNum(d *decimal.Decimal) any {
	if d == nil {
		return ""
	}
	return num(*d)
}
