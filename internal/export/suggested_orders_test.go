package export_test

import (
	"bytes"
	"testing"

	"parstock/internal/core"
	"parstock/internal/export"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestSuggestedOrdersXLSX(t *testing.T) {
	cost := decimal.RequireFromString("4.50")
	value := decimal.RequireFromString("112.50")
	report := &core.SuggestedOrdersReport{
		Suggestions: []core.SuggestedOrder{{
			ItemName: "Bath Towel", ShortCode: "TWL", LocationName: "Main Storeroom", VendorName: "Linen Co",
			SuggestedQty: decimal.NewFromInt(25), CurrentOnHand: decimal.NewFromInt(5), CurrentStock: decimal.NewFromInt(5),
			Par: decimal.NewFromInt(10), ParMax: decimal.NewFromInt(30), LeadTimeDays: 5,
			UnitCost: &cost, EstimatedValue: &value, Reason: "Below par",
		}},
		TotalSuggestedValue: value,
	}

	raw, err := export.SuggestedOrdersXLSX(report)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Suggested Orders")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Vendor", rows[0][0])
	assert.Equal(t, "Linen Co", rows[1][0])
	assert.Equal(t, "Bath Towel", rows[1][1])
	assert.Equal(t, "25", rows[1][4])
	assert.Contains(t, rows[2], "Total")
	assert.Contains(t, rows[2], "112.5")
}

func TestSuggestedOrdersXLSX_Empty(t *testing.T) {
	raw, err := export.SuggestedOrdersXLSX(&core.SuggestedOrdersReport{})
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
}
