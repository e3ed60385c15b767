package core_test

import (
	"errors"
	"testing"
	"time"

	"parstock/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAlerts_SplitsBelowParAndAtRisk(t *testing.T) {
	below := level("5", "0", "10", "20")
	below.ItemName = "Towels"
	risk := level("11", "0", "10", "20")
	risk.ItemID = 2
	ok := level("15", "0", "10", "20")
	ok.ItemID = 3
	noPar := level("0", "0", "0", "0")
	noPar.ItemID = 4

	report := core.DefaultParRules().BuildAlerts([]core.StockLevel{below, risk, ok, noPar})

	require.Len(t, report.BelowPar, 1)
	require.Len(t, report.AtRisk, 1)
	assert.Equal(t, 1, report.BelowParCount)
	assert.Equal(t, 1, report.AtRiskCount)
	assert.Equal(t, "Towels", report.BelowPar[0].ItemName)
	assert.True(t, report.BelowPar[0].Par.Equal(d("10")))
	assert.Equal(t, core.ParStatusBelowPar, report.BelowPar[0].StockLevel.Status)
	assert.Equal(t, 2, report.AtRisk[0].ItemID)
}

func TestBuildAlerts_EmptyListsNotNil(t *testing.T) {
	report := core.DefaultParRules().BuildAlerts(nil)
	assert.NotNil(t, report.BelowPar)
	assert.NotNil(t, report.AtRisk)
}

func TestSuggest_ProjectsOverLeadTimePlusBuffer(t *testing.T) {
	p := core.ForecastParams{WindowDays: 30, BufferDays: 3}

	// avg 2/day over 5+3 days: 20 - 16 = 4, order up to 40.
	s, ok := p.Suggest(level("20", "0", "10", "40"), 5, d("60"))
	require.True(t, ok)
	assert.True(t, s.AvgDailyUsage.Equal(d("2")), "avg %s", s.AvgDailyUsage)
	assert.True(t, s.ProjectedOnHand.Equal(d("4")), "projected %s", s.ProjectedOnHand)
	assert.True(t, s.SuggestedQty.Equal(d("36")), "qty %s", s.SuggestedQty)
	require.NotNil(t, s.DaysUntilBelowPar)
	assert.True(t, s.DaysUntilBelowPar.Equal(d("5")))
	assert.Equal(t, "Projected below par within 8 days", s.Reason)
	assert.Equal(t, 5, s.LeadTimeDays)
}

func TestSuggest_NoOrderWhenProjectionStaysAbovePar(t *testing.T) {
	p := core.DefaultForecastParams()
	_, ok := p.Suggest(level("100", "0", "10", "40"), 5, d("60"))
	assert.False(t, ok)
}

func TestSuggest_NoParNeverSuggests(t *testing.T) {
	_, ok := core.DefaultForecastParams().Suggest(level("0", "0", "0", "0"), 5, d("60"))
	assert.False(t, ok)
}

func TestSuggest_BelowParWithoutUsageOrdersUpToParMin(t *testing.T) {
	s, ok := core.DefaultForecastParams().Suggest(level("5.5", "0", "10", "0"), 2, d("0"))
	require.True(t, ok)
	assert.True(t, s.SuggestedQty.Equal(d("5")), "qty %s", s.SuggestedQty)
	assert.Equal(t, "Below par", s.Reason)
	require.NotNil(t, s.DaysUntilBelowPar)
	assert.True(t, s.DaysUntilBelowPar.IsZero())
}

func TestPriceSuggestions_SkipsUnpriced(t *testing.T) {
	cost := d("2.50")
	sugs := []core.SuggestedOrder{
		{SuggestedQty: d("4"), UnitCost: &cost},
		{SuggestedQty: d("10")},
	}
	total := core.PriceSuggestions(sugs)
	assert.True(t, total.Equal(d("10")), "total %s", total)
	require.NotNil(t, sugs[0].EstimatedValue)
	assert.Nil(t, sugs[1].EstimatedValue)
}

func TestUsageWindow(t *testing.T) {
	now := time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC)

	start, bucket, err := core.UsageWindow("month", now)
	require.NoError(t, err)
	assert.Equal(t, "month", bucket)
	assert.Equal(t, time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC), start)

	start, bucket, err = core.UsageWindow("quarter", now)
	require.NoError(t, err)
	assert.Equal(t, "quarter", bucket)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), start)

	_, _, err = core.UsageWindow("week", now)
	assert.True(t, errors.Is(err, core.ErrInvalidInput))
}

func TestBuildGeneralUsage_Monthly(t *testing.T) {
	now := time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC)
	start, _, err := core.UsageWindow("month", now)
	require.NoError(t, err)

	issues := []core.DailyItemIssue{
		{Day: time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC), ItemID: 1, Qty: d("4")},
		{Day: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), ItemID: 1, Qty: d("5")},
		{Day: time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC), ItemID: 2, Qty: d("3")},
		{Day: time.Date(2026, 10, 6, 0, 0, 0, 0, time.UTC), ItemID: 1, Qty: d("2")},
	}
	report, err := core.BuildGeneralUsage("month", start, now, issues)
	require.NoError(t, err)

	require.Len(t, report.UsageByPeriod, 12)
	assert.Equal(t, "2025-11", report.UsageByPeriod[0].Period)
	last := report.UsageByPeriod[11]
	assert.Equal(t, "2026-10", last.Period)
	assert.True(t, last.TotalQty.Equal(d("10")))
	assert.Equal(t, 2, last.ItemCount)
	assert.True(t, report.UsageByPeriod[1].TotalQty.Equal(d("4")))
	assert.True(t, report.TotalUsage.Equal(d("14")))
	assert.True(t, report.AveragePerPeriod.Equal(d("1.17")), "avg %s", report.AveragePerPeriod)
}

func TestBuildGeneralUsage_Quarterly(t *testing.T) {
	now := time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC)
	start, _, err := core.UsageWindow("quarter", now)
	require.NoError(t, err)

	issues := []core.DailyItemIssue{
		{Day: time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC), ItemID: 1, Qty: d("8")},
	}
	report, err := core.BuildGeneralUsage("quarter", start, now, issues)
	require.NoError(t, err)

	require.Len(t, report.UsageByPeriod, 4)
	assert.Equal(t, "2026-Q1", report.UsageByPeriod[0].Period)
	assert.Equal(t, "2026-Q4", report.UsageByPeriod[3].Period)
	assert.True(t, report.UsageByPeriod[0].TotalQty.Equal(d("8")))
	assert.True(t, report.AveragePerPeriod.Equal(d("2")))
}

func TestParTrends_WalksLedgerBackwards(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	current := level("5", "0", "10", "20")
	txs := []core.InventoryTransaction{
		{ID: 1, Type: core.TxIssue, ItemID: 1, FromLocationID: loc(1), Qty: d("4"),
			CreatedAt: time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)},
		{ID: 2, Type: core.TxIssue, ItemID: 1, FromLocationID: loc(1), Qty: d("6"),
			CreatedAt: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)},
	}

	points, err := core.DefaultParRules().ParTrends([]core.StockLevel{current}, txs, 3, now)
	require.NoError(t, err)
	require.Len(t, points, 3)

	// End of day: 16th = 15 (ok), 17th = 11 (at risk), 18th = 5 (below par).
	assert.Equal(t, core.ParTrendPoint{Period: "2026-10-16"}, points[0])
	assert.Equal(t, core.ParTrendPoint{Period: "2026-10-17", AtRiskCount: 1, TotalAlerts: 1}, points[1])
	assert.Equal(t, core.ParTrendPoint{Period: "2026-10-18", BelowParCount: 1, TotalAlerts: 1}, points[2])
}

func TestEstimateImpact(t *testing.T) {
	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	report := core.EstimateImpact(core.ImpactInputs{
		SystemStart:       now.AddDate(0, 0, -30),
		Now:               now,
		TotalTransactions: 100,
		TotalReceipts:     8,
		ItemsTracked:      40,
		BelowParAlerts:    3,
		InventoryValue:    d("1000"),
	})

	assert.Equal(t, "2026-09-18", report.SystemStartDate)
	assert.Equal(t, 30, report.DaysActive)
	assert.Equal(t, 200, report.PaperSavings.PagesSaved)
	assert.InDelta(t, 2.0, report.Transportation.TripsSaved, 1e-9)
	assert.InDelta(t, 50.0, report.Transportation.KmSaved, 1e-9)
	assert.InDelta(t, 10.5, report.Transportation.CO2SavedKg, 1e-9)
	assert.InDelta(t, 150.0, report.WasteReduction.EstimatedValueSaved, 1e-9)
	assert.Equal(t, 3, report.WasteReduction.BelowParAlertsPrevented)

	sum := report.PaperSavings.CO2SavedKg + report.WasteReduction.CO2SavedKg + report.Transportation.CO2SavedKg
	assert.InDelta(t, sum, report.CarbonFootprint.TotalCO2SavedKg, 0.02)
	assert.Equal(t, report.PaperSavings.TreesSaved, report.Summary.TreesSaved)
}

func TestEstimateImpact_EmptySystem(t *testing.T) {
	report := core.EstimateImpact(core.ImpactInputs{Now: time.Now()})
	assert.Equal(t, "", report.SystemStartDate)
	assert.Equal(t, 0, report.DaysActive)
	assert.Zero(t, report.CarbonFootprint.TotalCO2SavedKg)
}

func TestBuildDashboard_RanksUsageAndValuesStock(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	var usage []core.DashboardItem
	for i, name := range []string{"Aprons", "Bleach", "Cups", "Dusters", "Foil", "Gloves"} {
		usage = append(usage, core.DashboardItem{ItemID: i + 1, ItemName: name, TotalQty: d("10"), TransactionCount: 1})
	}
	usage[5].TotalQty = d("40")
	usage[5].TransactionCount = 3

	towels := level("5", "0", "10", "20")
	towels.ItemID = 1
	soap := level("8", "0", "0", "0")
	soap.ItemID = 2
	empty := level("0", "0", "0", "0")
	empty.ItemID = 3
	costs := map[int]decimal.Decimal{1: d("4.50"), 2: d("0.40")}

	report := core.DefaultParRules().BuildDashboard(30, usage, []core.StockLevel{towels, soap, empty}, costs, now)

	require.Len(t, report.TopItems, core.DashboardTopItems)
	assert.Equal(t, "Gloves", report.TopItems[0].ItemName)
	assert.Equal(t, "Aprons", report.TopItems[1].ItemName)
	assert.Equal(t, "Dusters", report.TopItems[4].ItemName)

	totals := report.Totals
	assert.True(t, totals.TotalQtyUsed.Equal(d("90")), totals.TotalQtyUsed.String())
	assert.Equal(t, 6, totals.UniqueItemsUsed)
	assert.Equal(t, 8, totals.TransactionCount)
	assert.True(t, totals.AvgPerTransaction.Equal(d("11.25")), totals.AvgPerTransaction.String())
	assert.True(t, totals.InventoryValue.Equal(d("25.70")), totals.InventoryValue.String())
	assert.Equal(t, 2, totals.ItemsInStock)
	assert.Equal(t, 1, totals.BelowParCount)
	assert.Equal(t, 30, totals.PeriodDays)
	assert.Equal(t, now, report.GeneratedAt)
}

func TestBuildDashboard_NoActivity(t *testing.T) {
	report := core.DefaultParRules().BuildDashboard(7, nil, nil, nil, time.Now())
	assert.NotNil(t, report.TopItems)
	assert.Empty(t, report.TopItems)
	assert.True(t, report.Totals.AvgPerTransaction.IsZero())
	assert.True(t, report.Totals.InventoryValue.IsZero())
}
