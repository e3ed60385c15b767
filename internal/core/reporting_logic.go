package core

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ── Alerts ───────────────────────────────────────────────────────────────────

// BuildAlerts splits levels into below-par and at-risk alerts. Levels without a par are ignored.
func (r ParRules) BuildAlerts(levels []StockLevel) AlertsReport {
	report := AlertsReport{BelowPar: []ParAlert{}, AtRisk: []ParAlert{}}
	for _, l := range levels {
		alert := ParAlert{
			ItemID:       l.ItemID,
			ItemName:     l.ItemName,
			ShortCode:    l.ShortCode,
			LocationID:   l.LocationID,
			LocationName: l.LocationName,
			OnHandQty:    l.OnHandQty,
			Par:          l.ParMin,
			StockLevel:   r.View(l),
		}
		switch r.Classify(l) {
		case ParStatusBelowPar:
			report.BelowPar = append(report.BelowPar, alert)
		case ParStatusAtRisk:
			report.AtRisk = append(report.AtRisk, alert)
		}
	}
	report.BelowParCount = len(report.BelowPar)
	report.AtRiskCount = len(report.AtRisk)
	return report
}

// ── Suggested orders ─────────────────────────────────────────────────────────

// ForecastParams controls the usage projection behind suggested orders.
type ForecastParams struct {
	WindowDays int // days of ISSUE history averaged into daily usage
	BufferDays int // added to every item's lead time
}

func DefaultForecastParams() ForecastParams {
	return ForecastParams{WindowDays: 30, BufferDays: 3}
}

// Suggest projects on-hand over the item's lead time plus the buffer and
// proposes an order up to par max when the projection falls below par min.
// issued is the total ISSUE quantity over the window. ok is false when no order is needed.
func (p ForecastParams) Suggest(level StockLevel, leadTimeDays int, issued decimal.Decimal) (SuggestedOrder, bool) {
	if !level.ParMin.IsPositive() {
		return SuggestedOrder{}, false
	}
	window := p.WindowDays
	if window <= 0 {
		window = DefaultForecastParams().WindowDays
	}
	avg := issued.Div(decimal.NewFromInt(int64(window))).Round(4)
	lead := leadTimeDays + p.BufferDays
	projected := level.OnHandQty.Sub(avg.Mul(decimal.NewFromInt(int64(lead))))
	if !projected.LessThan(level.ParMin) {
		return SuggestedOrder{}, false
	}

	target := decimal.Max(level.ParMax, level.ParMin)
	qty := target.Sub(projected).Ceil()
	if !qty.IsPositive() {
		return SuggestedOrder{}, false
	}

	s := SuggestedOrder{
		ItemID:          level.ItemID,
		ItemName:        level.ItemName,
		ShortCode:       level.ShortCode,
		LocationID:      level.LocationID,
		LocationName:    level.LocationName,
		SuggestedQty:    qty,
		CurrentStock:    AvailableQty(level),
		CurrentOnHand:   level.OnHandQty,
		Par:             level.ParMin,
		ParMax:          level.ParMax,
		AvgDailyUsage:   avg,
		LeadTimeDays:    leadTimeDays,
		ProjectedOnHand: projected.Round(4),
	}
	if IsBelowPar(level) {
		zero := decimal.Zero
		s.DaysUntilBelowPar = &zero
		s.Reason = "Below par"
	} else {
		s.Reason = fmt.Sprintf("Projected below par within %d days", lead)
		if avg.IsPositive() {
			days := level.OnHandQty.Sub(level.ParMin).Div(avg).Round(1)
			s.DaysUntilBelowPar = &days
		}
	}
	return s, true
}

// PriceSuggestions sets the estimated value of each priced suggestion and returns the total.
func PriceSuggestions(suggestions []SuggestedOrder) decimal.Decimal {
	total := decimal.Zero
	for i := range suggestions {
		if suggestions[i].UnitCost == nil {
			continue
		}
		v := suggestions[i].UnitCost.Mul(suggestions[i].SuggestedQty).Round(2)
		suggestions[i].EstimatedValue = &v
		total = total.Add(v)
	}
	return total
}

// ── General usage ────────────────────────────────────────────────────────────

// UsageWindow returns the start of the reporting window for period and the
// bucket size ("month" or "quarter") the usage is grouped by.
func UsageWindow(period string, now time.Time) (time.Time, string, error) {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	switch period {
	case "month", "year":
		return firstOfMonth.AddDate(0, -11, 0), "month", nil
	case "quarter":
		qStart := time.Date(now.Year(), ((now.Month()-1)/3)*3+1, 1, 0, 0, 0, 0, now.Location())
		return qStart.AddDate(0, -9, 0), "quarter", nil
	default:
		return time.Time{}, "", fmt.Errorf("%w: period must be month, quarter or year, got %q", ErrInvalidInput, period)
	}
}

// PeriodKey formats t as YYYY-MM for month buckets or YYYY-Qn for quarter buckets.
func PeriodKey(t time.Time, bucket string) string {
	if bucket == "quarter" {
		return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
	}
	return t.Format("2006-01")
}

// BuildGeneralUsage groups daily issues into buckets from start through now.
// Empty buckets are kept so the series has no gaps.
func BuildGeneralUsage(period string, start, now time.Time, issues []DailyItemIssue) (*GeneralUsageReport, error) {
	_, bucket, err := UsageWindow(period, now)
	if err != nil {
		return nil, err
	}
	step := 1
	if bucket == "quarter" {
		step = 3
	}

	var keys []string
	index := map[string]int{}
	for t := start; !t.After(now); t = t.AddDate(0, step, 0) {
		k := PeriodKey(t, bucket)
		index[k] = len(keys)
		keys = append(keys, k)
	}

	buckets := make([]UsageBucket, len(keys))
	items := make([]map[int]struct{}, len(keys))
	for i, k := range keys {
		buckets[i] = UsageBucket{Period: k, TotalQty: decimal.Zero}
		items[i] = map[int]struct{}{}
	}

	total := decimal.Zero
	for _, is := range issues {
		i, ok := index[PeriodKey(is.Day, bucket)]
		if !ok {
			continue
		}
		buckets[i].TotalQty = buckets[i].TotalQty.Add(is.Qty)
		items[i][is.ItemID] = struct{}{}
		total = total.Add(is.Qty)
	}
	for i := range buckets {
		buckets[i].ItemCount = len(items[i])
	}

	avg := decimal.Zero
	if len(buckets) > 0 {
		avg = total.Div(decimal.NewFromInt(int64(len(buckets)))).Round(2)
	}
	return &GeneralUsageReport{
		Period:           period,
		StartDate:        start.Format("2006-01-02"),
		UsageByPeriod:    buckets,
		TotalUsage:       total,
		AveragePerPeriod: avg,
	}, nil
}

// ── Low par trends ───────────────────────────────────────────────────────────

// ParTrends rebuilds, for each of the last days, how many levels were below par
// or at risk at the end of that day. It starts from the current levels and
// reverts txs newest first. Current par values are applied to every day.
func (r ParRules) ParTrends(levels []StockLevel, txs []InventoryTransaction, days int, now time.Time) ([]ParTrendPoint, error) {
	onHand := OnHandMap{}
	pars := map[StockKey]StockLevel{}
	for _, l := range levels {
		k := StockKey{ItemID: l.ItemID, LocationID: l.LocationID}
		onHand[k] = l.OnHandQty
		pars[k] = l
	}

	sorted := make([]InventoryTransaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	points := make([]ParTrendPoint, 0, days)
	next := 0
	for i := 0; i < days; i++ {
		day := today.AddDate(0, 0, -i)
		dayEnd := day.AddDate(0, 0, 1)
		for next < len(sorted) && !sorted[next].CreatedAt.Before(dayEnd) {
			if err := RevertTransaction(onHand, sorted[next]); err != nil {
				return nil, err
			}
			next++
		}

		p := ParTrendPoint{Period: day.Format("2006-01-02")}
		for k, l := range pars {
			l.OnHandQty = onHand[k]
			switch r.Classify(l) {
			case ParStatusBelowPar:
				p.BelowParCount++
			case ParStatusAtRisk:
				p.AtRiskCount++
			}
		}
		p.TotalAlerts = p.BelowParCount + p.AtRiskCount
		points = append(points, p)
	}

	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

// ── Dashboard ────────────────────────────────────────────────────────────────

// DashboardTopItems is how many items the dashboard ranks.
const DashboardTopItems = 5

// BuildDashboard ranks usage by issued quantity, name breaking ties, and totals
// it alongside the value of current stock. costs maps item id to unit cost;
// unpriced items add nothing to the inventory value.
func (r ParRules) BuildDashboard(days int, usage []DashboardItem, levels []StockLevel, costs map[int]decimal.Decimal, now time.Time) DashboardReport {
	ranked := make([]DashboardItem, len(usage))
	copy(ranked, usage)
	sort.SliceStable(ranked, func(i, j int) bool {
		if c := ranked[i].TotalQty.Cmp(ranked[j].TotalQty); c != 0 {
			return c > 0
		}
		return ranked[i].ItemName < ranked[j].ItemName
	})

	totals := DashboardTotals{PeriodDays: days, TotalQtyUsed: decimal.Zero, AvgPerTransaction: decimal.Zero, InventoryValue: decimal.Zero}
	for _, u := range usage {
		totals.TotalQtyUsed = totals.TotalQtyUsed.Add(u.TotalQty)
		totals.TransactionCount += u.TransactionCount
		if u.TotalQty.IsPositive() {
			totals.UniqueItemsUsed++
		}
	}
	if totals.TransactionCount > 0 {
		totals.AvgPerTransaction = totals.TotalQtyUsed.Div(decimal.NewFromInt(int64(totals.TransactionCount))).Round(2)
	}

	inStock := map[int]bool{}
	for _, l := range levels {
		if l.OnHandQty.IsPositive() {
			inStock[l.ItemID] = true
			if cost, ok := costs[l.ItemID]; ok {
				totals.InventoryValue = totals.InventoryValue.Add(l.OnHandQty.Mul(cost))
			}
		}
		if r.Classify(l) == ParStatusBelowPar {
			totals.BelowParCount++
		}
	}
	totals.ItemsInStock = len(inStock)
	totals.InventoryValue = totals.InventoryValue.Round(2)

	top := ranked
	if len(top) > DashboardTopItems {
		top = top[:DashboardTopItems]
	}
	return DashboardReport{TopItems: top, Totals: totals, GeneratedAt: now}
}

// ── Environmental impact ─────────────────────────────────────────────────────

// Conversion factors for the environmental estimate.
const (
	pagesPerTransaction    = 2
	pagesPerTree           = 8333.0
	co2KgPerPage           = 0.0046
	kwhPerPage             = 0.0125
	tripsSavedPerReceipt   = 0.25
	kmPerTrip              = 25.0
	co2KgPerKm             = 0.21
	wasteReductionPct      = 15.0
	wasteKgPerTrackedItem  = 0.5
	co2KgPerWasteKg        = 2.5
	carCO2KgPerDay         = 12.6
	homeKwhPerDay          = 29.0
	hoursPerDay            = 24
	defaultImpactPrecision = 2
)

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// EstimateImpact converts operational counts into the environmental impact report.
func EstimateImpact(in ImpactInputs) EnvironmentalImpactReport {
	daysActive := 0
	if !in.SystemStart.IsZero() && in.Now.After(in.SystemStart) {
		daysActive = int(in.Now.Sub(in.SystemStart).Hours() / hoursPerDay)
	}

	pages := in.TotalTransactions * pagesPerTransaction
	trees := float64(pages) / pagesPerTree
	paperCO2 := float64(pages) * co2KgPerPage

	value, _ := in.InventoryValue.Float64()
	valueSaved := value * wasteReductionPct / 100
	wasteKg := float64(in.ItemsTracked) * wasteKgPerTrackedItem * wasteReductionPct / 100 * float64(max(daysActive, 1)) / 30
	wasteCO2 := wasteKg * co2KgPerWasteKg

	trips := float64(in.TotalReceipts) * tripsSavedPerReceipt
	km := trips * kmPerTrip
	transportCO2 := km * co2KgPerKm

	totalCO2 := paperCO2 + wasteCO2 + transportCO2
	kwh := float64(pages) * kwhPerPage

	const p = defaultImpactPrecision
	start := ""
	if !in.SystemStart.IsZero() {
		start = in.SystemStart.Format("2006-01-02")
	}
	return EnvironmentalImpactReport{
		SystemStartDate: start,
		DaysActive:      daysActive,
		PaperSavings: PaperSavings{
			TotalTransactions: in.TotalTransactions,
			PagesSaved:        pages,
			TreesSaved:        round(trees, p),
			CO2SavedKg:        round(paperCO2, p),
		},
		WasteReduction: WasteReduction{
			TotalItemsTracked:        in.ItemsTracked,
			BelowParAlertsPrevented:  in.BelowParAlerts,
			WasteReductionPercentage: wasteReductionPct,
			EstimatedValueSaved:      round(valueSaved, p),
			WasteWeightKg:            round(wasteKg, p),
			CO2SavedKg:               round(wasteCO2, p),
		},
		Transportation: Transportation{
			TotalReceipts: in.TotalReceipts,
			TripsSaved:    round(trips, p),
			KmSaved:       round(km, p),
			CO2SavedKg:    round(transportCO2, p),
		},
		CarbonFootprint: CarbonFootprint{
			TotalCO2SavedKg:           round(totalCO2, p),
			TotalCO2SavedTons:         round(totalCO2/1000, 3),
			EquivalentCarsOffRoadDays: round(totalCO2/carCO2KgPerDay, 1),
		},
		EnergySavings: EnergySavings{
			KwhSaved:                   round(kwh, p),
			EquivalentHomesPoweredDays: round(kwh/homeKwhPerDay, p),
		},
		Summary: ImpactSummary{
			TreesSaved:     round(trees, p),
			TotalCO2Tons:   round(totalCO2/1000, 3),
			WasteAvoidedKg: round(wasteKg, p),
		},
	}
}
