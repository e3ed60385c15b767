package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ── Report types ──────────────────────────────────────────────────────────────

// ParAlert is one stock level that is below par or at risk.
type ParAlert struct {
	ItemID       int             `json:"item_id"`
	ItemName     string          `json:"item_name"`
	ShortCode    string          `json:"item_short_code"`
	LocationID   int             `json:"location_id"`
	LocationName string          `json:"location_name"`
	OnHandQty    decimal.Decimal `json:"on_hand_qty"`
	Par          decimal.Decimal `json:"par"`
	StockLevel   StockLevelView  `json:"stock_level"`
}

type AlertsReport struct {
	BelowPar      []ParAlert `json:"below_par"`
	AtRisk        []ParAlert `json:"at_risk"`
	BelowParCount int        `json:"below_par_count"`
	AtRiskCount   int        `json:"at_risk_count"`
}

// SuggestedOrder is a reorder proposal for one item at one location.
// CurrentStock is the available quantity; CurrentOnHand includes reservations.
type SuggestedOrder struct {
	ItemID            int              `json:"item_id"`
	ItemName          string           `json:"item_name"`
	ShortCode         string           `json:"item_short_code"`
	LocationID        int              `json:"location_id"`
	LocationName      string           `json:"location_name"`
	VendorID          *int             `json:"vendor_id,omitempty"`
	VendorName        string           `json:"vendor_name,omitempty"`
	SuggestedQty      decimal.Decimal  `json:"suggested_qty"`
	Reason            string           `json:"reason"`
	CurrentStock      decimal.Decimal  `json:"current_stock"`
	CurrentOnHand     decimal.Decimal  `json:"current_on_hand"`
	Par               decimal.Decimal  `json:"par"`
	ParMax            decimal.Decimal  `json:"par_max"`
	AvgDailyUsage     decimal.Decimal  `json:"avg_daily_usage"`
	LeadTimeDays      int              `json:"lead_time_days"`
	ProjectedOnHand   decimal.Decimal  `json:"projected_on_hand"`
	DaysUntilBelowPar *decimal.Decimal `json:"days_until_below_par,omitempty"`
	UnitCost          *decimal.Decimal `json:"unit_cost,omitempty"`
	EstimatedValue    *decimal.Decimal `json:"estimated_value,omitempty"`
}

type SuggestedOrdersReport struct {
	Suggestions         []SuggestedOrder `json:"suggestions"`
	TotalSuggestedValue decimal.Decimal  `json:"total_suggested_value"`
	WindowDays          int              `json:"window_days"`
	GeneratedAt         time.Time        `json:"generated_at"`
}

// UsageBucket is the issue total for one period of a general usage report.
type UsageBucket struct {
	Period    string          `json:"period"` // YYYY-MM or YYYY-Qn
	TotalQty  decimal.Decimal `json:"total_qty"`
	ItemCount int             `json:"item_count"`
}

type GeneralUsageReport struct {
	Period           string          `json:"period"`
	StartDate        string          `json:"start_date"`
	UsageByPeriod    []UsageBucket   `json:"usage_by_period"`
	TotalUsage       decimal.Decimal `json:"total_usage"`
	AveragePerPeriod decimal.Decimal `json:"average_per_period"`
}

// DailyItemIssue is the quantity of one item issued on one day.
type DailyItemIssue struct {
	Day    time.Time
	ItemID int
	Qty    decimal.Decimal
}

// ParTrendPoint counts the alerts that stood at the end of one day.
type ParTrendPoint struct {
	Period        string `json:"period"` // YYYY-MM-DD
	BelowParCount int    `json:"below_par_count"`
	AtRiskCount   int    `json:"at_risk_count"`
	TotalAlerts   int    `json:"total_alerts"`
}

type LowParTrendsReport struct {
	Days   int             `json:"days"`
	Trends []ParTrendPoint `json:"trends"`
}

// ImpactInputs are the operational counts the environmental estimate is built from.
type ImpactInputs struct {
	SystemStart       time.Time
	Now               time.Time
	TotalTransactions int
	TotalReceipts     int
	ItemsTracked      int
	BelowParAlerts    int
	InventoryValue    decimal.Decimal
}

type PaperSavings struct {
	TotalTransactions int     `json:"total_transactions"`
	PagesSaved        int     `json:"pages_saved"`
	TreesSaved        float64 `json:"trees_saved"`
	CO2SavedKg        float64 `json:"co2_saved_kg"`
}

type WasteReduction struct {
	TotalItemsTracked        int     `json:"total_items_tracked"`
	BelowParAlertsPrevented  int     `json:"below_par_alerts_prevented"`
	WasteReductionPercentage float64 `json:"waste_reduction_percentage"`
	EstimatedValueSaved      float64 `json:"estimated_value_saved"`
	WasteWeightKg            float64 `json:"waste_weight_kg"`
	CO2SavedKg               float64 `json:"co2_saved_kg"`
}

type Transportation struct {
	TotalReceipts int     `json:"total_receipts"`
	TripsSaved    float64 `json:"trips_saved"`
	KmSaved       float64 `json:"km_saved"`
	CO2SavedKg    float64 `json:"co2_saved_kg"`
}

type CarbonFootprint struct {
	TotalCO2SavedKg           float64 `json:"total_co2_saved_kg"`
	TotalCO2SavedTons         float64 `json:"total_co2_saved_tons"`
	EquivalentCarsOffRoadDays float64 `json:"equivalent_cars_off_road_days"`
}

type EnergySavings struct {
	KwhSaved                   float64 `json:"kwh_saved"`
	EquivalentHomesPoweredDays float64 `json:"equivalent_homes_powered_days"`
}

type ImpactSummary struct {
	TreesSaved     float64 `json:"trees_saved"`
	TotalCO2Tons   float64 `json:"total_co2_tons"`
	WasteAvoidedKg float64 `json:"waste_avoided_kg"`
}

// EnvironmentalImpactReport is an estimate, not a measurement; every figure is
// derived from ImpactInputs through the conversion constants in reporting_logic.go.
type EnvironmentalImpactReport struct {
	SystemStartDate string          `json:"system_start_date"`
	DaysActive      int             `json:"days_active"`
	PaperSavings    PaperSavings    `json:"paper_savings"`
	WasteReduction  WasteReduction  `json:"waste_reduction"`
	Transportation  Transportation  `json:"transportation"`
	CarbonFootprint CarbonFootprint `json:"carbon_footprint"`
	EnergySavings   EnergySavings   `json:"energy_savings"`
	Summary         ImpactSummary   `json:"summary"`
}

// ── Dashboard ────────────────────────────────────────────────────────────────

// DashboardItem is one item's ISSUE activity over the dashboard window.
type DashboardItem struct {
	ItemID           int             `json:"item_id"`
	ItemName         string          `json:"item_name"`
	ShortCode        string          `json:"short_code"`
	PhotoURL         string          `json:"photo_url"`
	UnitOfMeasure    string          `json:"unit_of_measure"`
	TotalQty         decimal.Decimal `json:"total_qty"`
	TransactionCount int             `json:"transaction_count"`
}

type DashboardTotals struct {
	TotalQtyUsed      decimal.Decimal `json:"total_qty_used"`
	UniqueItemsUsed   int             `json:"unique_items_used"`
	TransactionCount  int             `json:"transaction_count"`
	AvgPerTransaction decimal.Decimal `json:"avg_per_transaction"`
	InventoryValue    decimal.Decimal `json:"inventory_value"`
	ItemsInStock      int             `json:"items_in_stock"`
	BelowParCount     int             `json:"below_par_count"`
	PeriodDays        int             `json:"period_days"`
}

type DashboardReport struct {
	TopItems    []DashboardItem `json:"top_items"`
	Totals      DashboardTotals `json:"totals"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// ── Interface ─────────────────────────────────────────────────────────────────

// ReportingService provides read-only reports over stock levels and the ledger.
type ReportingService interface {
	Alerts(ctx context.Context) (*AlertsReport, error)
	// SuggestedOrders projects usage over each item's lead time. vendorID 0 means all vendors.
	SuggestedOrders(ctx context.Context, vendorID int) (*SuggestedOrdersReport, error)
	UsageTrends(ctx context.Context, itemID, days int) (*ItemUsage, error)
	// GeneralUsage groups issues by month ("month", "year") or quarter ("quarter").
	GeneralUsage(ctx context.Context, period string) (*GeneralUsageReport, error)
	// LowParTrends rebuilds daily alert counts by walking the ledger backwards.
	LowParTrends(ctx context.Context, days int) (*LowParTrendsReport, error)
	EnvironmentalImpact(ctx context.Context) (*EnvironmentalImpactReport, error)
	// Dashboard summarizes the last days of ISSUE activity and current stock.
	Dashboard(ctx context.Context, days int) (*DashboardReport, error)
}
