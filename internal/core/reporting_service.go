package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

type reportingService struct {
	pool     *pgxpool.Pool
	rules    ParRules
	forecast ForecastParams
	now      func() time.Time
}

// NewReportingService constructs a ReportingService.
func NewReportingService(pool *pgxpool.Pool, rules ParRules, forecast ForecastParams) ReportingService {
	return &reportingService{pool: pool, rules: rules, forecast: forecast, now: time.Now}
}

// activeLevels returns every stock level of an active item at an active location.
func (s *reportingService) activeLevels(ctx context.Context) ([]StockLevel, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+levelColumns+levelJoins+`
		WHERE i.is_active AND l.is_active
		ORDER BY i.name, l.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock levels: %w", err)
	}
	return collectLevels(rows)
}

// ── Alerts ───────────────────────────────────────────────────────────────────

func (s *reportingService) Alerts(ctx context.Context) (_ *AlertsReport, err error) {
	ctx, span := startSpan(ctx, "reporting.Alerts")
	defer endSpan(span, &err)

	levels, err := s.activeLevels(ctx)
	if err != nil {
		return nil, err
	}
	report := s.rules.BuildAlerts(levels)
	return &report, nil
}

// ── Suggested orders ─────────────────────────────────────────────────────────

func (s *reportingService) SuggestedOrders(ctx context.Context, vendorID int) (_ *SuggestedOrdersReport, err error) {
	ctx, span := startSpan(ctx, "reporting.SuggestedOrders", attribute.Int("vendor_id", vendorID))
	defer endSpan(span, &err)

	now := s.now()
	since := now.AddDate(0, 0, -s.forecast.WindowDays)

	rows, err := s.pool.Query(ctx, `SELECT `+levelColumns+`,
			i.lead_time_days, i.cost, i.default_vendor_id, v.name,
			COALESCE((
				SELECT SUM(t.qty) FROM inventory_transactions t
				WHERE t.type = 'ISSUE' AND t.item_id = sl.item_id
				  AND t.from_location_id = sl.location_id AND t.created_at >= $1
			), 0)
		`+levelJoins+`
		LEFT JOIN vendors v ON v.id = i.default_vendor_id
		WHERE i.is_active AND l.is_active AND sl.par_min > 0
		  AND ($2 = 0 OR i.default_vendor_id = $2)
		ORDER BY v.name NULLS LAST, i.name, l.name`, since, vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query suggested orders: %w", err)
	}
	defer rows.Close()

	suggestions := []SuggestedOrder{}
	for rows.Next() {
		var (
			sl         StockLevel
			leadTime   int
			cost       *decimal.Decimal
			vendor     *int
			vendorName *string
			issued     decimal.Decimal
		)
		if err := rows.Scan(&sl.ID, &sl.ItemID, &sl.ItemName, &sl.ShortCode, &sl.LocationID, &sl.LocationName,
			&sl.OnHandQty, &sl.ReservedQty, &sl.ParMin, &sl.ParMax, &sl.LastCountedAt, &sl.LastCountedBy, &sl.UpdatedAt,
			&leadTime, &cost, &vendor, &vendorName, &issued); err != nil {
			return nil, fmt.Errorf("failed to scan suggested order: %w", err)
		}
		sug, ok := s.forecast.Suggest(sl, leadTime, issued)
		if !ok {
			continue
		}
		sug.VendorID = vendor
		if vendorName != nil {
			sug.VendorName = *vendorName
		}
		sug.UnitCost = cost
		suggestions = append(suggestions, sug)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read suggested orders: %w", err)
	}

	return &SuggestedOrdersReport{
		Suggestions:         suggestions,
		TotalSuggestedValue: PriceSuggestions(suggestions),
		WindowDays:          s.forecast.WindowDays,
		GeneratedAt:         now,
	}, nil
}

// ── Usage ────────────────────────────────────────────────────────────────────

func (s *reportingService) UsageTrends(ctx context.Context, itemID, days int) (_ *ItemUsage, err error) {
	ctx, span := startSpan(ctx, "reporting.UsageTrends", attribute.Int("item_id", itemID))
	defer endSpan(span, &err)

	if days <= 0 {
		days = s.forecast.WindowDays
	}
	var name string
	err = s.pool.QueryRow(ctx, `SELECT name FROM items WHERE id = $1`, itemID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("item", itemID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load item %d: %w", itemID, err)
	}

	points, err := dailyIssues(ctx, s.pool, itemID, s.now().AddDate(0, 0, -days))
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, p := range points {
		total = total.Add(p.Qty)
	}
	return &ItemUsage{
		ItemID:     itemID,
		ItemName:   name,
		Days:       days,
		TotalQty:   total,
		AvgDaily:   total.Div(decimal.NewFromInt(int64(days))).Round(4),
		UsageByDay: points,
	}, nil
}

func (s *reportingService) GeneralUsage(ctx context.Context, period string) (_ *GeneralUsageReport, err error) {
	ctx, span := startSpan(ctx, "reporting.GeneralUsage", attribute.String("period", period))
	defer endSpan(span, &err)

	now := s.now()
	start, _, err := UsageWindow(period, now)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT created_at::date AS day, item_id, SUM(qty)
		FROM inventory_transactions
		WHERE type = 'ISSUE' AND created_at >= $1
		GROUP BY day, item_id
		ORDER BY day`, start)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	var issues []DailyItemIssue
	for rows.Next() {
		var is DailyItemIssue
		if err := rows.Scan(&is.Day, &is.ItemID, &is.Qty); err != nil {
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}
		issues = append(issues, is)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read usage: %w", err)
	}
	return BuildGeneralUsage(period, start, now, issues)
}

// ── Low par trends ───────────────────────────────────────────────────────────

func (s *reportingService) LowParTrends(ctx context.Context, days int) (_ *LowParTrendsReport, err error) {
	ctx, span := startSpan(ctx, "reporting.LowParTrends", attribute.Int("days", days))
	defer endSpan(span, &err)

	if days <= 0 {
		days = 30
	}
	now := s.now()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(days - 1))

	// One snapshot so the ledger tail matches the levels it is reverted from.
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `SELECT `+levelColumns+levelJoins+`
		WHERE i.is_active AND l.is_active AND sl.par_min > 0`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock levels: %w", err)
	}
	levels, err := collectLevels(rows)
	if err != nil {
		return nil, err
	}

	rows, err = tx.Query(ctx, `SELECT `+transactionColumns+`
		FROM inventory_transactions t
		JOIN items i ON i.id = t.item_id
		WHERE t.created_at >= $1
		ORDER BY t.created_at DESC, t.id DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()
	var txs []InventoryTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}

	trends, err := s.rules.ParTrends(levels, txs, days, now)
	if err != nil {
		return nil, err
	}
	return &LowParTrendsReport{Days: days, Trends: trends}, nil
}

// ── Environmental impact ─────────────────────────────────────────────────────

func (s *reportingService) EnvironmentalImpact(ctx context.Context) (_ *EnvironmentalImpactReport, err error) {
	ctx, span := startSpan(ctx, "reporting.EnvironmentalImpact")
	defer endSpan(span, &err)

	in := ImpactInputs{Now: s.now()}
	var start *time.Time
	err = s.pool.QueryRow(ctx, `
		SELECT MIN(created_at),
		       COUNT(*),
		       COUNT(*) FILTER (WHERE type = 'RECEIVE')
		FROM inventory_transactions`).Scan(&start, &in.TotalTransactions, &in.TotalReceipts)
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}
	if start != nil {
		in.SystemStart = *start
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT sl.item_id),
		       COUNT(*) FILTER (WHERE sl.par_min > 0 AND sl.on_hand_qty < sl.par_min),
		       COALESCE(SUM(sl.on_hand_qty * i.cost), 0)
		`+levelJoins+`
		WHERE i.is_active AND l.is_active`).Scan(&in.ItemsTracked, &in.BelowParAlerts, &in.InventoryValue)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize stock levels: %w", err)
	}

	report := EstimateImpact(in)
	return &report, nil
}

// ── Dashboard ────────────────────────────────────────────────────────────────

func (s *reportingService) Dashboard(ctx context.Context, days int) (_ *DashboardReport, err error) {
	ctx, span := startSpan(ctx, "reporting.Dashboard", attribute.Int("days", days))
	defer endSpan(span, &err)

	if days <= 0 {
		days = s.forecast.WindowDays
	}
	now := s.now()

	rows, err := s.pool.Query(ctx, `
		SELECT i.id, i.name, i.short_code, i.photo_url, i.unit_of_measure, SUM(t.qty), COUNT(*)
		FROM inventory_transactions t
		JOIN items i ON i.id = t.item_id
		WHERE t.type = 'ISSUE' AND t.created_at >= $1
		GROUP BY i.id, i.name, i.short_code, i.photo_url, i.unit_of_measure`, now.AddDate(0, 0, -days))
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	var usage []DashboardItem
	for rows.Next() {
		var u DashboardItem
		if err := rows.Scan(&u.ItemID, &u.ItemName, &u.ShortCode, &u.PhotoURL, &u.UnitOfMeasure, &u.TotalQty, &u.TransactionCount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}
		usage = append(usage, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read usage: %w", err)
	}

	levels, err := s.activeLevels(ctx)
	if err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `SELECT id, cost FROM items WHERE is_active AND cost IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to query item costs: %w", err)
	}
	defer rows.Close()
	costs := map[int]decimal.Decimal{}
	for rows.Next() {
		var id int
		var cost decimal.Decimal
		if err := rows.Scan(&id, &cost); err != nil {
			return nil, fmt.Errorf("failed to scan item cost: %w", err)
		}
		costs[id] = cost
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read item costs: %w", err)
	}

	report := s.rules.BuildDashboard(days, usage, levels, costs, now)
	return &report, nil
}
