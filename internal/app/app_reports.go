package app

import (
	"context"

	"parstock/internal/cache"
	"parstock/internal/core"
	"parstock/internal/export"
)

// Reports are served through the report cache; any stock change drops them.

func (s *appService) Alerts(ctx context.Context, who core.Principal) (*core.AlertsReport, error) {
	if err := s.authorize(who, core.ModuleReports, core.ActionView, nil); err != nil {
		return nil, err
	}
	return cache.GetOrFill(ctx, s.reports, cache.Key("alerts"), s.svc.Reports.Alerts)
}

func (s *appService) SuggestedOrders(ctx context.Context, who core.Principal, vendorID int) (*core.SuggestedOrdersReport, error) {
	if err := s.authorize(who, core.ModuleReports, core.ActionView, nil); err != nil {
		return nil, err
	}
	return s.suggestedOrders(ctx, vendorID)
}

func (s *appService) suggestedOrders(ctx context.Context, vendorID int) (*core.SuggestedOrdersReport, error) {
	return cache.GetOrFill(ctx, s.reports, cache.Key("suggested-orders", vendorID),
		func(ctx context.Context) (*core.SuggestedOrdersReport, error) {
			return s.svc.Reports.SuggestedOrders(ctx, vendorID)
		})
}

func (s *appService) ExportSuggestedOrders(ctx context.Context, who core.Principal, vendorID int) ([]byte, error) {
	if err := s.authorize(who, core.ModuleReports, core.ActionView, nil); err != nil {
		return nil, err
	}
	report, err := s.suggestedOrders(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	return export.SuggestedOrdersXLSX(report)
}

func (s *appService) UsageTrends(ctx context.Context, who core.Principal, itemID, days int) (*core.ItemUsage, error) {
	if err := s.authorize(who, core.ModuleReports, core.ActionView, nil); err != nil {
		return nil, err
	}
	return cache.GetOrFill(ctx, s.reports, cache.Key("usage-trends", itemID, days),
		func(ctx context.Context) (*core.ItemUsage, error) {
			return s.svc.Reports.UsageTrends(ctx, itemID, days)
		})
}

func (s *appService) GeneralUsage(ctx context.Context, who core.Principal, period string) (*core.GeneralUsageReport, error) {
	if err := s.authorize(who, core.ModuleReports, core.ActionView, nil); err != nil {
		return nil, err
	}
	return cache.GetOrFill(ctx, s.reports, cache.Key("general-usage", period),
		func(ctx context.Context) (*core.GeneralUsageReport, error) {
			return s.svc.Reports.GeneralUsage(ctx, period)
		})
}

func (s *appService) LowParTrends(ctx context.Context, who core.Principal, days int) (*core.LowParTrendsReport, error) {
	if err := s.authorize(who, core.ModuleReports, core.ActionView, nil); err != nil {
		return nil, err
	}
	return cache.GetOrFill(ctx, s.reports, cache.Key("low-par-trends", days),
		func(ctx context.Context) (*core.LowParTrendsReport, error) {
			return s.svc.Reports.LowParTrends(ctx, days)
		})
}

func (s *appService) EnvironmentalImpact(ctx context.Context, who core.Principal) (*core.EnvironmentalImpactReport, error) {
	if err := s.authorize(who, core.ModuleReports, core.ActionView, nil); err != nil {
		return nil, err
	}
	return cache.GetOrFill(ctx, s.reports, cache.Key("environmental-impact"), s.svc.Reports.EnvironmentalImpact)
}

func (s *appService) Dashboard(ctx context.Context, who core.Principal, days int) (*core.DashboardReport, error) {
	if err := s.authorize(who, core.ModuleReports, core.ActionView, nil); err != nil {
		return nil, err
	}
	return cache.GetOrFill(ctx, s.reports, cache.Key("dashboard", days),
		func(ctx context.Context) (*core.DashboardReport, error) {
			return s.svc.Reports.Dashboard(ctx, days)
		})
}
