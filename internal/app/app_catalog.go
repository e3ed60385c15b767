package app

import (
	"context"

	"parstock/internal/core"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ── Items ────────────────────────────────────────────────────────────────────

func itemInput(req ItemRequest) core.ItemInput {
	return core.ItemInput{
		Name:            req.Name,
		ShortCode:       req.ShortCode,
		CategoryID:      req.CategoryID,
		PhotoURL:        req.PhotoURL,
		UnitOfMeasure:   req.UnitOfMeasure,
		DefaultVendorID: req.DefaultVendorID,
		Cost:            req.Cost,
		LeadTimeDays:    req.LeadTimeDays,
		IsActive:        req.IsActive,
	}
}

func (s *appService) ListItems(ctx context.Context, who core.Principal, filter core.ItemFilter) ([]core.Item, error) {
	if err := s.authorize(who, core.ModuleCatalog, core.ActionView, nil); err != nil {
		return nil, err
	}
	return s.svc.Catalog.ListItems(ctx, filter)
}

func (s *appService) GetItem(ctx context.Context, who core.Principal, itemID int) (*core.Item, error) {
	if err := s.authorize(who, core.ModuleCatalog, core.ActionView, nil); err != nil {
		return nil, err
	}
	return s.svc.Catalog.GetItem(ctx, itemID)
}

func (s *appService) LookupItem(ctx context.Context, who core.Principal, code string) (*core.Item, error) {
	if err := s.authorize(who, core.ModuleCatalog, core.ActionView, nil); err != nil {
		return nil, err
	}
	return s.svc.Catalog.LookupItem(ctx, code)
}

func (s *appService) CreateItem(ctx context.Context, who core.Principal, req ItemRequest) (*core.Item, error) {
	if err := s.authorize(who, core.ModuleCatalog, core.ActionCreate, &req); err != nil {
		return nil, err
	}
	item, err := s.svc.Catalog.CreateItem(ctx, itemInput(req))
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"item_id": item.ID, "short_code": item.ShortCode, "actor": who.Username}).Info("item created")
	return item, nil
}

func (s *appService) UpdateItem(ctx context.Context, who core.Principal, itemID int, req ItemRequest) (*core.Item, error) {
	if err := s.authorize(who, core.ModuleCatalog, core.ActionEdit, &req); err != nil {
		return nil, err
	}
	item, err := s.svc.Catalog.UpdateItem(ctx, itemID, itemInput(req))
	if err != nil {
		return nil, err
	}
	// Cost and lead time feed suggested orders.
	s.stockChanged(ctx)
	return item, nil
}

func (s *appService) ItemUsage(ctx context.Context, who core.Principal, itemID, days int) (*core.ItemUsage, error) {
	if err := s.authorize(who, core.ModuleCatalog, core.ActionView, nil); err != nil {
		return nil, err
	}
	return s.svc.Catalog.ItemUsage(ctx, itemID, days)
}

func (s *appService) ItemStockByLocation(ctx context.Context, who core.Principal, itemID int) (*ItemStockResult, error) {
	if err := s.authorize(who, core.ModuleStock, core.ActionView, nil); err != nil {
		return nil, err
	}
	item, err := s.svc.Catalog.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	levels, err := s.svc.Inventory.StockByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	grouped := groupByItem(levels, s.rules)
	if len(grouped) == 0 {
		return &ItemStockResult{
			ItemID:         item.ID,
			ItemName:       item.Name,
			ShortCode:      item.ShortCode,
			TotalOnHand:    decimal.Zero,
			TotalAvailable: decimal.Zero,
			Locations:      []core.StockLevelView{},
		}, nil
	}
	return &grouped[0], nil
}

func (s *appService) ItemTransactions(ctx context.Context, who core.Principal, itemID, limit int) ([]core.InventoryTransaction, error) {
	if err := s.authorize(who, core.ModuleStock, core.ActionView, nil); err != nil {
		return nil, err
	}
	if _, err := s.svc.Catalog.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	return s.svc.Inventory.Transactions(ctx, core.TransactionFilter{ItemID: itemID, Limit: limit})
}

// groupByItem totals levels per item, keeping the first-seen item order.
func groupByItem(levels []core.StockLevel, rules core.ParRules) []ItemStockResult {
	out := []ItemStockResult{}
	index := make(map[int]int)
	for _, l := range levels {
		i, ok := index[l.ItemID]
		if !ok {
			i = len(out)
			index[l.ItemID] = i
			out = append(out, ItemStockResult{
				ItemID:         l.ItemID,
				ItemName:       l.ItemName,
				ShortCode:      l.ShortCode,
				TotalOnHand:    decimal.Zero,
				TotalAvailable: decimal.Zero,
				Locations:      []core.StockLevelView{},
			})
		}
		v := rules.View(l)
		r := &out[i]
		r.TotalOnHand = r.TotalOnHand.Add(l.OnHandQty)
		r.TotalAvailable = r.TotalAvailable.Add(v.AvailableQty)
		r.Locations = append(r.Locations, v)
	}
	return out
}

// ── Locations ────────────────────────────────────────────────────────────────

func locationInput(req LocationRequest) core.LocationInput {
	return core.LocationInput{
		PropertyID:       req.PropertyID,
		Name:             req.Name,
		Type:             core.LocationType(req.Type),
		ParentLocationID: req.ParentLocationID,
		IsActive:         req.IsActive,
	}
}

func (s *appService) ListLocations(ctx context.Context, who core.Principal, includeInactive bool) ([]core.Location, error) {
	if err := s.authorize(who, core.ModuleCatalog, core.ActionView, nil); err != nil {
		return nil, err
	}
	return s.svc.Catalog.ListLocations(ctx, includeInactive)
}

func (s *appService) CreateLocation(ctx context.Context, who core.Principal, req LocationRequest) (*core.Location, error) {
	if err := s.authorize(who, core.ModuleSettings, core.ActionCreate, &req); err != nil {
		return nil, err
	}
	return s.svc.Catalog.CreateLocation(ctx, locationInput(req))
}

func (s *appService) UpdateLocation(ctx context.Context, who core.Principal, locationID int, req LocationRequest) (*core.Location, error) {
	if err := s.authorize(who, core.ModuleSettings, core.ActionEdit, &req); err != nil {
		return nil, err
	}
	return s.svc.Catalog.UpdateLocation(ctx, locationID, locationInput(req))
}

func (s *appService) DeleteLocation(ctx context.Context, who core.Principal, locationID int) error {
	if err := s.authorize(who, core.ModuleSettings, core.ActionDelete, nil); err != nil {
		return err
	}
	if err := s.svc.Catalog.DeactivateLocation(ctx, locationID); err != nil {
		return err
	}
	s.stockChanged(ctx)
	return nil
}

// ── Categories ───────────────────────────────────────────────────────────────

func categoryInput(req CategoryRequest) core.CategoryInput {
	return core.CategoryInput{
		Name:             req.Name,
		Icon:             req.Icon,
		ParentCategoryID: req.ParentCategoryID,
		IsActive:         req.IsActive,
	}
}

func (s *appService) ListCategories(ctx context.Context, who core.Principal, includeInactive bool) ([]core.Category, error) {
	if err := s.authorize(who, core.ModuleCatalog, core.ActionView, nil); err != nil {
		return nil, err
	}
	return s.svc.Catalog.ListCategories(ctx, includeInactive)
}

func (s *appService) CreateCategory(ctx context.Context, who core.Principal, req CategoryRequest) (*core.Category, error) {
	if err := s.authorize(who, core.ModuleSettings, core.ActionCreate, &req); err != nil {
		return nil, err
	}
	return s.svc.Catalog.CreateCategory(ctx, categoryInput(req))
}

func (s *appService) UpdateCategory(ctx context.Context, who core.Principal, categoryID int, req CategoryRequest) (*core.Category, error) {
	if err := s.authorize(who, core.ModuleSettings, core.ActionEdit, &req); err != nil {
		return nil, err
	}
	return s.svc.Catalog.UpdateCategory(ctx, categoryID, categoryInput(req))
}

func (s *appService) DeleteCategory(ctx context.Context, who core.Principal, categoryID int) error {
	if err := s.authorize(who, core.ModuleSettings, core.ActionDelete, nil); err != nil {
		return err
	}
	return s.svc.Catalog.DeactivateCategory(ctx, categoryID)
}

// ── Vendors ──────────────────────────────────────────────────────────────────

func vendorInput(req VendorRequest) core.VendorInput {
	return core.VendorInput{
		Name:        req.Name,
		ContactInfo: req.ContactInfo,
		Phone:       req.Phone,
		Email:       req.Email,
		IsActive:    req.IsActive,
	}
}

func (s *appService) ListVendors(ctx context.Context, who core.Principal, includeInactive bool) ([]core.Vendor, error) {
	if err := s.authorize(who, core.ModuleVendors, core.ActionView, nil); err != nil {
		return nil, err
	}
	return s.svc.Vendors.ListVendors(ctx, includeInactive)
}

func (s *appService) CreateVendor(ctx context.Context, who core.Principal, req VendorRequest) (*core.Vendor, error) {
	if err := s.authorize(who, core.ModuleVendors, core.ActionCreate, &req); err != nil {
		return nil, err
	}
	return s.svc.Vendors.CreateVendor(ctx, vendorInput(req))
}

func (s *appService) UpdateVendor(ctx context.Context, who core.Principal, vendorID int, req VendorRequest) (*core.Vendor, error) {
	if err := s.authorize(who, core.ModuleVendors, core.ActionEdit, &req); err != nil {
		return nil, err
	}
	v, err := s.svc.Vendors.UpdateVendor(ctx, vendorID, vendorInput(req))
	if err != nil {
		return nil, err
	}
	s.stockChanged(ctx)
	return v, nil
}

func (s *appService) DeleteVendor(ctx context.Context, who core.Principal, vendorID int) error {
	if err := s.authorize(who, core.ModuleVendors, core.ActionDelete, nil); err != nil {
		return err
	}
	return s.svc.Vendors.DeactivateVendor(ctx, vendorID)
}
