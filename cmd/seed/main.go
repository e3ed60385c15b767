// seed loads a small demonstration property: users, locations, catalog, par
// levels and opening stock. It refuses to run against a database that already
// has items.
//
// Usage: PARSTOCK_PASSWORD=... go run ./cmd/seed
package main

import (
	"context"
	"os"

	"parstock/internal/config"
	"parstock/internal/core"
	"parstock/internal/db"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type seedItem struct {
	name, code, category, uom string
	cost                      string
	leadTime                  int
	opening                   int64
	pars                      map[string][2]int64 // location -> {par_min, par_max}
}

var seedItems = []seedItem{
	{"Bath Towel", "TWL-BATH", "Linens", "ea", "4.50", 5, 240, map[string][2]int64{"Floor 2 Closet": {40, 80}, "Floor 3 Closet": {40, 80}}},
	{"Hand Towel", "TWL-HAND", "Linens", "ea", "2.10", 5, 200, map[string][2]int64{"Floor 2 Closet": {30, 60}, "Floor 3 Closet": {30, 60}}},
	{"King Sheet Set", "SHT-KING", "Linens", "set", "18.00", 10, 60, map[string][2]int64{"Floor 2 Closet": {10, 20}, "Floor 3 Closet": {10, 20}}},
	{"Soap Bar", "AMN-SOAP", "Amenities", "ea", "0.35", 7, 1000, map[string][2]int64{"Housekeeping Cart A": {50, 100}}},
	{"Shampoo 30ml", "AMN-SHMP", "Amenities", "ea", "0.42", 7, 800, map[string][2]int64{"Housekeeping Cart A": {50, 100}}},
	{"Glass Cleaner", "CLN-GLSS", "Cleaning", "btl", "3.25", 3, 48, map[string][2]int64{"Floor 2 Closet": {4, 8}}},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.NewLogger("info").WithError(err).Fatal("config")
	}
	logger := config.NewLogger(cfg.LogLevel)

	password := os.Getenv("PARSTOCK_PASSWORD")
	if len(password) < 8 {
		logger.Fatal("PARSTOCK_PASSWORD must be set to at least 8 characters")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("connect")
	}
	defer pool.Close()

	catalog := core.NewCatalogService(pool)
	existing, err := catalog.ListItems(ctx, core.ItemFilter{IncludeInactive: true})
	if err != nil {
		logger.WithError(err).Fatal("list items")
	}
	if len(existing) > 0 {
		logger.WithField("items", len(existing)).Info("database already has items, nothing to seed")
		return
	}

	if err := seed(ctx, logger, password, catalog, core.NewVendorService(pool), core.NewUserService(pool), core.NewInventoryService(pool)); err != nil {
		logger.WithError(err).Fatal("seed")
	}
	logger.Info("seed data loaded")
}

func seed(ctx context.Context, logger logrus.FieldLogger, password string,
	catalog core.CatalogService, vendors core.VendorService, users core.UserService, inv core.InventoryService) error {

	active := true
	var adminID int
	for _, u := range []struct {
		name string
		role core.Role
	}{{"admin", core.RoleAdmin}, {"manager", core.RoleManager}, {"supervisor", core.RoleSupervisor}} {
		created, err := users.Create(ctx, core.UserInput{Username: u.name, Password: password, Role: u.role, IsActive: &active})
		if err != nil {
			return err
		}
		if u.role == core.RoleAdmin {
			adminID = created.ID
		}
		logger.WithFields(logrus.Fields{"user": created.Username, "role": created.Role}).Info("user seeded")
	}

	vendor, err := vendors.CreateVendor(ctx, core.VendorInput{Name: "Coastal Hospitality Supply", Phone: "555-0142", Email: "orders@coastal.example", IsActive: &active})
	if err != nil {
		return err
	}

	categories := map[string]int{}
	for _, name := range []string{"Linens", "Amenities", "Cleaning"} {
		c, err := catalog.CreateCategory(ctx, core.CategoryInput{Name: name, IsActive: &active})
		if err != nil {
			return err
		}
		categories[name] = c.ID
	}

	locations := map[string]int{}
	store, err := catalog.CreateLocation(ctx, core.LocationInput{Name: "Main Storeroom", Type: core.LocationStoreroom, IsActive: &active})
	if err != nil {
		return err
	}
	locations[store.Name] = store.ID
	for _, l := range []struct {
		name   string
		typ    core.LocationType
		parent string
	}{
		{"Floor 2 Closet", core.LocationCloset, ""},
		{"Floor 3 Closet", core.LocationCloset, ""},
		{"Housekeeping Cart A", core.LocationCart, "Floor 2 Closet"},
	} {
		in := core.LocationInput{Name: l.name, Type: l.typ, IsActive: &active}
		if l.parent != "" {
			parent := locations[l.parent]
			in.ParentLocationID = &parent
		}
		loc, err := catalog.CreateLocation(ctx, in)
		if err != nil {
			return err
		}
		locations[loc.Name] = loc.ID
	}

	var pars []core.ParLevelUpdate
	for _, si := range seedItems {
		cost := decimal.RequireFromString(si.cost)
		categoryID := categories[si.category]
		item, err := catalog.CreateItem(ctx, core.ItemInput{
			Name:            si.name,
			ShortCode:       si.code,
			CategoryID:      &categoryID,
			UnitOfMeasure:   si.uom,
			DefaultVendorID: &vendor.ID,
			Cost:            &cost,
			LeadTimeDays:    si.leadTime,
			IsActive:        &active,
		})
		if err != nil {
			return err
		}
		if _, err := inv.Receive(ctx, core.ReceiveInput{
			ItemID:       item.ID,
			ToLocationID: store.ID,
			Qty:          decimal.NewFromInt(si.opening),
			Cost:         &cost,
			VendorID:     &vendor.ID,
			ReceiptRef:   "OPENING",
			Notes:        "opening balance",
			UserID:       adminID,
		}); err != nil {
			return err
		}
		for loc, p := range si.pars {
			pars = append(pars, core.ParLevelUpdate{
				ItemID:     item.ID,
				LocationID: locations[loc],
				ParMin:     decimal.NewFromInt(p[0]),
				ParMax:     decimal.NewFromInt(p[1]),
			})
		}
	}

	res, err := inv.UpdateParLevels(ctx, pars)
	if err != nil {
		return err
	}
	for _, e := range res.Errors {
		logger.WithFields(logrus.Fields{"item_id": e.ItemID, "location_id": e.LocationID}).Warn(e.Error)
	}
	logger.WithFields(logrus.Fields{"items": len(seedItems), "par_levels": len(res.Updated)}).Info("catalog seeded")
	return nil
}
