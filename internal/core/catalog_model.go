package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LocationType is the kind of place stock is kept.
type LocationType string

const (
	LocationStoreroom LocationType = "STOREROOM"
	LocationCloset    LocationType = "CLOSET"
	LocationCart      LocationType = "CART"
	LocationRoom      LocationType = "ROOM"
	LocationOther     LocationType = "OTHER"
)

// Valid reports whether t is a known location type.
func (t LocationType) Valid() bool {
	switch t {
	case LocationStoreroom, LocationCloset, LocationCart, LocationRoom, LocationOther:
		return true
	}
	return false
}

// Item is a stocked product. ShortCode is unique and is what QR labels encode.
type Item struct {
	ID              int              `json:"id"`
	Name            string           `json:"name"`
	ShortCode       string           `json:"short_code"`
	CategoryID      *int             `json:"category_id,omitempty"`
	CategoryName    string           `json:"category_name,omitempty"` // joined from categories
	PhotoURL        string           `json:"photo_url"`
	UnitOfMeasure   string           `json:"unit_of_measure"`
	DefaultVendorID *int             `json:"default_vendor_id,omitempty"`
	VendorName      string           `json:"default_vendor_name,omitempty"` // joined from vendors
	Cost            *decimal.Decimal `json:"cost,omitempty"`
	LeadTimeDays    int              `json:"lead_time_days"`
	IsActive        bool             `json:"is_active"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// ItemInput holds the editable fields of an item.
type ItemInput struct {
	Name            string
	ShortCode       string
	CategoryID      *int
	PhotoURL        string
	UnitOfMeasure   string
	DefaultVendorID *int
	Cost            *decimal.Decimal
	LeadTimeDays    int
	IsActive        *bool
}

// ItemFilter narrows ListItems.
type ItemFilter struct {
	Search          string
	CategoryID      int
	IncludeInactive bool
}

// Location is a place that holds stock. Path is the "Parent > Child" chain.
type Location struct {
	ID               int          `json:"id"`
	PropertyID       string       `json:"property_id"`
	Name             string       `json:"name"`
	Type             LocationType `json:"type"`
	ParentLocationID *int         `json:"parent_location_id,omitempty"`
	Path             string       `json:"full_path"`
	IsActive         bool         `json:"is_active"`
	CreatedAt        time.Time    `json:"created_at"`
}

type LocationInput struct {
	PropertyID       string
	Name             string
	Type             LocationType
	ParentLocationID *int
	IsActive         *bool
}

// Category groups items; categories may nest.
type Category struct {
	ID               int       `json:"id"`
	Name             string    `json:"name"`
	Icon             string    `json:"icon"`
	ParentCategoryID *int      `json:"parent_category_id,omitempty"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
}

type CategoryInput struct {
	Name             string
	Icon             string
	ParentCategoryID *int
	IsActive         *bool
}

// UsagePoint is the quantity issued on one day.
type UsagePoint struct {
	Day string          `json:"day"` // YYYY-MM-DD
	Qty decimal.Decimal `json:"total_qty"`
}

// ItemUsage is an item's daily issue history.
type ItemUsage struct {
	ItemID     int             `json:"item_id"`
	ItemName   string          `json:"item_name"`
	Days       int             `json:"period_days"`
	TotalQty   decimal.Decimal `json:"total_usage"`
	AvgDaily   decimal.Decimal `json:"average_daily_usage"`
	UsageByDay []UsagePoint    `json:"usage_by_day"`
}

// CatalogService manages items, locations and categories. Deletes deactivate.
type CatalogService interface {
	ListItems(ctx context.Context, filter ItemFilter) ([]Item, error)
	GetItem(ctx context.Context, itemID int) (*Item, error)
	// LookupItem finds an active item by its short code (QR payload).
	LookupItem(ctx context.Context, code string) (*Item, error)
	CreateItem(ctx context.Context, in ItemInput) (*Item, error)
	UpdateItem(ctx context.Context, itemID int, in ItemInput) (*Item, error)
	DeactivateItem(ctx context.Context, itemID int) error
	ItemUsage(ctx context.Context, itemID, days int) (*ItemUsage, error)

	ListLocations(ctx context.Context, includeInactive bool) ([]Location, error)
	GetLocation(ctx context.Context, locationID int) (*Location, error)
	CreateLocation(ctx context.Context, in LocationInput) (*Location, error)
	UpdateLocation(ctx context.Context, locationID int, in LocationInput) (*Location, error)
	DeactivateLocation(ctx context.Context, locationID int) error

	ListCategories(ctx context.Context, includeInactive bool) ([]Category, error)
	CreateCategory(ctx context.Context, in CategoryInput) (*Category, error)
	UpdateCategory(ctx context.Context, categoryID int, in CategoryInput) (*Category, error)
	DeactivateCategory(ctx context.Context, categoryID int) error
}
