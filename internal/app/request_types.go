package app

import (
	"time"

	"github.com/shopspring/decimal"
)

// Request bodies accepted by the API. Field names follow the JSON contract of
// the existing web client; validate tags are checked by validateRequest.

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required,max=128"`
}

// ── Catalog ──────────────────────────────────────────────────────────────────

type ItemRequest struct {
	Name            string           `json:"name" validate:"required,max=200"`
	ShortCode       string           `json:"short_code" validate:"required,max=50"`
	CategoryID      *int             `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	PhotoURL        string           `json:"photo_url,omitempty" validate:"omitempty,url,max=500"`
	UnitOfMeasure   string           `json:"unit_of_measure,omitempty" validate:"max=20"`
	DefaultVendorID *int             `json:"default_vendor_id,omitempty" validate:"omitempty,gt=0"`
	Cost            *decimal.Decimal `json:"cost,omitempty" validate:"omitempty,gte=0"`
	LeadTimeDays    int              `json:"lead_time_days" validate:"gte=0,lte=365"`
	IsActive        *bool            `json:"is_active,omitempty"`
}

type LocationRequest struct {
	PropertyID       string `json:"property_id,omitempty" validate:"max=50"`
	Name             string `json:"name" validate:"required,max=200"`
	Type             string `json:"type" validate:"required,oneof=STOREROOM CLOSET CART ROOM OTHER"`
	ParentLocationID *int   `json:"parent_location_id,omitempty" validate:"omitempty,gt=0"`
	IsActive         *bool  `json:"is_active,omitempty"`
}

type CategoryRequest struct {
	Name             string `json:"name" validate:"required,max=200"`
	Icon             string `json:"icon,omitempty" validate:"max=50"`
	ParentCategoryID *int   `json:"parent_category,omitempty" validate:"omitempty,gt=0"`
	IsActive         *bool  `json:"is_active,omitempty"`
}

type VendorRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	ContactInfo string `json:"contact_info,omitempty" validate:"max=500"`
	Phone       string `json:"phone,omitempty" validate:"max=50"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

// ── Stock ────────────────────────────────────────────────────────────────────

type ReceiveRequest struct {
	ItemID       int              `json:"item_id" validate:"required,gt=0"`
	ToLocationID int              `json:"to_location_id" validate:"required,gt=0"`
	Qty          decimal.Decimal  `json:"qty" validate:"gt=0"`
	Cost         *decimal.Decimal `json:"cost,omitempty" validate:"omitempty,gte=0"`
	VendorID     *int             `json:"vendor_id,omitempty" validate:"omitempty,gt=0"`
	PONumber     string           `json:"po_number,omitempty" validate:"max=100"`
	Notes        string           `json:"notes,omitempty" validate:"max=1000"`
}

type IssueRequest struct {
	ItemID         int             `json:"item_id" validate:"required,gt=0"`
	FromLocationID int             `json:"from_location_id" validate:"required,gt=0"`
	Qty            decimal.Decimal `json:"qty" validate:"gt=0"`
	WorkOrderID    string          `json:"work_order_id,omitempty" validate:"max=100"`
	Notes          string          `json:"notes,omitempty" validate:"max=1000"`
}

type TransferRequest struct {
	ItemID         int             `json:"item_id" validate:"required,gt=0"`
	FromLocationID int             `json:"from_location_id" validate:"required,gt=0"`
	ToLocationID   int             `json:"to_location_id" validate:"required,gt=0,nefield=FromLocationID"`
	Qty            decimal.Decimal `json:"qty" validate:"gt=0"`
	Notes          string          `json:"notes,omitempty" validate:"max=1000"`
}

// AdjustRequest sets on-hand to Qty. Reason falls back to Notes when empty.
type AdjustRequest struct {
	ItemID     int             `json:"item_id" validate:"required,gt=0"`
	LocationID int             `json:"location_id" validate:"required,gt=0"`
	Qty        decimal.Decimal `json:"qty" validate:"gte=0"`
	Reason     string          `json:"reason,omitempty" validate:"max=200"`
	Notes      string          `json:"notes,omitempty" validate:"max=1000"`
}

// ParLevelRow is one par update. Par is accepted as an alias of ParMin.
type ParLevelRow struct {
	ItemID     int              `json:"item_id" validate:"required,gt=0"`
	LocationID int              `json:"location_id" validate:"required,gt=0"`
	Par        *decimal.Decimal `json:"par,omitempty" validate:"omitempty,gte=0"`
	ParMin     *decimal.Decimal `json:"par_min,omitempty" validate:"omitempty,gte=0"`
	ParMax     *decimal.Decimal `json:"par_max,omitempty" validate:"omitempty,gte=0"`
}

type ParLevelsRequest struct {
	Updates []ParLevelRow `json:"updates" validate:"required,min=1,max=500,dive"`
}

// ── Counts ───────────────────────────────────────────────────────────────────

type StartCountRequest struct {
	LocationID int    `json:"location_id" validate:"required,gt=0"`
	Notes      string `json:"notes,omitempty" validate:"max=1000"`
}

type CountLineRequest struct {
	ItemID     int             `json:"item_id" validate:"required,gt=0"`
	CountedQty decimal.Decimal `json:"counted_qty" validate:"gte=0"`
	ReasonCode string          `json:"reason_code,omitempty" validate:"omitempty,oneof=LOST DAMAGED VENDOR_ERROR DATA_ERROR THEFT ADJUST CORRECTION SPOT_CHECK OTHER"`
	Notes      string          `json:"notes,omitempty" validate:"max=1000"`
}

type SpotCheckRequest struct {
	ItemID     int             `json:"item_id" validate:"required,gt=0"`
	LocationID int             `json:"location_id" validate:"required,gt=0"`
	CountedQty decimal.Decimal `json:"counted_qty" validate:"gte=0"`
	Notes      string          `json:"notes,omitempty" validate:"max=1000"`
}

// ── Requisitions ─────────────────────────────────────────────────────────────

type RequisitionLineRequest struct {
	ItemID int             `json:"item_id" validate:"required,gt=0"`
	Qty    decimal.Decimal `json:"qty" validate:"gt=0"`
}

type CreateRequisitionRequest struct {
	FromLocationID int                      `json:"from_location_id" validate:"required,gt=0"`
	ToLocationID   int                      `json:"to_location_id" validate:"required,gt=0,nefield=FromLocationID"`
	NeededBy       *time.Time               `json:"needed_by,omitempty"`
	Notes          string                   `json:"notes,omitempty" validate:"max=1000"`
	Lines          []RequisitionLineRequest `json:"lines" validate:"required,min=1,max=200,dive"`
}

type DenyRequest struct {
	DenialReason string `json:"denial_reason,omitempty" validate:"max=1000"`
}

type PickLineRequest struct {
	ItemID    int             `json:"item_id" validate:"required,gt=0"`
	QtyPicked decimal.Decimal `json:"qty_picked" validate:"gte=0"`
}

// PickRequest may be empty, in which case every line is picked in full.
type PickRequest struct {
	Lines []PickLineRequest `json:"lines,omitempty" validate:"omitempty,max=200,dive"`
}

// ── Purchasing ───────────────────────────────────────────────────────────────

type PurchaseLineRequest struct {
	ItemID     int              `json:"item_id" validate:"required,gt=0"`
	LocationID int              `json:"location_id" validate:"required,gt=0"`
	Qty        decimal.Decimal  `json:"qty" validate:"gt=0"`
	UnitCost   *decimal.Decimal `json:"unit_cost,omitempty" validate:"omitempty,gte=0"`
}

type CreatePurchaseRequest struct {
	VendorID int                   `json:"vendor_id" validate:"required,gt=0"`
	Notes    string                `json:"notes,omitempty" validate:"max=1000"`
	Lines    []PurchaseLineRequest `json:"lines" validate:"required,min=1,max=200,dive"`
}

// PurchaseFromSuggestionsRequest drafts a purchase request from the suggested-orders report.
type PurchaseFromSuggestionsRequest struct {
	VendorID int    `json:"vendor_id" validate:"required,gt=0"`
	Notes    string `json:"notes,omitempty" validate:"max=1000"`
}

type PurchaseOrderRequest struct {
	PONumber string `json:"po_number,omitempty" validate:"max=100"`
}

type PurchaseReceiptLineRequest struct {
	ItemID      int             `json:"item_id" validate:"required,gt=0"`
	LocationID  int             `json:"location_id" validate:"required,gt=0"`
	QtyReceived decimal.Decimal `json:"qty_received" validate:"gte=0"`
}

// PurchaseReceiveRequest may be empty, in which case every line is received in full.
type PurchaseReceiveRequest struct {
	Lines []PurchaseReceiptLineRequest `json:"lines,omitempty" validate:"omitempty,max=200,dive"`
}

// ── Users ────────────────────────────────────────────────────────────────────

// UserRequest creates or updates a user. Password is required on create only.
type UserRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Password string `json:"password,omitempty" validate:"omitempty,min=8,max=128"`
	Role     string `json:"role" validate:"required,oneof=SUPERVISOR MANAGER ADMIN"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// PermissionsRequest replaces a user's extra grants, each "module.action".
type PermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"max=100,dive,required"`
}
