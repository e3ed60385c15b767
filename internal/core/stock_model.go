package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockLevel is the quantity of record for one item at one location.
// ParMin is the par level; ParMax is the order-up-to level used by suggested orders.
type StockLevel struct {
	ID            int             `json:"id"`
	ItemID        int             `json:"item_id"`
	ItemName      string          `json:"item_name"`  // joined from items
	ShortCode     string          `json:"short_code"` // joined from items
	LocationID    int             `json:"location_id"`
	LocationName  string          `json:"location_name"` // joined from locations
	OnHandQty     decimal.Decimal `json:"on_hand_qty"`
	ReservedQty   decimal.Decimal `json:"reserved_qty"`
	ParMin        decimal.Decimal `json:"par_min"`
	ParMax        decimal.Decimal `json:"par_max"`
	LastCountedAt *time.Time      `json:"last_counted_at,omitempty"`
	LastCountedBy *int            `json:"last_counted_by,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ParStatus is the classification of a stock level against its par.
type ParStatus string

const (
	ParStatusNoPar    ParStatus = "NO_PAR"
	ParStatusBelowPar ParStatus = "BELOW_PAR"
	ParStatusAtRisk   ParStatus = "AT_RISK"
	ParStatusOK       ParStatus = "OK"
	ParStatusAboveMax ParStatus = "ABOVE_MAX"
)

// StockLevelView is a StockLevel with its derived quantities, as served to clients.
type StockLevelView struct {
	StockLevel
	AvailableQty decimal.Decimal `json:"available_qty"`
	IsBelowPar   bool            `json:"is_below_par"`
	IsAtRisk     bool            `json:"is_at_risk"`
	Status       ParStatus       `json:"par_status"`
}

// StockFilter narrows GetStockLevels. Zero values mean "any".
type StockFilter struct {
	ItemID     int
	LocationID int
	Search     string
	BelowPar   bool
}

// ParLevelUpdate is one row of a bulk par update.
type ParLevelUpdate struct {
	ItemID     int             `json:"item_id"`
	LocationID int             `json:"location_id"`
	ParMin     decimal.Decimal `json:"par_min"`
	ParMax     decimal.Decimal `json:"par_max"`
}

// ParLevelResult reports a bulk par update row by row; one bad row does not
// abort the others.
type ParLevelResult struct {
	Updated []StockLevel    `json:"updated"`
	Errors  []ParLevelError `json:"errors"`
}

type ParLevelError struct {
	Index      int    `json:"index"`
	ItemID     int    `json:"item_id"`
	LocationID int    `json:"location_id"`
	Error      string `json:"error"`
}

// TransactionType is the kind of ledger entry.
type TransactionType string

const (
	TxReceive     TransactionType = "RECEIVE"
	TxIssue       TransactionType = "ISSUE"
	TxTransfer    TransactionType = "TRANSFER"
	TxAdjust      TransactionType = "ADJUST"
	TxCountAdjust TransactionType = "COUNT_ADJUST"
)

// InventoryTransaction is one append-only ledger row.
//
// RECEIVE adds Qty at ToLocation, ISSUE removes Qty at FromLocation and TRANSFER
// does both; Qty is positive for all three. ADJUST and COUNT_ADJUST carry the
// signed delta applied at ToLocation and the ResultingQty it produced.
type InventoryTransaction struct {
	ID             int64            `json:"id"`
	Type           TransactionType  `json:"type"`
	ItemID         int              `json:"item_id"`
	ItemName       string           `json:"item_name,omitempty"`
	FromLocationID *int             `json:"from_location_id,omitempty"`
	ToLocationID   *int             `json:"to_location_id,omitempty"`
	Qty            decimal.Decimal  `json:"qty"`
	ResultingQty   *decimal.Decimal `json:"resulting_qty,omitempty"`
	Cost           *decimal.Decimal `json:"cost,omitempty"`
	Notes          string           `json:"notes"`
	UserID         *int             `json:"user_id,omitempty"`
	RequisitionID  *int             `json:"requisition_id,omitempty"`
	CountSessionID *int             `json:"count_session_id,omitempty"`
	ReceiptRef     string           `json:"receipt_ref,omitempty"`
	WorkOrderRef   string           `json:"work_order_ref,omitempty"`
	VendorID       *int             `json:"vendor_id,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// TransactionFilter narrows Transactions. Zero values mean "any".
type TransactionFilter struct {
	ItemID     int
	LocationID int
	Type       TransactionType
	Since      *time.Time
	Limit      int
}

// Movement inputs. Quantities must be positive except AdjustInput.NewQty, which
// is the absolute on-hand quantity to set.

type ReceiveInput struct {
	ItemID       int
	ToLocationID int
	Qty          decimal.Decimal
	Cost         *decimal.Decimal
	VendorID     *int
	ReceiptRef   string
	Notes        string
	UserID       int
}

type IssueInput struct {
	ItemID         int
	FromLocationID int
	Qty            decimal.Decimal
	WorkOrderRef   string
	Notes          string
	UserID         int
}

type TransferInput struct {
	ItemID         int
	FromLocationID int
	ToLocationID   int
	Qty            decimal.Decimal
	Notes          string
	UserID         int
	RequisitionID  *int
}

type AdjustInput struct {
	ItemID     int
	LocationID int
	NewQty     decimal.Decimal
	Reason     string
	UserID     int
}

// ReconcileDiff is a stock level whose stored on-hand disagrees with the ledger fold.
type ReconcileDiff struct {
	ItemID     int             `json:"item_id"`
	LocationID int             `json:"location_id"`
	Stored     decimal.Decimal `json:"stored_qty"`
	Ledger     decimal.Decimal `json:"ledger_qty"`
}
