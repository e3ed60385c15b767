package app

import (
	"context"

	"parstock/internal/core"
)

// ApplicationService is the single interface all adapters (CLI, Web) call.
// Every method that acts for a user takes the request Principal and checks
// the permission policy before touching a core service. Implementations
// contain no presentation logic.
type ApplicationService interface {
	Health(ctx context.Context) *HealthResult

	// ── Identity ──
	Login(ctx context.Context, req LoginRequest) (*UserSession, error)
	// ResolvePrincipal reloads the user behind a session so role changes and
	// deactivation take effect before the session expires.
	ResolvePrincipal(ctx context.Context, userID int) (core.Principal, error)
	CurrentUser(ctx context.Context, who core.Principal) (*UserResult, error)
	ListUsers(ctx context.Context, who core.Principal) ([]UserResult, error)
	GetUser(ctx context.Context, who core.Principal, userID int) (*UserResult, error)
	CreateUser(ctx context.Context, who core.Principal, req UserRequest) (*UserResult, error)
	UpdateUser(ctx context.Context, who core.Principal, userID int, req UserRequest) (*UserResult, error)
	DeactivateUser(ctx context.Context, who core.Principal, userID int) error
	SetUserPermissions(ctx context.Context, who core.Principal, userID int, req PermissionsRequest) (*UserResult, error)
	AvailablePermissions(ctx context.Context, who core.Principal) ([]string, error)

	// ── Catalog ──
	ListItems(ctx context.Context, who core.Principal, filter core.ItemFilter) ([]core.Item, error)
	GetItem(ctx context.Context, who core.Principal, itemID int) (*core.Item, error)
	// LookupItem resolves a short code, as scanned from a QR label.
	LookupItem(ctx context.Context, who core.Principal, code string) (*core.Item, error)
	CreateItem(ctx context.Context, who core.Principal, req ItemRequest) (*core.Item, error)
	UpdateItem(ctx context.Context, who core.Principal, itemID int, req ItemRequest) (*core.Item, error)
	ItemUsage(ctx context.Context, who core.Principal, itemID, days int) (*core.ItemUsage, error)
	ItemStockByLocation(ctx context.Context, who core.Principal, itemID int) (*ItemStockResult, error)
	ItemTransactions(ctx context.Context, who core.Principal, itemID, limit int) ([]core.InventoryTransaction, error)

	ListLocations(ctx context.Context, who core.Principal, includeInactive bool) ([]core.Location, error)
	CreateLocation(ctx context.Context, who core.Principal, req LocationRequest) (*core.Location, error)
	UpdateLocation(ctx context.Context, who core.Principal, locationID int, req LocationRequest) (*core.Location, error)
	DeleteLocation(ctx context.Context, who core.Principal, locationID int) error

	ListCategories(ctx context.Context, who core.Principal, includeInactive bool) ([]core.Category, error)
	CreateCategory(ctx context.Context, who core.Principal, req CategoryRequest) (*core.Category, error)
	UpdateCategory(ctx context.Context, who core.Principal, categoryID int, req CategoryRequest) (*core.Category, error)
	DeleteCategory(ctx context.Context, who core.Principal, categoryID int) error

	ListVendors(ctx context.Context, who core.Principal, includeInactive bool) ([]core.Vendor, error)
	CreateVendor(ctx context.Context, who core.Principal, req VendorRequest) (*core.Vendor, error)
	UpdateVendor(ctx context.Context, who core.Principal, vendorID int, req VendorRequest) (*core.Vendor, error)
	DeleteVendor(ctx context.Context, who core.Principal, vendorID int) error

	// ── Stock ──
	ListStock(ctx context.Context, who core.Principal, filter core.StockFilter) ([]core.StockLevelView, error)
	// StockByItem groups levels per item; itemID 0 means every item.
	StockByItem(ctx context.Context, who core.Principal, itemID int) ([]ItemStockResult, error)
	Transfer(ctx context.Context, who core.Principal, req TransferRequest) (*core.InventoryTransaction, error)
	Issue(ctx context.Context, who core.Principal, req IssueRequest) (*core.InventoryTransaction, error)
	Adjust(ctx context.Context, who core.Principal, req AdjustRequest) (*core.InventoryTransaction, error)
	Reconcile(ctx context.Context, who core.Principal) ([]core.ReconcileDiff, error)
	UpdateParLevels(ctx context.Context, who core.Principal, req ParLevelsRequest) (*core.ParLevelResult, error)

	// ── Receiving ──
	Receive(ctx context.Context, who core.Principal, req ReceiveRequest) (*core.InventoryTransaction, error)
	ReceivingHistory(ctx context.Context, who core.Principal, limit int) ([]core.InventoryTransaction, error)

	// ── Counts ──
	ListCountSessions(ctx context.Context, who core.Principal, filter core.CountSessionFilter) ([]core.CountSession, error)
	StartCount(ctx context.Context, who core.Principal, req StartCountRequest) (*core.CountSession, error)
	GetCountSession(ctx context.Context, who core.Principal, sessionID int) (*core.CountSession, error)
	RecordCountLine(ctx context.Context, who core.Principal, sessionID int, req CountLineRequest) (*core.CountLine, error)
	CompleteCount(ctx context.Context, who core.Principal, sessionID int) (*core.CountSession, error)
	ApproveCount(ctx context.Context, who core.Principal, sessionID int) (*core.CountSession, error)
	CancelCount(ctx context.Context, who core.Principal, sessionID int) (*core.CountSession, error)
	SpotCheck(ctx context.Context, who core.Principal, req SpotCheckRequest) (*core.SpotCheckResult, error)

	// ── Requisitions ──
	ListRequisitions(ctx context.Context, who core.Principal, filter core.RequisitionFilter) ([]core.Requisition, error)
	CreateRequisition(ctx context.Context, who core.Principal, req CreateRequisitionRequest) (*core.Requisition, error)
	GetRequisition(ctx context.Context, who core.Principal, id int) (*core.Requisition, error)
	RequisitionAvailability(ctx context.Context, who core.Principal, id int) (*core.Availability, error)
	ApproveRequisition(ctx context.Context, who core.Principal, id int) (*core.Requisition, error)
	DenyRequisition(ctx context.Context, who core.Principal, id int, req DenyRequest) (*core.Requisition, error)
	PickRequisition(ctx context.Context, who core.Principal, id int, req PickRequest) (*core.Requisition, error)
	CompleteRequisition(ctx context.Context, who core.Principal, id int) (*core.Requisition, error)
	CancelRequisition(ctx context.Context, who core.Principal, id int) (*core.Requisition, error)

	// ── Purchasing ──
	ListPurchaseRequests(ctx context.Context, who core.Principal, filter core.PurchaseFilter) ([]core.PurchaseRequest, error)
	CreatePurchaseRequest(ctx context.Context, who core.Principal, req CreatePurchaseRequest) (*core.PurchaseRequest, error)
	PurchaseFromSuggestions(ctx context.Context, who core.Principal, req PurchaseFromSuggestionsRequest) (*core.PurchaseRequest, error)
	GetPurchaseRequest(ctx context.Context, who core.Principal, id int) (*core.PurchaseRequest, error)
	SubmitPurchaseRequest(ctx context.Context, who core.Principal, id int) (*core.PurchaseRequest, error)
	ApprovePurchaseRequest(ctx context.Context, who core.Principal, id int) (*core.PurchaseRequest, error)
	DenyPurchaseRequest(ctx context.Context, who core.Principal, id int, req DenyRequest) (*core.PurchaseRequest, error)
	OrderPurchaseRequest(ctx context.Context, who core.Principal, id int, req PurchaseOrderRequest) (*core.PurchaseRequest, error)
	ReceivePurchaseRequest(ctx context.Context, who core.Principal, id int, req PurchaseReceiveRequest) (*core.PurchaseRequest, error)
	CancelPurchaseRequest(ctx context.Context, who core.Principal, id int) (*core.PurchaseRequest, error)

	// ── Reports ──
	Alerts(ctx context.Context, who core.Principal) (*core.AlertsReport, error)
	SuggestedOrders(ctx context.Context, who core.Principal, vendorID int) (*core.SuggestedOrdersReport, error)
	// ExportSuggestedOrders renders SuggestedOrders as an .xlsx workbook.
	ExportSuggestedOrders(ctx context.Context, who core.Principal, vendorID int) ([]byte, error)
	UsageTrends(ctx context.Context, who core.Principal, itemID, days int) (*core.ItemUsage, error)
	GeneralUsage(ctx context.Context, who core.Principal, period string) (*core.GeneralUsageReport, error)
	LowParTrends(ctx context.Context, who core.Principal, days int) (*core.LowParTrendsReport, error)
	EnvironmentalImpact(ctx context.Context, who core.Principal) (*core.EnvironmentalImpactReport, error)
	// Dashboard summarizes the last days of usage; days <= 0 uses the usage window.
	Dashboard(ctx context.Context, who core.Principal, days int) (*core.DashboardReport, error)
}
