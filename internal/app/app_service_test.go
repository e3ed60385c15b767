package app

import (
	"bytes"
	"context"
	"testing"

	"parstock/internal/cache"
	"parstock/internal/core"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fakes embed the core interfaces so only the methods a test exercises need bodies.

type fakeInventory struct {
	core.InventoryService
	levels   []core.StockLevel
	adjusted *core.AdjustInput
	issued   int
}

func (f *fakeInventory) GetStockLevels(context.Context, core.StockFilter) ([]core.StockLevel, error) {
	return f.levels, nil
}

func (f *fakeInventory) Adjust(_ context.Context, in core.AdjustInput) (*core.InventoryTransaction, error) {
	f.adjusted = &in
	return &core.InventoryTransaction{ID: 7, Type: core.TxAdjust, ItemID: in.ItemID, Qty: in.NewQty}, nil
}

func (f *fakeInventory) Issue(_ context.Context, in core.IssueInput) (*core.InventoryTransaction, error) {
	f.issued++
	return &core.InventoryTransaction{ID: 8, Type: core.TxIssue, ItemID: in.ItemID, Qty: in.Qty}, nil
}

func (f *fakeInventory) Reconcile(context.Context) ([]core.ReconcileDiff, error) {
	return nil, nil
}

type fakeUsers struct {
	core.UserService
	users map[int]*core.User
}

func (f *fakeUsers) Authenticate(_ context.Context, username, password string) (*core.User, error) {
	for _, u := range f.users {
		if u.Username == username && password == "correct horse" {
			return u, nil
		}
	}
	return nil, &core.NotFoundError{Entity: "user", Key: username}
}

func (f *fakeUsers) GetByID(_ context.Context, id int) (*core.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, &core.NotFoundError{Entity: "user", Key: id}
	}
	return u, nil
}

type fakeReports struct {
	core.ReportingService
	calls int
}

func (f *fakeReports) SuggestedOrders(_ context.Context, vendorID int) (*core.SuggestedOrdersReport, error) {
	f.calls++
	cost := decimal.RequireFromString("4.50")
	value := decimal.RequireFromString("112.50")
	return &core.SuggestedOrdersReport{
		Suggestions: []core.SuggestedOrder{{
			ItemID: 1, ItemName: "Bath Towel", ShortCode: "TWL", LocationName: "Main Storeroom",
			SuggestedQty: decimal.NewFromInt(25), UnitCost: &cost, EstimatedValue: &value,
			Reason: "Below par",
		}},
		TotalSuggestedValue: value,
		WindowDays:          30,
	}, nil
}

var (
	admin      = core.Principal{UserID: 1, Username: "admin", Role: core.RoleAdmin}
	supervisor = core.Principal{UserID: 2, Username: "sup", Role: core.RoleSupervisor}
)

type harness struct {
	app     ApplicationService
	inv     *fakeInventory
	reports *fakeReports
	logs    *test.Hook
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger, hook := test.NewNullLogger()
	inv := &fakeInventory{}
	reports := &fakeReports{}
	users := &fakeUsers{users: map[int]*core.User{
		1: {ID: 1, Username: "admin", Role: core.RoleAdmin, IsActive: true},
		2: {ID: 2, Username: "sup", Role: core.RoleSupervisor, IsActive: true},
		3: {ID: 3, Username: "gone", Role: core.RoleManager, IsActive: false},
	}}
	svc := Services{Inventory: inv, Users: users, Reports: reports}
	app := NewAppService(nil, svc, core.DefaultPolicy(), core.DefaultParRules(), cache.New(nil, 0, logger), logger)
	return &harness{app: app, inv: inv, reports: reports, logs: hook}
}

func TestValidationErrorsNameJSONFields(t *testing.T) {
	h := newHarness(t)
	_, err := h.app.Transfer(context.Background(), admin, TransferRequest{
		ItemID: 1, FromLocationID: 2, ToLocationID: 2, Qty: decimal.Zero,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "to_location_id")
	assert.Contains(t, verr.Fields, "qty")
}

func TestPermissionCheckedBeforeService(t *testing.T) {
	h := newHarness(t)

	_, err := h.app.Reconcile(context.Background(), supervisor)
	assert.ErrorIs(t, err, core.ErrPermissionDenied)

	granted := supervisor
	granted.Grants = []core.Capability{{Module: core.ModuleStock, Action: core.ActionApprove}}
	_, err = h.app.Reconcile(context.Background(), granted)
	assert.NoError(t, err)
}

func TestAdjustReasonFallsBackToNotes(t *testing.T) {
	h := newHarness(t)
	_, err := h.app.Adjust(context.Background(), admin, AdjustRequest{
		ItemID: 1, LocationID: 1, Qty: decimal.NewFromInt(4), Notes: "found behind shelf",
	})
	require.NoError(t, err)
	require.NotNil(t, h.inv.adjusted)
	assert.Equal(t, "found behind shelf", h.inv.adjusted.Reason)
	assert.Equal(t, admin.UserID, h.inv.adjusted.UserID)
	assert.True(t, decimal.NewFromInt(4).Equal(h.inv.adjusted.NewQty))
}

func TestMovementIsLogged(t *testing.T) {
	h := newHarness(t)
	_, err := h.app.Issue(context.Background(), supervisor, IssueRequest{
		ItemID: 1, FromLocationID: 1, Qty: decimal.NewFromInt(2), WorkOrderID: "WO-9",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, h.inv.issued)

	entry := h.logs.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "stock movement", entry.Message)
	assert.Equal(t, "sup", entry.Data["actor"])
}

func TestLoginAndResolvePrincipal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.app.Login(ctx, LoginRequest{Username: "sup", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	sess, err := h.app.Login(ctx, LoginRequest{Username: "sup", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, 2, sess.UserID)
	assert.Contains(t, sess.Permissions, "reports.view")
	assert.NotContains(t, sess.Permissions, "counts.approve")

	who, err := h.app.ResolvePrincipal(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, core.RoleSupervisor, who.Role)

	_, err = h.app.ResolvePrincipal(ctx, 3)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = h.app.ResolvePrincipal(ctx, 99)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestListStockClassifiesLevels(t *testing.T) {
	h := newHarness(t)
	h.inv.levels = []core.StockLevel{
		{ItemID: 1, LocationID: 1, OnHandQty: decimal.NewFromInt(3), ReservedQty: decimal.NewFromInt(1), ParMin: decimal.NewFromInt(10)},
		{ItemID: 1, LocationID: 2, OnHandQty: decimal.NewFromInt(11), ParMin: decimal.NewFromInt(10)},
	}
	views, err := h.app.ListStock(context.Background(), supervisor, core.StockFilter{})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, core.ParStatusBelowPar, views[0].Status)
	assert.True(t, decimal.NewFromInt(2).Equal(views[0].AvailableQty))
	assert.Equal(t, core.ParStatusAtRisk, views[1].Status)
}

func TestGroupByItem(t *testing.T) {
	levels := []core.StockLevel{
		{ItemID: 2, ItemName: "Soap Bar", ShortCode: "SOAP", LocationID: 1, OnHandQty: decimal.NewFromInt(5)},
		{ItemID: 1, ItemName: "Bath Towel", ShortCode: "TWL", LocationID: 1, OnHandQty: decimal.NewFromInt(20), ReservedQty: decimal.NewFromInt(4)},
		{ItemID: 1, ItemName: "Bath Towel", ShortCode: "TWL", LocationID: 2, OnHandQty: decimal.NewFromInt(6)},
	}
	got := groupByItem(levels, core.DefaultParRules())
	require.Len(t, got, 2)

	assert.Equal(t, "SOAP", got[0].ShortCode)
	assert.Equal(t, 1, got[1].ItemID)
	assert.Len(t, got[1].Locations, 2)
	assert.Equal(t, "26", got[1].TotalOnHand.String())
	assert.Equal(t, "22", got[1].TotalAvailable.String())

	assert.Empty(t, groupByItem(nil, core.DefaultParRules()))
}

func TestParUpdatesMapping(t *testing.T) {
	ten := decimal.NewFromInt(10)
	twelve := decimal.NewFromInt(12)
	thirty := decimal.NewFromInt(30)
	got := parUpdates([]ParLevelRow{
		{ItemID: 1, LocationID: 1, Par: &ten},
		{ItemID: 1, LocationID: 2, Par: &ten, ParMin: &twelve, ParMax: &thirty},
		{ItemID: 2, LocationID: 1},
	})
	require.Len(t, got, 3)
	assert.True(t, ten.Equal(got[0].ParMin))
	assert.True(t, got[0].ParMax.IsZero())
	assert.True(t, twelve.Equal(got[1].ParMin))
	assert.True(t, thirty.Equal(got[1].ParMax))
	assert.True(t, got[2].ParMin.IsZero())
}

func TestExportSuggestedOrdersWritesWorkbook(t *testing.T) {
	h := newHarness(t)
	data, err := h.app.ExportSuggestedOrders(context.Background(), supervisor, 0)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PK")), "xlsx is a zip archive")
	assert.Equal(t, 1, h.reports.calls)
}

func TestRequestSchemas(t *testing.T) {
	names := SchemaNames()
	assert.Contains(t, names, "transfer")
	assert.IsNonDecreasing(t, names)

	s, err := RequestSchema("transfer")
	require.NoError(t, err)
	assert.Contains(t, s.Required, "item_id")
	qty, ok := s.Properties.Get("qty")
	require.True(t, ok)
	assert.Equal(t, "number", qty.Type)

	_, err = RequestSchema("nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

type fakePurchases struct {
	core.PurchaseService
	receipts []core.ReceiptLineInput
}

func (f *fakePurchases) Receive(_ context.Context, id int, _ core.Principal, receipts []core.ReceiptLineInput) (*core.PurchaseRequest, error) {
	f.receipts = receipts
	return &core.PurchaseRequest{ID: id, Status: core.PurchaseReceived}, nil
}

func TestPurchaseApprovalIsManagerLevel(t *testing.T) {
	h := newHarness(t)
	_, err := h.app.ApprovePurchaseRequest(context.Background(), supervisor, 1)
	assert.ErrorIs(t, err, core.ErrPermissionDenied)
	_, err = h.app.DenyPurchaseRequest(context.Background(), supervisor, 1, DenyRequest{})
	assert.ErrorIs(t, err, core.ErrPermissionDenied)
}

func TestReceivePurchaseRequestMapsReceipts(t *testing.T) {
	logger, _ := test.NewNullLogger()
	purchases := &fakePurchases{}
	svc := Services{Purchases: purchases}
	a := NewAppService(nil, svc, core.DefaultPolicy(), core.DefaultParRules(), cache.New(nil, 0, logger), logger)

	p, err := a.ReceivePurchaseRequest(context.Background(), supervisor, 4, PurchaseReceiveRequest{
		Lines: []PurchaseReceiptLineRequest{{ItemID: 1, LocationID: 2, QtyReceived: decimal.NewFromInt(6)}},
	})
	require.NoError(t, err)
	assert.Equal(t, core.PurchaseReceived, p.Status)
	require.Len(t, purchases.receipts, 1)
	assert.Equal(t, 2, purchases.receipts[0].LocationID)
	assert.True(t, decimal.NewFromInt(6).Equal(purchases.receipts[0].QtyReceived))

	_, err = a.ReceivePurchaseRequest(context.Background(), supervisor, 4, PurchaseReceiveRequest{
		Lines: []PurchaseReceiptLineRequest{{ItemID: 1, LocationID: 2, QtyReceived: decimal.NewFromInt(-1)}},
	})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}
