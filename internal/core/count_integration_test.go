package core_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"parstock/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCountService(pool *pgxpool.Pool, requireReason bool) (core.CountService, core.InventoryService) {
	inv := core.NewInventoryService(pool)
	return core.NewCountService(pool, inv, requireReason), inv
}

func TestCount_ApproveEmitsOneAdjustmentPerVariance(t *testing.T) {
	pool := setupTestDB(t)
	counts, inv := newCountService(pool, false)
	ctx := context.Background()

	receive(t, inv, towelID, storeroomID, "20")
	receive(t, inv, soapID, storeroomID, "8")

	session, err := counts.CreateSession(ctx, storeroomID, supervisorID, "weekly")
	require.NoError(t, err)
	assert.Equal(t, core.CountInProgress, session.Status)
	assert.Regexp(t, regexp.MustCompile(`^CNT-\d{4}-\d{5}$`), session.Number)

	line, err := counts.AddLine(ctx, session.ID, core.CountLineInput{ItemID: towelID, CountedQty: d("17"), ReasonCode: core.ReasonDamaged})
	require.NoError(t, err)
	assert.True(t, line.ExpectedQty.Equal(d("20")))
	assert.True(t, line.Variance().Equal(d("-3")))

	_, err = counts.AddLine(ctx, session.ID, core.CountLineInput{ItemID: soapID, CountedQty: d("8")})
	require.NoError(t, err)

	_, err = counts.Complete(ctx, session.ID)
	require.NoError(t, err)
	approved, err := counts.Approve(ctx, session.ID, managerID)
	require.NoError(t, err)
	assert.Equal(t, core.CountApproved, approved.Status)

	assert.Equal(t, "17", onHand(t, inv, towelID, storeroomID))
	assert.Equal(t, "8", onHand(t, inv, soapID, storeroomID))

	adjustments, err := inv.Transactions(ctx, core.TransactionFilter{Type: core.TxCountAdjust})
	require.NoError(t, err)
	require.Len(t, adjustments, 1)
	assert.Equal(t, towelID, adjustments[0].ItemID)
	assert.True(t, adjustments[0].Qty.Equal(d("-3")))
	require.NotNil(t, adjustments[0].ResultingQty)
	assert.True(t, adjustments[0].ResultingQty.Equal(d("17")))

	soap, err := inv.GetLevel(ctx, soapID, storeroomID)
	require.NoError(t, err)
	assert.NotNil(t, soap.LastCountedAt, "zero-variance lines still stamp last_counted_at")
	assertReconciled(t, inv)

	_, err = counts.Approve(ctx, session.ID, managerID)
	assert.True(t, errors.Is(err, core.ErrInvalidStateTransition), "re-approve: %v", err)
	txs, err := inv.Transactions(ctx, core.TransactionFilter{Type: core.TxCountAdjust})
	require.NoError(t, err)
	assert.Len(t, txs, 1, "re-approve must not write to the ledger")
}

func TestCount_ReCountingAnItemUpdatesTheLine(t *testing.T) {
	pool := setupTestDB(t)
	counts, inv := newCountService(pool, false)
	ctx := context.Background()

	receive(t, inv, towelID, closetID, "5")
	session, err := counts.CreateSession(ctx, closetID, supervisorID, "")
	require.NoError(t, err)

	_, err = counts.AddLine(ctx, session.ID, core.CountLineInput{ItemID: towelID, CountedQty: d("3")})
	require.NoError(t, err)
	_, err = counts.AddLine(ctx, session.ID, core.CountLineInput{ItemID: towelID, CountedQty: d("4")})
	require.NoError(t, err)

	got, err := counts.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.True(t, got.Lines[0].CountedQty.Equal(d("4")))
}

func TestCount_CompleteRequiresLines(t *testing.T) {
	pool := setupTestDB(t)
	counts, _ := newCountService(pool, false)
	ctx := context.Background()

	session, err := counts.CreateSession(ctx, storeroomID, supervisorID, "")
	require.NoError(t, err)
	_, err = counts.Complete(ctx, session.ID)
	assert.True(t, errors.Is(err, core.ErrInvalidInput), "got %v", err)
}

func TestCount_NoLinesAfterCompletion(t *testing.T) {
	pool := setupTestDB(t)
	counts, _ := newCountService(pool, false)
	ctx := context.Background()

	session, err := counts.CreateSession(ctx, storeroomID, supervisorID, "")
	require.NoError(t, err)
	_, err = counts.AddLine(ctx, session.ID, core.CountLineInput{ItemID: towelID, CountedQty: d("0")})
	require.NoError(t, err)
	_, err = counts.Complete(ctx, session.ID)
	require.NoError(t, err)

	_, err = counts.AddLine(ctx, session.ID, core.CountLineInput{ItemID: soapID, CountedQty: d("1")})
	assert.True(t, errors.Is(err, core.ErrInvalidStateTransition), "got %v", err)
}

func TestCount_CancelWritesNothing(t *testing.T) {
	pool := setupTestDB(t)
	counts, inv := newCountService(pool, false)
	ctx := context.Background()

	receive(t, inv, towelID, storeroomID, "20")
	session, err := counts.CreateSession(ctx, storeroomID, supervisorID, "")
	require.NoError(t, err)
	_, err = counts.AddLine(ctx, session.ID, core.CountLineInput{ItemID: towelID, CountedQty: d("1")})
	require.NoError(t, err)

	cancelled, err := counts.Cancel(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, core.CountCancelled, cancelled.Status)
	assert.Equal(t, "20", onHand(t, inv, towelID, storeroomID))

	_, err = counts.Complete(ctx, session.ID)
	assert.True(t, errors.Is(err, core.ErrInvalidStateTransition))
}

func TestCount_RequiredReasonForVariance(t *testing.T) {
	pool := setupTestDB(t)
	counts, inv := newCountService(pool, true)
	ctx := context.Background()

	receive(t, inv, towelID, storeroomID, "20")
	session, err := counts.CreateSession(ctx, storeroomID, supervisorID, "")
	require.NoError(t, err)

	_, err = counts.AddLine(ctx, session.ID, core.CountLineInput{ItemID: towelID, CountedQty: d("18")})
	assert.Error(t, err)
	_, err = counts.AddLine(ctx, session.ID, core.CountLineInput{ItemID: towelID, CountedQty: d("18"), ReasonCode: core.ReasonLost})
	assert.NoError(t, err)
}

func TestCount_SpotCheckAdjustsImmediately(t *testing.T) {
	pool := setupTestDB(t)
	counts, inv := newCountService(pool, false)
	ctx := context.Background()

	receive(t, inv, soapID, closetID, "12")
	res, err := counts.SpotCheck(ctx, core.SpotCheckInput{ItemID: soapID, LocationID: closetID, CountedQty: d("10"), UserID: supervisorID})
	require.NoError(t, err)

	assert.True(t, res.Variance.Equal(d("-2")))
	assert.NotNil(t, res.TransactionID)
	assert.Equal(t, "10", onHand(t, inv, soapID, closetID))
	assertReconciled(t, inv)
}

func TestCount_SessionNumbersAreSequential(t *testing.T) {
	pool := setupTestDB(t)
	counts, _ := newCountService(pool, false)
	ctx := context.Background()

	a, err := counts.CreateSession(ctx, storeroomID, supervisorID, "")
	require.NoError(t, err)
	b, err := counts.CreateSession(ctx, closetID, supervisorID, "")
	require.NoError(t, err)

	assert.Equal(t, a.Number[:len(a.Number)-5]+"00001", a.Number)
	assert.Equal(t, a.Number[:len(a.Number)-5]+"00002", b.Number)
}

func TestCount_ApproveSkipsLinesThatStockHasCaughtUpWith(t *testing.T) {
	pool := setupTestDB(t)
	counts, inv := newCountService(pool, false)
	ctx := context.Background()

	receive(t, inv, towelID, storeroomID, "20")
	session, err := counts.CreateSession(ctx, storeroomID, supervisorID, "")
	require.NoError(t, err)
	line, err := counts.AddLine(ctx, session.ID, core.CountLineInput{ItemID: towelID, CountedQty: d("17")})
	require.NoError(t, err)
	assert.True(t, line.Variance().Equal(d("-3")))

	// Three towels are issued after the line was counted, so on-hand now matches it.
	_, err = inv.Issue(ctx, core.IssueInput{ItemID: towelID, FromLocationID: storeroomID, Qty: d("3"), UserID: adminID})
	require.NoError(t, err)

	_, err = counts.Complete(ctx, session.ID)
	require.NoError(t, err)
	_, err = counts.Approve(ctx, session.ID, managerID)
	require.NoError(t, err)

	adjustments, err := inv.Transactions(ctx, core.TransactionFilter{Type: core.TxCountAdjust})
	require.NoError(t, err)
	assert.Empty(t, adjustments, "a zero delta must not write a ledger row")

	level, err := inv.GetLevel(ctx, towelID, storeroomID)
	require.NoError(t, err)
	assert.Equal(t, "17", level.OnHandQty.String())
	assert.NotNil(t, level.LastCountedAt)
	assertReconciled(t, inv)
}

func TestCount_OpenSessionBlocksDeactivation(t *testing.T) {
	pool := setupTestDB(t)
	counts, inv := newCountService(pool, false)
	catalog := core.NewCatalogService(pool)
	ctx := context.Background()

	receive(t, inv, towelID, closetID, "10")
	session, err := counts.CreateSession(ctx, closetID, supervisorID, "")
	require.NoError(t, err)
	_, err = counts.AddLine(ctx, session.ID, core.CountLineInput{ItemID: towelID, CountedQty: d("8")})
	require.NoError(t, err)
	_, err = counts.Complete(ctx, session.ID)
	require.NoError(t, err)

	err = catalog.DeactivateLocation(ctx, closetID)
	assert.True(t, errors.Is(err, core.ErrInvalidInput), "location: %v", err)
	err = catalog.DeactivateItem(ctx, towelID)
	assert.True(t, errors.Is(err, core.ErrInvalidInput), "item: %v", err)
	inactive := false
	_, err = catalog.UpdateLocation(ctx, closetID, core.LocationInput{Name: "Floor 3 Closet", Type: core.LocationCloset, IsActive: &inactive})
	assert.True(t, errors.Is(err, core.ErrInvalidInput), "update: %v", err)

	_, err = counts.Approve(ctx, session.ID, managerID)
	require.NoError(t, err)
	assert.Equal(t, "8", onHand(t, inv, towelID, closetID))

	require.NoError(t, catalog.DeactivateLocation(ctx, closetID))
}
