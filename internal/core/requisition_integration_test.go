package core_test

import (
	"context"
	"errors"
	"testing"

	"parstock/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	supervisor = core.Principal{UserID: supervisorID, Username: "sup", Role: core.RoleSupervisor}
	manager    = core.Principal{UserID: managerID, Username: "mgr", Role: core.RoleManager}
)

func newRequisitionService(pool *pgxpool.Pool) (core.RequisitionService, core.InventoryService) {
	inv := core.NewInventoryService(pool)
	return core.NewRequisitionService(pool, inv), inv
}

func createTowelRequisition(t *testing.T, reqs core.RequisitionService, qty string) *core.Requisition {
	t.Helper()
	r, err := reqs.Create(context.Background(), core.CreateRequisitionInput{
		FromLocationID: storeroomID,
		ToLocationID:   closetID,
		RequestedBy:    supervisorID,
		Lines:          []core.RequisitionLineInput{{ItemID: towelID, Qty: d(qty)}},
	})
	require.NoError(t, err)
	return r
}

func TestRequisition_FullLifecycleEmitsOneTransfer(t *testing.T) {
	pool := setupTestDB(t)
	reqs, inv := newRequisitionService(pool)
	ctx := context.Background()

	receive(t, inv, towelID, storeroomID, "25")
	r := createTowelRequisition(t, reqs, "10")
	assert.Equal(t, core.RequisitionPending, r.Status)

	r, err := reqs.Approve(ctx, r.ID, manager)
	require.NoError(t, err)
	assert.Equal(t, core.RequisitionApproved, r.Status)

	r, err = reqs.Pick(ctx, r.ID, supervisor, nil)
	require.NoError(t, err)
	assert.Equal(t, core.RequisitionPicked, r.Status)
	require.Len(t, r.Lines, 1)
	assert.True(t, r.Lines[0].QtyPicked.Equal(d("10")))

	level, err := inv.GetLevel(ctx, towelID, storeroomID)
	require.NoError(t, err)
	assert.True(t, level.ReservedQty.Equal(d("10")), "reserved %s", level.ReservedQty)

	r, err = reqs.Complete(ctx, r.ID, supervisor)
	require.NoError(t, err)
	assert.Equal(t, core.RequisitionCompleted, r.Status)

	assert.Equal(t, "15", onHand(t, inv, towelID, storeroomID))
	assert.Equal(t, "10", onHand(t, inv, towelID, closetID))
	level, err = inv.GetLevel(ctx, towelID, storeroomID)
	require.NoError(t, err)
	assert.True(t, level.ReservedQty.IsZero())

	transfers, err := inv.Transactions(ctx, core.TransactionFilter{Type: core.TxTransfer})
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.True(t, transfers[0].Qty.Equal(d("10")))
	require.NotNil(t, transfers[0].RequisitionID)
	assert.Equal(t, r.ID, *transfers[0].RequisitionID)
	assertReconciled(t, inv)

	_, err = reqs.Complete(ctx, r.ID, supervisor)
	assert.True(t, errors.Is(err, core.ErrInvalidStateTransition))
}

func TestRequisition_SameLocationsRejected(t *testing.T) {
	pool := setupTestDB(t)
	reqs, _ := newRequisitionService(pool)

	_, err := reqs.Create(context.Background(), core.CreateRequisitionInput{
		FromLocationID: storeroomID,
		ToLocationID:   storeroomID,
		RequestedBy:    supervisorID,
		Lines:          []core.RequisitionLineInput{{ItemID: towelID, Qty: d("1")}},
	})
	assert.True(t, errors.Is(err, core.ErrInvalidInput), "got %v", err)
}

func TestRequisition_SupervisorCannotApprove(t *testing.T) {
	pool := setupTestDB(t)
	reqs, _ := newRequisitionService(pool)

	r := createTowelRequisition(t, reqs, "2")
	_, err := reqs.Approve(context.Background(), r.ID, supervisor)
	assert.True(t, errors.Is(err, core.ErrPermissionDenied), "got %v", err)
}

func TestRequisition_DenyIsTerminal(t *testing.T) {
	pool := setupTestDB(t)
	reqs, _ := newRequisitionService(pool)
	ctx := context.Background()

	r := createTowelRequisition(t, reqs, "2")
	r, err := reqs.Deny(ctx, r.ID, manager, "not needed")
	require.NoError(t, err)
	assert.Equal(t, core.RequisitionDenied, r.Status)
	assert.Equal(t, "not needed", r.DenialReason)

	_, err = reqs.Approve(ctx, r.ID, manager)
	assert.True(t, errors.Is(err, core.ErrInvalidStateTransition))
}

func TestRequisition_PickBeyondAvailableFails(t *testing.T) {
	pool := setupTestDB(t)
	reqs, inv := newRequisitionService(pool)
	ctx := context.Background()

	receive(t, inv, towelID, storeroomID, "3")
	r := createTowelRequisition(t, reqs, "10")

	avail, err := reqs.CheckAvailability(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, avail.AllAvailable)

	_, err = reqs.Approve(ctx, r.ID, manager)
	require.NoError(t, err)
	_, err = reqs.Pick(ctx, r.ID, supervisor, nil)
	assert.True(t, errors.Is(err, core.ErrInsufficientStock), "got %v", err)

	got, err := reqs.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, core.RequisitionApproved, got.Status)
}

func TestRequisition_CancelAfterPickReleasesReservation(t *testing.T) {
	pool := setupTestDB(t)
	reqs, inv := newRequisitionService(pool)
	ctx := context.Background()

	receive(t, inv, towelID, storeroomID, "10")
	r := createTowelRequisition(t, reqs, "4")
	_, err := reqs.Approve(ctx, r.ID, manager)
	require.NoError(t, err)
	_, err = reqs.Pick(ctx, r.ID, supervisor, []core.PickInput{{ItemID: towelID, QtyPicked: d("3")}})
	require.NoError(t, err)

	r, err = reqs.Cancel(ctx, r.ID, supervisor)
	require.NoError(t, err)
	assert.Equal(t, core.RequisitionCancelled, r.Status)

	level, err := inv.GetLevel(ctx, towelID, storeroomID)
	require.NoError(t, err)
	assert.True(t, level.ReservedQty.IsZero())
	assert.True(t, level.OnHandQty.Equal(d("10")))
}
