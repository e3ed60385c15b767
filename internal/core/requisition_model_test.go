package core_test

import (
	"testing"

	"parstock/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingRequisition() *core.Requisition {
	return &core.Requisition{
		ID: 3, Status: core.RequisitionPending, FromLocationID: 1, ToLocationID: 2,
		Lines: []core.RequisitionLine{
			{ItemID: 5, QtyRequested: d("10")},
			{ItemID: 6, QtyRequested: d("4")},
		},
	}
}

func TestValidateCreate(t *testing.T) {
	tests := []struct {
		name string
		in   core.CreateRequisitionInput
		err  error
	}{
		{"same location", core.CreateRequisitionInput{FromLocationID: 1, ToLocationID: 1,
			Lines: []core.RequisitionLineInput{{ItemID: 5, Qty: d("10")}}}, core.ErrInvalidInput},
		{"no lines", core.CreateRequisitionInput{FromLocationID: 1, ToLocationID: 2}, core.ErrInvalidInput},
		{"zero qty", core.CreateRequisitionInput{FromLocationID: 1, ToLocationID: 2,
			Lines: []core.RequisitionLineInput{{ItemID: 5, Qty: d("0")}}}, core.ErrInvalidQuantity},
		{"negative qty", core.CreateRequisitionInput{FromLocationID: 1, ToLocationID: 2,
			Lines: []core.RequisitionLineInput{{ItemID: 5, Qty: d("-1")}}}, core.ErrInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.in.ValidateCreate(), tt.err)
		})
	}
}

func TestValidateCreate_MergesDuplicateItems(t *testing.T) {
	in := core.CreateRequisitionInput{FromLocationID: 1, ToLocationID: 2, Lines: []core.RequisitionLineInput{
		{ItemID: 5, Qty: d("3")}, {ItemID: 6, Qty: d("1")}, {ItemID: 5, Qty: d("2.5")},
	}}
	require.NoError(t, in.ValidateCreate())
	require.Len(t, in.Lines, 2)
	assert.Equal(t, 5, in.Lines[0].ItemID)
	assert.True(t, in.Lines[0].Qty.Equal(d("5.5")))
}

func TestRequisition_FullLifecycle(t *testing.T) {
	r := pendingRequisition()
	require.NoError(t, r.Approve(2, now))
	require.NoError(t, r.Pick(4, nil, now))
	assert.True(t, r.Lines[0].QtyPicked.Equal(d("10")), "default pick is the requested qty")
	require.NoError(t, r.Complete(4, now))
	assert.Equal(t, core.RequisitionCompleted, r.Status)
	assert.Len(t, r.Transfers(), 2)
}

func TestRequisition_PartialPick(t *testing.T) {
	r := pendingRequisition()
	require.NoError(t, r.Approve(2, now))
	require.NoError(t, r.Pick(4, []core.PickInput{{ItemID: 5, QtyPicked: d("7")}, {ItemID: 6, QtyPicked: d("0")}}, now))

	transfers := r.Transfers()
	require.Len(t, transfers, 1)
	assert.Equal(t, 5, transfers[0].ItemID)
	assert.True(t, transfers[0].QtyPicked.Equal(d("7")))
}

func TestRequisition_PickRejectsBadQuantities(t *testing.T) {
	tests := []struct {
		name  string
		picks []core.PickInput
		err   error
	}{
		{"over requested", []core.PickInput{{ItemID: 5, QtyPicked: d("11")}}, core.ErrInvalidQuantity},
		{"negative", []core.PickInput{{ItemID: 6, QtyPicked: d("-1")}}, core.ErrInvalidQuantity},
		{"unknown item", []core.PickInput{{ItemID: 99, QtyPicked: d("1")}}, core.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := pendingRequisition()
			require.NoError(t, r.Approve(2, now))
			assert.ErrorIs(t, r.Pick(4, tt.picks, now), tt.err)
			assert.Equal(t, core.RequisitionApproved, r.Status)
			assert.True(t, r.Lines[0].QtyPicked.IsZero())
		})
	}
}

func TestRequisition_WrongStateTransitions(t *testing.T) {
	tests := []struct {
		name   string
		status core.RequisitionStatus
		op     func(r *core.Requisition) error
	}{
		{"approve approved", core.RequisitionApproved, func(r *core.Requisition) error { return r.Approve(1, now) }},
		{"deny approved", core.RequisitionApproved, func(r *core.Requisition) error { return r.Deny(1, "", now) }},
		{"approve denied", core.RequisitionDenied, func(r *core.Requisition) error { return r.Approve(1, now) }},
		{"pick pending", core.RequisitionPending, func(r *core.Requisition) error { return r.Pick(1, nil, now) }},
		{"complete approved", core.RequisitionApproved, func(r *core.Requisition) error { return r.Complete(1, now) }},
		{"cancel completed", core.RequisitionCompleted, func(r *core.Requisition) error { return r.Cancel(now) }},
		{"cancel denied", core.RequisitionDenied, func(r *core.Requisition) error { return r.Cancel(now) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := pendingRequisition()
			r.Status = tt.status
			err := tt.op(r)
			require.ErrorIs(t, err, core.ErrInvalidStateTransition)
			assert.Equal(t, tt.status, r.Status)
		})
	}
}

func TestRequisition_Deny(t *testing.T) {
	r := pendingRequisition()
	require.NoError(t, r.Deny(2, "not budgeted", now))
	assert.Equal(t, core.RequisitionDenied, r.Status)
	assert.Equal(t, "not budgeted", r.DenialReason)
}

func TestRequisition_CancelFromOpenStates(t *testing.T) {
	for _, st := range []core.RequisitionStatus{core.RequisitionPending, core.RequisitionApproved, core.RequisitionPicked} {
		r := pendingRequisition()
		r.Status = st
		require.NoError(t, r.Cancel(now), st)
		assert.Equal(t, core.RequisitionCancelled, r.Status)
	}
}
