package core_test

import (
	"encoding/json"
	"testing"
	"time"

	"parstock/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func TestCountLine_Variance(t *testing.T) {
	line := core.CountLine{ExpectedQty: d("20"), CountedQty: d("17")}
	assert.True(t, line.Variance().Equal(d("-3")), "got %s", line.Variance())

	line.ExpectedQty = d("15")
	assert.True(t, line.Variance().Equal(d("2")), "variance must follow expected_qty")
}

func TestCountLine_MarshalIncludesVariance(t *testing.T) {
	raw, err := json.Marshal(core.CountLine{ItemID: 5, ExpectedQty: d("20"), CountedQty: d("17")})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "-3", got["variance"])
	assert.EqualValues(t, 5, got["item_id"])
}

func TestCountSession_Lifecycle(t *testing.T) {
	s := &core.CountSession{ID: 1, Status: core.CountInProgress}
	require.NoError(t, s.CanAddLine())

	err := s.Complete(now)
	assert.ErrorIs(t, err, core.ErrInvalidInput, "empty session cannot complete")

	s.LineCount = 1
	require.NoError(t, s.Complete(now))
	assert.Equal(t, core.CountCompleted, s.Status)
	require.NotNil(t, s.CompletedAt)

	require.NoError(t, s.Approve(7, now))
	assert.Equal(t, core.CountApproved, s.Status)
	assert.Equal(t, 7, *s.ApprovedBy)
}

func TestCountSession_WrongStateTransitions(t *testing.T) {
	tests := []struct {
		name   string
		status core.CountStatus
		op     func(s *core.CountSession) error
	}{
		{"add line to approved", core.CountApproved, func(s *core.CountSession) error { return s.CanAddLine() }},
		{"add line to completed", core.CountCompleted, func(s *core.CountSession) error { return s.CanAddLine() }},
		{"approve in progress", core.CountInProgress, func(s *core.CountSession) error { return s.Approve(1, now) }},
		{"re-approve", core.CountApproved, func(s *core.CountSession) error { return s.Approve(1, now) }},
		{"complete completed", core.CountCompleted, func(s *core.CountSession) error { return s.Complete(now) }},
		{"cancel approved", core.CountApproved, func(s *core.CountSession) error { return s.Cancel(now) }},
		{"cancel cancelled", core.CountCancelled, func(s *core.CountSession) error { return s.Cancel(now) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &core.CountSession{ID: 9, Status: tt.status, LineCount: 1}
			err := tt.op(s)
			require.ErrorIs(t, err, core.ErrInvalidStateTransition)

			var te *core.TransitionError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, string(tt.status), te.From)
			assert.Equal(t, tt.status, s.Status, "status must not change on a rejected transition")
		})
	}
}

func TestCountSession_CancelFromOpenStates(t *testing.T) {
	for _, st := range []core.CountStatus{core.CountInProgress, core.CountCompleted} {
		s := &core.CountSession{Status: st}
		require.NoError(t, s.Cancel(now))
		assert.Equal(t, core.CountCancelled, s.Status)
	}
}

func TestCountSession_Adjustments(t *testing.T) {
	s := &core.CountSession{Lines: []core.CountLine{
		{ItemID: 1, ExpectedQty: d("20"), CountedQty: d("17")},
		{ItemID: 2, ExpectedQty: d("5"), CountedQty: d("5")},
		{ItemID: 3, ExpectedQty: d("0"), CountedQty: d("4")},
	}}
	adj := s.Adjustments()
	require.Len(t, adj, 2)
	assert.Equal(t, 1, adj[0].ItemID)
	assert.Equal(t, 3, adj[1].ItemID)
}

func TestSummarize(t *testing.T) {
	sum := core.Summarize([]core.CountLine{
		{ExpectedQty: d("20"), CountedQty: d("17")},
		{ExpectedQty: d("5"), CountedQty: d("5")},
		{ExpectedQty: d("0"), CountedQty: d("4")},
		{ExpectedQty: d("2"), CountedQty: d("2")},
	})
	assert.Equal(t, 4, sum.LineCount)
	assert.Equal(t, 2, sum.LinesWithVariance)
	assert.True(t, sum.NetVariance.Equal(d("1")))
	assert.True(t, sum.AbsoluteVariance.Equal(d("7")))
	assert.True(t, sum.ShrinkQty.Equal(d("3")))
	assert.True(t, sum.OverageQty.Equal(d("4")))
	assert.True(t, sum.AccuracyPct.Equal(d("50")))

	empty := core.Summarize(nil)
	assert.True(t, empty.AccuracyPct.Equal(d("100")))
}

func TestReasonCode_Valid(t *testing.T) {
	assert.True(t, core.ReasonCode("").Valid())
	for _, c := range core.ReasonCodes {
		assert.True(t, c.Valid(), c)
	}
	assert.False(t, core.ReasonCode("MISPLACED").Valid())
}
