package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CountStatus is the lifecycle state of a count session:
//
//	IN_PROGRESS → COMPLETED → APPROVED
//	IN_PROGRESS, COMPLETED → CANCELLED
type CountStatus string

const (
	CountInProgress CountStatus = "IN_PROGRESS"
	CountCompleted  CountStatus = "COMPLETED"
	CountApproved   CountStatus = "APPROVED"
	CountCancelled  CountStatus = "CANCELLED"
)

// ReasonCode explains a count variance.
type ReasonCode string

const (
	ReasonLost        ReasonCode = "LOST"
	ReasonDamaged     ReasonCode = "DAMAGED"
	ReasonVendorError ReasonCode = "VENDOR_ERROR"
	ReasonDataError   ReasonCode = "DATA_ERROR"
	ReasonTheft       ReasonCode = "THEFT"
	ReasonAdjust      ReasonCode = "ADJUST"
	ReasonCorrection  ReasonCode = "CORRECTION"
	ReasonSpotCheck   ReasonCode = "SPOT_CHECK"
	ReasonOther       ReasonCode = "OTHER"
)

// ReasonCodes lists every accepted reason code.
var ReasonCodes = []ReasonCode{
	ReasonLost, ReasonDamaged, ReasonVendorError, ReasonDataError, ReasonTheft,
	ReasonAdjust, ReasonCorrection, ReasonSpotCheck, ReasonOther,
}

// Valid reports whether r is empty or one of ReasonCodes.
func (r ReasonCode) Valid() bool {
	if r == "" {
		return true
	}
	for _, c := range ReasonCodes {
		if r == c {
			return true
		}
	}
	return false
}

// CountSession is one physical count at one location.
type CountSession struct {
	ID            int              `json:"id"`
	Number        string           `json:"number"`
	LocationID    int              `json:"location_id"`
	LocationName  string           `json:"location_name"` // joined from locations
	CountedBy     int              `json:"counted_by"`
	CountedByName string           `json:"counted_by_name"` // joined from users
	Status        CountStatus      `json:"status"`
	Notes         string           `json:"notes"`
	StartedAt     time.Time        `json:"started_at"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
	ApprovedBy    *int             `json:"approved_by,omitempty"`
	ApprovedAt    *time.Time       `json:"approved_at,omitempty"`
	CancelledAt   *time.Time       `json:"cancelled_at,omitempty"`
	LineCount     int              `json:"line_count"`
	Lines         []CountLine      `json:"lines,omitempty"`
	Summary       *VarianceSummary `json:"variance_summary,omitempty"`
}

// CountLine is one item's result within a session.
type CountLine struct {
	ID          int             `json:"id"`
	SessionID   int             `json:"count_session_id"`
	LineNumber  int             `json:"line_number"`
	ItemID      int             `json:"item_id"`
	ItemName    string          `json:"item_name"`  // joined from items
	ShortCode   string          `json:"short_code"` // joined from items
	ExpectedQty decimal.Decimal `json:"expected_qty"`
	CountedQty  decimal.Decimal `json:"counted_qty"`
	ReasonCode  ReasonCode      `json:"reason_code"`
	Notes       string          `json:"notes"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Variance is counted minus expected, always derived from the current values.
func (l CountLine) Variance() decimal.Decimal {
	return l.CountedQty.Sub(l.ExpectedQty)
}

// MarshalJSON adds the derived variance to the encoded line.
func (l CountLine) MarshalJSON() ([]byte, error) {
	type line CountLine
	return json.Marshal(struct {
		line
		Variance decimal.Decimal `json:"variance"`
	}{line(l), l.Variance()})
}

// VarianceSummary aggregates variance over a session's lines.
type VarianceSummary struct {
	LineCount         int             `json:"line_count"`
	LinesWithVariance int             `json:"lines_with_variance"`
	NetVariance       decimal.Decimal `json:"net_variance"`
	AbsoluteVariance  decimal.Decimal `json:"absolute_variance"`
	ShrinkQty         decimal.Decimal `json:"shrink_qty"`
	OverageQty        decimal.Decimal `json:"overage_qty"`
	AccuracyPct       decimal.Decimal `json:"accuracy_pct"`
}

// Summarize computes the VarianceSummary of lines. AccuracyPct is the share of
// lines with no variance, 100 for an empty session.
func Summarize(lines []CountLine) VarianceSummary {
	sum := VarianceSummary{
		LineCount:        len(lines),
		NetVariance:      decimal.Zero,
		AbsoluteVariance: decimal.Zero,
		ShrinkQty:        decimal.Zero,
		OverageQty:       decimal.Zero,
		AccuracyPct:      decimal.NewFromInt(100),
	}
	for _, l := range lines {
		v := l.Variance()
		if v.IsZero() {
			continue
		}
		sum.LinesWithVariance++
		sum.NetVariance = sum.NetVariance.Add(v)
		sum.AbsoluteVariance = sum.AbsoluteVariance.Add(v.Abs())
		if v.IsNegative() {
			sum.ShrinkQty = sum.ShrinkQty.Add(v.Abs())
		} else {
			sum.OverageQty = sum.OverageQty.Add(v)
		}
	}
	if len(lines) > 0 {
		exact := decimal.NewFromInt(int64(len(lines) - sum.LinesWithVariance))
		sum.AccuracyPct = exact.Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(len(lines)))).Round(2)
	}
	return sum
}

func (s *CountSession) transitionError(op string, to CountStatus) error {
	return &TransitionError{Entity: "count session", ID: s.ID, Operation: op, From: string(s.Status), To: string(to)}
}

// CanAddLine reports whether lines may still be posted.
func (s *CountSession) CanAddLine() error {
	if s.Status != CountInProgress {
		return s.transitionError("add line to", CountInProgress)
	}
	return nil
}

// Complete moves IN_PROGRESS → COMPLETED. LineCount must reflect the stored lines.
func (s *CountSession) Complete(now time.Time) error {
	if s.Status != CountInProgress {
		return s.transitionError("complete", CountCompleted)
	}
	if s.LineCount == 0 {
		return fmt.Errorf("%w: count session %d has no lines", ErrInvalidInput, s.ID)
	}
	s.Status = CountCompleted
	s.CompletedAt = &now
	return nil
}

// Approve moves COMPLETED → APPROVED. A second approval fails here, so the
// adjustments are never emitted twice.
func (s *CountSession) Approve(approver int, now time.Time) error {
	if s.Status != CountCompleted {
		return s.transitionError("approve", CountApproved)
	}
	s.Status = CountApproved
	s.ApprovedBy = &approver
	s.ApprovedAt = &now
	return nil
}

// Cancel moves IN_PROGRESS or COMPLETED → CANCELLED.
func (s *CountSession) Cancel(now time.Time) error {
	if s.Status != CountInProgress && s.Status != CountCompleted {
		return s.transitionError("cancel", CountCancelled)
	}
	s.Status = CountCancelled
	s.CancelledAt = &now
	return nil
}

// Adjustments returns the lines whose variance is non-zero, in line order.
func (s *CountSession) Adjustments() []CountLine {
	var out []CountLine
	for _, l := range s.Lines {
		if !l.Variance().IsZero() {
			out = append(out, l)
		}
	}
	return out
}

// CountSessionFilter narrows ListSessions. Zero values mean "any".
type CountSessionFilter struct {
	Status     CountStatus
	LocationID int
}

// CountLineInput is a posted count for one item.
type CountLineInput struct {
	ItemID     int
	CountedQty decimal.Decimal
	ReasonCode ReasonCode
	Notes      string
}

// SpotCheckInput is a one-item count outside a session.
type SpotCheckInput struct {
	ItemID     int
	LocationID int
	CountedQty decimal.Decimal
	Notes      string
	UserID     int
}

// SpotCheckResult reports the outcome of a spot check.
type SpotCheckResult struct {
	ItemID        int             `json:"item_id"`
	LocationID    int             `json:"location_id"`
	ExpectedQty   decimal.Decimal `json:"expected_qty"`
	CountedQty    decimal.Decimal `json:"counted_qty"`
	Variance      decimal.Decimal `json:"variance"`
	TransactionID *int64          `json:"transaction_id,omitempty"`
}
