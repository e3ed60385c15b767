package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RequisitionStatus is the lifecycle state of a requisition:
//
//	PENDING → APPROVED → PICKED → COMPLETED
//	PENDING → DENIED
//	PENDING, APPROVED, PICKED → CANCELLED
type RequisitionStatus string

const (
	RequisitionPending   RequisitionStatus = "PENDING"
	RequisitionApproved  RequisitionStatus = "APPROVED"
	RequisitionDenied    RequisitionStatus = "DENIED"
	RequisitionPicked    RequisitionStatus = "PICKED"
	RequisitionCompleted RequisitionStatus = "COMPLETED"
	RequisitionCancelled RequisitionStatus = "CANCELLED"
)

// Requisition is a request to move stock from one location to another.
type Requisition struct {
	ID               int               `json:"id"`
	Number           string            `json:"number"`
	FromLocationID   int               `json:"from_location_id"`
	FromLocationName string            `json:"from_location_name"` // joined from locations
	ToLocationID     int               `json:"to_location_id"`
	ToLocationName   string            `json:"to_location_name"` // joined from locations
	RequestedBy      int               `json:"requested_by"`
	RequestedByName  string            `json:"requested_by_name"` // joined from users
	Status           RequisitionStatus `json:"status"`
	NeededBy         *time.Time        `json:"needed_by,omitempty"`
	Notes            string            `json:"notes"`
	CreatedAt        time.Time         `json:"created_at"`
	ApprovedBy       *int              `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time        `json:"approved_at,omitempty"`
	DeniedBy         *int              `json:"denied_by,omitempty"`
	DeniedAt         *time.Time        `json:"denied_at,omitempty"`
	DenialReason     string            `json:"denial_reason,omitempty"`
	PickedBy         *int              `json:"picked_by,omitempty"`
	PickedAt         *time.Time        `json:"picked_at,omitempty"`
	CompletedBy      *int              `json:"completed_by,omitempty"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	CancelledAt      *time.Time        `json:"cancelled_at,omitempty"`
	Lines            []RequisitionLine `json:"lines,omitempty"`
}

// RequisitionLine is one item's requested and picked quantity.
// AvailableQty is a read-time snapshot at the source location and is never stored.
type RequisitionLine struct {
	ID            int              `json:"id"`
	RequisitionID int              `json:"requisition_id"`
	LineNumber    int              `json:"line_number"`
	ItemID        int              `json:"item_id"`
	ItemName      string           `json:"item_name"`  // joined from items
	ShortCode     string           `json:"short_code"` // joined from items
	QtyRequested  decimal.Decimal  `json:"qty_requested"`
	QtyPicked     decimal.Decimal  `json:"qty_picked"`
	AvailableQty  *decimal.Decimal `json:"available_qty,omitempty"`
}

// RequisitionLineInput is a requested item on create.
type RequisitionLineInput struct {
	ItemID int
	Qty    decimal.Decimal
}

// PickInput sets the picked quantity for one line, by item.
type PickInput struct {
	ItemID    int
	QtyPicked decimal.Decimal
}

// CreateRequisitionInput holds the fields of a new requisition.
type CreateRequisitionInput struct {
	FromLocationID int
	ToLocationID   int
	RequestedBy    int
	NeededBy       *time.Time
	Notes          string
	Lines          []RequisitionLineInput
}

// RequisitionFilter narrows List. LocationID matches either end.
type RequisitionFilter struct {
	Status      RequisitionStatus
	LocationID  int
	RequestedBy int
}

// AvailabilityLine compares one line's request with what the source holds now.
type AvailabilityLine struct {
	ItemID       int             `json:"item_id"`
	ItemName     string          `json:"item_name"`
	QtyRequested decimal.Decimal `json:"qty_requested"`
	AvailableQty decimal.Decimal `json:"available_qty"`
	Sufficient   bool            `json:"sufficient"`
}

// Availability is the result of CheckAvailability.
type Availability struct {
	RequisitionID int                `json:"requisition_id"`
	AllAvailable  bool               `json:"all_available"`
	Lines         []AvailabilityLine `json:"lines"`
}

// ValidateCreate checks a new requisition before anything is written:
// distinct locations, at least one line, positive quantities. Lines for the
// same item are merged, keeping first-seen order.
func (in *CreateRequisitionInput) ValidateCreate() error {
	if in.FromLocationID == in.ToLocationID {
		return fmt.Errorf("%w: from_location and to_location must differ", ErrInvalidInput)
	}
	if len(in.Lines) == 0 {
		return fmt.Errorf("%w: requisition must have at least one line", ErrInvalidInput)
	}

	merged := make([]RequisitionLineInput, 0, len(in.Lines))
	index := make(map[int]int)
	for _, l := range in.Lines {
		if err := ValidatePositive(fmt.Sprintf("qty for item %d", l.ItemID), l.Qty); err != nil {
			return err
		}
		if i, ok := index[l.ItemID]; ok {
			merged[i].Qty = merged[i].Qty.Add(l.Qty)
			continue
		}
		index[l.ItemID] = len(merged)
		merged = append(merged, l)
	}
	in.Lines = merged
	return nil
}

func (r *Requisition) transitionError(op string, to RequisitionStatus) error {
	return &TransitionError{Entity: "requisition", ID: r.ID, Operation: op, From: string(r.Status), To: string(to)}
}

// Approve moves PENDING → APPROVED.
func (r *Requisition) Approve(actor int, now time.Time) error {
	if r.Status != RequisitionPending {
		return r.transitionError("approve", RequisitionApproved)
	}
	r.Status = RequisitionApproved
	r.ApprovedBy = &actor
	r.ApprovedAt = &now
	return nil
}

// Deny moves PENDING → DENIED.
func (r *Requisition) Deny(actor int, reason string, now time.Time) error {
	if r.Status != RequisitionPending {
		return r.transitionError("deny", RequisitionDenied)
	}
	r.Status = RequisitionDenied
	r.DeniedBy = &actor
	r.DeniedAt = &now
	r.DenialReason = reason
	return nil
}

// Pick moves APPROVED → PICKED and sets each line's picked quantity. Lines
// without an entry in picks are picked in full; every picked quantity must lie
// in [0, requested].
func (r *Requisition) Pick(actor int, picks []PickInput, now time.Time) error {
	if r.Status != RequisitionApproved {
		return r.transitionError("pick", RequisitionPicked)
	}

	byItem := make(map[int]decimal.Decimal, len(picks))
	for _, p := range picks {
		byItem[p.ItemID] = p.QtyPicked
	}
	for itemID := range byItem {
		if r.lineFor(itemID) < 0 {
			return fmt.Errorf("%w: item %d is not on requisition %d", ErrInvalidInput, itemID, r.ID)
		}
	}

	picked := make([]decimal.Decimal, len(r.Lines))
	for i, l := range r.Lines {
		qty, ok := byItem[l.ItemID]
		if !ok {
			qty = l.QtyRequested
		}
		if err := ValidateQuantity(fmt.Sprintf("qty_picked for item %d", l.ItemID), qty); err != nil {
			return err
		}
		if qty.GreaterThan(l.QtyRequested) {
			return fmt.Errorf("%w: qty_picked %s for item %d exceeds requested %s",
				ErrInvalidQuantity, qty, l.ItemID, l.QtyRequested)
		}
		picked[i] = qty
	}
	for i := range r.Lines {
		r.Lines[i].QtyPicked = picked[i]
	}

	r.Status = RequisitionPicked
	r.PickedBy = &actor
	r.PickedAt = &now
	return nil
}

// Complete moves PICKED → COMPLETED.
func (r *Requisition) Complete(actor int, now time.Time) error {
	if r.Status != RequisitionPicked {
		return r.transitionError("complete", RequisitionCompleted)
	}
	r.Status = RequisitionCompleted
	r.CompletedBy = &actor
	r.CompletedAt = &now
	return nil
}

// Cancel moves PENDING, APPROVED or PICKED → CANCELLED.
func (r *Requisition) Cancel(now time.Time) error {
	switch r.Status {
	case RequisitionPending, RequisitionApproved, RequisitionPicked:
	default:
		return r.transitionError("cancel", RequisitionCancelled)
	}
	r.Status = RequisitionCancelled
	r.CancelledAt = &now
	return nil
}

// Transfers returns the lines that move stock on completion.
func (r *Requisition) Transfers() []RequisitionLine {
	var out []RequisitionLine
	for _, l := range r.Lines {
		if l.QtyPicked.IsPositive() {
			out = append(out, l)
		}
	}
	return out
}

func (r *Requisition) lineFor(itemID int) int {
	for i, l := range r.Lines {
		if l.ItemID == itemID {
			return i
		}
	}
	return -1
}
