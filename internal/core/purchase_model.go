package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseStatus is the lifecycle state of a purchase request:
//
//	DRAFT → SUBMITTED → APPROVED → ORDERED → RECEIVED
//	DRAFT, SUBMITTED → APPROVED | DENIED
//	DRAFT, SUBMITTED, APPROVED, ORDERED → CANCELLED
type PurchaseStatus string

const (
	PurchaseDraft     PurchaseStatus = "DRAFT"
	PurchaseSubmitted PurchaseStatus = "SUBMITTED"
	PurchaseApproved  PurchaseStatus = "APPROVED"
	PurchaseDenied    PurchaseStatus = "DENIED"
	PurchaseOrdered   PurchaseStatus = "ORDERED"
	PurchaseReceived  PurchaseStatus = "RECEIVED"
	PurchaseCancelled PurchaseStatus = "CANCELLED"
)

// PurchaseRequest is an order to one vendor. Each line names the location the
// goods are received into.
type PurchaseRequest struct {
	ID              int                   `json:"id"`
	Number          string                `json:"number"`
	VendorID        int                   `json:"vendor_id"`
	VendorName      string                `json:"vendor_name"` // joined from vendors
	RequestedBy     int                   `json:"requested_by"`
	RequestedByName string                `json:"requested_by_name"` // joined from users
	Status          PurchaseStatus        `json:"status"`
	Notes           string                `json:"notes"`
	PONumber        string                `json:"po_number,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	SubmittedAt     *time.Time            `json:"submitted_at,omitempty"`
	ApprovedBy      *int                  `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time            `json:"approved_at,omitempty"`
	DeniedBy        *int                  `json:"denied_by,omitempty"`
	DeniedAt        *time.Time            `json:"denied_at,omitempty"`
	DenialReason    string                `json:"denial_reason,omitempty"`
	OrderedBy       *int                  `json:"ordered_by,omitempty"`
	OrderedAt       *time.Time            `json:"ordered_at,omitempty"`
	ReceivedBy      *int                  `json:"received_by,omitempty"`
	ReceivedAt      *time.Time            `json:"received_at,omitempty"`
	CancelledAt     *time.Time            `json:"cancelled_at,omitempty"`
	TotalCost       decimal.Decimal       `json:"total_cost"`
	Lines           []PurchaseRequestLine `json:"lines,omitempty"`
}

type PurchaseRequestLine struct {
	ID                int              `json:"id"`
	PurchaseRequestID int              `json:"purchase_request_id"`
	LineNumber        int              `json:"line_number"`
	ItemID            int              `json:"item_id"`
	ItemName          string           `json:"item_name"`  // joined from items
	ShortCode         string           `json:"short_code"` // joined from items
	LocationID        int              `json:"location_id"`
	LocationName      string           `json:"location_name"` // joined from locations
	Qty               decimal.Decimal  `json:"qty"`
	UnitCost          *decimal.Decimal `json:"unit_cost,omitempty"`
	QtyReceived       decimal.Decimal  `json:"qty_received"`
}

// LineCost is qty × unit cost, or zero when the line is unpriced.
func (l PurchaseRequestLine) LineCost() decimal.Decimal {
	if l.UnitCost == nil {
		return decimal.Zero
	}
	return l.Qty.Mul(*l.UnitCost)
}

type PurchaseLineInput struct {
	ItemID     int
	LocationID int
	Qty        decimal.Decimal
	UnitCost   *decimal.Decimal
}

type CreatePurchaseInput struct {
	VendorID    int
	RequestedBy int
	Notes       string
	Lines       []PurchaseLineInput
}

// ReceiptLineInput overrides the received quantity of one line.
type ReceiptLineInput struct {
	ItemID      int
	LocationID  int
	QtyReceived decimal.Decimal
}

type PurchaseFilter struct {
	Status   PurchaseStatus
	VendorID int
}

// ValidateCreate checks a new purchase request before anything is written.
// Lines for the same item and location are merged, keeping the first unit cost.
func (in *CreatePurchaseInput) ValidateCreate() error {
	if in.VendorID <= 0 {
		return fmt.Errorf("%w: vendor is required", ErrInvalidInput)
	}
	if len(in.Lines) == 0 {
		return fmt.Errorf("%w: purchase request must have at least one line", ErrInvalidInput)
	}

	type lineKey struct{ item, location int }
	merged := make([]PurchaseLineInput, 0, len(in.Lines))
	index := make(map[lineKey]int)
	for _, l := range in.Lines {
		if err := ValidatePositive(fmt.Sprintf("qty for item %d", l.ItemID), l.Qty); err != nil {
			return err
		}
		if l.UnitCost != nil {
			if err := ValidateCost(fmt.Sprintf("unit_cost for item %d", l.ItemID), *l.UnitCost); err != nil {
				return err
			}
		}
		k := lineKey{l.ItemID, l.LocationID}
		if i, ok := index[k]; ok {
			merged[i].Qty = merged[i].Qty.Add(l.Qty)
			continue
		}
		index[k] = len(merged)
		merged = append(merged, l)
	}
	in.Lines = merged
	return nil
}

// PurchaseLinesFromSuggestions turns a suggested-orders report into purchase
// lines for vendorID: one line per suggestion that names the vendor and has a
// positive quantity, priced at the item cost. Quantities are rounded up to the
// storable scale.
func PurchaseLinesFromSuggestions(vendorID int, suggestions []SuggestedOrder) []PurchaseLineInput {
	var lines []PurchaseLineInput
	for _, s := range suggestions {
		if s.VendorID == nil || *s.VendorID != vendorID || !s.SuggestedQty.IsPositive() {
			continue
		}
		lines = append(lines, PurchaseLineInput{
			ItemID:     s.ItemID,
			LocationID: s.LocationID,
			Qty:        s.SuggestedQty.RoundCeil(QuantityScale),
			UnitCost:   s.UnitCost,
		})
	}
	return lines
}

// SumCost recomputes TotalCost from the lines.
func (p *PurchaseRequest) SumCost() {
	total := decimal.Zero
	for _, l := range p.Lines {
		total = total.Add(l.LineCost())
	}
	p.TotalCost = total
}

func (p *PurchaseRequest) transitionError(op string, to PurchaseStatus) error {
	return &TransitionError{Entity: "purchase request", ID: p.ID, Operation: op, From: string(p.Status), To: string(to)}
}

// Submit moves DRAFT → SUBMITTED.
func (p *PurchaseRequest) Submit(now time.Time) error {
	if p.Status != PurchaseDraft {
		return p.transitionError("submit", PurchaseSubmitted)
	}
	p.Status = PurchaseSubmitted
	p.SubmittedAt = &now
	return nil
}

func (p *PurchaseRequest) awaitingDecision() bool {
	return p.Status == PurchaseDraft || p.Status == PurchaseSubmitted
}

// Approve moves DRAFT or SUBMITTED → APPROVED.
func (p *PurchaseRequest) Approve(actor int, now time.Time) error {
	if !p.awaitingDecision() {
		return p.transitionError("approve", PurchaseApproved)
	}
	p.Status = PurchaseApproved
	p.ApprovedBy = &actor
	p.ApprovedAt = &now
	return nil
}

// Deny moves DRAFT or SUBMITTED → DENIED.
func (p *PurchaseRequest) Deny(actor int, reason string, now time.Time) error {
	if !p.awaitingDecision() {
		return p.transitionError("deny", PurchaseDenied)
	}
	p.Status = PurchaseDenied
	p.DeniedBy = &actor
	p.DeniedAt = &now
	p.DenialReason = reason
	return nil
}

// MarkOrdered moves APPROVED → ORDERED and records the vendor's PO number.
func (p *PurchaseRequest) MarkOrdered(actor int, poNumber string, now time.Time) error {
	if p.Status != PurchaseApproved {
		return p.transitionError("order", PurchaseOrdered)
	}
	p.Status = PurchaseOrdered
	p.OrderedBy = &actor
	p.OrderedAt = &now
	p.PONumber = poNumber
	return nil
}

// Receive moves ORDERED → RECEIVED and sets each line's received quantity.
// Lines without an entry in receipts are received in full; a zero receipt
// records a short shipment. Over-receipt is allowed.
func (p *PurchaseRequest) Receive(actor int, receipts []ReceiptLineInput, now time.Time) error {
	if p.Status != PurchaseOrdered {
		return p.transitionError("receive", PurchaseReceived)
	}

	type lineKey struct{ item, location int }
	byLine := make(map[lineKey]decimal.Decimal, len(receipts))
	for _, r := range receipts {
		k := lineKey{r.ItemID, r.LocationID}
		if !p.hasLine(r.ItemID, r.LocationID) {
			return fmt.Errorf("%w: item %d at location %d is not on purchase request %d",
				ErrInvalidInput, r.ItemID, r.LocationID, p.ID)
		}
		byLine[k] = r.QtyReceived
	}

	received := make([]decimal.Decimal, len(p.Lines))
	for i, l := range p.Lines {
		qty, ok := byLine[lineKey{l.ItemID, l.LocationID}]
		if !ok {
			qty = l.Qty
		}
		if err := ValidateQuantity(fmt.Sprintf("qty_received for item %d", l.ItemID), qty); err != nil {
			return err
		}
		received[i] = qty
	}
	for i := range p.Lines {
		p.Lines[i].QtyReceived = received[i]
	}

	p.Status = PurchaseReceived
	p.ReceivedBy = &actor
	p.ReceivedAt = &now
	return nil
}

// Cancel moves any state before RECEIVED, except DENIED, → CANCELLED.
func (p *PurchaseRequest) Cancel(now time.Time) error {
	switch p.Status {
	case PurchaseDraft, PurchaseSubmitted, PurchaseApproved, PurchaseOrdered:
	default:
		return p.transitionError("cancel", PurchaseCancelled)
	}
	p.Status = PurchaseCancelled
	p.CancelledAt = &now
	return nil
}

// Receipts returns the lines that put stock on hand.
func (p *PurchaseRequest) Receipts() []PurchaseRequestLine {
	var out []PurchaseRequestLine
	for _, l := range p.Lines {
		if l.QtyReceived.IsPositive() {
			out = append(out, l)
		}
	}
	return out
}

// ReceiptRef is the reference written on RECEIVE rows: the vendor PO number
// when one was recorded, else the request number.
func (p *PurchaseRequest) ReceiptRef() string {
	if p.PONumber != "" {
		return p.PONumber
	}
	return p.Number
}

func (p *PurchaseRequest) hasLine(itemID, locationID int) bool {
	for _, l := range p.Lines {
		if l.ItemID == itemID && l.LocationID == locationID {
			return true
		}
	}
	return false
}
