package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

// PurchaseService orders stock from vendors. Receiving a purchase request puts
// every received line on hand through InventoryService in one transaction.
type PurchaseService interface {
	Create(ctx context.Context, in CreatePurchaseInput) (*PurchaseRequest, error)
	// CreateFromSuggestions drafts a request for vendorID from the current
	// suggested-orders report.
	CreateFromSuggestions(ctx context.Context, vendorID, requestedBy int, notes string) (*PurchaseRequest, error)
	Submit(ctx context.Context, id int, actor Principal) (*PurchaseRequest, error)
	// Approve and Deny re-check the actor's role here; callers' checks are advisory.
	Approve(ctx context.Context, id int, actor Principal) (*PurchaseRequest, error)
	Deny(ctx context.Context, id int, actor Principal, reason string) (*PurchaseRequest, error)
	MarkOrdered(ctx context.Context, id int, actor Principal, poNumber string) (*PurchaseRequest, error)
	Receive(ctx context.Context, id int, actor Principal, receipts []ReceiptLineInput) (*PurchaseRequest, error)
	Cancel(ctx context.Context, id int, actor Principal) (*PurchaseRequest, error)

	Get(ctx context.Context, id int) (*PurchaseRequest, error)
	List(ctx context.Context, filter PurchaseFilter) ([]PurchaseRequest, error)
}

type purchaseService struct {
	pool    *pgxpool.Pool
	inv     InventoryService
	reports ReportingService
}

func NewPurchaseService(pool *pgxpool.Pool, inv InventoryService, reports ReportingService) PurchaseService {
	return &purchaseService{pool: pool, inv: inv, reports: reports}
}

const purchaseColumns = `
	p.id, p.number, p.vendor_id, v.name, p.requested_by, u.username, p.status, p.notes, p.po_number,
	p.created_at, p.submitted_at, p.approved_by, p.approved_at, p.denied_by, p.denied_at, p.denial_reason,
	p.ordered_by, p.ordered_at, p.received_by, p.received_at, p.cancelled_at`

const purchaseJoins = `
	FROM purchase_requests p
	JOIN vendors v ON v.id = p.vendor_id
	JOIN users u   ON u.id = p.requested_by`

func scanPurchase(row pgx.Row) (*PurchaseRequest, error) {
	p := &PurchaseRequest{}
	var status string
	err := row.Scan(&p.ID, &p.Number, &p.VendorID, &p.VendorName, &p.RequestedBy, &p.RequestedByName,
		&status, &p.Notes, &p.PONumber, &p.CreatedAt, &p.SubmittedAt, &p.ApprovedBy, &p.ApprovedAt,
		&p.DeniedBy, &p.DeniedAt, &p.DenialReason, &p.OrderedBy, &p.OrderedAt,
		&p.ReceivedBy, &p.ReceivedAt, &p.CancelledAt)
	if err != nil {
		return nil, err
	}
	p.Status = PurchaseStatus(status)
	return p, nil
}

func loadPurchaseLines(ctx context.Context, q pgxRowsQuerier, p *PurchaseRequest) error {
	rows, err := q.Query(ctx, `
		SELECT pl.id, pl.purchase_request_id, pl.line_number, pl.item_id, i.name, i.short_code,
		       pl.location_id, l.name, pl.qty, pl.unit_cost, pl.qty_received
		FROM purchase_request_lines pl
		JOIN items i     ON i.id = pl.item_id
		JOIN locations l ON l.id = pl.location_id
		WHERE pl.purchase_request_id = $1
		ORDER BY pl.line_number`, p.ID)
	if err != nil {
		return fmt.Errorf("failed to query purchase request lines: %w", err)
	}
	defer rows.Close()

	p.Lines = []PurchaseRequestLine{}
	for rows.Next() {
		var l PurchaseRequestLine
		if err := rows.Scan(&l.ID, &l.PurchaseRequestID, &l.LineNumber, &l.ItemID, &l.ItemName, &l.ShortCode,
			&l.LocationID, &l.LocationName, &l.Qty, &l.UnitCost, &l.QtyReceived); err != nil {
			return fmt.Errorf("failed to scan purchase request line: %w", err)
		}
		p.Lines = append(p.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	p.SumCost()
	return nil
}

// lockPurchaseTx loads the request and holds its row lock until tx ends.
func lockPurchaseTx(ctx context.Context, tx pgx.Tx, id int) (*PurchaseRequest, error) {
	p, err := scanPurchase(tx.QueryRow(ctx, `SELECT `+purchaseColumns+purchaseJoins+`
		WHERE p.id = $1
		FOR UPDATE OF p`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("purchase request", id)
		}
		return nil, fmt.Errorf("failed to lock purchase request %d: %w", id, err)
	}
	if err := loadPurchaseLines(ctx, tx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func requireVendor(ctx context.Context, q pgxQuerier, vendorID int) error {
	var ok bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM vendors WHERE id = $1 AND is_active)`, vendorID).Scan(&ok); err != nil {
		return fmt.Errorf("failed to check vendor %d: %w", vendorID, err)
	}
	if !ok {
		return notFound("vendor", vendorID)
	}
	return nil
}

func (s *purchaseService) Create(ctx context.Context, in CreatePurchaseInput) (_ *PurchaseRequest, err error) {
	ctx, span := startSpan(ctx, "PurchaseService.Create", attribute.Int("vendor_id", in.VendorID))
	defer endSpan(span, &err)

	if err := in.ValidateCreate(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := requireVendor(ctx, tx, in.VendorID); err != nil {
		return nil, err
	}
	for _, l := range in.Lines {
		if err := requireItem(ctx, tx, l.ItemID); err != nil {
			return nil, err
		}
		if err := requireLocation(ctx, tx, l.LocationID); err != nil {
			return nil, err
		}
	}

	number, err := nextNumberTx(ctx, tx, prefixPurchase, time.Now())
	if err != nil {
		return nil, err
	}

	var id int
	if err := tx.QueryRow(ctx, `
		INSERT INTO purchase_requests (number, vendor_id, requested_by, status, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		number, in.VendorID, in.RequestedBy, string(PurchaseDraft), in.Notes).Scan(&id); err != nil {
		return nil, fmt.Errorf("failed to create purchase request: %w", err)
	}

	for i, l := range in.Lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO purchase_request_lines (purchase_request_id, line_number, item_id, location_id, qty, unit_cost)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			id, i+1, l.ItemID, l.LocationID, l.Qty, l.UnitCost); err != nil {
			return nil, fmt.Errorf("failed to insert purchase request line %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *purchaseService) CreateFromSuggestions(ctx context.Context, vendorID, requestedBy int, notes string) (_ *PurchaseRequest, err error) {
	ctx, span := startSpan(ctx, "PurchaseService.CreateFromSuggestions", attribute.Int("vendor_id", vendorID))
	defer endSpan(span, &err)

	if vendorID <= 0 {
		return nil, fmt.Errorf("%w: vendor is required", ErrInvalidInput)
	}
	report, err := s.reports.SuggestedOrders(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	lines := PurchaseLinesFromSuggestions(vendorID, report.Suggestions)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: nothing to order from vendor %d", ErrInvalidInput, vendorID)
	}
	return s.Create(ctx, CreatePurchaseInput{VendorID: vendorID, RequestedBy: requestedBy, Notes: notes, Lines: lines})
}

// transition locks the request, applies fn inside the transaction and commits.
func (s *purchaseService) transition(ctx context.Context, id int, fn func(tx pgx.Tx, p *PurchaseRequest) error) (*PurchaseRequest, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := lockPurchaseTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(tx, p); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE purchase_requests
		SET status = $2, po_number = $3, submitted_at = $4, approved_by = $5, approved_at = $6,
		    denied_by = $7, denied_at = $8, denial_reason = $9, ordered_by = $10, ordered_at = $11,
		    received_by = $12, received_at = $13, cancelled_at = $14
		WHERE id = $1`,
		p.ID, string(p.Status), p.PONumber, p.SubmittedAt, p.ApprovedBy, p.ApprovedAt,
		p.DeniedBy, p.DeniedAt, p.DenialReason, p.OrderedBy, p.OrderedAt,
		p.ReceivedBy, p.ReceivedAt, p.CancelledAt); err != nil {
		return nil, fmt.Errorf("failed to update purchase request %d: %w", p.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *purchaseService) Submit(ctx context.Context, id int, actor Principal) (_ *PurchaseRequest, err error) {
	ctx, span := startSpan(ctx, "PurchaseService.Submit", attribute.Int("purchase_request_id", id))
	defer endSpan(span, &err)

	return s.transition(ctx, id, func(_ pgx.Tx, p *PurchaseRequest) error {
		return p.Submit(time.Now())
	})
}

func (s *purchaseService) Approve(ctx context.Context, id int, actor Principal) (_ *PurchaseRequest, err error) {
	ctx, span := startSpan(ctx, "PurchaseService.Approve", attribute.Int("purchase_request_id", id))
	defer endSpan(span, &err)

	if err := requireApprover(actor, "approve"); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, func(_ pgx.Tx, p *PurchaseRequest) error {
		return p.Approve(actor.UserID, time.Now())
	})
}

func (s *purchaseService) Deny(ctx context.Context, id int, actor Principal, reason string) (_ *PurchaseRequest, err error) {
	ctx, span := startSpan(ctx, "PurchaseService.Deny", attribute.Int("purchase_request_id", id))
	defer endSpan(span, &err)

	if err := requireApprover(actor, "deny"); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, func(_ pgx.Tx, p *PurchaseRequest) error {
		return p.Deny(actor.UserID, reason, time.Now())
	})
}

func (s *purchaseService) MarkOrdered(ctx context.Context, id int, actor Principal, poNumber string) (_ *PurchaseRequest, err error) {
	ctx, span := startSpan(ctx, "PurchaseService.MarkOrdered", attribute.Int("purchase_request_id", id))
	defer endSpan(span, &err)

	return s.transition(ctx, id, func(_ pgx.Tx, p *PurchaseRequest) error {
		return p.MarkOrdered(actor.UserID, poNumber, time.Now())
	})
}

func (s *purchaseService) Receive(ctx context.Context, id int, actor Principal, receipts []ReceiptLineInput) (_ *PurchaseRequest, err error) {
	ctx, span := startSpan(ctx, "PurchaseService.Receive", attribute.Int("purchase_request_id", id))
	defer endSpan(span, &err)

	return s.transition(ctx, id, func(tx pgx.Tx, p *PurchaseRequest) error {
		if err := p.Receive(actor.UserID, receipts, time.Now()); err != nil {
			return err
		}
		for _, l := range p.Lines {
			if _, err := tx.Exec(ctx, `UPDATE purchase_request_lines SET qty_received = $2 WHERE id = $1`,
				l.ID, l.QtyReceived); err != nil {
				return fmt.Errorf("failed to record received quantity: %w", err)
			}
		}
		for _, l := range p.Receipts() {
			if _, err := s.inv.ReceiveTx(ctx, tx, ReceiveInput{
				ItemID:       l.ItemID,
				ToLocationID: l.LocationID,
				Qty:          l.QtyReceived,
				Cost:         l.UnitCost,
				VendorID:     &p.VendorID,
				ReceiptRef:   p.ReceiptRef(),
				Notes:        fmt.Sprintf("Purchase request %s", p.Number),
				UserID:       actor.UserID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *purchaseService) Cancel(ctx context.Context, id int, actor Principal) (_ *PurchaseRequest, err error) {
	ctx, span := startSpan(ctx, "PurchaseService.Cancel", attribute.Int("purchase_request_id", id))
	defer endSpan(span, &err)

	return s.transition(ctx, id, func(_ pgx.Tx, p *PurchaseRequest) error {
		return p.Cancel(time.Now())
	})
}

func (s *purchaseService) Get(ctx context.Context, id int) (*PurchaseRequest, error) {
	p, err := scanPurchase(s.pool.QueryRow(ctx, `SELECT `+purchaseColumns+purchaseJoins+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("purchase request", id)
		}
		return nil, fmt.Errorf("failed to load purchase request %d: %w", id, err)
	}
	if err := loadPurchaseLines(ctx, s.pool, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *purchaseService) List(ctx context.Context, f PurchaseFilter) ([]PurchaseRequest, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+purchaseColumns+purchaseJoins+`
		WHERE ($1 = '' OR p.status = $1)
		  AND ($2 = 0 OR p.vendor_id = $2)
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT 200`, string(f.Status), f.VendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchase requests: %w", err)
	}
	defer rows.Close()

	out := []PurchaseRequest{}
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase request: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
