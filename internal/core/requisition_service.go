package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// approverRoles may approve or deny requisitions.
var approverRoles = []Role{RoleManager, RoleAdmin}

// RequisitionService moves stock between locations on request. Picking reserves
// stock at the source; completion turns the reservation into TRANSFER rows.
type RequisitionService interface {
	Create(ctx context.Context, in CreateRequisitionInput) (*Requisition, error)
	// Approve and Deny re-check the actor's role here; callers' checks are advisory.
	Approve(ctx context.Context, id int, actor Principal) (*Requisition, error)
	Deny(ctx context.Context, id int, actor Principal, reason string) (*Requisition, error)
	// Pick sets picked quantities (all lines in full when picks is empty) and
	// reserves them at the source location.
	Pick(ctx context.Context, id int, actor Principal, picks []PickInput) (*Requisition, error)
	Complete(ctx context.Context, id int, actor Principal) (*Requisition, error)
	Cancel(ctx context.Context, id int, actor Principal) (*Requisition, error)

	Get(ctx context.Context, id int) (*Requisition, error)
	List(ctx context.Context, filter RequisitionFilter) ([]Requisition, error)
	CheckAvailability(ctx context.Context, id int) (*Availability, error)
}

type requisitionService struct {
	pool *pgxpool.Pool
	inv  InventoryService
}

func NewRequisitionService(pool *pgxpool.Pool, inv InventoryService) RequisitionService {
	return &requisitionService{pool: pool, inv: inv}
}

const requisitionColumns = `
	r.id, r.number, r.from_location_id, fl.name, r.to_location_id, tl.name, r.requested_by, u.username,
	r.status, r.needed_by, r.notes, r.created_at, r.approved_by, r.approved_at, r.denied_by, r.denied_at,
	r.denial_reason, r.picked_by, r.picked_at, r.completed_by, r.completed_at, r.cancelled_at`

const requisitionJoins = `
	FROM requisitions r
	JOIN locations fl ON fl.id = r.from_location_id
	JOIN locations tl ON tl.id = r.to_location_id
	JOIN users u      ON u.id = r.requested_by`

func scanRequisition(row pgx.Row) (*Requisition, error) {
	r := &Requisition{}
	var status string
	err := row.Scan(&r.ID, &r.Number, &r.FromLocationID, &r.FromLocationName, &r.ToLocationID, &r.ToLocationName,
		&r.RequestedBy, &r.RequestedByName, &status, &r.NeededBy, &r.Notes, &r.CreatedAt,
		&r.ApprovedBy, &r.ApprovedAt, &r.DeniedBy, &r.DeniedAt, &r.DenialReason,
		&r.PickedBy, &r.PickedAt, &r.CompletedBy, &r.CompletedAt, &r.CancelledAt)
	if err != nil {
		return nil, err
	}
	r.Status = RequisitionStatus(status)
	return r, nil
}

// loadRequisitionLines reads the lines with the source location's current
// available quantity.
func loadRequisitionLines(ctx context.Context, q pgxRowsQuerier, r *Requisition) error {
	rows, err := q.Query(ctx, `
		SELECT rl.id, rl.requisition_id, rl.line_number, rl.item_id, i.name, i.short_code,
		       rl.qty_requested, rl.qty_picked,
		       COALESCE(sl.on_hand_qty - sl.reserved_qty, 0)
		FROM requisition_lines rl
		JOIN items i ON i.id = rl.item_id
		LEFT JOIN stock_levels sl ON sl.item_id = rl.item_id AND sl.location_id = $2
		WHERE rl.requisition_id = $1
		ORDER BY rl.line_number`, r.ID, r.FromLocationID)
	if err != nil {
		return fmt.Errorf("failed to query requisition lines: %w", err)
	}
	defer rows.Close()

	r.Lines = []RequisitionLine{}
	for rows.Next() {
		var l RequisitionLine
		var avail decimal.Decimal
		if err := rows.Scan(&l.ID, &l.RequisitionID, &l.LineNumber, &l.ItemID, &l.ItemName, &l.ShortCode,
			&l.QtyRequested, &l.QtyPicked, &avail); err != nil {
			return fmt.Errorf("failed to scan requisition line: %w", err)
		}
		l.AvailableQty = &avail
		r.Lines = append(r.Lines, l)
	}
	return rows.Err()
}

// lockRequisitionTx loads the requisition and holds its row lock until tx ends,
// so concurrent transitions serialize and the loser fails the state check.
func lockRequisitionTx(ctx context.Context, tx pgx.Tx, id int) (*Requisition, error) {
	r, err := scanRequisition(tx.QueryRow(ctx, `SELECT `+requisitionColumns+requisitionJoins+`
		WHERE r.id = $1
		FOR UPDATE OF r`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("requisition", id)
		}
		return nil, fmt.Errorf("failed to lock requisition %d: %w", id, err)
	}
	if err := loadRequisitionLines(ctx, tx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func requireApprover(actor Principal, op string) error {
	if !slices.Contains(approverRoles, actor.Role) {
		return fmt.Errorf("%w: %s requires MANAGER or ADMIN, %s is %s", ErrPermissionDenied, op, actor.Username, actor.Role)
	}
	return nil
}

func (s *requisitionService) Create(ctx context.Context, in CreateRequisitionInput) (_ *Requisition, err error) {
	ctx, span := startSpan(ctx, "RequisitionService.Create",
		attribute.Int("from_location_id", in.FromLocationID), attribute.Int("to_location_id", in.ToLocationID))
	defer endSpan(span, &err)

	if err := in.ValidateCreate(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, locID := range []int{in.FromLocationID, in.ToLocationID} {
		if err := requireLocation(ctx, tx, locID); err != nil {
			return nil, err
		}
	}
	for _, l := range in.Lines {
		if err := requireItem(ctx, tx, l.ItemID); err != nil {
			return nil, err
		}
	}

	number, err := nextNumberTx(ctx, tx, prefixRequisition, time.Now())
	if err != nil {
		return nil, err
	}

	var id int
	if err := tx.QueryRow(ctx, `
		INSERT INTO requisitions (number, from_location_id, to_location_id, requested_by, status, needed_by, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		number, in.FromLocationID, in.ToLocationID, in.RequestedBy, string(RequisitionPending),
		in.NeededBy, in.Notes).Scan(&id); err != nil {
		return nil, fmt.Errorf("failed to create requisition: %w", err)
	}

	for i, l := range in.Lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO requisition_lines (requisition_id, line_number, item_id, qty_requested)
			VALUES ($1, $2, $3, $4)`,
			id, i+1, l.ItemID, l.Qty); err != nil {
			return nil, fmt.Errorf("failed to insert requisition line %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s.Get(ctx, id)
}

// transition locks the requisition, applies fn inside the transaction and
// commits. fn performs the state change and any stock work.
func (s *requisitionService) transition(ctx context.Context, id int, fn func(tx pgx.Tx, r *Requisition) error) (*Requisition, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	r, err := lockRequisitionTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(tx, r); err != nil {
		return nil, err
	}
	if err := saveRequisitionTx(ctx, tx, r); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s.Get(ctx, id)
}

func saveRequisitionTx(ctx context.Context, tx pgx.Tx, r *Requisition) error {
	if _, err := tx.Exec(ctx, `
		UPDATE requisitions
		SET status = $2, approved_by = $3, approved_at = $4, denied_by = $5, denied_at = $6,
		    denial_reason = $7, picked_by = $8, picked_at = $9, completed_by = $10, completed_at = $11,
		    cancelled_at = $12
		WHERE id = $1`,
		r.ID, string(r.Status), r.ApprovedBy, r.ApprovedAt, r.DeniedBy, r.DeniedAt,
		r.DenialReason, r.PickedBy, r.PickedAt, r.CompletedBy, r.CompletedAt, r.CancelledAt); err != nil {
		return fmt.Errorf("failed to update requisition %d: %w", r.ID, err)
	}
	return nil
}

func (s *requisitionService) Approve(ctx context.Context, id int, actor Principal) (_ *Requisition, err error) {
	ctx, span := startSpan(ctx, "RequisitionService.Approve", attribute.Int("requisition_id", id))
	defer endSpan(span, &err)

	if err := requireApprover(actor, "approve"); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, func(_ pgx.Tx, r *Requisition) error {
		return r.Approve(actor.UserID, time.Now())
	})
}

func (s *requisitionService) Deny(ctx context.Context, id int, actor Principal, reason string) (_ *Requisition, err error) {
	ctx, span := startSpan(ctx, "RequisitionService.Deny", attribute.Int("requisition_id", id))
	defer endSpan(span, &err)

	if err := requireApprover(actor, "deny"); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, func(_ pgx.Tx, r *Requisition) error {
		return r.Deny(actor.UserID, reason, time.Now())
	})
}

func (s *requisitionService) Pick(ctx context.Context, id int, actor Principal, picks []PickInput) (_ *Requisition, err error) {
	ctx, span := startSpan(ctx, "RequisitionService.Pick", attribute.Int("requisition_id", id))
	defer endSpan(span, &err)

	return s.transition(ctx, id, func(tx pgx.Tx, r *Requisition) error {
		if err := r.Pick(actor.UserID, picks, time.Now()); err != nil {
			return err
		}
		for _, l := range r.Lines {
			if err := s.inv.ReserveTx(ctx, tx, l.ItemID, r.FromLocationID, l.QtyPicked); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `UPDATE requisition_lines SET qty_picked = $2 WHERE id = $1`,
				l.ID, l.QtyPicked); err != nil {
				return fmt.Errorf("failed to record picked quantity: %w", err)
			}
		}
		return nil
	})
}

func (s *requisitionService) Complete(ctx context.Context, id int, actor Principal) (_ *Requisition, err error) {
	ctx, span := startSpan(ctx, "RequisitionService.Complete", attribute.Int("requisition_id", id))
	defer endSpan(span, &err)

	return s.transition(ctx, id, func(tx pgx.Tx, r *Requisition) error {
		if err := r.Complete(actor.UserID, time.Now()); err != nil {
			return err
		}
		for _, l := range r.Transfers() {
			if err := s.inv.ReleaseTx(ctx, tx, l.ItemID, r.FromLocationID, l.QtyPicked); err != nil {
				return err
			}
			if _, err := s.inv.TransferTx(ctx, tx, TransferInput{
				ItemID:         l.ItemID,
				FromLocationID: r.FromLocationID,
				ToLocationID:   r.ToLocationID,
				Qty:            l.QtyPicked,
				Notes:          fmt.Sprintf("Requisition %s", r.Number),
				UserID:         actor.UserID,
				RequisitionID:  &r.ID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *requisitionService) Cancel(ctx context.Context, id int, actor Principal) (_ *Requisition, err error) {
	ctx, span := startSpan(ctx, "RequisitionService.Cancel", attribute.Int("requisition_id", id))
	defer endSpan(span, &err)

	return s.transition(ctx, id, func(tx pgx.Tx, r *Requisition) error {
		wasPicked := r.Status == RequisitionPicked
		if err := r.Cancel(time.Now()); err != nil {
			return err
		}
		if !wasPicked {
			return nil
		}
		for _, l := range r.Lines {
			if err := s.inv.ReleaseTx(ctx, tx, l.ItemID, r.FromLocationID, l.QtyPicked); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *requisitionService) Get(ctx context.Context, id int) (*Requisition, error) {
	r, err := scanRequisition(s.pool.QueryRow(ctx, `SELECT `+requisitionColumns+requisitionJoins+` WHERE r.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("requisition", id)
		}
		return nil, fmt.Errorf("failed to load requisition %d: %w", id, err)
	}
	if err := loadRequisitionLines(ctx, s.pool, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *requisitionService) List(ctx context.Context, f RequisitionFilter) ([]Requisition, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+requisitionColumns+requisitionJoins+`
		WHERE ($1 = '' OR r.status = $1)
		  AND ($2 = 0 OR r.from_location_id = $2 OR r.to_location_id = $2)
		  AND ($3 = 0 OR r.requested_by = $3)
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT 200`, string(f.Status), f.LocationID, f.RequestedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to query requisitions: %w", err)
	}
	defer rows.Close()

	out := []Requisition{}
	for rows.Next() {
		r, err := scanRequisition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan requisition: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *requisitionService) CheckAvailability(ctx context.Context, id int) (*Availability, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	res := &Availability{RequisitionID: id, AllAvailable: true, Lines: []AvailabilityLine{}}
	for _, l := range r.Lines {
		avail := decimal.Zero
		if l.AvailableQty != nil {
			avail = *l.AvailableQty
		}
		ok := avail.GreaterThanOrEqual(l.QtyRequested)
		res.AllAvailable = res.AllAvailable && ok
		res.Lines = append(res.Lines, AvailabilityLine{
			ItemID: l.ItemID, ItemName: l.ItemName, QtyRequested: l.QtyRequested,
			AvailableQty: avail, Sufficient: ok,
		})
	}
	return res, nil
}
