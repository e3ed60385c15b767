package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// InventoryService owns stock levels and the transaction ledger. Every quantity
// change goes through it, so stock_levels always equals the ledger fold.
type InventoryService interface {
	// Queries.
	GetStockLevels(ctx context.Context, filter StockFilter) ([]StockLevel, error)
	StockByItem(ctx context.Context, itemID int) ([]StockLevel, error)
	GetLevel(ctx context.Context, itemID, locationID int) (*StockLevel, error)
	Transactions(ctx context.Context, filter TransactionFilter) ([]InventoryTransaction, error)
	ReceivingHistory(ctx context.Context, limit int) ([]InventoryTransaction, error)
	// Reconcile compares stock_levels with a replay of the whole ledger.
	Reconcile(ctx context.Context) ([]ReconcileDiff, error)

	// Standalone movements (each runs in its own transaction).
	Receive(ctx context.Context, in ReceiveInput) (*InventoryTransaction, error)
	Issue(ctx context.Context, in IssueInput) (*InventoryTransaction, error)
	Transfer(ctx context.Context, in TransferInput) (*InventoryTransaction, error)
	// Adjust sets on-hand to an absolute quantity and records the delta as ADJUST.
	Adjust(ctx context.Context, in AdjustInput) (*InventoryTransaction, error)
	// UpdateParLevels applies each row independently and reports per-row errors.
	UpdateParLevels(ctx context.Context, updates []ParLevelUpdate) (*ParLevelResult, error)

	// TX-scoped operations: work within a caller-provided transaction.
	// Used by CountService, RequisitionService and PurchaseService to keep stock changes atomic
	// with their state transitions.

	// LockLevelTx returns the level for (item, location), creating it at zero
	// if needed, and holds a row lock until tx ends.
	LockLevelTx(ctx context.Context, tx pgx.Tx, itemID, locationID int) (*StockLevel, error)
	ReceiveTx(ctx context.Context, tx pgx.Tx, in ReceiveInput) (*InventoryTransaction, error)
	TransferTx(ctx context.Context, tx pgx.Tx, in TransferInput) (*InventoryTransaction, error)
	// SetCountedTx stamps last_counted_at/by. When emit is true and counted
	// differs from the locked on-hand it also sets on-hand to counted and writes
	// the COUNT_ADJUST for the difference; it returns nil when no row is written.
	SetCountedTx(ctx context.Context, tx pgx.Tx, level *StockLevel, counted decimal.Decimal,
		userID int, sessionID *int, notes string, emit bool) (*InventoryTransaction, error)
	// ReserveTx holds qty against the level's available quantity.
	ReserveTx(ctx context.Context, tx pgx.Tx, itemID, locationID int, qty decimal.Decimal) error
	// ReleaseTx returns qty of a reservation, never below zero.
	ReleaseTx(ctx context.Context, tx pgx.Tx, itemID, locationID int, qty decimal.Decimal) error
}

type inventoryService struct {
	pool *pgxpool.Pool
}

func NewInventoryService(pool *pgxpool.Pool) InventoryService {
	return &inventoryService{pool: pool}
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgxRowsQuerier is the multi-row counterpart of pgxQuerier.
type pgxRowsQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// requireItem fails with ErrNotFound unless the item exists and is active.
func requireItem(ctx context.Context, q pgxQuerier, itemID int) error {
	var ok bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM items WHERE id = $1 AND is_active)`, itemID).Scan(&ok); err != nil {
		return fmt.Errorf("failed to check item %d: %w", itemID, err)
	}
	if !ok {
		return notFound("item", itemID)
	}
	return nil
}

// requireLocation fails with ErrNotFound unless the location exists and is active.
func requireLocation(ctx context.Context, q pgxQuerier, locationID int) error {
	var ok bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM locations WHERE id = $1 AND is_active)`, locationID).Scan(&ok); err != nil {
		return fmt.Errorf("failed to check location %d: %w", locationID, err)
	}
	if !ok {
		return notFound("location", locationID)
	}
	return nil
}

const levelColumns = `
	sl.id, sl.item_id, i.name, i.short_code, sl.location_id, l.name,
	sl.on_hand_qty, sl.reserved_qty, sl.par_min, sl.par_max,
	sl.last_counted_at, sl.last_counted_by, sl.updated_at`

const levelJoins = `
	FROM stock_levels sl
	JOIN items i     ON i.id = sl.item_id
	JOIN locations l ON l.id = sl.location_id`

func scanLevel(row pgx.Row) (*StockLevel, error) {
	var sl StockLevel
	err := row.Scan(&sl.ID, &sl.ItemID, &sl.ItemName, &sl.ShortCode, &sl.LocationID, &sl.LocationName,
		&sl.OnHandQty, &sl.ReservedQty, &sl.ParMin, &sl.ParMax,
		&sl.LastCountedAt, &sl.LastCountedBy, &sl.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sl, nil
}

func collectLevels(rows pgx.Rows) ([]StockLevel, error) {
	defer rows.Close()
	var levels []StockLevel
	for rows.Next() {
		sl, err := scanLevel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock level: %w", err)
		}
		levels = append(levels, *sl)
	}
	return levels, rows.Err()
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *inventoryService) GetStockLevels(ctx context.Context, f StockFilter) ([]StockLevel, error) {
	where := []string{"i.is_active", "l.is_active"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.ItemID != 0 {
		where = append(where, "sl.item_id = "+arg(f.ItemID))
	}
	if f.LocationID != 0 {
		where = append(where, "sl.location_id = "+arg(f.LocationID))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		where = append(where, "(i.name ILIKE "+p+" OR i.short_code ILIKE "+p+")")
	}
	if f.BelowPar {
		where = append(where, "sl.par_min > 0 AND sl.on_hand_qty < sl.par_min")
	}

	rows, err := s.pool.Query(ctx, `SELECT `+levelColumns+levelJoins+`
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY i.name, l.name`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock levels: %w", err)
	}
	return collectLevels(rows)
}

func (s *inventoryService) StockByItem(ctx context.Context, itemID int) ([]StockLevel, error) {
	if err := requireItem(ctx, s.pool, itemID); err != nil {
		return nil, err
	}
	return s.GetStockLevels(ctx, StockFilter{ItemID: itemID})
}

func (s *inventoryService) GetLevel(ctx context.Context, itemID, locationID int) (*StockLevel, error) {
	sl, err := scanLevel(s.pool.QueryRow(ctx, `SELECT `+levelColumns+levelJoins+`
		WHERE sl.item_id = $1 AND sl.location_id = $2`, itemID, locationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("stock level", fmt.Sprintf("item %d at location %d", itemID, locationID))
		}
		return nil, fmt.Errorf("failed to load stock level: %w", err)
	}
	return sl, nil
}

func (s *inventoryService) Transactions(ctx context.Context, f TransactionFilter) ([]InventoryTransaction, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.ItemID != 0 {
		where = append(where, "t.item_id = "+arg(f.ItemID))
	}
	if f.LocationID != 0 {
		p := arg(f.LocationID)
		where = append(where, "(t.from_location_id = "+p+" OR t.to_location_id = "+p+")")
	}
	if f.Type != "" {
		where = append(where, "t.type = "+arg(string(f.Type)))
	}
	if f.Since != nil {
		where = append(where, "t.created_at >= "+arg(*f.Since))
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM inventory_transactions t
		JOIN items i ON i.id = t.item_id
		`+clause+`
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT `+arg(limit), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []InventoryTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *inventoryService) ReceivingHistory(ctx context.Context, limit int) ([]InventoryTransaction, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.Transactions(ctx, TransactionFilter{Type: TxReceive, Limit: limit})
}

func (s *inventoryService) Reconcile(ctx context.Context) (_ []ReconcileDiff, err error) {
	ctx, span := startSpan(ctx, "InventoryService.Reconcile")
	defer endSpan(span, &err)

	// REPEATABLE READ so the ledger and the levels come from one snapshot.
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM inventory_transactions t
		JOIN items i ON i.id = t.item_id
		ORDER BY t.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	var txs []InventoryTransaction
	for rows.Next() {
		t, scanErr := scanTransaction(rows)
		if scanErr != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan transaction: %w", scanErr)
		}
		txs = append(txs, t)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	ledger, err := Replay(txs)
	if err != nil {
		return nil, err
	}

	rows, err = tx.Query(ctx, `SELECT item_id, location_id, on_hand_qty FROM stock_levels ORDER BY item_id, location_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock levels: %w", err)
	}
	defer rows.Close()

	var diffs []ReconcileDiff
	seen := make(map[StockKey]bool)
	for rows.Next() {
		var k StockKey
		var stored decimal.Decimal
		if err = rows.Scan(&k.ItemID, &k.LocationID, &stored); err != nil {
			return nil, fmt.Errorf("failed to scan stock level: %w", err)
		}
		seen[k] = true
		if folded := ledger[k]; !folded.Equal(stored) {
			diffs = append(diffs, ReconcileDiff{ItemID: k.ItemID, LocationID: k.LocationID, Stored: stored, Ledger: folded})
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stock levels: %w", err)
	}
	for k, folded := range ledger {
		if !seen[k] && !folded.IsZero() {
			diffs = append(diffs, ReconcileDiff{ItemID: k.ItemID, LocationID: k.LocationID, Stored: decimal.Zero, Ledger: folded})
		}
	}
	return diffs, nil
}

// ── Standalone movements ─────────────────────────────────────────────────────

// inTx runs fn in a new transaction and commits it when fn succeeds.
func (s *inventoryService) inTx(ctx context.Context, fn func(tx pgx.Tx) (*InventoryTransaction, error)) (*InventoryTransaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	t, err := fn(tx)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return t, nil
}

func (s *inventoryService) Receive(ctx context.Context, in ReceiveInput) (_ *InventoryTransaction, err error) {
	ctx, span := startSpan(ctx, "InventoryService.Receive",
		attribute.Int("item_id", in.ItemID), attribute.Int("location_id", in.ToLocationID))
	defer endSpan(span, &err)

	return s.inTx(ctx, func(tx pgx.Tx) (*InventoryTransaction, error) {
		return s.ReceiveTx(ctx, tx, in)
	})
}

func (s *inventoryService) ReceiveTx(ctx context.Context, tx pgx.Tx, in ReceiveInput) (*InventoryTransaction, error) {
	if err := ValidatePositive("qty", in.Qty); err != nil {
		return nil, err
	}
	if in.Cost != nil {
		if err := ValidateCost("cost", *in.Cost); err != nil {
			return nil, err
		}
	}

	level, err := s.LockLevelTx(ctx, tx, in.ItemID, in.ToLocationID)
	if err != nil {
		return nil, err
	}
	if err := addOnHandTx(ctx, tx, level.ID, in.Qty); err != nil {
		return nil, err
	}
	return appendTransactionTx(ctx, tx, InventoryTransaction{
		Type: TxReceive, ItemID: in.ItemID, ToLocationID: &in.ToLocationID, Qty: in.Qty,
		Cost: in.Cost, VendorID: in.VendorID, ReceiptRef: in.ReceiptRef, Notes: in.Notes, UserID: userRef(in.UserID),
	})
}

func (s *inventoryService) Issue(ctx context.Context, in IssueInput) (_ *InventoryTransaction, err error) {
	ctx, span := startSpan(ctx, "InventoryService.Issue",
		attribute.Int("item_id", in.ItemID), attribute.Int("location_id", in.FromLocationID))
	defer endSpan(span, &err)

	if err := ValidatePositive("qty", in.Qty); err != nil {
		return nil, err
	}

	return s.inTx(ctx, func(tx pgx.Tx) (*InventoryTransaction, error) {
		level, err := s.LockLevelTx(ctx, tx, in.ItemID, in.FromLocationID)
		if err != nil {
			return nil, err
		}
		if err := checkAvailable(level, in.Qty); err != nil {
			return nil, err
		}
		if err := addOnHandTx(ctx, tx, level.ID, in.Qty.Neg()); err != nil {
			return nil, err
		}
		return appendTransactionTx(ctx, tx, InventoryTransaction{
			Type: TxIssue, ItemID: in.ItemID, FromLocationID: &in.FromLocationID, Qty: in.Qty,
			WorkOrderRef: in.WorkOrderRef, Notes: in.Notes, UserID: userRef(in.UserID),
		})
	})
}

func (s *inventoryService) Transfer(ctx context.Context, in TransferInput) (_ *InventoryTransaction, err error) {
	ctx, span := startSpan(ctx, "InventoryService.Transfer", attribute.Int("item_id", in.ItemID))
	defer endSpan(span, &err)

	return s.inTx(ctx, func(tx pgx.Tx) (*InventoryTransaction, error) {
		return s.TransferTx(ctx, tx, in)
	})
}

func (s *inventoryService) Adjust(ctx context.Context, in AdjustInput) (_ *InventoryTransaction, err error) {
	ctx, span := startSpan(ctx, "InventoryService.Adjust",
		attribute.Int("item_id", in.ItemID), attribute.Int("location_id", in.LocationID))
	defer endSpan(span, &err)

	if err := ValidateQuantity("qty", in.NewQty); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, fmt.Errorf("%w: an adjustment needs a reason", ErrInvalidInput)
	}

	return s.inTx(ctx, func(tx pgx.Tx) (*InventoryTransaction, error) {
		level, err := s.LockLevelTx(ctx, tx, in.ItemID, in.LocationID)
		if err != nil {
			return nil, err
		}
		if err := setOnHandTx(ctx, tx, level.ID, in.NewQty); err != nil {
			return nil, err
		}
		resulting := in.NewQty
		return appendTransactionTx(ctx, tx, InventoryTransaction{
			Type: TxAdjust, ItemID: in.ItemID, ToLocationID: &in.LocationID,
			Qty: in.NewQty.Sub(level.OnHandQty), ResultingQty: &resulting,
			Notes: in.Reason, UserID: userRef(in.UserID),
		})
	})
}

func (s *inventoryService) UpdateParLevels(ctx context.Context, updates []ParLevelUpdate) (*ParLevelResult, error) {
	res := &ParLevelResult{Updated: []StockLevel{}, Errors: []ParLevelError{}}
	for i, u := range updates {
		sl, err := s.updateParLevel(ctx, u)
		if err != nil {
			res.Errors = append(res.Errors, ParLevelError{Index: i, ItemID: u.ItemID, LocationID: u.LocationID, Error: err.Error()})
			continue
		}
		res.Updated = append(res.Updated, *sl)
	}
	return res, nil
}

func (s *inventoryService) updateParLevel(ctx context.Context, u ParLevelUpdate) (*StockLevel, error) {
	if err := (StockLevel{ParMin: u.ParMin, ParMax: u.ParMax}).Validate(); err != nil {
		return nil, err
	}
	if err := requireItem(ctx, s.pool, u.ItemID); err != nil {
		return nil, err
	}
	if err := requireLocation(ctx, s.pool, u.LocationID); err != nil {
		return nil, err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO stock_levels (item_id, location_id, par_min, par_max)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (item_id, location_id)
		DO UPDATE SET par_min = EXCLUDED.par_min, par_max = EXCLUDED.par_max, updated_at = now()
	`, u.ItemID, u.LocationID, u.ParMin, u.ParMax)
	if err != nil {
		return nil, fmt.Errorf("failed to update par level: %w", err)
	}
	return s.GetLevel(ctx, u.ItemID, u.LocationID)
}

// ── TX-scoped operations ─────────────────────────────────────────────────────

func (s *inventoryService) LockLevelTx(ctx context.Context, tx pgx.Tx, itemID, locationID int) (*StockLevel, error) {
	if err := requireItem(ctx, tx, itemID); err != nil {
		return nil, err
	}
	if err := requireLocation(ctx, tx, locationID); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO stock_levels (item_id, location_id)
		VALUES ($1, $2)
		ON CONFLICT (item_id, location_id) DO NOTHING
	`, itemID, locationID); err != nil {
		return nil, fmt.Errorf("failed to create stock level: %w", err)
	}

	sl, err := scanLevel(tx.QueryRow(ctx, `SELECT `+levelColumns+levelJoins+`
		WHERE sl.item_id = $1 AND sl.location_id = $2
		FOR UPDATE OF sl`, itemID, locationID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock stock level: %w", err)
	}
	return sl, nil
}

func (s *inventoryService) TransferTx(ctx context.Context, tx pgx.Tx, in TransferInput) (*InventoryTransaction, error) {
	if err := ValidatePositive("qty", in.Qty); err != nil {
		return nil, err
	}
	if in.FromLocationID == in.ToLocationID {
		return nil, fmt.Errorf("%w: from_location and to_location must differ", ErrInvalidInput)
	}

	// Lock in a fixed order so two opposite transfers cannot deadlock.
	first, second := in.FromLocationID, in.ToLocationID
	if second < first {
		first, second = second, first
	}
	levels := make(map[int]*StockLevel, 2)
	for _, locID := range []int{first, second} {
		sl, err := s.LockLevelTx(ctx, tx, in.ItemID, locID)
		if err != nil {
			return nil, err
		}
		levels[locID] = sl
	}

	src, dst := levels[in.FromLocationID], levels[in.ToLocationID]
	if err := checkAvailable(src, in.Qty); err != nil {
		return nil, err
	}
	if err := addOnHandTx(ctx, tx, src.ID, in.Qty.Neg()); err != nil {
		return nil, err
	}
	if err := addOnHandTx(ctx, tx, dst.ID, in.Qty); err != nil {
		return nil, err
	}
	return appendTransactionTx(ctx, tx, InventoryTransaction{
		Type: TxTransfer, ItemID: in.ItemID, FromLocationID: &in.FromLocationID, ToLocationID: &in.ToLocationID,
		Qty: in.Qty, Notes: in.Notes, UserID: userRef(in.UserID), RequisitionID: in.RequisitionID,
	})
}

func (s *inventoryService) SetCountedTx(ctx context.Context, tx pgx.Tx, level *StockLevel, counted decimal.Decimal,
	userID int, sessionID *int, notes string, emit bool) (*InventoryTransaction, error) {

	if err := ValidateQuantity("counted_qty", counted); err != nil {
		return nil, err
	}
	if !emit || counted.Equal(level.OnHandQty) {
		if _, err := tx.Exec(ctx, `
			UPDATE stock_levels SET last_counted_at = now(), last_counted_by = $2 WHERE id = $1
		`, level.ID, userRef(userID)); err != nil {
			return nil, fmt.Errorf("failed to stamp count: %w", err)
		}
		return nil, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE stock_levels
		SET on_hand_qty = $2, last_counted_at = now(), last_counted_by = $3, updated_at = now()
		WHERE id = $1
	`, level.ID, counted, userRef(userID)); err != nil {
		return nil, fmt.Errorf("failed to set counted quantity: %w", err)
	}
	resulting := counted
	return appendTransactionTx(ctx, tx, InventoryTransaction{
		Type: TxCountAdjust, ItemID: level.ItemID, ToLocationID: &level.LocationID,
		Qty: counted.Sub(level.OnHandQty), ResultingQty: &resulting,
		Notes: notes, UserID: userRef(userID), CountSessionID: sessionID,
	})
}

func (s *inventoryService) ReserveTx(ctx context.Context, tx pgx.Tx, itemID, locationID int, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return nil
	}
	level, err := s.LockLevelTx(ctx, tx, itemID, locationID)
	if err != nil {
		return err
	}
	if err := checkAvailable(level, qty); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE stock_levels SET reserved_qty = reserved_qty + $2, updated_at = now() WHERE id = $1
	`, level.ID, qty); err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}
	return nil
}

func (s *inventoryService) ReleaseTx(ctx context.Context, tx pgx.Tx, itemID, locationID int, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return nil
	}
	if _, err := tx.Exec(ctx, `
		UPDATE stock_levels
		SET reserved_qty = GREATEST(reserved_qty - $3, 0), updated_at = now()
		WHERE item_id = $1 AND location_id = $2
	`, itemID, locationID, qty); err != nil {
		return fmt.Errorf("failed to release reservation: %w", err)
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func checkAvailable(level *StockLevel, qty decimal.Decimal) error {
	if avail := AvailableQty(*level); avail.LessThan(qty) {
		return &InsufficientStockError{
			ItemID: level.ItemID, LocationID: level.LocationID,
			Requested: qty.String(), Available: avail.String(),
		}
	}
	return nil
}

func addOnHandTx(ctx context.Context, tx pgx.Tx, levelID int, delta decimal.Decimal) error {
	if _, err := tx.Exec(ctx, `
		UPDATE stock_levels SET on_hand_qty = on_hand_qty + $2, updated_at = now() WHERE id = $1
	`, levelID, delta); err != nil {
		return fmt.Errorf("failed to update on-hand quantity: %w", err)
	}
	return nil
}

func setOnHandTx(ctx context.Context, tx pgx.Tx, levelID int, qty decimal.Decimal) error {
	if _, err := tx.Exec(ctx, `
		UPDATE stock_levels SET on_hand_qty = $2, updated_at = now() WHERE id = $1
	`, levelID, qty); err != nil {
		return fmt.Errorf("failed to set on-hand quantity: %w", err)
	}
	return nil
}

// userRef maps an unset user id to NULL.
func userRef(id int) *int {
	if id == 0 {
		return nil
	}
	return &id
}
