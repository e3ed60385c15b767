package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// StockKey identifies one (item, location) pair.
type StockKey struct {
	ItemID     int
	LocationID int
}

// OnHandMap is on-hand quantity per (item, location).
type OnHandMap map[StockKey]decimal.Decimal

// ApplyTransaction folds one ledger entry into onHand.
func ApplyTransaction(onHand OnHandMap, t InventoryTransaction) error {
	return foldTransaction(onHand, t, false)
}

// RevertTransaction undoes one ledger entry, walking onHand back in time.
func RevertTransaction(onHand OnHandMap, t InventoryTransaction) error {
	return foldTransaction(onHand, t, true)
}

// Replay folds txs, in order, into the on-hand quantities they imply. Every
// stored stock level must equal its entry in the result.
func Replay(txs []InventoryTransaction) (OnHandMap, error) {
	onHand := make(OnHandMap)
	for _, t := range txs {
		if err := ApplyTransaction(onHand, t); err != nil {
			return nil, err
		}
	}
	return onHand, nil
}

func foldTransaction(onHand OnHandMap, t InventoryTransaction, reverse bool) error {
	add := func(loc *int, qty decimal.Decimal) {
		k := StockKey{ItemID: t.ItemID, LocationID: *loc}
		if reverse {
			qty = qty.Neg()
		}
		onHand[k] = onHand[k].Add(qty)
	}

	switch t.Type {
	case TxReceive:
		if t.ToLocationID == nil {
			return fmt.Errorf("%w: RECEIVE transaction %d has no to_location", ErrInvalidInput, t.ID)
		}
		add(t.ToLocationID, t.Qty)
	case TxIssue:
		if t.FromLocationID == nil {
			return fmt.Errorf("%w: ISSUE transaction %d has no from_location", ErrInvalidInput, t.ID)
		}
		add(t.FromLocationID, t.Qty.Neg())
	case TxTransfer:
		if t.FromLocationID == nil || t.ToLocationID == nil {
			return fmt.Errorf("%w: TRANSFER transaction %d needs both locations", ErrInvalidInput, t.ID)
		}
		add(t.FromLocationID, t.Qty.Neg())
		add(t.ToLocationID, t.Qty)
	case TxAdjust, TxCountAdjust:
		if t.ToLocationID == nil {
			return fmt.Errorf("%w: %s transaction %d has no location", ErrInvalidInput, t.Type, t.ID)
		}
		add(t.ToLocationID, t.Qty)
	default:
		return fmt.Errorf("%w: unknown transaction type %q", ErrInvalidInput, t.Type)
	}
	return nil
}

// appendTransactionTx writes one ledger row inside the caller's transaction.
// Ledger rows are never updated or deleted.
func appendTransactionTx(ctx context.Context, tx pgx.Tx, t InventoryTransaction) (*InventoryTransaction, error) {
	err := tx.QueryRow(ctx, `
		INSERT INTO inventory_transactions
			(type, item_id, from_location_id, to_location_id, qty, resulting_qty, cost, notes,
			 user_id, requisition_id, count_session_id, receipt_ref, work_order_ref, vendor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at
	`, string(t.Type), t.ItemID, t.FromLocationID, t.ToLocationID, t.Qty, t.ResultingQty, t.Cost, t.Notes,
		t.UserID, t.RequisitionID, t.CountSessionID, t.ReceiptRef, t.WorkOrderRef, t.VendorID).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to append %s transaction: %w", t.Type, err)
	}
	return &t, nil
}

const transactionColumns = `
	t.id, t.type, t.item_id, i.name, t.from_location_id, t.to_location_id, t.qty, t.resulting_qty,
	t.cost, t.notes, t.user_id, t.requisition_id, t.count_session_id, t.receipt_ref,
	t.work_order_ref, t.vendor_id, t.created_at`

func scanTransaction(row pgx.Row) (InventoryTransaction, error) {
	var t InventoryTransaction
	var typ string
	err := row.Scan(&t.ID, &typ, &t.ItemID, &t.ItemName, &t.FromLocationID, &t.ToLocationID, &t.Qty,
		&t.ResultingQty, &t.Cost, &t.Notes, &t.UserID, &t.RequisitionID, &t.CountSessionID,
		&t.ReceiptRef, &t.WorkOrderRef, &t.VendorID, &t.CreatedAt)
	t.Type = TransactionType(typ)
	return t, err
}
