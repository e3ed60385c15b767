package core_test

import (
	"context"
	"os"
	"testing"

	"parstock/internal/core"
	"parstock/internal/db"
	"parstock/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Seeded ids.
const (
	adminID      = 1
	supervisorID = 2
	managerID    = 3

	storeroomID = 1
	closetID    = 2

	towelID = 1
	soapID  = 2
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// A dedicated database: every run truncates it.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err, "connect to test database")

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	_, err = db.Migrate(ctx, pool, migrations.FS, logger)
	require.NoError(t, err, "migrate test database")

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE inventory_transactions, purchase_request_lines, purchase_requests, requisition_lines, requisitions, count_lines, count_sessions,
			stock_levels, number_sequences, items, locations, vendors, categories, user_permissions, users
			RESTART IDENTITY CASCADE;

		INSERT INTO users (username, password_hash, role) VALUES
			('admin', 'x', 'ADMIN'),
			('sup', 'x', 'SUPERVISOR'),
			('mgr', 'x', 'MANAGER');

		INSERT INTO locations (name, type) VALUES
			('Main Storeroom', 'STOREROOM'),
			('Floor 3 Closet', 'CLOSET');

		INSERT INTO items (name, short_code, unit_of_measure, cost, lead_time_days) VALUES
			('Bath Towel', 'TWL', 'ea', 4.50, 5),
			('Soap Bar', 'SOAP', 'ea', 0.40, 2);
	`)
	require.NoError(t, err, "seed test database")

	t.Cleanup(pool.Close)
	return pool
}

func receive(t *testing.T, inv core.InventoryService, itemID, locationID int, qty string) {
	t.Helper()
	_, err := inv.Receive(context.Background(), core.ReceiveInput{
		ItemID: itemID, ToLocationID: locationID, Qty: d(qty), UserID: adminID,
	})
	require.NoError(t, err)
}

func onHand(t *testing.T, inv core.InventoryService, itemID, locationID int) string {
	t.Helper()
	l, err := inv.GetLevel(context.Background(), itemID, locationID)
	require.NoError(t, err)
	return l.OnHandQty.String()
}

func assertReconciled(t *testing.T, inv core.InventoryService) {
	t.Helper()
	diffs, err := inv.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Empty(t, diffs, "stock_levels disagree with the ledger")
}

func TestLedger_IsAppendOnly(t *testing.T) {
	pool := setupTestDB(t)
	inv := core.NewInventoryService(pool)
	ctx := context.Background()

	receive(t, inv, towelID, storeroomID, "10")

	_, err := pool.Exec(ctx, `UPDATE inventory_transactions SET qty = 99`)
	assert.Error(t, err, "ledger rows must not be updatable")
	_, err = pool.Exec(ctx, `DELETE FROM inventory_transactions`)
	assert.Error(t, err, "ledger rows must not be deletable")
}

func TestLedger_ReconcileDetectsDrift(t *testing.T) {
	pool := setupTestDB(t)
	inv := core.NewInventoryService(pool)
	ctx := context.Background()

	receive(t, inv, towelID, storeroomID, "10")
	assertReconciled(t, inv)

	_, err := pool.Exec(ctx, `UPDATE stock_levels SET on_hand_qty = 12 WHERE item_id = $1`, towelID)
	require.NoError(t, err)

	diffs, err := inv.Reconcile(ctx)
	require.NoError(t, err)
	require.Len(t, diffs, 1)
	assert.True(t, diffs[0].Stored.Equal(d("12")))
	assert.True(t, diffs[0].Ledger.Equal(d("10")))
}

func TestLedger_ReplayMatchesAfterMixedMovements(t *testing.T) {
	pool := setupTestDB(t)
	inv := core.NewInventoryService(pool)
	ctx := context.Background()

	receive(t, inv, towelID, storeroomID, "50")
	_, err := inv.Transfer(ctx, core.TransferInput{
		ItemID: towelID, FromLocationID: storeroomID, ToLocationID: closetID, Qty: d("12"), UserID: adminID,
	})
	require.NoError(t, err)
	_, err = inv.Issue(ctx, core.IssueInput{ItemID: towelID, FromLocationID: closetID, Qty: d("2.5"), UserID: adminID})
	require.NoError(t, err)
	_, err = inv.Adjust(ctx, core.AdjustInput{
		ItemID: towelID, LocationID: storeroomID, NewQty: d("30"), Reason: "damaged", UserID: adminID,
	})
	require.NoError(t, err)

	assert.Equal(t, "30", onHand(t, inv, towelID, storeroomID))
	assert.Equal(t, "9.5", onHand(t, inv, towelID, closetID))
	assertReconciled(t, inv)

	txs, err := inv.Transactions(ctx, core.TransactionFilter{ItemID: towelID})
	require.NoError(t, err)
	assert.Len(t, txs, 4)
}
