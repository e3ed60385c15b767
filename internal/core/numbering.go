package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Document number prefixes.
const (
	prefixCountSession = "CNT"
	prefixRequisition  = "REQ"
	prefixPurchase     = "PR"
)

// nextNumberTx issues the next gapless number for prefix in the year of now,
// formatted as PREFIX-YYYY-NNNNN. The sequence row is locked by the upsert
// until tx ends, so a rolled back caller leaves no gap.
func nextNumberTx(ctx context.Context, tx pgx.Tx, prefix string, now time.Time) (string, error) {
	key := fmt.Sprintf("%s-%d", prefix, now.Year())

	var last int64
	err := tx.QueryRow(ctx, `
		INSERT INTO number_sequences (prefix, last_number)
		VALUES ($1, 1)
		ON CONFLICT (prefix)
		DO UPDATE SET last_number = number_sequences.last_number + 1
		RETURNING last_number
	`, key).Scan(&last)
	if err != nil {
		return "", fmt.Errorf("failed to generate gapless sequence number: %w", err)
	}
	return fmt.Sprintf("%s-%05d", key, last), nil
}
