package core_test

import (
	"context"
	"sync"
	"testing"

	"parstock/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumbering_ConcurrentCreatesAreGapless(t *testing.T) {
	pool := setupTestDB(t)
	reqs, _ := newRequisitionService(pool)
	ctx := context.Background()

	const n = 10
	var wg sync.WaitGroup
	numbers := make(chan string, n)
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := reqs.Create(ctx, core.CreateRequisitionInput{
				FromLocationID: storeroomID,
				ToLocationID:   closetID,
				RequestedBy:    supervisorID,
				Lines:          []core.RequisitionLineInput{{ItemID: soapID, Qty: d("1")}},
			})
			if err != nil {
				errCh <- err
				return
			}
			numbers <- r.Number
		}()
	}
	wg.Wait()
	close(errCh)
	close(numbers)

	for err := range errCh {
		t.Errorf("concurrent create error: %v", err)
	}

	seen := map[string]bool{}
	for num := range numbers {
		require.False(t, seen[num], "duplicate number %s", num)
		seen[num] = true
	}
	require.Len(t, seen, n)

	var maxSeq int
	err := pool.QueryRow(ctx, `SELECT last_number FROM number_sequences WHERE prefix LIKE 'REQ-%'`).Scan(&maxSeq)
	require.NoError(t, err)
	assert.Equal(t, n, maxSeq)
}
