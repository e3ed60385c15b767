package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// CountService runs physical counts. Approving a count is the only way a
// session changes stock, and it does so atomically with the state change.
type CountService interface {
	CreateSession(ctx context.Context, locationID, countedBy int, notes string) (*CountSession, error)
	// AddLine records or re-records an item's count, snapshotting expected_qty
	// from the current stock level.
	AddLine(ctx context.Context, sessionID int, in CountLineInput) (*CountLine, error)
	Complete(ctx context.Context, sessionID int) (*CountSession, error)
	// Approve emits one COUNT_ADJUST per line with non-zero variance and sets
	// on-hand to the counted quantity.
	Approve(ctx context.Context, sessionID, approverID int) (*CountSession, error)
	Cancel(ctx context.Context, sessionID int) (*CountSession, error)
	// SpotCheck counts one item outside a session and adjusts immediately.
	SpotCheck(ctx context.Context, in SpotCheckInput) (*SpotCheckResult, error)

	GetSession(ctx context.Context, sessionID int) (*CountSession, error)
	ListSessions(ctx context.Context, filter CountSessionFilter) ([]CountSession, error)
}

type countService struct {
	pool                  *pgxpool.Pool
	inv                   InventoryService
	requireVarianceReason bool
}

// NewCountService constructs a CountService. When requireVarianceReason is set,
// a line with non-zero variance must carry a reason code.
func NewCountService(pool *pgxpool.Pool, inv InventoryService, requireVarianceReason bool) CountService {
	return &countService{pool: pool, inv: inv, requireVarianceReason: requireVarianceReason}
}

const sessionColumns = `
	cs.id, cs.number, cs.location_id, l.name, cs.counted_by, u.username, cs.status, cs.notes,
	cs.started_at, cs.completed_at, cs.approved_by, cs.approved_at, cs.cancelled_at,
	(SELECT count(*) FROM count_lines cl WHERE cl.count_session_id = cs.id)`

const sessionJoins = `
	FROM count_sessions cs
	JOIN locations l ON l.id = cs.location_id
	JOIN users u     ON u.id = cs.counted_by`

func scanSession(row pgx.Row) (*CountSession, error) {
	cs := &CountSession{}
	var status string
	err := row.Scan(&cs.ID, &cs.Number, &cs.LocationID, &cs.LocationName, &cs.CountedBy, &cs.CountedByName,
		&status, &cs.Notes, &cs.StartedAt, &cs.CompletedAt, &cs.ApprovedBy, &cs.ApprovedAt, &cs.CancelledAt,
		&cs.LineCount)
	if err != nil {
		return nil, err
	}
	cs.Status = CountStatus(status)
	return cs, nil
}

// lockSessionTx loads the session header and holds its row lock until tx ends.
// Concurrent transitions on one session serialize here; the loser sees the
// winner's status and fails the state check.
func lockSessionTx(ctx context.Context, tx pgx.Tx, sessionID int) (*CountSession, error) {
	cs, err := scanSession(tx.QueryRow(ctx, `SELECT `+sessionColumns+sessionJoins+`
		WHERE cs.id = $1
		FOR UPDATE OF cs`, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("count session", sessionID)
		}
		return nil, fmt.Errorf("failed to lock count session %d: %w", sessionID, err)
	}
	return cs, nil
}

func loadCountLines(ctx context.Context, q pgxRowsQuerier, sessionID int) ([]CountLine, error) {
	rows, err := q.Query(ctx, `
		SELECT cl.id, cl.count_session_id, cl.line_number, cl.item_id, i.name, i.short_code,
		       cl.expected_qty, cl.counted_qty, cl.reason_code, cl.notes, cl.updated_at
		FROM count_lines cl
		JOIN items i ON i.id = cl.item_id
		WHERE cl.count_session_id = $1
		ORDER BY cl.line_number`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query count lines: %w", err)
	}
	defer rows.Close()

	lines := []CountLine{}
	for rows.Next() {
		var l CountLine
		var reason string
		if err := rows.Scan(&l.ID, &l.SessionID, &l.LineNumber, &l.ItemID, &l.ItemName, &l.ShortCode,
			&l.ExpectedQty, &l.CountedQty, &reason, &l.Notes, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan count line: %w", err)
		}
		l.ReasonCode = ReasonCode(reason)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s *countService) CreateSession(ctx context.Context, locationID, countedBy int, notes string) (_ *CountSession, err error) {
	ctx, span := startSpan(ctx, "CountService.CreateSession", attribute.Int("location_id", locationID))
	defer endSpan(span, &err)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := requireLocation(ctx, tx, locationID); err != nil {
		return nil, err
	}
	number, err := nextNumberTx(ctx, tx, prefixCountSession, time.Now())
	if err != nil {
		return nil, err
	}

	var id int
	if err := tx.QueryRow(ctx, `
		INSERT INTO count_sessions (number, location_id, counted_by, status, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		number, locationID, countedBy, string(CountInProgress), notes).Scan(&id); err != nil {
		return nil, fmt.Errorf("failed to create count session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s.GetSession(ctx, id)
}

func (s *countService) AddLine(ctx context.Context, sessionID int, in CountLineInput) (_ *CountLine, err error) {
	ctx, span := startSpan(ctx, "CountService.AddLine",
		attribute.Int("session_id", sessionID), attribute.Int("item_id", in.ItemID))
	defer endSpan(span, &err)

	if err := ValidateQuantity("counted_qty", in.CountedQty); err != nil {
		return nil, err
	}
	in.ReasonCode = ReasonCode(strings.ToUpper(string(in.ReasonCode)))
	if !in.ReasonCode.Valid() {
		return nil, fmt.Errorf("%w: unknown reason code %q", ErrInvalidInput, in.ReasonCode)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	cs, err := lockSessionTx(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := cs.CanAddLine(); err != nil {
		return nil, err
	}
	if err := requireItem(ctx, tx, in.ItemID); err != nil {
		return nil, err
	}

	// Snapshot expected from the current level without creating one; an item
	// never stocked here is expected at zero.
	expected := decimal.Zero
	err = tx.QueryRow(ctx, `
		SELECT on_hand_qty FROM stock_levels WHERE item_id = $1 AND location_id = $2`,
		in.ItemID, cs.LocationID).Scan(&expected)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to read expected quantity: %w", err)
	}

	line := CountLine{ItemID: in.ItemID, ExpectedQty: expected, CountedQty: in.CountedQty, ReasonCode: in.ReasonCode}
	if s.requireVarianceReason && !line.Variance().IsZero() && in.ReasonCode == "" {
		return nil, fmt.Errorf("%w: variance %s on item %d needs a reason code",
			ErrInvalidQuantity, line.Variance(), in.ItemID)
	}

	var lineID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO count_lines (count_session_id, line_number, item_id, expected_qty, counted_qty, reason_code, notes)
		VALUES ($1,
		        (SELECT COALESCE(MAX(line_number), 0) + 1 FROM count_lines WHERE count_session_id = $1),
		        $2, $3, $4, $5, $6)
		ON CONFLICT (count_session_id, item_id) DO UPDATE
		SET expected_qty = EXCLUDED.expected_qty,
		    counted_qty  = EXCLUDED.counted_qty,
		    reason_code  = EXCLUDED.reason_code,
		    notes        = EXCLUDED.notes,
		    updated_at   = now()
		RETURNING id`,
		sessionID, in.ItemID, expected, in.CountedQty, string(in.ReasonCode), in.Notes).Scan(&lineID); err != nil {
		return nil, fmt.Errorf("failed to save count line: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	lines, err := loadCountLines(ctx, s.pool, sessionID)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		if lines[i].ID == lineID {
			return &lines[i], nil
		}
	}
	return nil, notFound("count line", lineID)
}

func (s *countService) Complete(ctx context.Context, sessionID int) (_ *CountSession, err error) {
	ctx, span := startSpan(ctx, "CountService.Complete", attribute.Int("session_id", sessionID))
	defer endSpan(span, &err)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	cs, err := lockSessionTx(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := cs.Complete(time.Now()); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE count_sessions SET status = $2, completed_at = $3 WHERE id = $1`,
		sessionID, string(cs.Status), cs.CompletedAt); err != nil {
		return nil, fmt.Errorf("failed to complete count session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s.GetSession(ctx, sessionID)
}

func (s *countService) Approve(ctx context.Context, sessionID, approverID int) (_ *CountSession, err error) {
	ctx, span := startSpan(ctx, "CountService.Approve", attribute.Int("session_id", sessionID))
	defer endSpan(span, &err)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	cs, err := lockSessionTx(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := cs.Approve(approverID, time.Now()); err != nil {
		return nil, err
	}
	if cs.Lines, err = loadCountLines(ctx, tx, sessionID); err != nil {
		return nil, err
	}

	for _, line := range cs.Lines {
		level, err := s.inv.LockLevelTx(ctx, tx, line.ItemID, cs.LocationID)
		if err != nil {
			return nil, err
		}
		emit := !line.Variance().IsZero()
		notes := fmt.Sprintf("Count %s", cs.Number)
		if line.ReasonCode != "" {
			notes += " (" + string(line.ReasonCode) + ")"
		}
		if _, err := s.inv.SetCountedTx(ctx, tx, level, line.CountedQty, approverID, &cs.ID, notes, emit); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE count_sessions SET status = $2, approved_by = $3, approved_at = $4 WHERE id = $1`,
		sessionID, string(cs.Status), cs.ApprovedBy, cs.ApprovedAt); err != nil {
		return nil, fmt.Errorf("failed to approve count session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s.GetSession(ctx, sessionID)
}

func (s *countService) Cancel(ctx context.Context, sessionID int) (_ *CountSession, err error) {
	ctx, span := startSpan(ctx, "CountService.Cancel", attribute.Int("session_id", sessionID))
	defer endSpan(span, &err)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	cs, err := lockSessionTx(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := cs.Cancel(time.Now()); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE count_sessions SET status = $2, cancelled_at = $3 WHERE id = $1`,
		sessionID, string(cs.Status), cs.CancelledAt); err != nil {
		return nil, fmt.Errorf("failed to cancel count session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s.GetSession(ctx, sessionID)
}

func (s *countService) SpotCheck(ctx context.Context, in SpotCheckInput) (_ *SpotCheckResult, err error) {
	ctx, span := startSpan(ctx, "CountService.SpotCheck",
		attribute.Int("item_id", in.ItemID), attribute.Int("location_id", in.LocationID))
	defer endSpan(span, &err)

	if err := ValidateQuantity("counted_qty", in.CountedQty); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	level, err := s.inv.LockLevelTx(ctx, tx, in.ItemID, in.LocationID)
	if err != nil {
		return nil, err
	}
	res := &SpotCheckResult{
		ItemID:      in.ItemID,
		LocationID:  in.LocationID,
		ExpectedQty: level.OnHandQty,
		CountedQty:  in.CountedQty,
		Variance:    in.CountedQty.Sub(level.OnHandQty),
	}

	notes := string(ReasonSpotCheck)
	if in.Notes != "" {
		notes += ": " + in.Notes
	}
	t, err := s.inv.SetCountedTx(ctx, tx, level, in.CountedQty, in.UserID, nil, notes, !res.Variance.IsZero())
	if err != nil {
		return nil, err
	}
	if t != nil {
		res.TransactionID = &t.ID
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return res, nil
}

func (s *countService) GetSession(ctx context.Context, sessionID int) (*CountSession, error) {
	cs, err := scanSession(s.pool.QueryRow(ctx, `SELECT `+sessionColumns+sessionJoins+` WHERE cs.id = $1`, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("count session", sessionID)
		}
		return nil, fmt.Errorf("failed to load count session %d: %w", sessionID, err)
	}
	if cs.Lines, err = loadCountLines(ctx, s.pool, sessionID); err != nil {
		return nil, err
	}
	sum := Summarize(cs.Lines)
	cs.Summary = &sum
	return cs, nil
}

func (s *countService) ListSessions(ctx context.Context, f CountSessionFilter) ([]CountSession, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+sessionColumns+sessionJoins+`
		WHERE ($1 = '' OR cs.status = $1) AND ($2 = 0 OR cs.location_id = $2)
		ORDER BY cs.started_at DESC, cs.id DESC
		LIMIT 200`, string(f.Status), f.LocationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query count sessions: %w", err)
	}
	defer rows.Close()

	sessions := []CountSession{}
	for rows.Next() {
		cs, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan count session: %w", err)
		}
		sessions = append(sessions, *cs)
	}
	return sessions, rows.Err()
}
