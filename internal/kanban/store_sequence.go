package kanban

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// errCounterMoved signals that another allocator advanced the counter between
// this transaction's read and write. The caller retries with a fresh read.
var errCounterMoved = errors.New("counter moved under transaction")

// ErrSequenceContended reports that the counter could not be advanced within
// the retry budget because concurrent writers kept winning. Callers may fall
// back to a degraded allocation; any other counter error is an infrastructure
// failure and must propagate.
var ErrSequenceContended = errors.New("sequence counter contended")

const counterRetryAttempts = 8

// NextSequence increments and returns the board's card counter. The
// compare-and-set UPDATE inside a write transaction serializes concurrent
// allocators; a plain read-then-write would lose updates under contention.
// Returned values form a contiguous range starting at 1.
func (s *Store) NextSequence(ctx context.Context, boardID int64) (int64, error) {
	var lastErr error
	for attempt := 0; attempt < counterRetryAttempts; attempt++ {
		next, err := s.nextSequenceOnce(ctx, boardID)
		if err == nil {
			return next, nil
		}
		lastErr = err
		if !errors.Is(err, errCounterMoved) {
			if isSQLiteBusy(err) {
				return 0, fmt.Errorf("allocate sequence for board %d: %w: %w", boardID, ErrSequenceContended, err)
			}
			return 0, err
		}
		select {
		case <-time.After(time.Duration(attempt+1) * 5 * time.Millisecond):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return 0, fmt.Errorf("allocate sequence for board %d: %w: %w", boardID, ErrSequenceContended, lastErr)
}

func (s *Store) nextSequenceOnce(ctx context.Context, boardID int64) (int64, error) {
	var next int64
	err := s.withImmediateTx(ctx, func(tx *sql.Tx) error {
		var current int64
		err := tx.QueryRowContext(ctx, `SELECT next_number FROM board_counters WHERE board_id = ?`, boardID).Scan(&current)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			next = 1
			if _, err := tx.ExecContext(ctx, `INSERT INTO board_counters (board_id, next_number) VALUES (?, ?)`, boardID, next); err != nil {
				if isConstraintViolation(err) {
					return errCounterMoved
				}
				return fmt.Errorf("initialize counter: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("read counter: %w", err)
		}
		next = current + 1
		res, err := tx.ExecContext(
			ctx,
			`UPDATE board_counters SET next_number = ? WHERE board_id = ? AND next_number = ?`,
			next,
			boardID,
			current,
		)
		if err != nil {
			return fmt.Errorf("advance counter: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return errCounterMoved
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

// CurrentSequence returns the highest number allocated for a board, or zero
// when none has been.
func (s *Store) CurrentSequence(ctx context.Context, boardID int64) (int64, error) {
	var current int64
	err := s.db.QueryRowContext(ctx, `SELECT next_number FROM board_counters WHERE board_id = ?`, boardID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read counter: %w", err)
	}
	return current, nil
}
