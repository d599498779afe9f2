package kanban

import (
	"context"
	"fmt"
	"time"
)

// lockTimeLayout is fixed width. The expiry checks compare these columns as
// text, and RFC3339Nano drops trailing zeros, which breaks lexical ordering
// for whole-second timestamps.
const lockTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// AcquireLock attempts to claim a card's edit lock for holder until expiry.
// The conditional UPDATE makes the claim atomic: it succeeds iff the card is
// unlocked, the current lock has expired, or the caller already holds it.
// Exactly one of two simultaneous acquires can win.
func (s *Store) AcquireLock(ctx context.Context, cardID int64, holder string, now, expiry time.Time) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE cards
         SET locked = 1, lock_holder = ?, lock_acquired_at = ?, lock_expires_at = ?
         WHERE id = ?
           AND (locked = 0
                OR lock_expires_at IS NULL
                OR lock_expires_at <= ?
                OR lock_holder = ?)`,
		holder,
		now.UTC().Format(lockTimeLayout),
		expiry.UTC().Format(lockTimeLayout),
		cardID,
		now.UTC().Format(lockTimeLayout),
		holder,
	)
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// RefreshLock extends the expiry of a lock the holder already owns. Returns
// false without mutation when the caller is not the current holder.
func (s *Store) RefreshLock(ctx context.Context, cardID int64, holder string, expiry time.Time) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE cards SET lock_expires_at = ? WHERE id = ? AND locked = 1 AND lock_holder = ?`,
		expiry.UTC().Format(lockTimeLayout),
		cardID,
		holder,
	)
	if err != nil {
		return false, fmt.Errorf("refresh lock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ReleaseLock clears a card's lock fields iff the caller holds the lock. A
// user cannot release another user's lock; that case is a silent no-op.
func (s *Store) ReleaseLock(ctx context.Context, cardID int64, holder string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE cards
         SET locked = 0, lock_holder = NULL, lock_acquired_at = NULL, lock_expires_at = NULL
         WHERE id = ? AND lock_holder = ?`,
		cardID,
		holder,
	); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// SweepExpiredLocks clears every lock whose expiry has passed and returns the
// number of cards affected.
func (s *Store) SweepExpiredLocks(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE cards
         SET locked = 0, lock_holder = NULL, lock_acquired_at = NULL, lock_expires_at = NULL
         WHERE locked = 1 AND lock_expires_at IS NOT NULL AND lock_expires_at <= ?`,
		now.UTC().Format(lockTimeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("sweep expired locks: %w", err)
	}
	return res.RowsAffected()
}
