// Package editlock grants, refreshes, and expires per-card edit locks.
package editlock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cardflow/internal/config"
	"cardflow/internal/kanban"
	"cardflow/internal/logging"
	"cardflow/internal/services"
)

// Manager arbitrates card edit locks. Every lifecycle decision reduces to a
// conditional store write, so two managers in different processes sharing
// one database still agree on the single holder.
type Manager struct {
	store  *kanban.Store
	logger *slog.Logger
	ttl    time.Duration
	now    func() time.Time
}

// NewManager builds a Manager using the configured lock TTL.
func NewManager(store *kanban.Store, cfg *config.Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	ttl := time.Duration(cfg.Locks.TTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Manager{
		store:  store,
		logger: logging.WithComponent(logger, "editlock"),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns the lock lifetime granted on acquire and refresh.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Acquire claims the card's edit lock for userID. Succeeds when the card is
// unlocked, the current lock has expired, or userID already holds it; the
// reacquire case extends the expiry like a refresh.
func (m *Manager) Acquire(ctx context.Context, cardID int64, userID string) (kanban.LockState, error) {
	if userID == "" {
		return kanban.LockState{}, services.Wrap(services.ErrValidation, "editlock", "acquire", "user id is required", nil)
	}
	now := m.now().UTC()
	expiry := now.Add(m.ttl)
	ok, err := m.store.AcquireLock(ctx, cardID, userID, now, expiry)
	if err != nil {
		return kanban.LockState{}, services.Wrap(services.ErrTransient, "editlock", "acquire", "store write failed", err)
	}
	if !ok {
		holder := m.currentHolder(ctx, cardID)
		return kanban.LockState{}, services.Wrap(services.ErrConflict, "editlock", "acquire", fmt.Sprintf("card locked by %s", holder), nil)
	}
	m.logger.Debug("lock acquired",
		logging.FieldCardID, cardID,
		logging.FieldUserID, userID,
		"expires_at", expiry,
	)
	return kanban.LockState{Locked: true, Holder: userID, AcquiredAt: &now, ExpiresAt: &expiry}, nil
}

// Refresh extends the expiry of a lock userID already holds to a full TTL
// from now. Refreshing a lock held by someone else is a conflict.
func (m *Manager) Refresh(ctx context.Context, cardID int64, userID string) (kanban.LockState, error) {
	if userID == "" {
		return kanban.LockState{}, services.Wrap(services.ErrValidation, "editlock", "refresh", "user id is required", nil)
	}
	now := m.now().UTC()
	expiry := now.Add(m.ttl)
	ok, err := m.store.RefreshLock(ctx, cardID, userID, expiry)
	if err != nil {
		return kanban.LockState{}, services.Wrap(services.ErrTransient, "editlock", "refresh", "store write failed", err)
	}
	if !ok {
		return kanban.LockState{}, services.Wrap(services.ErrConflict, "editlock", "refresh", "caller does not hold the lock", nil)
	}
	return kanban.LockState{Locked: true, Holder: userID, AcquiredAt: &now, ExpiresAt: &expiry}, nil
}

// Release clears the card's lock when userID holds it. Releasing a lock the
// caller does not hold is a no-op rather than an error: the outcome the
// caller wanted (not holding the lock) is already true.
func (m *Manager) Release(ctx context.Context, cardID int64, userID string) error {
	if userID == "" {
		return services.Wrap(services.ErrValidation, "editlock", "release", "user id is required", nil)
	}
	if err := m.store.ReleaseLock(ctx, cardID, userID); err != nil {
		return services.Wrap(services.ErrTransient, "editlock", "release", "store write failed", err)
	}
	return nil
}

// Status reports how the card's lock looks to userID right now. An expired
// lock reads as unlocked even before the sweeper clears it, and a lock the
// user holds never blocks them.
func (m *Manager) Status(card *kanban.Card, userID string) Status {
	now := m.now().UTC()
	lock := card.Lock
	if lock.ExpiredAt(now) {
		return Status{}
	}
	return Status{
		Locked:    lock.Holder != userID,
		Holder:    lock.Holder,
		ExpiresAt: lock.ExpiresAt,
	}
}

// SweepExpired clears every expired lock in the database and returns how many
// were cleared.
func (m *Manager) SweepExpired(ctx context.Context) (int64, error) {
	swept, err := m.store.SweepExpiredLocks(ctx, m.now().UTC())
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "editlock", "sweep", "store write failed", err)
	}
	if swept > 0 {
		m.logger.Info("cleared expired locks", "count", swept)
	}
	return swept, nil
}

func (m *Manager) currentHolder(ctx context.Context, cardID int64) string {
	card, err := m.store.GetCard(ctx, cardID)
	if err != nil || card == nil {
		return "unknown"
	}
	if card.Lock.Holder == "" {
		return "unknown"
	}
	return card.Lock.Holder
}

// Status is the lock view returned to a particular user.
type Status struct {
	Locked    bool
	Holder    string
	ExpiresAt *time.Time
}
