package editlock

import (
	"context"
	"testing"
	"time"

	"cardflow/internal/kanban"
	"cardflow/internal/logging"
	"cardflow/internal/services"
	"cardflow/internal/testsupport"
)

func newTestManager(t *testing.T) (*Manager, *kanban.Store, *kanban.Card) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	creator := testsupport.NewUser(t, store, "alice", kanban.RoleAdmin)
	board := testsupport.NewBoard(t, store, "Board", creator.ID)
	card := testsupport.NewCard(t, store, board, "Card", creator.ID)
	return NewManager(store, cfg, logging.NewNop()), store, card
}

func TestAcquireRefusesSecondHolder(t *testing.T) {
	mgr, _, card := newTestManager(t)
	ctx := context.Background()

	lock, err := mgr.Acquire(ctx, card.ID, "alice")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if !lock.Locked || lock.Holder != "alice" {
		t.Fatalf("unexpected lock state: %#v", lock)
	}

	if _, err := mgr.Acquire(ctx, card.ID, "bob"); !services.IsConflict(err) {
		t.Fatalf("expected conflict for second holder, got %v", err)
	}

	// Reacquire by the holder extends rather than conflicts.
	if _, err := mgr.Acquire(ctx, card.ID, "alice"); err != nil {
		t.Fatalf("reacquire by holder failed: %v", err)
	}
}

func TestLockExpiresAfterTTL(t *testing.T) {
	mgr, store, card := newTestManager(t)
	ctx := context.Background()

	base := time.Now().UTC()
	mgr.now = func() time.Time { return base }

	if _, err := mgr.Acquire(ctx, card.ID, "alice"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	// One second shy of expiry the lock still blocks.
	mgr.now = func() time.Time { return base.Add(mgr.ttl - time.Second) }
	if _, err := mgr.Acquire(ctx, card.ID, "bob"); !services.IsConflict(err) {
		t.Fatalf("expected conflict before expiry, got %v", err)
	}

	// At exactly acquire time + TTL the lock behaves as unlocked.
	mgr.now = func() time.Time { return base.Add(mgr.ttl) }
	fetched, err := store.GetCard(ctx, card.ID)
	if err != nil {
		t.Fatalf("GetCard failed: %v", err)
	}
	if status := mgr.Status(fetched, "bob"); status.Locked {
		t.Fatalf("expired lock should read unlocked, got %#v", status)
	}
	if _, err := mgr.Acquire(ctx, card.ID, "bob"); err != nil {
		t.Fatalf("acquire after expiry failed: %v", err)
	}
}

func TestRefreshRequiresHolder(t *testing.T) {
	mgr, _, card := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.Refresh(ctx, card.ID, "alice"); !services.IsConflict(err) {
		t.Fatalf("refresh without lock should conflict, got %v", err)
	}

	if _, err := mgr.Acquire(ctx, card.ID, "alice"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if _, err := mgr.Refresh(ctx, card.ID, "bob"); !services.IsConflict(err) {
		t.Fatalf("refresh by non-holder should conflict, got %v", err)
	}
	lock, err := mgr.Refresh(ctx, card.ID, "alice")
	if err != nil {
		t.Fatalf("refresh by holder failed: %v", err)
	}
	if lock.ExpiresAt == nil {
		t.Fatal("refreshed lock should carry expiry")
	}
}

func TestReleaseByNonHolderIsNoOp(t *testing.T) {
	mgr, store, card := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.Acquire(ctx, card.ID, "alice"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := mgr.Release(ctx, card.ID, "bob"); err != nil {
		t.Fatalf("release by non-holder should be silent: %v", err)
	}
	fetched, err := store.GetCard(ctx, card.ID)
	if err != nil {
		t.Fatalf("GetCard failed: %v", err)
	}
	if !fetched.Lock.Locked || fetched.Lock.Holder != "alice" {
		t.Fatalf("lock should survive foreign release: %#v", fetched.Lock)
	}

	if err := mgr.Release(ctx, card.ID, "alice"); err != nil {
		t.Fatalf("release by holder failed: %v", err)
	}
	fetched, err = store.GetCard(ctx, card.ID)
	if err != nil {
		t.Fatalf("GetCard failed: %v", err)
	}
	if fetched.Lock.Locked {
		t.Fatalf("expected unlocked card, got %#v", fetched.Lock)
	}
}

func TestStatusViews(t *testing.T) {
	mgr, store, card := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.Acquire(ctx, card.ID, "alice"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	fetched, err := store.GetCard(ctx, card.ID)
	if err != nil {
		t.Fatalf("GetCard failed: %v", err)
	}

	if status := mgr.Status(fetched, "alice"); status.Locked {
		t.Fatalf("holder should see the card as editable, got %#v", status)
	}
	status := mgr.Status(fetched, "bob")
	if !status.Locked || status.Holder != "alice" {
		t.Fatalf("other users should see the holder, got %#v", status)
	}
}

func TestSweepExpiredClearsOnlyStaleLocks(t *testing.T) {
	mgr, store, card := newTestManager(t)
	ctx := context.Background()

	base := time.Now().UTC()
	mgr.now = func() time.Time { return base }
	if _, err := mgr.Acquire(ctx, card.ID, "alice"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	mgr.now = func() time.Time { return base.Add(mgr.ttl + time.Minute) }
	swept, err := mgr.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired failed: %v", err)
	}
	if swept != 1 {
		t.Fatalf("expected one swept lock, got %d", swept)
	}

	fetched, err := store.GetCard(ctx, card.ID)
	if err != nil {
		t.Fatalf("GetCard failed: %v", err)
	}
	if fetched.Lock.Locked {
		t.Fatalf("swept lock should be cleared, got %#v", fetched.Lock)
	}
}
