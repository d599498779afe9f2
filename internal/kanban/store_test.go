package kanban_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"cardflow/internal/kanban"
	"cardflow/internal/testsupport"
)

func TestOpenAppliesSchemaAndRoundTripsBoard(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	creator := testsupport.NewUser(t, store, "alice", kanban.RoleAdmin)

	board, err := store.CreateBoard(ctx, &kanban.Board{
		Title: "Localization",
		Stages: []kanban.Stage{
			{ID: "draft", Title: "Draft"},
			{ID: "review", Title: "Review", WIPLimit: 3},
		},
		Fields: []kanban.FieldDef{
			{Key: "priority", Label: "Priority", Kind: kanban.FieldSelect, Options: []string{"low", "high"}},
		},
		Translation: kanban.TranslationConfig{
			SourceLang:      "de",
			TargetLang:      "gu",
			IntermediateHop: true,
			HopLang:         "en",
			Providers:       []string{"llm", "deepl"},
		},
		CreatedBy:  creator.ID,
		SharedWith: []string{"user-2"},
	})
	if err != nil {
		t.Fatalf("CreateBoard failed: %v", err)
	}
	if board.ID == 0 || board.PublicID == "" {
		t.Fatalf("expected assigned identifiers, got %#v", board)
	}

	fetched, err := store.GetBoardByPublicID(ctx, board.PublicID)
	if err != nil {
		t.Fatalf("GetBoardByPublicID failed: %v", err)
	}
	if fetched == nil || fetched.ID != board.ID {
		t.Fatalf("unexpected board: %#v", fetched)
	}
	if len(fetched.Stages) != 2 || fetched.Stages[1].WIPLimit != 3 {
		t.Fatalf("stages did not round-trip: %#v", fetched.Stages)
	}
	if !fetched.Translation.IntermediateHop || fetched.Translation.HopLang != "en" {
		t.Fatalf("translation config did not round-trip: %#v", fetched.Translation)
	}
	if !fetched.IsMember(creator.ID) || !fetched.IsMember("user-2") {
		t.Fatal("expected creator and shared user to be members")
	}
	if fetched.IsMember("stranger") {
		t.Fatal("expected non-member to be rejected")
	}
}

func TestCreateCardRequiresSequenceNumber(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	creator := testsupport.NewUser(t, store, "alice", kanban.RoleAdmin)
	board := testsupport.NewBoard(t, store, "Board", creator.ID)

	_, err := store.CreateCard(context.Background(), &kanban.Card{
		BoardID:   board.ID,
		Title:     "No Sequence",
		StageID:   "todo",
		CreatedBy: creator.ID,
	})
	if err == nil {
		t.Fatal("expected error when sequence number missing")
	}
}

func TestCardRoundTripWithFieldValues(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	creator := testsupport.NewUser(t, store, "alice", kanban.RoleAdmin)
	board := testsupport.NewBoard(t, store, "Board", creator.ID)

	estimate := 4.5
	card, err := store.CreateCard(ctx, &kanban.Card{
		BoardID:   board.ID,
		SeqNumber: 1,
		Title:     "Translate intro",
		Content:   "Guten Tag",
		StageID:   "todo",
		CreatedBy: creator.ID,
		FieldValues: map[string]kanban.FieldValue{
			"estimate": {Kind: kanban.FieldNumber, Number: &estimate},
			"due":      {Kind: kanban.FieldDate, Date: "2026-09-15"},
		},
	})
	if err != nil {
		t.Fatalf("CreateCard failed: %v", err)
	}

	fetched, err := store.GetCard(ctx, card.ID)
	if err != nil {
		t.Fatalf("GetCard failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected card")
	}
	if fetched.SeqNumber != 1 || fetched.Content != "Guten Tag" {
		t.Fatalf("unexpected card: %#v", fetched)
	}
	if got := fetched.FieldValues["estimate"]; got.Number == nil || *got.Number != estimate {
		t.Fatalf("number field did not round-trip: %#v", got)
	}
	if got := fetched.FieldValues["due"]; got.Date != "2026-09-15" {
		t.Fatalf("date field did not round-trip: %#v", got)
	}
	if fetched.Review.Status != kanban.ReviewPending {
		t.Fatalf("expected pending review, got %q", fetched.Review.Status)
	}
}

func TestCreateCardRejectsDuplicateSequence(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	creator := testsupport.NewUser(t, store, "alice", kanban.RoleAdmin)
	board := testsupport.NewBoard(t, store, "Board", creator.ID)

	base := kanban.Card{BoardID: board.ID, SeqNumber: 7, Title: "One", StageID: "todo", CreatedBy: creator.ID}
	if _, err := store.CreateCard(ctx, &base); err != nil {
		t.Fatalf("first CreateCard failed: %v", err)
	}
	dup := kanban.Card{BoardID: board.ID, SeqNumber: 7, Title: "Two", StageID: "todo", CreatedBy: creator.ID}
	if _, err := store.CreateCard(ctx, &dup); err == nil {
		t.Fatal("expected unique constraint violation for duplicate sequence")
	}
}

func TestNextSequenceIsContiguousPerBoard(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	creator := testsupport.NewUser(t, store, "alice", kanban.RoleAdmin)
	first := testsupport.NewBoard(t, store, "First", creator.ID)
	second := testsupport.NewBoard(t, store, "Second", creator.ID)

	for want := int64(1); want <= 5; want++ {
		got, err := store.NextSequence(ctx, first.ID)
		if err != nil {
			t.Fatalf("NextSequence failed: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}

	got, err := store.NextSequence(ctx, second.ID)
	if err != nil {
		t.Fatalf("NextSequence on second board failed: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected independent counter starting at 1, got %d", got)
	}

	current, err := store.CurrentSequence(ctx, first.ID)
	if err != nil {
		t.Fatalf("CurrentSequence failed: %v", err)
	}
	if current != 5 {
		t.Fatalf("expected counter at 5, got %d", current)
	}
}

func TestNextSequenceUnderConcurrency(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	creator := testsupport.NewUser(t, store, "alice", kanban.RoleAdmin)
	board := testsupport.NewBoard(t, store, "Board", creator.ID)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = make(map[int64]int)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := store.NextSequence(ctx, board.ID)
			if err != nil {
				t.Errorf("NextSequence failed: %v", err)
				return
			}
			mu.Lock()
			numbers[seq]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(numbers) != workers {
		t.Fatalf("expected %d distinct numbers, got %d: %v", workers, len(numbers), numbers)
	}
	for seq := int64(1); seq <= workers; seq++ {
		if numbers[seq] != 1 {
			t.Fatalf("expected contiguous range 1..%d, got %v", workers, numbers)
		}
	}
}

func TestAcquireLockMutualExclusion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	creator := testsupport.NewUser(t, store, "alice", kanban.RoleAdmin)
	board := testsupport.NewBoard(t, store, "Board", creator.ID)
	card := testsupport.NewCard(t, store, board, "Contested", creator.ID)

	now := time.Now().UTC()
	expiry := now.Add(10 * time.Minute)

	const contenders = 6
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins []string
	)
	for i := 0; i < contenders; i++ {
		holder := fmt.Sprintf("user-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.AcquireLock(ctx, card.ID, holder, now, expiry)
			if err != nil {
				t.Errorf("AcquireLock failed: %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins = append(wins, holder)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(wins) != 1 {
		t.Fatalf("expected exactly one winner, got %v", wins)
	}

	fetched, err := store.GetCard(ctx, card.ID)
	if err != nil {
		t.Fatalf("GetCard failed: %v", err)
	}
	if !fetched.Lock.Locked || fetched.Lock.Holder != wins[0] {
		t.Fatalf("lock state does not match winner %q: %#v", wins[0], fetched.Lock)
	}
}

func TestAcquireLockReentrantAndExpiredSteal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	creator := testsupport.NewUser(t, store, "alice", kanban.RoleAdmin)
	board := testsupport.NewBoard(t, store, "Board", creator.ID)
	card := testsupport.NewCard(t, store, board, "Locked", creator.ID)

	now := time.Now().UTC()
	expiry := now.Add(10 * time.Minute)

	if ok, err := store.AcquireLock(ctx, card.ID, "holder", now, expiry); err != nil || !ok {
		t.Fatalf("initial acquire: ok=%v err=%v", ok, err)
	}
	if ok, err := store.AcquireLock(ctx, card.ID, "holder", now, expiry.Add(time.Minute)); err != nil || !ok {
		t.Fatalf("reentrant acquire should succeed: ok=%v err=%v", ok, err)
	}
	if ok, err := store.AcquireLock(ctx, card.ID, "rival", now, expiry); err != nil || ok {
		t.Fatalf("rival acquire should fail while lock live: ok=%v err=%v", ok, err)
	}

	afterExpiry := expiry.Add(2 * time.Minute)
	if ok, err := store.AcquireLock(ctx, card.ID, "rival", afterExpiry, afterExpiry.Add(10*time.Minute)); err != nil || !ok {
		t.Fatalf("rival should claim expired lock: ok=%v err=%v", ok, err)
	}

	fetched, err := store.GetCard(ctx, card.ID)
	if err != nil {
		t.Fatalf("GetCard failed: %v", err)
	}
	if fetched.Lock.Holder != "rival" {
		t.Fatalf("expected rival to hold lock, got %#v", fetched.Lock)
	}
}

func TestAcquireLockExpiryOnWholeSecond(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	creator := testsupport.NewUser(t, store, "alice", kanban.RoleAdmin)
	board := testsupport.NewBoard(t, store, "Board", creator.ID)
	card := testsupport.NewCard(t, store, board, "Locked", creator.ID)

	// An expiry with zero nanoseconds must still compare as past against a
	// later instant inside the same second.
	expiry := time.Now().UTC().Truncate(time.Second)
	if ok, err := store.AcquireLock(ctx, card.ID, "holder", expiry.Add(-10*time.Minute), expiry); err != nil || !ok {
		t.Fatalf("initial acquire: ok=%v err=%v", ok, err)
	}

	sameSecond := expiry.Add(500 * time.Millisecond)
	if ok, err := store.AcquireLock(ctx, card.ID, "rival", sameSecond, sameSecond.Add(10*time.Minute)); err != nil || !ok {
		t.Fatalf("rival should claim lock expired earlier in the same second: ok=%v err=%v", ok, err)
	}

	swept, err := store.SweepExpiredLocks(ctx, sameSecond.Add(11*time.Minute).Truncate(time.Second))
	if err != nil {
		t.Fatalf("SweepExpiredLocks failed: %v", err)
	}
	if swept != 1 {
		t.Fatalf("expected 1 swept lock, got %d", swept)
	}
}

func TestRefreshAndReleaseRequireHolder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	creator := testsupport.NewUser(t, store, "alice", kanban.RoleAdmin)
	board := testsupport.NewBoard(t, store, "Board", creator.ID)
	card := testsupport.NewCard(t, store, board, "Held", creator.ID)

	now := time.Now().UTC()
	if ok, err := store.AcquireLock(ctx, card.ID, "holder", now, now.Add(10*time.Minute)); err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}

	if ok, err := store.RefreshLock(ctx, card.ID, "rival", now.Add(20*time.Minute)); err != nil || ok {
		t.Fatalf("refresh by non-holder should fail: ok=%v err=%v", ok, err)
	}
	if ok, err := store.RefreshLock(ctx, card.ID, "holder", now.Add(20*time.Minute)); err != nil || !ok {
		t.Fatalf("refresh by holder should succeed: ok=%v err=%v", ok, err)
	}

	if err := store.ReleaseLock(ctx, card.ID, "rival"); err != nil {
		t.Fatalf("release by non-holder should be a no-op: %v", err)
	}
	fetched, err := store.GetCard(ctx, card.ID)
	if err != nil {
		t.Fatalf("GetCard failed: %v", err)
	}
	if !fetched.Lock.Locked {
		t.Fatal("lock should survive release by non-holder")
	}

	if err := store.ReleaseLock(ctx, card.ID, "holder"); err != nil {
		t.Fatalf("release by holder failed: %v", err)
	}
	fetched, err = store.GetCard(ctx, card.ID)
	if err != nil {
		t.Fatalf("GetCard failed: %v", err)
	}
	if fetched.Lock.Locked || fetched.Lock.Holder != "" {
		t.Fatalf("expected cleared lock, got %#v", fetched.Lock)
	}
}

func TestSweepExpiredLocks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	creator := testsupport.NewUser(t, store, "alice", kanban.RoleAdmin)
	board := testsupport.NewBoard(t, store, "Board", creator.ID)

	expired := testsupport.NewCard(t, store, board, "Expired", creator.ID)
	live := testsupport.NewCard(t, store, board, "Live", creator.ID)

	now := time.Now().UTC()
	if ok, err := store.AcquireLock(ctx, expired.ID, "old", now.Add(-30*time.Minute), now.Add(-20*time.Minute)); err != nil || !ok {
		t.Fatalf("acquire expired: ok=%v err=%v", ok, err)
	}
	if ok, err := store.AcquireLock(ctx, live.ID, "fresh", now, now.Add(10*time.Minute)); err != nil || !ok {
		t.Fatalf("acquire live: ok=%v err=%v", ok, err)
	}

	swept, err := store.SweepExpiredLocks(ctx, now)
	if err != nil {
		t.Fatalf("SweepExpiredLocks failed: %v", err)
	}
	if swept != 1 {
		t.Fatalf("expected one swept lock, got %d", swept)
	}

	fetched, err := store.GetCard(ctx, expired.ID)
	if err != nil {
		t.Fatalf("GetCard failed: %v", err)
	}
	if fetched.Lock.Locked {
		t.Fatalf("expired lock should be cleared, got %#v", fetched.Lock)
	}
	fetched, err = store.GetCard(ctx, live.ID)
	if err != nil {
		t.Fatalf("GetCard failed: %v", err)
	}
	if !fetched.Lock.Locked || fetched.Lock.Holder != "fresh" {
		t.Fatalf("live lock should survive sweep, got %#v", fetched.Lock)
	}
}

func TestMoveStageRecordsAuditAndDetectsRace(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	creator := testsupport.NewUser(t, store, "alice", kanban.RoleAdmin)
	board := testsupport.NewBoard(t, store, "Board", creator.ID)
	card := testsupport.NewCard(t, store, board, "Moving", creator.ID)

	if err := store.MoveStage(ctx, card.ID, "todo", "doing", creator.ID); err != nil {
		t.Fatalf("MoveStage failed: %v", err)
	}

	// A second mover still believing the card sits in "todo" must lose.
	if err := store.MoveStage(ctx, card.ID, "todo", "done", creator.ID); err == nil {
		t.Fatal("expected conflict for stale from-stage")
	}

	if err := store.MoveStage(ctx, card.ID, "doing", "done", creator.ID); err != nil {
		t.Fatalf("second MoveStage failed: %v", err)
	}

	fetched, err := store.GetCard(ctx, card.ID)
	if err != nil {
		t.Fatalf("GetCard failed: %v", err)
	}
	if fetched.StageID != "done" {
		t.Fatalf("expected stage done, got %q", fetched.StageID)
	}

	entries, err := store.AuditByCard(ctx, card.ID, 10)
	if err != nil {
		t.Fatalf("AuditByCard failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected two audit entries, got %d", len(entries))
	}
	if entries[0].FromStage != "doing" || entries[0].ToStage != "done" {
		t.Fatalf("unexpected newest entry: %#v", entries[0])
	}
	if entries[1].FromStage != "todo" || entries[1].ToStage != "doing" {
		t.Fatalf("unexpected oldest entry: %#v", entries[1])
	}

	boardEntries, err := store.AuditByBoard(ctx, board.ID, 10)
	if err != nil {
		t.Fatalf("AuditByBoard failed: %v", err)
	}
	if len(boardEntries) != 2 {
		t.Fatalf("expected board audit to cover card moves, got %d", len(boardEntries))
	}
}

func TestStageCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	creator := testsupport.NewUser(t, store, "alice", kanban.RoleAdmin)
	board := testsupport.NewBoard(t, store, "Board", creator.ID)

	testsupport.NewCard(t, store, board, "A", creator.ID)
	testsupport.NewCard(t, store, board, "B", creator.ID)
	third := testsupport.NewCard(t, store, board, "C", creator.ID)

	if err := store.MoveStage(ctx, third.ID, "todo", "doing", creator.ID); err != nil {
		t.Fatalf("MoveStage failed: %v", err)
	}

	counts, err := store.StageCounts(ctx, board.ID)
	if err != nil {
		t.Fatalf("StageCounts failed: %v", err)
	}
	if counts["todo"] != 2 || counts["doing"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}
