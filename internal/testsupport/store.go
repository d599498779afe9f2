package testsupport

import (
	"context"
	"fmt"
	"testing"

	"cardflow/internal/config"
	"cardflow/internal/kanban"
)

// MustOpenStore opens a kanban.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *kanban.Store {
	t.Helper()

	store, err := kanban.Open(cfg)
	if err != nil {
		t.Fatalf("kanban.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewUser creates a user with the given role for tests.
func NewUser(t testing.TB, store *kanban.Store, name string, role kanban.Role) *kanban.User {
	t.Helper()

	user, err := store.CreateUser(context.Background(), &kanban.User{Name: name, Role: role})
	if err != nil {
		t.Fatalf("store.CreateUser: %v", err)
	}
	return user
}

// NewBoard creates a board with a standard three-stage pipeline for tests.
func NewBoard(t testing.TB, store *kanban.Store, title, creatorID string) *kanban.Board {
	t.Helper()

	board, err := store.CreateBoard(context.Background(), &kanban.Board{
		Title: title,
		Stages: []kanban.Stage{
			{ID: "todo", Title: "To Do"},
			{ID: "doing", Title: "In Progress"},
			{ID: "done", Title: "Done"},
		},
		Translation: kanban.TranslationConfig{
			SourceLang: "de",
			TargetLang: "en",
			Providers:  []string{"llm"},
		},
		CreatedBy: creatorID,
	})
	if err != nil {
		t.Fatalf("store.CreateBoard: %v", err)
	}
	return board
}

// NewCard creates a card on the board's first stage, allocating the next
// sequence number through the store.
func NewCard(t testing.TB, store *kanban.Store, board *kanban.Board, title, creatorID string) *kanban.Card {
	t.Helper()

	seq, err := store.NextSequence(context.Background(), board.ID)
	if err != nil {
		t.Fatalf("store.NextSequence: %v", err)
	}
	card, err := store.CreateCard(context.Background(), &kanban.Card{
		BoardID:   board.ID,
		SeqNumber: seq,
		Title:     title,
		Content:   fmt.Sprintf("content for %s", title),
		StageID:   board.Stages[0].ID,
		CreatedBy: creatorID,
	})
	if err != nil {
		t.Fatalf("store.CreateCard: %v", err)
	}
	return card
}
