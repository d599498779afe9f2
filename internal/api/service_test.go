package api_test

import (
	"context"
	"testing"

	"cardflow/internal/api"
	"cardflow/internal/editlock"
	"cardflow/internal/kanban"
	"cardflow/internal/logging"
	"cardflow/internal/sequence"
	"cardflow/internal/services"
	"cardflow/internal/testsupport"
	"cardflow/internal/transition"
	"cardflow/internal/translation"
)

type stubProvider struct {
	name    string
	results map[string]string
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Translate(_ context.Context, text, _, _ string) (string, error) {
	if out, ok := p.results[text]; ok {
		return out, nil
	}
	return "[" + p.name + "] " + text, nil
}

type fixture struct {
	store  *kanban.Store
	boards *api.BoardService
	cards  *api.CardService
	admin  *kanban.User
	editor *kanban.User
	viewer *kanban.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	registry := translation.NewRegistry(
		&stubProvider{name: "llm", results: map[string]string{"Guten Tag": "Good day"}},
		&stubProvider{name: "deepl", results: map[string]string{"Good day": "શુભ દિવસ"}},
	)
	cards := api.NewCardService(
		store,
		sequence.NewAllocator(store, logger),
		editlock.NewManager(store, cfg, logger),
		transition.NewAuthorizer(store, logger),
		translation.NewPipeline(store, registry, logger),
		logger,
	)
	return &fixture{
		store:  store,
		boards: api.NewBoardService(store, []string{"llm", "deepl"}),
		cards:  cards,
		admin:  testsupport.NewUser(t, store, "ada", kanban.RoleAdmin),
		editor: testsupport.NewUser(t, store, "ed", kanban.RoleEditor),
		viewer: testsupport.NewUser(t, store, "vi", kanban.RoleViewer),
	}
}

func (f *fixture) boardRequest() api.CreateBoardRequest {
	return api.CreateBoardRequest{
		Title: "Localization",
		Stages: []api.Stage{
			{ID: "todo", Title: "To Do"},
			{ID: "doing", Title: "In Progress"},
			{ID: "done", Title: "Done"},
		},
		Translation: api.TranslationConfig{
			SourceLang:      "de",
			TargetLang:      "gu",
			IntermediateHop: true,
			HopLang:         "en",
			Providers:       []string{"llm", "deepl"},
		},
		SharedWith: []string{f.editor.ID, f.viewer.ID},
	}
}

func TestBoardCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*api.CreateBoardRequest)
	}{
		{"empty title", func(r *api.CreateBoardRequest) { r.Title = " " }},
		{"no stages", func(r *api.CreateBoardRequest) { r.Stages = nil }},
		{"duplicate stage id", func(r *api.CreateBoardRequest) { r.Stages[1].ID = "todo" }},
		{"bad source language", func(r *api.CreateBoardRequest) { r.Translation.SourceLang = "xx99!" }},
		{"same source and target", func(r *api.CreateBoardRequest) { r.Translation.TargetLang = "de" }},
		{"unknown provider", func(r *api.CreateBoardRequest) { r.Translation.Providers = []string{"babelfish"} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := f.boardRequest()
			tc.mutate(&req)
			if _, err := f.boards.Create(ctx, f.admin, req); !services.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestBoardMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	board, err := f.boards.Create(ctx, f.editor, api.CreateBoardRequest{
		Title:       "Private",
		Stages:      []api.Stage{{ID: "todo", Title: "To Do"}},
		Translation: api.TranslationConfig{SourceLang: "de", TargetLang: "en"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.boards.Get(ctx, f.viewer, board.PublicID); !services.IsDenied(err) {
		t.Fatalf("expected denial for non-member, got %v", err)
	}
	// Admins see every board.
	if _, err := f.boards.Get(ctx, f.admin, board.PublicID); err != nil {
		t.Fatalf("admin access failed: %v", err)
	}

	shared, err := f.boards.Share(ctx, f.editor, board.PublicID, f.viewer.ID)
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	if len(shared.SharedWith) != 1 {
		t.Fatalf("expected one shared user, got %#v", shared.SharedWith)
	}
	if _, err := f.boards.Get(ctx, f.viewer, board.PublicID); err != nil {
		t.Fatalf("shared member access failed: %v", err)
	}

	visible, err := f.boards.List(ctx, f.viewer)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(visible) != 1 {
		t.Fatalf("expected one visible board, got %d", len(visible))
	}
}

func TestCardCreateAllocatesSequenceAndPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	board, err := f.boards.Create(ctx, f.admin, f.boardRequest())
	if err != nil {
		t.Fatalf("Create board: %v", err)
	}

	first, err := f.cards.Create(ctx, f.editor, board.PublicID, api.CreateCardRequest{Title: "Greeting", Content: "Guten Tag"})
	if err != nil {
		t.Fatalf("Create card: %v", err)
	}
	second, err := f.cards.Create(ctx, f.editor, board.PublicID, api.CreateCardRequest{Title: "Another", Content: "Hallo"})
	if err != nil {
		t.Fatalf("Create second card: %v", err)
	}
	if first.SeqNumber != 1 || second.SeqNumber != 2 {
		t.Fatalf("expected sequential numbers, got %d and %d", first.SeqNumber, second.SeqNumber)
	}
	if first.StageID != "todo" {
		t.Fatalf("new cards start in the first stage, got %q", first.StageID)
	}
	if len(first.Steps) != 2 || first.Steps[0].FromLang != "de" || first.Steps[0].ToLang != "en" {
		t.Fatalf("expected hop plan, got %#v", first.Steps)
	}

	if _, err := f.cards.Create(ctx, f.viewer, board.PublicID, api.CreateCardRequest{Title: "Nope"}); !services.IsDenied(err) {
		t.Fatalf("viewers cannot create cards, got %v", err)
	}
}

func TestCardUpdateHonorsLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	board, err := f.boards.Create(ctx, f.admin, f.boardRequest())
	if err != nil {
		t.Fatalf("Create board: %v", err)
	}
	card, err := f.cards.Create(ctx, f.editor, board.PublicID, api.CreateCardRequest{Title: "Greeting", Content: "Guten Tag"})
	if err != nil {
		t.Fatalf("Create card: %v", err)
	}

	if _, err := f.cards.AcquireLock(ctx, f.admin, card.ID); err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}

	title := "Edited"
	if _, err := f.cards.Update(ctx, f.editor, card.ID, api.UpdateCardRequest{Title: &title}); !services.IsConflict(err) {
		t.Fatalf("expected conflict while admin holds lock, got %v", err)
	}

	// The holder edits freely.
	updated, err := f.cards.Update(ctx, f.admin, card.ID, api.UpdateCardRequest{Title: &title})
	if err != nil {
		t.Fatalf("holder update failed: %v", err)
	}
	if updated.Title != "Edited" {
		t.Fatalf("unexpected title %q", updated.Title)
	}

	if err := f.cards.ReleaseLock(ctx, f.admin, card.ID); err != nil {
		t.Fatalf("ReleaseLock: %v", err)
	}
	if _, err := f.cards.Update(ctx, f.editor, card.ID, api.UpdateCardRequest{Title: &title}); err != nil {
		t.Fatalf("update after release failed: %v", err)
	}
}

func TestCardMoveAndAuditThroughService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	board, err := f.boards.Create(ctx, f.admin, f.boardRequest())
	if err != nil {
		t.Fatalf("Create board: %v", err)
	}
	card, err := f.cards.Create(ctx, f.editor, board.PublicID, api.CreateCardRequest{Title: "Greeting", Content: "Guten Tag"})
	if err != nil {
		t.Fatalf("Create card: %v", err)
	}

	if _, err := f.cards.Move(ctx, f.viewer, card.ID, "doing"); !services.IsDenied(err) {
		t.Fatalf("viewer move should be denied, got %v", err)
	}
	moved, err := f.cards.Move(ctx, f.editor, card.ID, "doing")
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if moved.StageID != "doing" {
		t.Fatalf("expected stage doing, got %q", moved.StageID)
	}

	entries, err := f.cards.Audit(ctx, f.editor, card.ID, 10)
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if len(entries) != 1 || entries[0].ToStage != "doing" {
		t.Fatalf("unexpected audit entries: %#v", entries)
	}
}

func TestTranslationFlowThroughService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	board, err := f.boards.Create(ctx, f.admin, f.boardRequest())
	if err != nil {
		t.Fatalf("Create board: %v", err)
	}
	card, err := f.cards.Create(ctx, f.editor, board.PublicID, api.CreateCardRequest{Title: "Greeting", Content: "Guten Tag"})
	if err != nil {
		t.Fatalf("Create card: %v", err)
	}

	card, err = f.cards.ExecuteStep(ctx, f.editor, card.ID, api.ExecuteStepRequest{Step: 0, Provider: "llm"})
	if err != nil {
		t.Fatalf("ExecuteStep 0: %v", err)
	}
	if card.Steps[1].OriginalText != "Good day" {
		t.Fatalf("step 2 not seeded: %#v", card.Steps[1])
	}
	card, err = f.cards.ExecuteStep(ctx, f.editor, card.ID, api.ExecuteStepRequest{Step: 1, Provider: "deepl"})
	if err != nil {
		t.Fatalf("ExecuteStep 1: %v", err)
	}
	if !card.TranslationDone || card.CurrentTranslation != "શુભ દિવસ" {
		t.Fatalf("unexpected final state: done=%v current=%q", card.TranslationDone, card.CurrentTranslation)
	}

	card, err = f.cards.ApproveStep(ctx, f.admin, card.ID, api.ApproveStepRequest{Step: 1})
	if err != nil {
		t.Fatalf("ApproveStep: %v", err)
	}
	if card.Steps[1].Status != string(kanban.StepApproved) {
		t.Fatalf("expected approved step, got %#v", card.Steps[1])
	}
}

func TestExecuteStepHonorsBoardProviderSubset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.boardRequest()
	req.Translation.TargetLang = "en"
	req.Translation.IntermediateHop = false
	req.Translation.HopLang = ""
	req.Translation.Providers = []string{"deepl"}
	board, err := f.boards.Create(ctx, f.admin, req)
	if err != nil {
		t.Fatalf("Create board: %v", err)
	}
	card, err := f.cards.Create(ctx, f.editor, board.PublicID, api.CreateCardRequest{Title: "Greeting", Content: "Guten Tag"})
	if err != nil {
		t.Fatalf("Create card: %v", err)
	}

	// llm is registered globally but excluded from this board's subset.
	if _, err := f.cards.ExecuteStep(ctx, f.editor, card.ID, api.ExecuteStepRequest{Step: 0, Provider: "llm"}); !services.IsValidation(err) {
		t.Fatalf("expected validation error for excluded provider, got %v", err)
	}
	refreshed, err := f.cards.Get(ctx, f.editor, card.ID)
	if err != nil {
		t.Fatalf("Get card: %v", err)
	}
	if refreshed.Steps[0].Status != string(kanban.StepPending) || refreshed.Steps[0].Provider != "" {
		t.Fatalf("rejected execution mutated the step: %#v", refreshed.Steps[0])
	}

	card, err = f.cards.ExecuteStep(ctx, f.editor, card.ID, api.ExecuteStepRequest{Step: 0, Provider: "deepl"})
	if err != nil {
		t.Fatalf("ExecuteStep with enabled provider: %v", err)
	}
	if card.Steps[0].Status != string(kanban.StepCompleted) {
		t.Fatalf("expected completed step, got %#v", card.Steps[0])
	}
}
