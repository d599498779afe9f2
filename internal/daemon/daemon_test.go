package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"cardflow/internal/api"
	"cardflow/internal/daemon"
	"cardflow/internal/logging"
	"cardflow/internal/testsupport"
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

func newDaemon(t *testing.T) *daemon.Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	registry := translation.NewRegistry(
		&stubProvider{name: "llm", results: map[string]string{"Guten Tag": "Good day"}},
	)
	d, err := daemon.New(cfg, store, registry, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
	})
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if len(status.Providers) != 1 || status.Providers[0] != "llm" {
		t.Fatalf("unexpected providers: %v", status.Providers)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

type apiClient struct {
	t      *testing.T
	base   string
	token  string
	userID string
}

func (c *apiClient) do(method, path string, payload, out any) int {
	c.t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			c.t.Fatalf("marshal request: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		c.t.Fatalf("build request: %v", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			c.t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestAPIEndToEnd(t *testing.T) {
	d := newDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	base := "http://" + d.APIAddr()

	client := &apiClient{t: t, base: base, token: "test-token"}

	// Unauthenticated requests are rejected before routing.
	if code := (&apiClient{t: t, base: base}).do(http.MethodGet, "/api/status", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", code)
	}

	var status api.DaemonStatus
	if code := client.do(http.MethodGet, "/api/status", nil, &status); code != http.StatusOK {
		t.Fatalf("status request failed: %d", code)
	}
	if !status.Running {
		t.Fatal("expected running status")
	}

	var admin, viewer api.User
	if code := client.do(http.MethodPost, "/api/users", api.CreateUserRequest{ID: "ada", Name: "Ada", Role: "admin"}, &admin); code != http.StatusCreated {
		t.Fatalf("create admin failed: %d", code)
	}
	if code := client.do(http.MethodPost, "/api/users", api.CreateUserRequest{ID: "vi", Name: "Vi", Role: "viewer"}, &viewer); code != http.StatusCreated {
		t.Fatalf("create viewer failed: %d", code)
	}

	adminClient := &apiClient{t: t, base: base, token: "test-token", userID: admin.ID}
	viewerClient := &apiClient{t: t, base: base, token: "test-token", userID: viewer.ID}

	var board api.Board
	createBoard := api.CreateBoardRequest{
		Title: "Localization",
		Stages: []api.Stage{
			{ID: "todo", Title: "To Do"},
			{ID: "doing", Title: "In Progress"},
			{ID: "done", Title: "Done"},
		},
		Translation: api.TranslationConfig{
			SourceLang: "de",
			TargetLang: "en",
			Providers:  []string{"llm"},
		},
		SharedWith: []string{viewer.ID},
	}
	if code := adminClient.do(http.MethodPost, "/api/boards", createBoard, &board); code != http.StatusCreated {
		t.Fatalf("create board failed: %d", code)
	}
	if board.PublicID == "" {
		t.Fatal("expected board public id")
	}

	var card api.Card
	createCard := api.CreateCardRequest{Title: "Greeting", Content: "Guten Tag"}
	cardsPath := fmt.Sprintf("/api/boards/%s/cards", board.PublicID)
	if code := adminClient.do(http.MethodPost, cardsPath, createCard, &card); code != http.StatusCreated {
		t.Fatalf("create card failed: %d", code)
	}
	if card.SeqNumber != 1 {
		t.Fatalf("expected sequence 1, got %d", card.SeqNumber)
	}
	if card.StageID != "todo" {
		t.Fatalf("expected card on first stage, got %q", card.StageID)
	}

	// Viewers may read but not move.
	if code := viewerClient.do(http.MethodGet, cardsPath, nil, nil); code != http.StatusOK {
		t.Fatalf("viewer list failed: %d", code)
	}
	movePath := fmt.Sprintf("/api/cards/%d/move", card.ID)
	if code := viewerClient.do(http.MethodPost, movePath, api.MoveCardRequest{TargetStage: "doing"}, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer move, got %d", code)
	}

	var moved api.Card
	if code := adminClient.do(http.MethodPost, movePath, api.MoveCardRequest{TargetStage: "doing"}, &moved); code != http.StatusOK {
		t.Fatalf("admin move failed: %d", code)
	}
	if moved.StageID != "doing" {
		t.Fatalf("expected card on doing, got %q", moved.StageID)
	}

	var audit api.AuditListResponse
	auditPath := fmt.Sprintf("/api/cards/%d/audit", card.ID)
	if code := adminClient.do(http.MethodGet, auditPath, nil, &audit); code != http.StatusOK {
		t.Fatalf("audit request failed: %d", code)
	}
	if len(audit.Entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(audit.Entries))
	}
	if audit.Entries[0].ToStage != "doing" || audit.Entries[0].UserID != admin.ID {
		t.Fatalf("unexpected audit entry: %+v", audit.Entries[0])
	}

	// Unknown stage is a validation error.
	if code := adminClient.do(http.MethodPost, movePath, api.MoveCardRequest{TargetStage: "shipped"}, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown stage, got %d", code)
	}

	// Edit locks arbitrate concurrent edits.
	lockPath := fmt.Sprintf("/api/cards/%d/lock", card.ID)
	var lock api.LockStatus
	if code := adminClient.do(http.MethodPost, lockPath, nil, &lock); code != http.StatusOK {
		t.Fatalf("acquire lock failed: %d", code)
	}
	if code := viewerClient.do(http.MethodPost, lockPath, nil, nil); code != http.StatusConflict {
		t.Fatalf("expected 409 for contested lock, got %d", code)
	}
	if code := adminClient.do(http.MethodDelete, lockPath, nil, nil); code != http.StatusOK {
		t.Fatalf("release lock failed: %d", code)
	}
	var sweep api.SweepResult
	if code := adminClient.do(http.MethodPost, "/api/locks/sweep", nil, &sweep); code != http.StatusOK {
		t.Fatalf("lock sweep failed: %d", code)
	}
	if sweep.Swept != 0 {
		t.Fatalf("expected no expired locks, swept %d", sweep.Swept)
	}

	// Translation runs through the registered provider.
	executePath := fmt.Sprintf("/api/cards/%d/translate/execute", card.ID)
	var translated api.Card
	if code := adminClient.do(http.MethodPost, executePath, api.ExecuteStepRequest{Step: 0, Provider: "llm"}, &translated); code != http.StatusOK {
		t.Fatalf("execute step failed: %d", code)
	}
	if translated.CurrentTranslation != "Good day" {
		t.Fatalf("unexpected translation: %q", translated.CurrentTranslation)
	}
}

func TestSecondInstanceBlocked(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = ""
	store := testsupport.MustOpenStore(t, cfg)
	registry := translation.NewRegistry(&stubProvider{name: "llm"})
	logger := logging.NewNop()

	first, err := daemon.New(cfg, store, registry, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(first.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	second, err := daemon.New(cfg, store, registry, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be rejected")
	}
}
