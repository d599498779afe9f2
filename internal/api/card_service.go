package api

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cardflow/internal/editlock"
	"cardflow/internal/kanban"
	"cardflow/internal/logging"
	"cardflow/internal/sequence"
	"cardflow/internal/services"
	"cardflow/internal/transition"
	"cardflow/internal/translation"
)

// CardService coordinates the engines behind card operations: sequence
// allocation on create, lock arbitration on edit, the authorizer on stage
// moves, and the pipeline on translation steps.
type CardService struct {
	store      *kanban.Store
	allocator  *sequence.Allocator
	locks      *editlock.Manager
	authorizer *transition.Authorizer
	pipeline   *translation.Pipeline
	logger     *slog.Logger
}

// NewCardService wires a CardService from its collaborators.
func NewCardService(
	store *kanban.Store,
	allocator *sequence.Allocator,
	locks *editlock.Manager,
	authorizer *transition.Authorizer,
	pipeline *translation.Pipeline,
	logger *slog.Logger,
) *CardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CardService{
		store:      store,
		allocator:  allocator,
		locks:      locks,
		authorizer: authorizer,
		pipeline:   pipeline,
		logger:     logging.WithComponent(logger, "api"),
	}
}

// Create allocates a sequence number, snapshots the board's translation plan,
// and persists a new card. A degraded allocation flags the card for review.
func (s *CardService) Create(ctx context.Context, user *kanban.User, boardPublicID string, req CreateCardRequest) (Card, error) {
	board, err := s.resolveBoard(ctx, user, boardPublicID)
	if err != nil {
		return Card{}, err
	}
	if user.Role == kanban.RoleViewer {
		return Card{}, services.Wrap(services.ErrPermission, "api", "create card", "viewers cannot create cards", nil)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return Card{}, services.Wrap(services.ErrValidation, "api", "create card", "title is required", nil)
	}
	values, err := convertFieldValues(req.FieldValues)
	if err != nil {
		return Card{}, err
	}
	if err := kanban.ValidateFieldValues(board.Fields, values); err != nil {
		return Card{}, services.Wrap(services.ErrValidation, "api", "create card", "field values", err)
	}

	alloc, err := s.allocator.Next(ctx, board.ID)
	if err != nil {
		return Card{}, err
	}

	card := &kanban.Card{
		BoardID:     board.ID,
		SeqNumber:   alloc.Number,
		Title:       title,
		Content:     req.Content,
		StageID:     board.Stages[0].ID,
		Assignee:    strings.TrimSpace(req.Assignee),
		CreatedBy:   user.ID,
		FieldValues: values,
		Steps:       translation.BuildPlan(board.Translation, req.Content),
		NeedsReview: alloc.Degraded,
	}
	created, err := s.store.CreateCard(ctx, card)
	if err != nil {
		return Card{}, services.Wrap(services.ErrTransient, "api", "create card", "persist card", err)
	}
	s.logger.Info("card created",
		logging.FieldBoardID, board.ID,
		logging.FieldCardID, created.ID,
		logging.FieldUserID, user.ID,
		"seq_number", created.SeqNumber,
		"degraded", alloc.Degraded,
	)
	return s.render(created, user), nil
}

// Get fetches one card.
func (s *CardService) Get(ctx context.Context, user *kanban.User, cardID int64) (Card, error) {
	card, _, err := s.resolveCard(ctx, user, cardID)
	if err != nil {
		return Card{}, err
	}
	return s.render(card, user), nil
}

// List returns a board's cards ordered by sequence number.
func (s *CardService) List(ctx context.Context, user *kanban.User, boardPublicID string) ([]Card, error) {
	board, err := s.resolveBoard(ctx, user, boardPublicID)
	if err != nil {
		return nil, err
	}
	cards, err := s.store.CardsByBoard(ctx, board.ID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "api", "list cards", "query cards", err)
	}
	out := make([]Card, 0, len(cards))
	for _, card := range cards {
		out = append(out, s.render(card, user))
	}
	return out, nil
}

// Update applies a full-card edit. The edit is refused while another user
// holds a live lock on the card; sessions that honor the lock protocol are
// protected from overwriting each other.
func (s *CardService) Update(ctx context.Context, user *kanban.User, cardID int64, req UpdateCardRequest) (Card, error) {
	card, board, err := s.resolveCard(ctx, user, cardID)
	if err != nil {
		return Card{}, err
	}
	if user.Role == kanban.RoleViewer {
		return Card{}, services.Wrap(services.ErrPermission, "api", "update card", "viewers cannot edit cards", nil)
	}
	if status := s.locks.Status(card, user.ID); status.Locked {
		return Card{}, services.Wrap(services.ErrConflict, "api", "update card", fmt.Sprintf("card locked by %s", status.Holder), nil)
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return Card{}, services.Wrap(services.ErrValidation, "api", "update card", "title cannot be empty", nil)
		}
		card.Title = title
	}
	if req.Content != nil {
		card.Content = *req.Content
	}
	if req.Assignee != nil {
		card.Assignee = strings.TrimSpace(*req.Assignee)
	}
	if req.FieldValues != nil {
		values, err := convertFieldValues(req.FieldValues)
		if err != nil {
			return Card{}, err
		}
		if err := kanban.ValidateFieldValues(board.Fields, values); err != nil {
			return Card{}, services.Wrap(services.ErrValidation, "api", "update card", "field values", err)
		}
		card.FieldValues = values
	}

	if err := s.store.UpdateCard(ctx, card); err != nil {
		return Card{}, services.Wrap(services.ErrTransient, "api", "update card", "persist card", err)
	}
	updated, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return Card{}, services.Wrap(services.ErrTransient, "api", "update card", "reload card", err)
	}
	return s.render(updated, user), nil
}

// Move requests a stage transition through the authorizer.
func (s *CardService) Move(ctx context.Context, user *kanban.User, cardID int64, targetStage string) (Card, error) {
	card, board, err := s.resolveCard(ctx, user, cardID)
	if err != nil {
		return Card{}, err
	}
	moved, err := s.authorizer.Move(ctx, board, card, user, strings.TrimSpace(targetStage))
	if err != nil {
		return Card{}, err
	}
	return s.render(moved, user), nil
}

// AcquireLock claims the card's edit lock for the user.
func (s *CardService) AcquireLock(ctx context.Context, user *kanban.User, cardID int64) (LockStatus, error) {
	if _, _, err := s.resolveCard(ctx, user, cardID); err != nil {
		return LockStatus{}, err
	}
	lock, err := s.locks.Acquire(ctx, cardID, user.ID)
	if err != nil {
		return LockStatus{}, err
	}
	return lockStateDTO(lock), nil
}

// RefreshLock extends a lock the user already holds.
func (s *CardService) RefreshLock(ctx context.Context, user *kanban.User, cardID int64) (LockStatus, error) {
	if _, _, err := s.resolveCard(ctx, user, cardID); err != nil {
		return LockStatus{}, err
	}
	lock, err := s.locks.Refresh(ctx, cardID, user.ID)
	if err != nil {
		return LockStatus{}, err
	}
	return lockStateDTO(lock), nil
}

// ReleaseLock drops the user's edit lock on the card.
func (s *CardService) ReleaseLock(ctx context.Context, user *kanban.User, cardID int64) error {
	if _, _, err := s.resolveCard(ctx, user, cardID); err != nil {
		return err
	}
	return s.locks.Release(ctx, cardID, user.ID)
}

// LockStatus reports the card's lock as seen by the user.
func (s *CardService) LockStatus(ctx context.Context, user *kanban.User, cardID int64) (LockStatus, error) {
	card, _, err := s.resolveCard(ctx, user, cardID)
	if err != nil {
		return LockStatus{}, err
	}
	return lockStatusDTO(s.locks.Status(card, user.ID)), nil
}

// ExecuteStep runs one translation step through the named provider. The
// provider must be part of the board's configured subset when one is set.
func (s *CardService) ExecuteStep(ctx context.Context, user *kanban.User, cardID int64, req ExecuteStepRequest) (Card, error) {
	card, board, err := s.resolveCard(ctx, user, cardID)
	if err != nil {
		return Card{}, err
	}
	if user.Role == kanban.RoleViewer {
		return Card{}, services.Wrap(services.ErrPermission, "api", "execute step", "viewers cannot run translations", nil)
	}
	if !boardAllowsProvider(board, req.Provider) {
		return Card{}, services.Wrap(services.ErrValidation, "api", "execute step", fmt.Sprintf("provider %q is not enabled on board %s", req.Provider, board.PublicID), nil)
	}
	updated, err := s.pipeline.Execute(ctx, card, req.Step, req.Provider)
	if err != nil {
		return Card{}, err
	}
	return s.render(updated, user), nil
}

// ManualStep records a hand-entered translation for a step.
func (s *CardService) ManualStep(ctx context.Context, user *kanban.User, cardID int64, req ManualStepRequest) (Card, error) {
	card, _, err := s.resolveCard(ctx, user, cardID)
	if err != nil {
		return Card{}, err
	}
	if user.Role == kanban.RoleViewer {
		return Card{}, services.Wrap(services.ErrPermission, "api", "manual step", "viewers cannot edit translations", nil)
	}
	updated, err := s.pipeline.SetManual(ctx, card, req.Step, req.Text)
	if err != nil {
		return Card{}, err
	}
	return s.render(updated, user), nil
}

// ApproveStep promotes a completed step to approved.
func (s *CardService) ApproveStep(ctx context.Context, user *kanban.User, cardID int64, req ApproveStepRequest) (Card, error) {
	card, _, err := s.resolveCard(ctx, user, cardID)
	if err != nil {
		return Card{}, err
	}
	if user.Role == kanban.RoleViewer {
		return Card{}, services.Wrap(services.ErrPermission, "api", "approve step", "viewers cannot approve translations", nil)
	}
	updated, err := s.pipeline.Approve(ctx, card, req.Step)
	if err != nil {
		return Card{}, err
	}
	return s.render(updated, user), nil
}

// Audit returns the card's move history, newest first.
func (s *CardService) Audit(ctx context.Context, user *kanban.User, cardID int64, limit int) ([]AuditEntry, error) {
	if _, _, err := s.resolveCard(ctx, user, cardID); err != nil {
		return nil, err
	}
	entries, err := s.store.AuditByCard(ctx, cardID, limit)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "api", "audit", "query audit log", err)
	}
	return FromAuditEntries(entries), nil
}

func (s *CardService) resolveBoard(ctx context.Context, user *kanban.User, publicID string) (*kanban.Board, error) {
	if user == nil {
		return nil, services.Wrap(services.ErrValidation, "api", "card", "user is required", nil)
	}
	board, err := s.store.GetBoardByPublicID(ctx, strings.TrimSpace(publicID))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "api", "card", "query board", err)
	}
	if board == nil {
		return nil, services.Wrap(services.ErrNotFound, "api", "card", fmt.Sprintf("board %s not found", publicID), nil)
	}
	if !board.IsMember(user.ID) && user.Role != kanban.RoleAdmin {
		return nil, services.Wrap(services.ErrPermission, "api", "card", "user is not a member of this board", nil)
	}
	return board, nil
}

// boardAllowsProvider reports whether the board's configured provider subset
// admits the named provider. An empty subset admits every registered one.
func boardAllowsProvider(board *kanban.Board, name string) bool {
	if len(board.Translation.Providers) == 0 {
		return true
	}
	normalized := strings.ToLower(strings.TrimSpace(name))
	for _, enabled := range board.Translation.Providers {
		if enabled == normalized {
			return true
		}
	}
	return false
}

func (s *CardService) resolveCard(ctx context.Context, user *kanban.User, cardID int64) (*kanban.Card, *kanban.Board, error) {
	if user == nil {
		return nil, nil, services.Wrap(services.ErrValidation, "api", "card", "user is required", nil)
	}
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrTransient, "api", "card", "query card", err)
	}
	if card == nil {
		return nil, nil, services.Wrap(services.ErrNotFound, "api", "card", fmt.Sprintf("card %d not found", cardID), nil)
	}
	board, err := s.store.GetBoard(ctx, card.BoardID)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrTransient, "api", "card", "query board", err)
	}
	if board == nil {
		return nil, nil, services.Wrap(services.ErrNotFound, "api", "card", fmt.Sprintf("board %d not found", card.BoardID), nil)
	}
	if !board.IsMember(user.ID) && user.Role != kanban.RoleAdmin {
		return nil, nil, services.Wrap(services.ErrPermission, "api", "card", "user is not a member of this board", nil)
	}
	return card, board, nil
}

func (s *CardService) render(card *kanban.Card, user *kanban.User) Card {
	status := lockStatusDTO(s.locks.Status(card, user.ID))
	return FromCard(card, &status)
}

func lockStateDTO(lock kanban.LockState) LockStatus {
	dto := LockStatus{Locked: lock.Locked, Holder: lock.Holder}
	if lock.ExpiresAt != nil {
		dto.ExpiresAt = lock.ExpiresAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

func lockStatusDTO(status editlock.Status) LockStatus {
	dto := LockStatus{Locked: status.Locked, Holder: status.Holder}
	if status.ExpiresAt != nil {
		dto.ExpiresAt = status.ExpiresAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

func convertFieldValues(values map[string]FieldValue) (map[string]kanban.FieldValue, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[string]kanban.FieldValue, len(values))
	for key, value := range values {
		kind, ok := kanban.ParseFieldKind(value.Kind)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "api", "card", fmt.Sprintf("field %q: unknown kind %q", key, value.Kind), nil)
		}
		out[key] = kanban.FieldValue{
			Kind:   kind,
			Text:   value.Text,
			Number: value.Number,
			Date:   value.Date,
			Option: value.Option,
		}
	}
	return out, nil
}
