package api

import (
	"context"
	"fmt"
	"strings"

	"cardflow/internal/kanban"
	"cardflow/internal/language"
	"cardflow/internal/services"
)

// BoardService validates and executes board operations against the store.
type BoardService struct {
	store            *kanban.Store
	enabledProviders map[string]struct{}
}

// NewBoardService constructs a BoardService. enabledProviders limits which
// provider names boards may reference in their translation configuration.
func NewBoardService(store *kanban.Store, enabledProviders []string) *BoardService {
	enabled := make(map[string]struct{}, len(enabledProviders))
	for _, name := range enabledProviders {
		enabled[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	return &BoardService{store: store, enabledProviders: enabled}
}

// Create validates the request and persists a new board owned by user.
func (s *BoardService) Create(ctx context.Context, user *kanban.User, req CreateBoardRequest) (Board, error) {
	if user == nil {
		return Board{}, services.Wrap(services.ErrValidation, "api", "create board", "user is required", nil)
	}
	board, err := s.buildBoard(user, req)
	if err != nil {
		return Board{}, err
	}
	created, err := s.store.CreateBoard(ctx, board)
	if err != nil {
		return Board{}, services.Wrap(services.ErrTransient, "api", "create board", "persist board", err)
	}
	return FromBoard(created), nil
}

// Get fetches a board by public identifier, enforcing membership.
func (s *BoardService) Get(ctx context.Context, user *kanban.User, publicID string) (Board, error) {
	board, err := s.resolve(ctx, user, publicID)
	if err != nil {
		return Board{}, err
	}
	return FromBoard(board), nil
}

// List returns the boards the user is a member of.
func (s *BoardService) List(ctx context.Context, user *kanban.User) ([]Board, error) {
	if user == nil {
		return nil, services.Wrap(services.ErrValidation, "api", "list boards", "user is required", nil)
	}
	boards, err := s.store.ListBoards(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "api", "list boards", "query boards", err)
	}
	var visible []*kanban.Board
	for _, board := range boards {
		if board.IsMember(user.ID) {
			visible = append(visible, board)
		}
	}
	return FromBoards(visible), nil
}

// Share adds a user to the board's shared set. Only the creator or an admin
// may share a board.
func (s *BoardService) Share(ctx context.Context, user *kanban.User, publicID, targetUserID string) (Board, error) {
	board, err := s.resolve(ctx, user, publicID)
	if err != nil {
		return Board{}, err
	}
	if board.CreatedBy != user.ID && user.Role != kanban.RoleAdmin {
		return Board{}, services.Wrap(services.ErrPermission, "api", "share board", "only the creator or an admin can share a board", nil)
	}
	targetUserID = strings.TrimSpace(targetUserID)
	if targetUserID == "" {
		return Board{}, services.Wrap(services.ErrValidation, "api", "share board", "target user is required", nil)
	}
	target, err := s.store.GetUser(ctx, targetUserID)
	if err != nil {
		return Board{}, services.Wrap(services.ErrTransient, "api", "share board", "look up user", err)
	}
	if target == nil {
		return Board{}, services.Wrap(services.ErrNotFound, "api", "share board", fmt.Sprintf("user %s not found", targetUserID), nil)
	}
	if !board.IsMember(targetUserID) {
		board.SharedWith = append(board.SharedWith, targetUserID)
		if err := s.store.UpdateBoard(ctx, board); err != nil {
			return Board{}, services.Wrap(services.ErrTransient, "api", "share board", "persist board", err)
		}
	}
	return FromBoard(board), nil
}

// StageCounts returns the number of cards per stage for a board.
func (s *BoardService) StageCounts(ctx context.Context, user *kanban.User, publicID string) (map[string]int, error) {
	board, err := s.resolve(ctx, user, publicID)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.StageCounts(ctx, board.ID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "api", "stage counts", "query counts", err)
	}
	return counts, nil
}

// Audit returns the board's move history across all cards, newest first.
func (s *BoardService) Audit(ctx context.Context, user *kanban.User, publicID string, limit int) ([]AuditEntry, error) {
	board, err := s.resolve(ctx, user, publicID)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.AuditByBoard(ctx, board.ID, limit)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "api", "audit", "query audit log", err)
	}
	return FromAuditEntries(entries), nil
}

// resolve fetches a board by public id and checks the user may see it.
func (s *BoardService) resolve(ctx context.Context, user *kanban.User, publicID string) (*kanban.Board, error) {
	if user == nil {
		return nil, services.Wrap(services.ErrValidation, "api", "board", "user is required", nil)
	}
	board, err := s.store.GetBoardByPublicID(ctx, strings.TrimSpace(publicID))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "api", "board", "query board", err)
	}
	if board == nil {
		return nil, services.Wrap(services.ErrNotFound, "api", "board", fmt.Sprintf("board %s not found", publicID), nil)
	}
	if !board.IsMember(user.ID) && user.Role != kanban.RoleAdmin {
		return nil, services.Wrap(services.ErrPermission, "api", "board", "user is not a member of this board", nil)
	}
	return board, nil
}

func (s *BoardService) buildBoard(user *kanban.User, req CreateBoardRequest) (*kanban.Board, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, services.Wrap(services.ErrValidation, "api", "create board", "title is required", nil)
	}
	if len(req.Stages) == 0 {
		return nil, services.Wrap(services.ErrValidation, "api", "create board", "at least one stage is required", nil)
	}

	stages := make([]kanban.Stage, 0, len(req.Stages))
	seen := make(map[string]struct{}, len(req.Stages))
	for _, stage := range req.Stages {
		id := strings.TrimSpace(stage.ID)
		if id == "" {
			return nil, services.Wrap(services.ErrValidation, "api", "create board", "stage id is required", nil)
		}
		if _, dup := seen[id]; dup {
			return nil, services.Wrap(services.ErrValidation, "api", "create board", fmt.Sprintf("duplicate stage id %q", id), nil)
		}
		seen[id] = struct{}{}
		if stage.WIPLimit < 0 {
			return nil, services.Wrap(services.ErrValidation, "api", "create board", fmt.Sprintf("stage %q: negative WIP limit", id), nil)
		}
		stages = append(stages, kanban.Stage{ID: id, Title: strings.TrimSpace(stage.Title), WIPLimit: stage.WIPLimit})
	}

	fields := make([]kanban.FieldDef, 0, len(req.Fields))
	fieldKeys := make(map[string]struct{}, len(req.Fields))
	for _, def := range req.Fields {
		key := strings.TrimSpace(def.Key)
		if key == "" {
			return nil, services.Wrap(services.ErrValidation, "api", "create board", "field key is required", nil)
		}
		if _, dup := fieldKeys[key]; dup {
			return nil, services.Wrap(services.ErrValidation, "api", "create board", fmt.Sprintf("duplicate field key %q", key), nil)
		}
		fieldKeys[key] = struct{}{}
		kind, ok := kanban.ParseFieldKind(def.Kind)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "api", "create board", fmt.Sprintf("field %q: unknown kind %q", key, def.Kind), nil)
		}
		if kind == kanban.FieldSelect && len(def.Options) == 0 {
			return nil, services.Wrap(services.ErrValidation, "api", "create board", fmt.Sprintf("field %q: select fields need options", key), nil)
		}
		fields = append(fields, kanban.FieldDef{Key: key, Label: strings.TrimSpace(def.Label), Kind: kind, Options: def.Options})
	}

	tc, err := s.buildTranslationConfig(req.Translation)
	if err != nil {
		return nil, err
	}

	return &kanban.Board{
		Title:       title,
		Stages:      stages,
		Fields:      fields,
		Translation: tc,
		CreatedBy:   user.ID,
		SharedWith:  req.SharedWith,
	}, nil
}

func (s *BoardService) buildTranslationConfig(req TranslationConfig) (kanban.TranslationConfig, error) {
	var empty kanban.TranslationConfig
	source, err := language.Normalize(req.SourceLang)
	if err != nil {
		return empty, services.Wrap(services.ErrValidation, "api", "create board", fmt.Sprintf("source language %q", req.SourceLang), err)
	}
	target, err := language.Normalize(req.TargetLang)
	if err != nil {
		return empty, services.Wrap(services.ErrValidation, "api", "create board", fmt.Sprintf("target language %q", req.TargetLang), err)
	}
	if source == target {
		return empty, services.Wrap(services.ErrValidation, "api", "create board", "source and target languages must differ", nil)
	}
	hop := ""
	if req.IntermediateHop {
		hop, err = language.Normalize(req.HopLang)
		if err != nil {
			return empty, services.Wrap(services.ErrValidation, "api", "create board", fmt.Sprintf("hop language %q", req.HopLang), err)
		}
	}
	providers := make([]string, 0, len(req.Providers))
	for _, name := range req.Providers {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if _, ok := s.enabledProviders[normalized]; !ok {
			return empty, services.Wrap(services.ErrValidation, "api", "create board", fmt.Sprintf("provider %q is not enabled", name), nil)
		}
		providers = append(providers, normalized)
	}
	return kanban.TranslationConfig{
		SourceLang:      source,
		TargetLang:      target,
		IntermediateHop: req.IntermediateHop,
		HopLang:         hop,
		Providers:       providers,
	}, nil
}
