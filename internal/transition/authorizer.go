// Package transition decides whether a user may move a card between stages
// and records the decision's outcome in the audit log.
package transition

import (
	"context"
	"fmt"
	"log/slog"

	"cardflow/internal/kanban"
	"cardflow/internal/logging"
	"cardflow/internal/services"
)

// Authorizer evaluates stage moves. The decision rules are checked in a fixed
// order so each request has exactly one verdict:
//
//  1. Target stage must exist on the card's board.
//  2. A move to the card's current stage is an idempotent no-op: no
//     mutation, no audit entry, no error.
//  3. Viewers are always denied.
//  4. Editors may move a card only when it is unassigned or assigned to them.
//  5. Admins may move any card.
//
// An allowed move is applied as a compare-and-set on the card's prior stage,
// with the audit record written in the same transaction, so a racing mover
// surfaces as a conflict rather than a double-applied move.
type Authorizer struct {
	store  *kanban.Store
	logger *slog.Logger
}

// NewAuthorizer builds an Authorizer over the given store.
func NewAuthorizer(store *kanban.Store, logger *slog.Logger) *Authorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{
		store:  store,
		logger: logging.WithComponent(logger, "transition"),
	}
}

// Move validates and applies a stage transition on behalf of user.
func (a *Authorizer) Move(ctx context.Context, board *kanban.Board, card *kanban.Card, user *kanban.User, targetStage string) (*kanban.Card, error) {
	if board == nil || card == nil || user == nil {
		return nil, services.Wrap(services.ErrValidation, "transition", "move", "board, card, and user are required", nil)
	}
	if card.BoardID != board.ID {
		return nil, services.Wrap(services.ErrValidation, "transition", "move", "card does not belong to board", nil)
	}
	if _, ok := board.StageByID(targetStage); !ok {
		return nil, services.Wrap(services.ErrValidation, "transition", "move", fmt.Sprintf("stage %q is not defined on board %s", targetStage, board.PublicID), nil)
	}
	if card.StageID == targetStage {
		return card, nil
	}
	if err := authorize(card, user); err != nil {
		a.logger.Info("move denied",
			logging.FieldCardID, card.ID,
			logging.FieldUserID, user.ID,
			logging.FieldStage, targetStage,
			"role", user.Role,
		)
		return nil, err
	}

	if err := a.store.MoveStage(ctx, card.ID, card.StageID, targetStage, user.ID); err != nil {
		return nil, err
	}
	a.logger.Info("card moved",
		logging.FieldCardID, card.ID,
		logging.FieldUserID, user.ID,
		"from_stage", card.StageID,
		logging.FieldStage, targetStage,
	)
	return a.store.GetCard(ctx, card.ID)
}

func authorize(card *kanban.Card, user *kanban.User) error {
	switch user.Role {
	case kanban.RoleAdmin:
		return nil
	case kanban.RoleEditor:
		if card.Assignee == "" || card.Assignee == user.ID {
			return nil
		}
		return services.Wrap(services.ErrPermission, "transition", "move", fmt.Sprintf("card is assigned to %s", card.Assignee), nil)
	case kanban.RoleViewer:
		return services.Wrap(services.ErrPermission, "transition", "move", "viewers cannot move cards", nil)
	default:
		return services.Wrap(services.ErrPermission, "transition", "move", fmt.Sprintf("unknown role %q", user.Role), nil)
	}
}
