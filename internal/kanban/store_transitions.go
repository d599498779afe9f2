package kanban

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cardflow/internal/services"
)

// MoveStage updates a card's stage with a compare-and-set on the previous
// stage and appends the audit record in the same transaction. A concurrent
// racer that already moved the card causes services.ErrConflict instead of a
// silent overwrite.
func (s *Store) MoveStage(ctx context.Context, cardID int64, fromStage, toStage, userID string) error {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	return s.withImmediateTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(
			ctx,
			`UPDATE cards SET stage_id = ?, updated_at = ? WHERE id = ? AND stage_id = ?`,
			toStage,
			timestamp,
			cardID,
			fromStage,
		)
		if err != nil {
			return fmt.Errorf("update stage: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return services.Wrap(services.ErrConflict, "store", "move", fmt.Sprintf("card %d left stage %q before the move", cardID, fromStage), nil)
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO audit_log (card_id, action, from_stage, to_stage, user_id, created_at)
             VALUES (?, ?, ?, ?, ?, ?)`,
			cardID,
			AuditActionMove,
			fromStage,
			toStage,
			userID,
			timestamp,
		); err != nil {
			return fmt.Errorf("append audit record: %w", err)
		}
		return nil
	})
}

// AuditByCard returns a card's audit trail, newest first.
func (s *Store) AuditByCard(ctx context.Context, cardID int64, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, card_id, action, from_stage, to_stage, user_id, created_at
         FROM audit_log WHERE card_id = ? ORDER BY id DESC LIMIT ?`,
		cardID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()
	return scanAuditRows(rows)
}

// AuditByBoard returns the audit trail of every card on a board, newest first.
func (s *Store) AuditByBoard(ctx context.Context, boardID int64, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT a.id, a.card_id, a.action, a.from_stage, a.to_stage, a.user_id, a.created_at
         FROM audit_log a JOIN cards c ON c.id = a.card_id
         WHERE c.board_id = ? ORDER BY a.id DESC LIMIT ?`,
		boardID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query board audit log: %w", err)
	}
	defer rows.Close()
	return scanAuditRows(rows)
}

func scanAuditRows(rows *sql.Rows) ([]AuditEntry, error) {
	var entries []AuditEntry
	for rows.Next() {
		var (
			entry      AuditEntry
			createdRaw string
		)
		if err := rows.Scan(&entry.ID, &entry.CardID, &entry.Action, &entry.FromStage, &entry.ToStage, &entry.UserID, &createdRaw); err != nil {
			return nil, err
		}
		if created, err := parseTimeString(createdRaw); err == nil {
			entry.CreatedAt = created
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
