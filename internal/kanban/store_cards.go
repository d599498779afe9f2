package kanban

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CreateCard inserts a new card. The caller supplies the per-board sequence
// number (allocated through the sequence allocator) and the creation-time
// translation plan; the UNIQUE(board_id, seq_number) constraint backstops the
// allocator's uniqueness guarantee.
func (s *Store) CreateCard(ctx context.Context, card *Card) (*Card, error) {
	if card == nil {
		return nil, errors.New("card is nil")
	}
	if strings.TrimSpace(card.Title) == "" {
		return nil, errors.New("card title is required")
	}
	if card.BoardID == 0 {
		return nil, errors.New("card board is required")
	}
	if card.SeqNumber <= 0 {
		return nil, errors.New("card sequence number is required")
	}
	if strings.TrimSpace(card.StageID) == "" {
		return nil, errors.New("card stage is required")
	}
	if strings.TrimSpace(card.CreatedBy) == "" {
		return nil, errors.New("card creator is required")
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	fieldsJSON, err := encodeFieldValues(card.FieldValues)
	if err != nil {
		return nil, err
	}
	stepsJSON, err := EncodeSteps(card.Steps)
	if err != nil {
		return nil, err
	}
	reviewStatus := card.Review.Status
	if reviewStatus == "" {
		reviewStatus = ReviewPending
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO cards (
            board_id, seq_number, title, content, stage_id, assignee, created_by,
            field_values_json, steps_json, review_status, review_by, review_comment,
            needs_review, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		card.BoardID,
		card.SeqNumber,
		card.Title,
		nullableString(card.Content),
		card.StageID,
		nullableString(card.Assignee),
		card.CreatedBy,
		fieldsJSON,
		nullableString(stepsJSON),
		string(reviewStatus),
		nullableString(card.Review.Reviewer),
		nullableString(card.Review.Comment),
		boolToInt(card.NeedsReview),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert card: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetCard(ctx, id)
}

// GetCard fetches a card by identifier.
func (s *Store) GetCard(ctx context.Context, id int64) (*Card, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get card: %w", err)
	}
	return card, nil
}

// CardsByBoard returns a board's cards ordered by sequence number.
func (s *Store) CardsByBoard(ctx context.Context, boardID int64) ([]*Card, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE board_id = ? ORDER BY seq_number`, boardID)
	if err != nil {
		return nil, fmt.Errorf("query cards by board: %w", err)
	}
	defer rows.Close()

	var cards []*Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// CardsByStage returns a board's cards in the given stage ordered by sequence
// number.
func (s *Store) CardsByStage(ctx context.Context, boardID int64, stageID string) ([]*Card, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+cardColumns+` FROM cards WHERE board_id = ? AND stage_id = ? ORDER BY seq_number`,
		boardID,
		stageID,
	)
	if err != nil {
		return nil, fmt.Errorf("query cards by stage: %w", err)
	}
	defer rows.Close()

	var cards []*Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// StageCounts returns a count of cards per stage on a board, for observing
// work-in-progress limits.
func (s *Store) StageCounts(ctx context.Context, boardID int64) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT stage_id, COUNT(1) FROM cards WHERE board_id = ? GROUP BY stage_id`, boardID)
	if err != nil {
		return nil, fmt.Errorf("stage counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var stageID string
		var count int
		if err := rows.Scan(&stageID, &count); err != nil {
			return nil, err
		}
		counts[stageID] = count
	}
	return counts, rows.Err()
}

// UpdateCard persists title, content, assignee, custom fields, review state,
// and translation steps. Stage changes go through MoveStage and lock fields
// through the lock operations; this update deliberately leaves both alone.
func (s *Store) UpdateCard(ctx context.Context, card *Card) error {
	if card == nil {
		return errors.New("card is nil")
	}
	fieldsJSON, err := encodeFieldValues(card.FieldValues)
	if err != nil {
		return err
	}
	stepsJSON, err := EncodeSteps(card.Steps)
	if err != nil {
		return err
	}
	reviewStatus := card.Review.Status
	if reviewStatus == "" {
		reviewStatus = ReviewPending
	}
	card.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE cards
         SET title = ?, content = ?, assignee = ?, field_values_json = ?,
             steps_json = ?, review_status = ?, review_by = ?, review_comment = ?,
             needs_review = ?, updated_at = ?
         WHERE id = ?`,
		card.Title,
		nullableString(card.Content),
		nullableString(card.Assignee),
		fieldsJSON,
		nullableString(stepsJSON),
		string(reviewStatus),
		nullableString(card.Review.Reviewer),
		nullableString(card.Review.Comment),
		boolToInt(card.NeedsReview),
		card.UpdatedAt.Format(time.RFC3339Nano),
		card.ID,
	); err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	return nil
}

// UpdateSteps persists only a card's translation step list.
func (s *Store) UpdateSteps(ctx context.Context, cardID int64, steps []TranslationStep) error {
	stepsJSON, err := EncodeSteps(steps)
	if err != nil {
		return err
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE cards SET steps_json = ?, updated_at = ? WHERE id = ?`,
		nullableString(stepsJSON),
		time.Now().UTC().Format(time.RFC3339Nano),
		cardID,
	); err != nil {
		return fmt.Errorf("update steps: %w", err)
	}
	return nil
}
