package kanban

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const cardColumns = "id, board_id, seq_number, title, content, stage_id, assignee, created_by, field_values_json, locked, lock_holder, lock_acquired_at, lock_expires_at, steps_json, review_status, review_by, review_comment, needs_review, created_at, updated_at"

func scanCard(scanner interface{ Scan(dest ...any) error }) (*Card, error) {
	var (
		id            int64
		boardID       int64
		seqNumber     int64
		title         string
		content       sql.NullString
		stageID       string
		assignee      sql.NullString
		createdBy     string
		fieldsRaw     sql.NullString
		locked        sql.NullInt64
		lockHolder    sql.NullString
		lockAcquired  sql.NullString
		lockExpires   sql.NullString
		stepsRaw      sql.NullString
		reviewStatus  sql.NullString
		reviewBy      sql.NullString
		reviewComment sql.NullString
		needsReview   sql.NullInt64
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&boardID,
		&seqNumber,
		&title,
		&content,
		&stageID,
		&assignee,
		&createdBy,
		&fieldsRaw,
		&locked,
		&lockHolder,
		&lockAcquired,
		&lockExpires,
		&stepsRaw,
		&reviewStatus,
		&reviewBy,
		&reviewComment,
		&needsReview,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	card := &Card{
		ID:        id,
		BoardID:   boardID,
		SeqNumber: seqNumber,
		Title:     title,
		Content:   content.String,
		StageID:   stageID,
		Assignee:  assignee.String,
		CreatedBy: createdBy,
		Review: ReviewState{
			Status:   ReviewStatus(reviewStatus.String),
			Reviewer: reviewBy.String,
			Comment:  reviewComment.String,
		},
	}
	if card.Review.Status == "" {
		card.Review.Status = ReviewPending
	}
	if needsReview.Valid {
		card.NeedsReview = needsReview.Int64 != 0
	}

	if fieldsRaw.Valid && strings.TrimSpace(fieldsRaw.String) != "" {
		values := map[string]FieldValue{}
		if err := json.Unmarshal([]byte(fieldsRaw.String), &values); err != nil {
			return nil, fmt.Errorf("decode field values for card %d: %w", id, err)
		}
		card.FieldValues = values
	}

	steps, err := DecodeSteps(stepsRaw.String)
	if err != nil {
		return nil, fmt.Errorf("decode steps for card %d: %w", id, err)
	}
	card.Steps = steps

	card.Lock.Locked = locked.Valid && locked.Int64 != 0
	card.Lock.Holder = lockHolder.String
	if lockAcquired.Valid {
		if at, err := parseTimeString(lockAcquired.String); err == nil {
			card.Lock.AcquiredAt = &at
		}
	}
	if lockExpires.Valid {
		if at, err := parseTimeString(lockExpires.String); err == nil {
			card.Lock.ExpiresAt = &at
		}
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		card.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		card.UpdatedAt = updated
	}
	return card, nil
}

func encodeFieldValues(values map[string]FieldValue) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("marshal field values: %w", err)
	}
	return string(data), nil
}

func encodeJSONColumn(value any) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal column: %w", err)
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
