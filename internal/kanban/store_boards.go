package kanban

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateBoard inserts a new board with its stage pipeline, field definitions,
// and translation configuration.
func (s *Store) CreateBoard(ctx context.Context, board *Board) (*Board, error) {
	if board == nil {
		return nil, errors.New("board is nil")
	}
	if strings.TrimSpace(board.Title) == "" {
		return nil, errors.New("board title is required")
	}
	if len(board.Stages) == 0 {
		return nil, errors.New("board requires at least one stage")
	}
	if strings.TrimSpace(board.CreatedBy) == "" {
		return nil, errors.New("board creator is required")
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	publicID := board.PublicID
	if publicID == "" {
		publicID = uuid.NewString()
	}

	stagesJSON, err := encodeJSONColumn(board.Stages)
	if err != nil {
		return nil, err
	}
	var fieldsJSON any
	if len(board.Fields) > 0 {
		if fieldsJSON, err = encodeJSONColumn(board.Fields); err != nil {
			return nil, err
		}
	}
	translationJSON, err := encodeJSONColumn(board.Translation)
	if err != nil {
		return nil, err
	}
	var sharedJSON any
	if len(board.SharedWith) > 0 {
		if sharedJSON, err = encodeJSONColumn(board.SharedWith); err != nil {
			return nil, err
		}
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO boards (
            public_id, title, stages_json, fields_json, translation_json,
            created_by, shared_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		publicID,
		board.Title,
		stagesJSON,
		fieldsJSON,
		translationJSON,
		board.CreatedBy,
		sharedJSON,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert board: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetBoard(ctx, id)
}

// GetBoard fetches a board by identifier.
func (s *Store) GetBoard(ctx context.Context, id int64) (*Board, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+boardColumns+` FROM boards WHERE id = ?`, id)
	board, err := scanBoard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get board: %w", err)
	}
	return board, nil
}

// GetBoardByPublicID fetches a board by its public identifier.
func (s *Store) GetBoardByPublicID(ctx context.Context, publicID string) (*Board, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+boardColumns+` FROM boards WHERE public_id = ?`, publicID)
	board, err := scanBoard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get board by public id: %w", err)
	}
	return board, nil
}

// ListBoards returns all boards ordered by creation time.
func (s *Store) ListBoards(ctx context.Context) ([]*Board, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+boardColumns+` FROM boards ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	var boards []*Board
	for rows.Next() {
		board, err := scanBoard(rows)
		if err != nil {
			return nil, err
		}
		boards = append(boards, board)
	}
	return boards, rows.Err()
}

// UpdateBoard persists title, stages, fields, translation config, and sharing
// changes. Existing cards keep their creation-time translation snapshots.
func (s *Store) UpdateBoard(ctx context.Context, board *Board) error {
	if board == nil {
		return errors.New("board is nil")
	}
	stagesJSON, err := encodeJSONColumn(board.Stages)
	if err != nil {
		return err
	}
	var fieldsJSON any
	if len(board.Fields) > 0 {
		if fieldsJSON, err = encodeJSONColumn(board.Fields); err != nil {
			return err
		}
	}
	translationJSON, err := encodeJSONColumn(board.Translation)
	if err != nil {
		return err
	}
	var sharedJSON any
	if len(board.SharedWith) > 0 {
		if sharedJSON, err = encodeJSONColumn(board.SharedWith); err != nil {
			return err
		}
	}
	board.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE boards
         SET title = ?, stages_json = ?, fields_json = ?, translation_json = ?,
             shared_json = ?, updated_at = ?
         WHERE id = ?`,
		board.Title,
		stagesJSON,
		fieldsJSON,
		translationJSON,
		sharedJSON,
		board.UpdatedAt.Format(time.RFC3339Nano),
		board.ID,
	); err != nil {
		return fmt.Errorf("update board: %w", err)
	}
	return nil
}

// CreateUser inserts a new user with the given role. An empty ID is assigned
// a fresh UUID.
func (s *Store) CreateUser(ctx context.Context, user *User) (*User, error) {
	if user == nil {
		return nil, errors.New("user is nil")
	}
	if _, ok := roleSet[user.Role]; !ok {
		return nil, fmt.Errorf("unknown role %q", user.Role)
	}
	if strings.TrimSpace(user.Name) == "" {
		return nil, errors.New("user name is required")
	}
	id := user.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO users (id, name, role, created_at) VALUES (?, ?, ?, ?)`,
		id,
		user.Name,
		string(user.Role),
		now.Format(time.RFC3339Nano),
	); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetUser(ctx, id)
}

// GetUser fetches a user by identifier.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, role, created_at FROM users WHERE id = ?`, id)
	var (
		user       User
		roleStr    string
		createdRaw string
	)
	err := row.Scan(&user.ID, &user.Name, &roleStr, &createdRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	role, ok := ParseRole(roleStr)
	if !ok {
		return nil, fmt.Errorf("user %s has unknown role %q", id, roleStr)
	}
	user.Role = role
	if created, err := parseTimeString(createdRaw); err == nil {
		user.CreatedAt = created
	}
	return &user, nil
}

const boardColumns = "id, public_id, title, stages_json, fields_json, translation_json, created_by, shared_json, created_at, updated_at"

func scanBoard(scanner interface{ Scan(dest ...any) error }) (*Board, error) {
	var (
		id              int64
		publicID        string
		title           string
		stagesRaw       string
		fieldsRaw       sql.NullString
		translationRaw  sql.NullString
		createdBy       string
		sharedRaw       sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&publicID,
		&title,
		&stagesRaw,
		&fieldsRaw,
		&translationRaw,
		&createdBy,
		&sharedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	board := &Board{
		ID:        id,
		PublicID:  publicID,
		Title:     title,
		CreatedBy: createdBy,
	}
	if err := json.Unmarshal([]byte(stagesRaw), &board.Stages); err != nil {
		return nil, fmt.Errorf("decode stages for board %d: %w", id, err)
	}
	if fieldsRaw.Valid && strings.TrimSpace(fieldsRaw.String) != "" {
		if err := json.Unmarshal([]byte(fieldsRaw.String), &board.Fields); err != nil {
			return nil, fmt.Errorf("decode fields for board %d: %w", id, err)
		}
	}
	if translationRaw.Valid && strings.TrimSpace(translationRaw.String) != "" {
		if err := json.Unmarshal([]byte(translationRaw.String), &board.Translation); err != nil {
			return nil, fmt.Errorf("decode translation config for board %d: %w", id, err)
		}
	}
	if sharedRaw.Valid && strings.TrimSpace(sharedRaw.String) != "" {
		if err := json.Unmarshal([]byte(sharedRaw.String), &board.SharedWith); err != nil {
			return nil, fmt.Errorf("decode shared users for board %d: %w", id, err)
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		board.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		board.UpdatedAt = updated
	}
	return board, nil
}
