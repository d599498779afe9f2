package api

import (
	"cardflow/internal/kanban"
	"cardflow/internal/translation"
)

// FromBoard converts a board record to its API representation.
func FromBoard(board *kanban.Board) Board {
	if board == nil {
		return Board{}
	}
	dto := Board{
		ID:         board.ID,
		PublicID:   board.PublicID,
		Title:      board.Title,
		CreatedBy:  board.CreatedBy,
		SharedWith: board.SharedWith,
		Translation: TranslationConfig{
			SourceLang:      board.Translation.SourceLang,
			TargetLang:      board.Translation.TargetLang,
			IntermediateHop: board.Translation.IntermediateHop,
			HopLang:         board.Translation.HopLang,
			Providers:       board.Translation.Providers,
		},
	}
	for _, stage := range board.Stages {
		dto.Stages = append(dto.Stages, Stage{ID: stage.ID, Title: stage.Title, WIPLimit: stage.WIPLimit})
	}
	for _, def := range board.Fields {
		dto.Fields = append(dto.Fields, FieldDef{Key: def.Key, Label: def.Label, Kind: string(def.Kind), Options: def.Options})
	}
	if !board.CreatedAt.IsZero() {
		dto.CreatedAt = board.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !board.UpdatedAt.IsZero() {
		dto.UpdatedAt = board.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromBoards converts a slice of board records into API DTOs.
func FromBoards(boards []*kanban.Board) []Board {
	if len(boards) == 0 {
		return nil
	}
	out := make([]Board, 0, len(boards))
	for _, board := range boards {
		out = append(out, FromBoard(board))
	}
	return out
}

// FromCard converts a card record to its API representation. The lock view
// is rendered for viewerID: the holder sees the card as editable, everyone
// else sees who holds it.
func FromCard(card *kanban.Card, lock *LockStatus) Card {
	if card == nil {
		return Card{}
	}
	dto := Card{
		ID:                 card.ID,
		BoardID:            card.BoardID,
		SeqNumber:          card.SeqNumber,
		Title:              card.Title,
		Content:            card.Content,
		StageID:            card.StageID,
		Assignee:           card.Assignee,
		CreatedBy:          card.CreatedBy,
		Lock:               lock,
		ReviewStatus:       string(card.Review.Status),
		NeedsReview:        card.NeedsReview,
		CurrentTranslation: translation.CurrentTranslation(card),
		TranslationDone:    translation.IsComplete(card),
	}
	if len(card.FieldValues) > 0 {
		dto.FieldValues = make(map[string]FieldValue, len(card.FieldValues))
		for key, value := range card.FieldValues {
			dto.FieldValues[key] = FieldValue{
				Kind:   string(value.Kind),
				Text:   value.Text,
				Number: value.Number,
				Date:   value.Date,
				Option: value.Option,
			}
		}
	}
	for _, step := range card.Steps {
		dto.Steps = append(dto.Steps, TranslationStep{
			FromLang:       step.FromLang,
			ToLang:         step.ToLang,
			OriginalText:   step.OriginalText,
			TranslatedText: step.TranslatedText,
			Status:         string(step.Status),
			ManuallyEdited: step.ManuallyEdited,
			Provider:       step.Provider,
			ErrorMessage:   step.ErrorMessage,
		})
	}
	if !card.CreatedAt.IsZero() {
		dto.CreatedAt = card.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !card.UpdatedAt.IsZero() {
		dto.UpdatedAt = card.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromUser converts a user record to its API representation.
func FromUser(user *kanban.User) User {
	if user == nil {
		return User{}
	}
	dto := User{ID: user.ID, Name: user.Name, Role: string(user.Role)}
	if !user.CreatedAt.IsZero() {
		dto.CreatedAt = user.CreatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromAuditEntries converts audit records into API DTOs.
func FromAuditEntries(entries []kanban.AuditEntry) []AuditEntry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]AuditEntry, 0, len(entries))
	for _, entry := range entries {
		dto := AuditEntry{
			ID:        entry.ID,
			CardID:    entry.CardID,
			Action:    entry.Action,
			FromStage: entry.FromStage,
			ToStage:   entry.ToStage,
			UserID:    entry.UserID,
		}
		if !entry.CreatedAt.IsZero() {
			dto.CreatedAt = entry.CreatedAt.UTC().Format(dateTimeFormat)
		}
		out = append(out, dto)
	}
	return out
}
