package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/verte-zerg/franklin/internal/model"
)

// ErrEmptyText is returned when a text has no content after trimming.
var ErrEmptyText = errors.New("content is required")

// CreateText stores a journal note.
func (s *Store) CreateText(ctx context.Context, userID, content string) (model.Text, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Text{}, ErrEmptyText
	}
	text := model.Text{
		ID:        uuid.NewString(),
		UserID:    userID,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO texts (id, user_id, content, created_at) VALUES (?, ?, ?, ?)`,
		text.ID, text.UserID, text.Content, formatTime(text.CreatedAt),
	); err != nil {
		return model.Text{}, fmt.Errorf("insert text: %w", err)
	}
	return text, nil
}

// ListTexts returns the user's notes, newest first.
func (s *Store) ListTexts(ctx context.Context, userID string) ([]model.Text, error) {
	return s.queryTexts(ctx, textSelect+` WHERE user_id = ? ORDER BY created_at DESC, id ASC`, userID)
}

// ListAllTexts returns the notes of every user, newest first.
func (s *Store) ListAllTexts(ctx context.Context) ([]model.Text, error) {
	return s.queryTexts(ctx, textSelect+` ORDER BY created_at DESC, id ASC`)
}

const textSelect = `SELECT id, user_id, content, created_at FROM texts`

func (s *Store) queryTexts(ctx context.Context, query string, args ...any) ([]model.Text, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	texts := []model.Text{}
	for rows.Next() {
		var text model.Text
		var createdAt string
		if err := rows.Scan(&text.ID, &text.UserID, &text.Content, &createdAt); err != nil {
			return nil, err
		}
		parsed, err := parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		text.CreatedAt = parsed
		texts = append(texts, text)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return texts, nil
}

// ResetResult counts the rows removed by ResetData.
type ResetResult struct {
	Rules    int64 `json:"rules"`
	GridData int64 `json:"gridData"`
	Texts    int64 `json:"texts"`
}

// ResetData deletes the rules, grid entries and notes of every user in one
// transaction. Accounts are kept.
func (s *Store) ResetData(ctx context.Context) (ResetResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ResetResult{}, err
	}
	defer rollback(tx)

	var result ResetResult
	for _, step := range []struct {
		table string
		count *int64
	}{
		{"rules", &result.Rules},
		{"grid_entries", &result.GridData},
		{"texts", &result.Texts},
	} {
		res, err := tx.ExecContext(ctx, `DELETE FROM `+step.table)
		if err != nil {
			return ResetResult{}, fmt.Errorf("clear %s: %w", step.table, err)
		}
		if *step.count, err = res.RowsAffected(); err != nil {
			return ResetResult{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return ResetResult{}, err
	}
	return result, nil
}
