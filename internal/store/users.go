package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/verte-zerg/franklin/internal/model"
)

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UpsertUserByEmail creates the user or refreshes the profile of an existing one.
// The admin flag is overwritten with the caller's decision.
func (s *Store) UpsertUserByEmail(ctx context.Context, user model.User) (model.User, error) {
	user.Email = NormalizeEmail(user.Email)
	if user.Email == "" {
		return model.User{}, fmt.Errorf("email is required")
	}
	if strings.TrimSpace(user.Name) == "" {
		user.Name = user.Email
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, err
	}
	defer rollback(tx)

	existing, err := scanUser(tx.QueryRowContext(ctx, userSelect+` WHERE email = ?`, user.Email))
	switch {
	case errors.Is(err, ErrNotFound):
		user.ID = uuid.NewString()
		user.CreatedAt = s.now().UTC()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, email, name, picture, google_id, is_admin, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			user.ID, user.Email, user.Name, user.Picture, user.GoogleID, boolToInt(user.IsAdmin), formatTime(user.CreatedAt),
		); err != nil {
			return model.User{}, fmt.Errorf("insert user: %w", err)
		}
	case err != nil:
		return model.User{}, err
	default:
		user.ID = existing.ID
		user.CreatedAt = existing.CreatedAt
		if user.GoogleID == "" {
			user.GoogleID = existing.GoogleID
		}
		if user.Picture == "" {
			user.Picture = existing.Picture
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET name = ?, picture = ?, google_id = ?, is_admin = ? WHERE id = ?`,
			user.Name, user.Picture, user.GoogleID, boolToInt(user.IsAdmin), user.ID,
		); err != nil {
			return model.User{}, fmt.Errorf("update user: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return model.User{}, err
	}
	return user, nil
}

// GetUser returns a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, userSelect+` WHERE id = ?`, id))
}

// GetUserByEmail returns a user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, userSelect+` WHERE email = ?`, NormalizeEmail(email)))
}

// ListUsers returns all users, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, userSelect+` ORDER BY created_at DESC, email ASC`)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	users := []model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

const userSelect = `SELECT id, email, name, picture, google_id, is_admin, created_at FROM users`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var user model.User
	var isAdmin int
	var createdAt string
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Picture, &user.GoogleID, &isAdmin, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	parsed, err := parseTime(createdAt)
	if err != nil {
		return model.User{}, err
	}
	user.IsAdmin = isAdmin != 0
	user.CreatedAt = parsed
	return user, nil
}
