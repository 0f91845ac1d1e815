package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/verte-zerg/franklin/internal/calendar"
	"github.com/verte-zerg/franklin/internal/model"
)

// ReplaceResult reports the outcome of an all-user CSV replace.
type ReplaceResult struct {
	Imported int      `json:"count"`
	Skipped  []string `json:"skippedEmails,omitempty"`
}

// Newest key first: month, then day, both descending.
const gridOrder = `ORDER BY substr(date, 4, 2) DESC, substr(date, 1, 2) DESC, rule ASC`

// UpsertGridEntry writes the status of one cell. The last write wins. It
// reports whether the entry was created rather than updated.
func (s *Store) UpsertGridEntry(ctx context.Context, entry model.GridEntry) (model.GridEntry, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.GridEntry{}, false, err
	}
	defer rollback(tx)

	now := s.now().UTC()
	existing, err := scanGridEntry(tx.QueryRowContext(ctx,
		gridSelect+` WHERE user_id = ? AND date = ? AND rule = ?`, entry.UserID, string(entry.Date), entry.Rule))
	created := false
	switch {
	case errors.Is(err, ErrNotFound):
		created = true
		entry.CreatedAt = now
		entry.UpdatedAt = now
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO grid_entries (user_id, date, rule, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			entry.UserID, string(entry.Date), entry.Rule, string(entry.Status), formatTime(now), formatTime(now),
		); err != nil {
			return model.GridEntry{}, false, fmt.Errorf("insert grid entry: %w", err)
		}
	case err != nil:
		return model.GridEntry{}, false, err
	default:
		entry.CreatedAt = existing.CreatedAt
		entry.UpdatedAt = now
		if _, err := tx.ExecContext(ctx,
			`UPDATE grid_entries SET status = ?, updated_at = ? WHERE user_id = ? AND date = ? AND rule = ?`,
			string(entry.Status), formatTime(now), entry.UserID, string(entry.Date), entry.Rule,
		); err != nil {
			return model.GridEntry{}, false, fmt.Errorf("update grid entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return model.GridEntry{}, false, err
	}
	return entry, created, nil
}

// ListGridEntries returns the user's entries, newest date first then by rule.
func (s *Store) ListGridEntries(ctx context.Context, userID string) ([]model.GridEntry, error) {
	rows, err := s.db.QueryContext(ctx, gridSelect+` WHERE user_id = ? `+gridOrder, userID)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	entries := []model.GridEntry{}
	for rows.Next() {
		entry, err := scanGridEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetGridEntry returns one cell.
func (s *Store) GetGridEntry(ctx context.Context, userID string, date calendar.DayKey, rule int) (model.GridEntry, error) {
	return scanGridEntry(s.db.QueryRowContext(ctx,
		gridSelect+` WHERE user_id = ? AND date = ? AND rule = ?`, userID, string(date), rule))
}

// DeleteGridEntry removes one cell.
func (s *Store) DeleteGridEntry(ctx context.Context, userID string, date calendar.DayKey, rule int) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM grid_entries WHERE user_id = ? AND date = ? AND rule = ?`, userID, string(date), rule)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearGridEntries removes every entry of the user and returns how many were deleted.
func (s *Store) ClearGridEntries(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM grid_entries WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ClearAllGridEntries removes the entries of every user.
func (s *Store) ClearAllGridEntries(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM grid_entries`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReplaceGridEntries swaps all of the user's entries for the given ones in one transaction.
func (s *Store) ReplaceGridEntries(ctx context.Context, userID string, entries []model.GridEntry) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer rollback(tx)

	if _, err := tx.ExecContext(ctx, `DELETE FROM grid_entries WHERE user_id = ?`, userID); err != nil {
		return 0, fmt.Errorf("clear grid entries: %w", err)
	}
	for i := range entries {
		entries[i].UserID = userID
	}
	if err := s.insertGridEntries(ctx, tx, entries); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// ListAllGridEntries returns the entries of every user with the owner's email.
func (s *Store) ListAllGridEntries(ctx context.Context) ([]model.OwnedGridEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.email, g.user_id, g.date, g.rule, g.status, g.created_at, g.updated_at
		 FROM grid_entries g JOIN users u ON u.id = g.user_id
		 ORDER BY u.email ASC, substr(g.date, 4, 2) DESC, substr(g.date, 1, 2) DESC, g.rule ASC`)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	result := []model.OwnedGridEntry{}
	for rows.Next() {
		var owned model.OwnedGridEntry
		var date, status, createdAt, updatedAt string
		e := &owned.GridEntry
		if err := rows.Scan(&owned.Email, &e.UserID, &date, &e.Rule, &status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if err := fillGridEntry(e, date, status, createdAt, updatedAt); err != nil {
			return nil, err
		}
		result = append(result, owned)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ReplaceAllGridEntries clears the grid of every user and inserts rows, matching
// owners by email. Rows of unknown emails are skipped.
func (s *Store) ReplaceAllGridEntries(ctx context.Context, rows []model.OwnedGridEntry) (ReplaceResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ReplaceResult{}, err
	}
	defer rollback(tx)

	byUser, order, skipped, err := groupByOwner(ctx, tx, rows, func(r model.OwnedGridEntry) string { return r.Email })
	if err != nil {
		return ReplaceResult{}, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM grid_entries`); err != nil {
		return ReplaceResult{}, fmt.Errorf("clear grid entries: %w", err)
	}
	result := ReplaceResult{Skipped: skipped}
	for _, userID := range order {
		entries := make([]model.GridEntry, 0, len(byUser[userID]))
		for _, owned := range byUser[userID] {
			entry := owned.GridEntry
			entry.UserID = userID
			entries = append(entries, entry)
		}
		if err := s.insertGridEntries(ctx, tx, entries); err != nil {
			return ReplaceResult{}, err
		}
		result.Imported += len(entries)
	}
	if err := tx.Commit(); err != nil {
		return ReplaceResult{}, err
	}
	return result, nil
}

// CellCounts summarizes the grid of every user for administrators.
func (s *Store) CellCounts(ctx context.Context) ([]model.UserCellCounts, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.email, u.name,
			COALESCE(SUM(CASE WHEN g.status = 'tick' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN g.status = 'cross' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN g.status = 'blank' THEN 1 ELSE 0 END), 0),
			COUNT(g.rule),
			(SELECT COUNT(*) FROM rules r WHERE r.user_id = u.id AND r.active = 1)
		 FROM users u LEFT JOIN grid_entries g ON g.user_id = u.id
		 GROUP BY u.id
		 ORDER BY u.email ASC`)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	result := []model.UserCellCounts{}
	for rows.Next() {
		var c model.UserCellCounts
		if err := rows.Scan(&c.UserID, &c.Email, &c.Name, &c.Ticks, &c.Crosses, &c.Blanks, &c.TotalCells, &c.ActiveRules); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) insertGridEntries(ctx context.Context, tx *sql.Tx, entries []model.GridEntry) error {
	if len(entries) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO grid_entries (user_id, date, rule, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, date, rule) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	now := formatTime(s.now())
	for _, entry := range entries {
		if _, err := stmt.ExecContext(ctx, entry.UserID, string(entry.Date), entry.Rule, string(entry.Status), now, now); err != nil {
			return fmt.Errorf("insert grid entry %s/%d: %w", entry.Date, entry.Rule, err)
		}
	}
	return nil
}

const gridSelect = `SELECT user_id, date, rule, status, created_at, updated_at FROM grid_entries`

func scanGridEntry(row rowScanner) (model.GridEntry, error) {
	var entry model.GridEntry
	var date, status, createdAt, updatedAt string
	if err := row.Scan(&entry.UserID, &date, &entry.Rule, &status, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.GridEntry{}, ErrNotFound
		}
		return model.GridEntry{}, err
	}
	if err := fillGridEntry(&entry, date, status, createdAt, updatedAt); err != nil {
		return model.GridEntry{}, err
	}
	return entry, nil
}

func fillGridEntry(entry *model.GridEntry, date, status, createdAt, updatedAt string) error {
	var err error
	entry.Date = calendar.DayKey(date)
	entry.Status = model.Status(status)
	if entry.CreatedAt, err = parseTime(createdAt); err != nil {
		return err
	}
	if entry.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return err
	}
	return nil
}

// groupByOwner resolves the owner email of each row to a user id. Rows are
// grouped per user in first-seen order; unknown emails are returned once each.
func groupByOwner[T any](ctx context.Context, tx *sql.Tx, rows []T, email func(T) string) (map[string][]T, []string, []string, error) {
	ids := map[string]string{}
	missing := map[string]bool{}
	grouped := map[string][]T{}
	var order, skipped []string
	for _, row := range rows {
		addr := NormalizeEmail(email(row))
		if addr == "" || missing[addr] {
			continue
		}
		id, ok := ids[addr]
		if !ok {
			err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ?`, addr).Scan(&id)
			if errors.Is(err, sql.ErrNoRows) {
				missing[addr] = true
				skipped = append(skipped, addr)
				continue
			}
			if err != nil {
				return nil, nil, nil, err
			}
			ids[addr] = id
		}
		if _, seen := grouped[id]; !seen {
			order = append(order, id)
		}
		grouped[id] = append(grouped[id], row)
	}
	return grouped, order, skipped, nil
}
