package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/franklin/internal/model"
)

// DefaultRules are created by InitDefaultRules for users without rules.
var DefaultRules = []model.Rule{
	{Number: 1, Name: "Limit", Description: "Stay within your limits", IsActive: true},
	{Number: 2, Name: "Yoga", Description: "Practice yoga daily", IsActive: true},
	{Number: 3, Name: "Medit", Description: "Daily meditation", IsActive: true},
	{Number: 4, Name: "Food", Description: "Healthy eating habits", IsActive: true},
}

// RuleUpdate holds the fields to change on a rule. Nil fields are left as they are.
type RuleUpdate struct {
	Number      *int
	Name        *string
	Description *string
	IsActive    *bool
}

const ruleSelect = `SELECT id, user_id, number, name, description, active, created_at, updated_at FROM rules`

// ListRules returns the user's rules ordered by number.
func (s *Store) ListRules(ctx context.Context, userID string) ([]model.Rule, error) {
	return s.queryRules(ctx, ruleSelect+` WHERE user_id = ? ORDER BY number ASC`, userID)
}

// ListActiveRules returns the user's active rules ordered by number.
func (s *Store) ListActiveRules(ctx context.Context, userID string) ([]model.Rule, error) {
	return s.queryRules(ctx, ruleSelect+` WHERE user_id = ? AND active = 1 ORDER BY number ASC`, userID)
}

// GetRule returns one of the user's rules by id.
func (s *Store) GetRule(ctx context.Context, userID, id string) (model.Rule, error) {
	return scanRule(s.db.QueryRowContext(ctx, ruleSelect+` WHERE user_id = ? AND id = ?`, userID, id))
}

// CreateRule stores a new rule. A zero CreatedAt means now.
func (s *Store) CreateRule(ctx context.Context, rule model.Rule) (model.Rule, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Rule{}, err
	}
	defer rollback(tx)

	taken, err := numberTaken(ctx, tx, rule.UserID, rule.Number, "")
	if err != nil {
		return model.Rule{}, err
	}
	if taken {
		return model.Rule{}, fmt.Errorf("rule %d: %w", rule.Number, ErrDuplicateRuleNumber)
	}
	rule, err = s.insertRule(ctx, tx, rule)
	if err != nil {
		return model.Rule{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Rule{}, err
	}
	return rule, nil
}

// UpdateRule applies upd to one of the user's rules and returns the result.
func (s *Store) UpdateRule(ctx context.Context, userID, id string, upd RuleUpdate) (model.Rule, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Rule{}, err
	}
	defer rollback(tx)

	rule, err := scanRule(tx.QueryRowContext(ctx, ruleSelect+` WHERE user_id = ? AND id = ?`, userID, id))
	if err != nil {
		return model.Rule{}, err
	}
	if upd.Number != nil && *upd.Number != rule.Number {
		taken, err := numberTaken(ctx, tx, userID, *upd.Number, id)
		if err != nil {
			return model.Rule{}, err
		}
		if taken {
			return model.Rule{}, fmt.Errorf("rule %d: %w", *upd.Number, ErrDuplicateRuleNumber)
		}
		rule.Number = *upd.Number
	}
	if upd.Name != nil {
		rule.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Description != nil {
		rule.Description = *upd.Description
	}
	if upd.IsActive != nil {
		rule.IsActive = *upd.IsActive
	}
	rule.UpdatedAt = s.now().UTC()

	if _, err := tx.ExecContext(ctx,
		`UPDATE rules SET number = ?, name = ?, description = ?, active = ?, updated_at = ? WHERE id = ?`,
		rule.Number, rule.Name, rule.Description, boolToInt(rule.IsActive), formatTime(rule.UpdatedAt), rule.ID,
	); err != nil {
		return model.Rule{}, fmt.Errorf("update rule: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Rule{}, err
	}
	return rule, nil
}

// DeleteRule removes one of the user's rules. Grid entries of the rule are kept.
func (s *Store) DeleteRule(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE user_id = ? AND id = ?`, userID, id)
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

// InitDefaultRules creates DefaultRules when the user has no rules yet. It
// reports whether anything was created and returns the user's rules.
func (s *Store) InitDefaultRules(ctx context.Context, userID string) ([]model.Rule, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer rollback(tx)

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM rules WHERE user_id = ?`, userID).Scan(&count); err != nil {
		return nil, false, err
	}
	created := false
	if count == 0 {
		for _, def := range DefaultRules {
			def.UserID = userID
			if _, err := s.insertRule(ctx, tx, def); err != nil {
				return nil, false, err
			}
		}
		created = true
	}
	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	rules, err := s.ListRules(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return rules, created, nil
}

// ReplaceRules swaps all of the user's rules for the given ones in one transaction.
func (s *Store) ReplaceRules(ctx context.Context, userID string, rules []model.Rule) (int, error) {
	if err := checkUniqueNumbers(rules); err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer rollback(tx)

	if err := s.replaceRulesTx(ctx, tx, userID, rules); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(rules), nil
}

// ListAllRules returns the rules of every user with the owner's email.
func (s *Store) ListAllRules(ctx context.Context) ([]model.OwnedRule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.email, r.id, r.user_id, r.number, r.name, r.description, r.active, r.created_at, r.updated_at
		 FROM rules r JOIN users u ON u.id = r.user_id
		 ORDER BY u.email ASC, r.number ASC`)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	result := []model.OwnedRule{}
	for rows.Next() {
		var owned model.OwnedRule
		var active int
		var createdAt, updatedAt string
		r := &owned.Rule
		if err := rows.Scan(&owned.Email, &r.ID, &r.UserID, &r.Number, &r.Name, &r.Description, &active, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if err := fillRuleTimes(r, active, createdAt, updatedAt); err != nil {
			return nil, err
		}
		result = append(result, owned)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ReplaceAllRules replaces the rules of every user named in rows, matching
// owners by email. Unknown emails are skipped and returned.
func (s *Store) ReplaceAllRules(ctx context.Context, rows []model.OwnedRule) (ReplaceResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ReplaceResult{}, err
	}
	defer rollback(tx)

	byUser, order, skipped, err := groupByOwner(ctx, tx, rows, func(r model.OwnedRule) string { return r.Email })
	if err != nil {
		return ReplaceResult{}, err
	}
	result := ReplaceResult{Skipped: skipped}
	for _, userID := range order {
		rules := make([]model.Rule, 0, len(byUser[userID]))
		for _, owned := range byUser[userID] {
			rules = append(rules, owned.Rule)
		}
		if err := checkUniqueNumbers(rules); err != nil {
			return ReplaceResult{}, err
		}
		if err := s.replaceRulesTx(ctx, tx, userID, rules); err != nil {
			return ReplaceResult{}, err
		}
		result.Imported += len(rules)
	}
	if err := tx.Commit(); err != nil {
		return ReplaceResult{}, err
	}
	return result, nil
}

// replaceRulesTx swaps the user's rules. Rules without a creation time keep
// the one of the existing rule with the same number.
func (s *Store) replaceRulesTx(ctx context.Context, tx *sql.Tx, userID string, rules []model.Rule) error {
	created, err := ruleCreationTimes(ctx, tx, userID)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM rules WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear rules: %w", err)
	}
	for _, rule := range rules {
		rule.UserID = userID
		rule.ID = ""
		if rule.CreatedAt.IsZero() {
			rule.CreatedAt = created[rule.Number]
		}
		if _, err := s.insertRule(ctx, tx, rule); err != nil {
			return err
		}
	}
	return nil
}

func ruleCreationTimes(ctx context.Context, tx *sql.Tx, userID string) (map[int]time.Time, error) {
	rows, err := tx.QueryContext(ctx, `SELECT number, created_at FROM rules WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("load rule creation times: %w", err)
	}
	defer closeRows(rows)

	created := map[int]time.Time{}
	for rows.Next() {
		var number int
		var createdAt string
		if err := rows.Scan(&number, &createdAt); err != nil {
			return nil, err
		}
		t, err := parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse rule created_at: %w", err)
		}
		created[number] = t
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) insertRule(ctx context.Context, tx *sql.Tx, rule model.Rule) (model.Rule, error) {
	now := s.now().UTC()
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	if rule.UpdatedAt.IsZero() {
		rule.UpdatedAt = rule.CreatedAt
	}
	rule.Name = strings.TrimSpace(rule.Name)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO rules (id, user_id, number, name, description, active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.UserID, rule.Number, rule.Name, rule.Description, boolToInt(rule.IsActive),
		formatTime(rule.CreatedAt), formatTime(rule.UpdatedAt),
	); err != nil {
		return model.Rule{}, fmt.Errorf("insert rule %d: %w", rule.Number, err)
	}
	rule.CreatedAt = rule.CreatedAt.UTC()
	rule.UpdatedAt = rule.UpdatedAt.UTC()
	return rule, nil
}

func (s *Store) queryRules(ctx context.Context, query string, args ...any) ([]model.Rule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	rules := []model.Rule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

func numberTaken(ctx context.Context, tx *sql.Tx, userID string, number int, exceptID string) (bool, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rules WHERE user_id = ? AND number = ? AND id <> ?`,
		userID, number, exceptID,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func checkUniqueNumbers(rules []model.Rule) error {
	seen := make(map[int]struct{}, len(rules))
	for _, rule := range rules {
		if _, ok := seen[rule.Number]; ok {
			return fmt.Errorf("rule %d: %w", rule.Number, ErrDuplicateRuleNumber)
		}
		seen[rule.Number] = struct{}{}
	}
	return nil
}

func scanRule(row rowScanner) (model.Rule, error) {
	var rule model.Rule
	var active int
	var createdAt, updatedAt string
	if err := row.Scan(&rule.ID, &rule.UserID, &rule.Number, &rule.Name, &rule.Description, &active, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Rule{}, ErrNotFound
		}
		return model.Rule{}, err
	}
	if err := fillRuleTimes(&rule, active, createdAt, updatedAt); err != nil {
		return model.Rule{}, err
	}
	return rule, nil
}

func fillRuleTimes(rule *model.Rule, active int, createdAt, updatedAt string) error {
	var err error
	rule.IsActive = active != 0
	if rule.CreatedAt, err = parseTime(createdAt); err != nil {
		return err
	}
	if rule.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return err
	}
	return nil
}
