// Package csvio reads and writes progress and rule CSV files.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/franklin/internal/calendar"
	"github.com/verte-zerg/franklin/internal/model"
)

// ErrNoRecords is returned when a CSV has a header but no data rows.
var ErrNoRecords = errors.New("no valid records found in CSV")

// ErrMalformed is returned when the CSV itself cannot be read or lacks a column.
var ErrMalformed = errors.New("malformed CSV")

// Column names. The owner column matches the field path used by older exports.
const (
	colEmail       = "userId.email"
	colDate        = "date"
	colRule        = "rule"
	colStatus      = "status"
	colNumber      = "number"
	colName        = "name"
	colDescription = "description"
	colActive      = "active"
	colCreatedAt   = "createdAt"
)

var (
	progressHeader    = []string{colDate, colRule, colStatus}
	allProgressHeader = []string{colEmail, colDate, colRule, colStatus}
	rulesHeader       = []string{colNumber, colName, colDescription, colActive, colCreatedAt}
	allRulesHeader    = []string{colEmail, colNumber, colName, colDescription, colActive, colCreatedAt}
)

// Rule files written before createdAt existed are still accepted.
var (
	rulesRequired    = rulesHeader[:4]
	allRulesRequired = allRulesHeader[:5]
)

// RowError describes an invalid data row.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// WriteProgress writes the grid entries of one user.
func WriteProgress(w io.Writer, entries []model.GridEntry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, progressRow(e))
	}
	return writeAll(w, progressHeader, rows)
}

// WriteAllProgress writes the grid entries of every user.
func WriteAllProgress(w io.Writer, entries []model.OwnedGridEntry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, append([]string{e.Email}, progressRow(e.GridEntry)...))
	}
	return writeAll(w, allProgressHeader, rows)
}

// WriteRules writes the rules of one user.
func WriteRules(w io.Writer, rules []model.Rule) error {
	rows := make([][]string, 0, len(rules))
	for _, r := range rules {
		rows = append(rows, ruleRow(r))
	}
	return writeAll(w, rulesHeader, rows)
}

// WriteAllRules writes the rules of every user.
func WriteAllRules(w io.Writer, rules []model.OwnedRule) error {
	rows := make([][]string, 0, len(rules))
	for _, r := range rules {
		rows = append(rows, append([]string{r.Email}, ruleRow(r.Rule)...))
	}
	return writeAll(w, allRulesHeader, rows)
}

// ReadProgress parses a date,rule,status CSV.
func ReadProgress(r io.Reader) ([]model.GridEntry, error) {
	var entries []model.GridEntry
	err := readAll(r, progressHeader, func(rec record) error {
		entry, err := parseEntry(rec)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ReadAllProgress parses a progress CSV with an owner email column.
func ReadAllProgress(r io.Reader) ([]model.OwnedGridEntry, error) {
	var entries []model.OwnedGridEntry
	err := readAll(r, allProgressHeader, func(rec record) error {
		email, err := rec.email()
		if err != nil {
			return err
		}
		entry, err := parseEntry(rec)
		if err != nil {
			return err
		}
		entries = append(entries, model.OwnedGridEntry{Email: email, GridEntry: entry})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ReadRules parses a number,name,description,active CSV with an optional
// createdAt column.
func ReadRules(r io.Reader) ([]model.Rule, error) {
	var rules []model.Rule
	err := readAll(r, rulesRequired, func(rec record) error {
		rule, err := parseRule(rec)
		if err != nil {
			return err
		}
		rules = append(rules, rule)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// ReadAllRules parses a rules CSV with an owner email column.
func ReadAllRules(r io.Reader) ([]model.OwnedRule, error) {
	var rules []model.OwnedRule
	err := readAll(r, allRulesRequired, func(rec record) error {
		email, err := rec.email()
		if err != nil {
			return err
		}
		rule, err := parseRule(rec)
		if err != nil {
			return err
		}
		rules = append(rules, model.OwnedRule{Email: email, Rule: rule})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func progressRow(e model.GridEntry) []string {
	return []string{string(e.Date), strconv.Itoa(e.Rule), string(e.Status)}
}

func ruleRow(r model.Rule) []string {
	created := ""
	if !r.CreatedAt.IsZero() {
		created = r.CreatedAt.UTC().Format(time.RFC3339)
	}
	return []string{strconv.Itoa(r.Number), r.Name, r.Description, strconv.FormatBool(r.IsActive), created}
}

func writeAll(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// record is one data row addressed by column name.
type record struct {
	fields  []string
	columns map[string]int
}

func (r record) get(col string) string {
	idx, ok := r.columns[col]
	if !ok || idx >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[idx])
}

func (r record) email() (string, error) {
	email := strings.ToLower(r.get(colEmail))
	if email == "" {
		return "", fmt.Errorf("%s is required", colEmail)
	}
	return email, nil
}

func readAll(r io.Reader, required []string, fn func(record) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return ErrNoRecords
	}
	if err != nil {
		return fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		columns[strings.ToLower(name)] = i
	}
	for _, col := range required {
		lower := strings.ToLower(col)
		idx, ok := columns[lower]
		if !ok {
			return fmt.Errorf("%w: missing column %q", ErrMalformed, col)
		}
		columns[col] = idx
	}

	count := 0
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if blank(fields) {
			continue
		}
		line, _ := cr.FieldPos(0)
		if err := fn(record{fields: fields, columns: columns}); err != nil {
			return &RowError{Line: line, Err: err}
		}
		count++
	}
	if count == 0 {
		return ErrNoRecords
	}
	return nil
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func parseEntry(rec record) (model.GridEntry, error) {
	date, err := calendar.ParseDayKey(rec.get(colDate))
	if err != nil {
		return model.GridEntry{}, err
	}
	number, err := parseNumber(rec.get(colRule))
	if err != nil {
		return model.GridEntry{}, err
	}
	status, err := model.ParseStatus(rec.get(colStatus))
	if err != nil {
		return model.GridEntry{}, err
	}
	return model.GridEntry{Date: date, Rule: number, Status: status}, nil
}

func parseRule(rec record) (model.Rule, error) {
	number, err := parseNumber(rec.get(colNumber))
	if err != nil {
		return model.Rule{}, err
	}
	name := rec.get(colName)
	if name == "" {
		return model.Rule{}, fmt.Errorf("name is required")
	}
	active, err := parseActive(rec.get(colActive))
	if err != nil {
		return model.Rule{}, err
	}
	created, err := parseCreatedAt(rec.get(strings.ToLower(colCreatedAt)))
	if err != nil {
		return model.Rule{}, err
	}
	return model.Rule{
		Number:      number,
		Name:        name,
		Description: rec.get(colDescription),
		IsActive:    active,
		CreatedAt:   created,
	}, nil
}

// An empty createdAt cell leaves the time zero.
func parseCreatedAt(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid createdAt %q", value)
	}
	return t.UTC(), nil
}

func parseNumber(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid rule number %q", value)
	}
	return n, nil
}

// An empty active cell means active.
func parseActive(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "", "true", "1", "yes", "y":
		return true, nil
	case "false", "0", "no", "n":
		return false, nil
	default:
		return false, fmt.Errorf("invalid active flag %q", value)
	}
}
