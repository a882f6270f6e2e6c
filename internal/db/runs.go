package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/gait/tuning"
	"github.com/banshee-data/gait.report/internal/gait/validate"
)

// ErrRunNotFound is returned by GetRun when no run has the given ID.
var ErrRunNotFound = errors.New("run not found")

// DefaultListLimit bounds ListRuns when the caller passes a non-positive limit.
const DefaultListLimit = 50

// RunRecord is one stored validation run. Task is empty for runs that
// covered every task in the mapping.
type RunRecord struct {
	ID         string                      `json:"run_id"`
	CreatedAt  time.Time                   `json:"created_at"`
	Mode       gait.Mode                   `json:"mode"`
	Task       string                      `json:"task,omitempty"`
	NumSteps   int                         `json:"num_steps"`
	Checks     int                         `json:"checks"`
	Mapping    gait.StepTaskMapping        `json:"mapping"`
	Violations []validate.Violation        `json:"violations"`
	Targets    []tuning.OptimizationTarget `json:"targets,omitempty"`
}

// ViolationCount returns the number of stored violations.
func (r RunRecord) ViolationCount() int { return len(r.Violations) }

// createdAtLayout is fixed width so that text order in created_at is time
// order.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RecordRun stores rec and returns its newly assigned ID. ID and CreatedAt
// on rec are ignored.
func (db *DB) RecordRun(ctx context.Context, rec RunRecord) (string, error) {
	if !rec.Mode.Valid() {
		return "", &gait.UnknownModeError{Mode: string(rec.Mode)}
	}
	if rec.Violations == nil {
		rec.Violations = []validate.Violation{}
	}
	if rec.Targets == nil {
		rec.Targets = []tuning.OptimizationTarget{}
	}
	if rec.Mapping == nil {
		rec.Mapping = gait.StepTaskMapping{}
	}

	mappingJSON, err := json.Marshal(rec.Mapping)
	if err != nil {
		return "", fmt.Errorf("failed to encode mapping: %w", err)
	}
	violationsJSON, err := json.Marshal(rec.Violations)
	if err != nil {
		return "", fmt.Errorf("failed to encode violations: %w", err)
	}
	targetsJSON, err := json.Marshal(rec.Targets)
	if err != nil {
		return "", fmt.Errorf("failed to encode targets: %w", err)
	}

	id := uuid.NewString()
	createdAt := db.clock.Now().UTC()
	_, err = db.ExecContext(ctx,
		`INSERT INTO runs (
			run_id, created_at, mode, task, num_steps, checks,
			violation_count, mapping_json, violations_json, targets_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, createdAt.Format(createdAtLayout), string(rec.Mode), rec.Task,
		rec.NumSteps, rec.Checks, len(rec.Violations),
		string(mappingJSON), string(violationsJSON), string(targetsJSON),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

const runColumns = `run_id, created_at, mode, task, num_steps, checks,
	mapping_json, violations_json, targets_json`

// GetRun returns the run with the given ID or ErrRunNotFound.
func (db *DB) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	row := db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*RunRecord, error) {
	var (
		rec            RunRecord
		createdAt      string
		mode           string
		mappingJSON    string
		violationsJSON string
		targetsJSON    string
	)
	if err := s.Scan(
		&rec.ID, &createdAt, &mode, &rec.Task, &rec.NumSteps, &rec.Checks,
		&mappingJSON, &violationsJSON, &targetsJSON,
	); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("run %s: bad created_at %q: %w", rec.ID, createdAt, err)
	}
	rec.CreatedAt = t
	rec.Mode = gait.Mode(mode)

	if err := json.Unmarshal([]byte(mappingJSON), &rec.Mapping); err != nil {
		return nil, fmt.Errorf("run %s: failed to decode mapping: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(violationsJSON), &rec.Violations); err != nil {
		return nil, fmt.Errorf("run %s: failed to decode violations: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(targetsJSON), &rec.Targets); err != nil {
		return nil, fmt.Errorf("run %s: failed to decode targets: %w", rec.ID, err)
	}
	return &rec, nil
}
