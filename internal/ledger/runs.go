package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// Run statuses.
const (
	StatusRunning = "running"
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusAborted = "aborted"
)

// Case statuses.
const (
	CasePass = "pass"
	CaseFail = "fail"
)

// Run is one harness invocation.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     string    `json:"status"`
	FixtureDir string    `json:"fixture_dir"`
	Total      int       `json:"total"`
	Passed     int       `json:"passed"`
	Failed     int       `json:"failed"`
}

// Case is the recorded outcome for one fixture in one run.
type Case struct {
	RunID           string        `json:"run_id"`
	CaseKey         string        `json:"case_key"`
	Fixture         string        `json:"fixture"`
	Status          string        `json:"status"`
	Kind            string        `json:"kind,omitempty"`
	Message         string        `json:"message,omitempty"`
	CandidatePath   string        `json:"candidate_path,omitempty"`
	ReferencePath   string        `json:"reference_path,omitempty"`
	CandidateDigest string        `json:"candidate_digest,omitempty"`
	ReferenceDigest string        `json:"reference_digest,omitempty"`
	CandidateMedian time.Duration `json:"candidate_median,omitempty"`
	ReferenceMedian time.Duration `json:"reference_median,omitempty"`
}

// BeginRun inserts a running run and returns its id.
func (l *Ledger) BeginRun(ctx context.Context, fixtureDir string) (string, error) {
	id := l.newID()
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, status, fixture_dir)
		VALUES (?, ?, ?, ?)
	`, id, formatTime(l.now()), StatusRunning, fixtureDir)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// RecordCase stores one fixture outcome. Recording the same case key twice
// for a run replaces the earlier row.
func (l *Ledger) RecordCase(ctx context.Context, c Case) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO cases
		(run_id, case_key, fixture, status, kind, message,
		 candidate_path, reference_path, candidate_digest, reference_digest,
		 candidate_median_ns, reference_median_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.RunID, c.CaseKey, c.Fixture, c.Status, c.Kind, c.Message,
		c.CandidatePath, c.ReferencePath, c.CandidateDigest, c.ReferenceDigest,
		int64(c.CandidateMedian), int64(c.ReferenceMedian),
	)
	if err != nil {
		return fmt.Errorf("record case %s: %w", c.CaseKey, err)
	}
	return nil
}

// FinishRun closes a run with its final status and totals.
func (l *Ledger) FinishRun(ctx context.Context, id, status string, total, passed, failed int) error {
	res, err := l.db.ExecContext(ctx, `
		UPDATE runs
		SET finished_at = ?, status = ?, total = ?, passed = ?, failed = ?
		WHERE id = ?
	`, formatTime(l.now()), status, total, passed, failed, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (l *Ledger) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, started_at, finished_at, status, fixture_dir, total, passed, failed
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run by id.
func (l *Ledger) GetRun(ctx context.Context, id string) (Run, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, status, fixture_dir, total, passed, failed
		FROM runs
		WHERE id = ?
	`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	return r, err
}

// ReadCases returns a run's cases ordered by case key.
// Returns an empty slice (not nil) when the run has none.
func (l *Ledger) ReadCases(ctx context.Context, runID string) ([]Case, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT run_id, case_key, fixture, status, kind, message,
		       candidate_path, reference_path, candidate_digest, reference_digest,
		       candidate_median_ns, reference_median_ns
		FROM cases
		WHERE run_id = ?
		ORDER BY case_key COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}
	defer rows.Close()

	cases := []Case{}
	for rows.Next() {
		var c Case
		var candNS, refNS int64
		if err := rows.Scan(
			&c.RunID, &c.CaseKey, &c.Fixture, &c.Status, &c.Kind, &c.Message,
			&c.CandidatePath, &c.ReferencePath, &c.CandidateDigest, &c.ReferenceDigest,
			&candNS, &refNS,
		); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		c.CandidateMedian = time.Duration(candNS)
		c.ReferenceMedian = time.Duration(refNS)
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return cases, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var r Run
	var started, finished string
	if err := s.Scan(&r.ID, &started, &finished, &r.Status, &r.FixtureDir, &r.Total, &r.Passed, &r.Failed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	var err error
	if r.StartedAt, err = parseTime(started); err != nil {
		return Run{}, fmt.Errorf("run %s: started_at: %w", r.ID, err)
	}
	if r.FinishedAt, err = parseTime(finished); err != nil {
		return Run{}, fmt.Errorf("run %s: finished_at: %w", r.ID, err)
	}
	return r, nil
}
