package evals

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS eval_runs (
	id          TEXT PRIMARY KEY,
	dataset     TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	aggregates  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS eval_cases (
	run_id      TEXT NOT NULL REFERENCES eval_runs(id),
	idx         INTEGER NOT NULL,
	question    TEXT NOT NULL,
	expectation TEXT NOT NULL,
	agent_run   TEXT NOT NULL,
	scores      TEXT NOT NULL,
	PRIMARY KEY (run_id, idx)
);
`

// Store persists finalized evaluation runs keyed by run and dataset
// identifiers so runs can be compared later.
type Store struct {
	db *sql.DB
}

func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating eval data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening eval database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating eval schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun writes a finalized run and all its cases in one transaction.
func (s *Store) SaveRun(ctx context.Context, run *Run) error {
	aggs, err := json.Marshal(run.Aggregates)
	if err != nil {
		return fmt.Errorf("encoding aggregates: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO eval_runs (id, dataset, started_at, finished_at, aggregates) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Dataset, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(), string(aggs),
	); err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	for _, c := range run.Cases {
		exp, err := json.Marshal(c.Expectation)
		if err != nil {
			return fmt.Errorf("encoding expectation: %w", err)
		}
		agentRun, err := json.Marshal(c.AgentRun)
		if err != nil {
			return fmt.Errorf("encoding agent run: %w", err)
		}
		scores, err := json.Marshal(c.Scores)
		if err != nil {
			return fmt.Errorf("encoding scores: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO eval_cases (run_id, idx, question, expectation, agent_run, scores) VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, c.Index, c.Question, string(exp), string(agentRun), string(scores),
		); err != nil {
			return fmt.Errorf("inserting case %d: %w", c.Index, err)
		}
	}

	return tx.Commit()
}

// LoadRun reads a persisted run back, cases ordered by index.
func (s *Store) LoadRun(ctx context.Context, id string) (*Run, error) {
	run := &Run{ID: id}
	var startedMs, finishedMs int64
	var aggs string
	err := s.db.QueryRowContext(ctx,
		`SELECT dataset, started_at, finished_at, aggregates FROM eval_runs WHERE id = ?`, id,
	).Scan(&run.Dataset, &startedMs, &finishedMs, &aggs)
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}
	run.StartedAt = time.UnixMilli(startedMs)
	run.FinishedAt = time.UnixMilli(finishedMs)
	if err := json.Unmarshal([]byte(aggs), &run.Aggregates); err != nil {
		return nil, fmt.Errorf("decoding aggregates: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, question, expectation, agent_run, scores FROM eval_cases WHERE run_id = ? ORDER BY idx`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("loading cases for run %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var c Case
		var exp, agentRun, scores string
		if err := rows.Scan(&c.Index, &c.Question, &exp, &agentRun, &scores); err != nil {
			return nil, fmt.Errorf("scanning case: %w", err)
		}
		if err := json.Unmarshal([]byte(exp), &c.Expectation); err != nil {
			return nil, fmt.Errorf("decoding expectation: %w", err)
		}
		if err := json.Unmarshal([]byte(agentRun), &c.AgentRun); err != nil {
			return nil, fmt.Errorf("decoding agent run: %w", err)
		}
		if err := json.Unmarshal([]byte(scores), &c.Scores); err != nil {
			return nil, fmt.Errorf("decoding scores: %w", err)
		}
		run.Cases = append(run.Cases, c)
	}
	return run, rows.Err()
}
