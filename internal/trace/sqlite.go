package trace

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/oscorp/policy-agent/internal/agent"
)

const schema = `
CREATE TABLE IF NOT EXISTS traces (
	id           TEXT PRIMARY KEY,
	question     TEXT NOT NULL,
	tool_calls   TEXT NOT NULL,
	final_answer TEXT NOT NULL,
	status       TEXT NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	started_at   INTEGER NOT NULL,
	duration_ms  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_traces_started_at ON traces(started_at DESC);
`

// Store persists trace records in SQLite. It is both the production Sink and
// the source of recent traces for outer-loop evaluation.
type Store struct {
	db *sql.DB
}

func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating trace data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening trace database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating trace schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Write implements Sink.
func (s *Store) Write(ctx context.Context, rec *Record) error {
	calls, err := json.Marshal(rec.ToolCalls)
	if err != nil {
		return fmt.Errorf("encoding tool calls: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO traces (id, question, tool_calls, final_answer, status, error, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Question, string(calls), rec.FinalAnswer, string(rec.Status), rec.Error,
		rec.StartedAt.UnixMilli(), rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("inserting trace: %w", err)
	}
	return nil
}

// Recent returns the latest n successful traces, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]*Record, error) {
	if n < 1 {
		n = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, tool_calls, final_answer, status, error, started_at, duration_ms
		 FROM traces WHERE status = ? ORDER BY started_at DESC LIMIT ?`,
		string(agent.StatusSuccess), n,
	)
	if err != nil {
		return nil, fmt.Errorf("querying traces: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var (
			rec        Record
			calls      string
			status     string
			startedMs  int64
			durationMs int64
		)
		if err := rows.Scan(&rec.ID, &rec.Question, &calls, &rec.FinalAnswer, &status, &rec.Error, &startedMs, &durationMs); err != nil {
			return nil, fmt.Errorf("scanning trace: %w", err)
		}
		if err := json.Unmarshal([]byte(calls), &rec.ToolCalls); err != nil {
			return nil, fmt.Errorf("decoding tool calls for trace %s: %w", rec.ID, err)
		}
		rec.Status = agent.Status(status)
		rec.StartedAt = time.UnixMilli(startedMs)
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// AgentRun rebuilds the agent view of a recorded trace so scorers can grade it.
func (r *Record) AgentRun() *agent.Run {
	return &agent.Run{
		Question:    r.Question,
		ToolCalls:   r.ToolCalls,
		FinalAnswer: r.FinalAnswer,
		Status:      r.Status,
		Err:         r.Error,
	}
}
