package trace

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/oscorp/policy-agent/internal/agent"
)

// Record is the immutable trace of one agent invocation.
type Record struct {
	ID          string           `json:"id"`
	Question    string           `json:"question"`
	ToolCalls   []agent.ToolCall `json:"tool_calls"`
	FinalAnswer string           `json:"final_answer"`
	Status      agent.Status     `json:"status"`
	Error       string           `json:"error,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	Duration    time.Duration    `json:"duration"`
}

// Sink accepts one trace record per agent invocation.
type Sink interface {
	Write(ctx context.Context, rec *Record) error
}

// Recorder wraps an agent runner and emits a trace record for every
// invocation. A sink failure is logged and never fails the invocation.
type Recorder struct {
	runner agent.Runner
	sink   Sink
}

func NewRecorder(runner agent.Runner, sink Sink) *Recorder {
	return &Recorder{runner: runner, sink: sink}
}

func (r *Recorder) Run(ctx context.Context, question string) (*agent.Run, error) {
	start := time.Now()
	run, runErr := r.runner.Run(ctx, question)

	rec := &Record{
		ID:          uuid.NewString(),
		Question:    run.Question,
		ToolCalls:   run.ToolCalls,
		FinalAnswer: run.FinalAnswer,
		Status:      run.Status,
		Error:       run.Err,
		StartedAt:   start,
		Duration:    time.Since(start),
	}

	if r.sink != nil {
		if err := r.sink.Write(ctx, rec); err != nil {
			slog.Warn("Trace sink rejected record", "trace_id", rec.ID, "error", err)
		} else {
			slog.Debug("Trace recorded", "trace_id", rec.ID, "duration", rec.Duration)
		}
	}

	return run, runErr
}
