package evals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/oscorp/policy-agent/internal/agent"
	"github.com/oscorp/policy-agent/internal/scoring"
	"github.com/oscorp/policy-agent/internal/search"
	"github.com/oscorp/policy-agent/internal/trace"
)

// Options bounds the two levels of evaluation concurrency.
type Options struct {
	// AgentWorkers caps concurrent agent invocations across dataset rows.
	AgentWorkers int
	// ScorerWorkers caps concurrent scorer invocations within one row.
	ScorerWorkers int
	// AgentRetries re-runs a row whose agent run failed because the search
	// backend was unavailable. Other failures are not retried.
	AgentRetries int
}

// Engine drives a dataset through the agent and fans results out to scorers.
type Engine struct {
	runner agent.Runner
	opts   Options
}

func NewEngine(runner agent.Runner, opts Options) *Engine {
	if opts.AgentWorkers < 1 {
		opts.AgentWorkers = 4
	}
	if opts.ScorerWorkers < 1 {
		opts.ScorerWorkers = 5
	}
	if opts.AgentRetries < 0 {
		opts.AgentRetries = 0
	}
	return &Engine{runner: runner, opts: opts}
}

// Run evaluates every dataset row and returns a finalized run whose cases are
// ordered by dataset index regardless of completion order. On cancellation the
// run is finalized with the cases that completed; abandoned rows are excluded.
func (e *Engine) Run(ctx context.Context, ds *Dataset, scorers []scoring.Scorer) (*Run, error) {
	if ds == nil {
		return nil, fmt.Errorf("dataset is nil")
	}
	if len(scorers) == 0 {
		return nil, fmt.Errorf("no scorers registered")
	}

	run := &Run{
		ID:        uuid.NewString(),
		Dataset:   ds.Name,
		StartedAt: time.Now(),
	}
	slog.Info("Starting evaluation run", "run_id", run.ID, "dataset", ds.Name, "rows", len(ds.Rows))

	// Completed cases land in a slot indexed by dataset position so the
	// finalized ordering is stable by input index, not completion time.
	slots := make([]*Case, len(ds.Rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.AgentWorkers)

	for i, row := range ds.Rows {
		i, row := i, row
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			agentRun := e.invokeAgent(gctx, row.Inputs.Question)
			scores := e.scoreRun(gctx, row.Inputs.Question, row.Expectations, agentRun, scorers)
			slots[i] = &Case{
				Index:       i,
				Question:    row.Inputs.Question,
				Expectation: row.Expectations,
				AgentRun:    agentRun,
				Scores:      scores,
			}
			return nil
		})
	}

	waitErr := g.Wait()

	for _, c := range slots {
		if c != nil {
			run.Cases = append(run.Cases, *c)
		}
	}
	run.Aggregates = aggregate(run.Cases)
	run.FinishedAt = time.Now()

	if waitErr != nil {
		slog.Warn("Evaluation run aborted", "run_id", run.ID, "completed", len(run.Cases), "error", waitErr)
		return run, fmt.Errorf("evaluation aborted: %w", waitErr)
	}
	slog.Info("Evaluation run finalized", "run_id", run.ID, "cases", len(run.Cases))
	return run, nil
}

// EvaluateTraces grades previously recorded production traces. Expectations
// are empty, so only scorers that do not need reference data are meaningful.
func (e *Engine) EvaluateTraces(ctx context.Context, records []*trace.Record, scorers []scoring.Scorer) (*Run, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no traces to evaluate")
	}
	if len(scorers) == 0 {
		return nil, fmt.Errorf("no scorers registered")
	}

	run := &Run{
		ID:        uuid.NewString(),
		Dataset:   "traces",
		StartedAt: time.Now(),
	}
	slog.Info("Starting trace evaluation", "run_id", run.ID, "traces", len(records))

	slots := make([]*Case, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.AgentWorkers)

	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			agentRun := rec.AgentRun()
			scores := e.scoreRun(gctx, rec.Question, scoring.Expectation{}, agentRun, scorers)
			slots[i] = &Case{
				Index:    i,
				Question: rec.Question,
				AgentRun: agentRun,
				Scores:   scores,
			}
			return nil
		})
	}

	waitErr := g.Wait()

	for _, c := range slots {
		if c != nil {
			run.Cases = append(run.Cases, *c)
		}
	}
	run.Aggregates = aggregate(run.Cases)
	run.FinishedAt = time.Now()

	if waitErr != nil {
		return run, fmt.Errorf("trace evaluation aborted: %w", waitErr)
	}
	return run, nil
}

// invokeAgent runs one row, retrying only retrieval outages. The run is
// always non-nil; a Failed run is still graded.
func (e *Engine) invokeAgent(ctx context.Context, question string) *agent.Run {
	for attempt := 0; ; attempt++ {
		run, err := e.runner.Run(ctx, question)
		if err == nil || attempt >= e.opts.AgentRetries || ctx.Err() != nil {
			return run
		}
		if !errors.Is(err, search.ErrUnavailable) {
			return run
		}
		slog.Warn("Retrying row after retrieval outage", "question", question, "attempt", attempt+1)
	}
}

// scoreRun fans one run out to all registered scorers concurrently and
// collects results into a pre-sized slice, one slot per scorer.
func (e *Engine) scoreRun(ctx context.Context, question string, exp scoring.Expectation, run *agent.Run, scorers []scoring.Scorer) []scoring.ScoreResult {
	results := make([]scoring.ScoreResult, len(scorers))

	var g errgroup.Group
	g.SetLimit(e.opts.ScorerWorkers)
	for j, sc := range scorers {
		j, sc := j, sc
		g.Go(func() error {
			results[j] = sc.Score(ctx, question, exp, run)
			return nil
		})
	}
	// Scorers contain their own failures; the group never returns an error.
	_ = g.Wait()

	return results
}
