package evals

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oscorp/policy-agent/internal/agent"
	"github.com/oscorp/policy-agent/internal/llm"
	"github.com/oscorp/policy-agent/internal/scoring"
	"github.com/oscorp/policy-agent/internal/search"
)

// funcRunner adapts a function to agent.Runner.
type funcRunner func(ctx context.Context, question string) (*agent.Run, error)

func (f funcRunner) Run(ctx context.Context, question string) (*agent.Run, error) {
	return f(ctx, question)
}

// stubScorer returns a fixed verdict.
type stubScorer struct {
	name string
	pass bool
}

func (s stubScorer) Name() string { return s.name }

func (s stubScorer) Score(_ context.Context, _ string, _ scoring.Expectation, _ *agent.Run) scoring.ScoreResult {
	val := 0.0
	if s.pass {
		val = 1.0
	}
	return scoring.ScoreResult{Scorer: s.name, Value: val, Pass: s.pass, Rationale: "stub"}
}

type stubProvider struct {
	content string
	err     error
}

func (p *stubProvider) Analyze(_ context.Context, _ []string, _ []string, _ ...llm.Option) (*llm.Response, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &llm.Response{Content: p.content}, nil
}

func answeredRun(question string) *agent.Run {
	return &agent.Run{
		Question:    question,
		FinalAnswer: "answer to " + question,
		Status:      agent.StatusSuccess,
		ToolCalls:   []agent.ToolCall{{Tool: "search", Query: question}},
	}
}

func makeDataset(n int) *Dataset {
	ds := &Dataset{Name: "test_set"}
	for i := 0; i < n; i++ {
		ds.Rows = append(ds.Rows, Row{
			Inputs:       Inputs{Question: fmt.Sprintf("question %d", i)},
			Expectations: scoring.Expectation{ExpectedResponse: fmt.Sprintf("answer %d", i)},
		})
	}
	return ds
}

func TestRunOrderIsStableByInputIndex(t *testing.T) {
	ds := makeDataset(6)

	// Later rows finish first: completion order is the reverse of input order.
	delays := make(map[string]time.Duration)
	for i, row := range ds.Rows {
		delays[row.Inputs.Question] = time.Duration(len(ds.Rows)-i) * 10 * time.Millisecond
	}
	runner := funcRunner(func(ctx context.Context, question string) (*agent.Run, error) {
		time.Sleep(delays[question])
		return answeredRun(question), nil
	})

	engine := NewEngine(runner, Options{AgentWorkers: 6, ScorerWorkers: 2})
	scorers := []scoring.Scorer{
		stubScorer{name: "A", pass: true},
		stubScorer{name: "B", pass: false},
	}

	run, err := engine.Run(context.Background(), ds, scorers)
	require.NoError(t, err)

	require.Len(t, run.Cases, len(ds.Rows))
	for i, c := range run.Cases {
		assert.Equal(t, ds.Rows[i].Inputs.Question, c.Question, "case %d out of order", i)
		assert.Equal(t, i, c.Index)
	}
}

func TestRunEveryCaseHasFullScorerSet(t *testing.T) {
	runner := funcRunner(func(_ context.Context, question string) (*agent.Run, error) {
		return answeredRun(question), nil
	})
	scorers := []scoring.Scorer{
		stubScorer{name: "A", pass: true},
		stubScorer{name: "B", pass: true},
		stubScorer{name: "C", pass: false},
	}

	engine := NewEngine(runner, Options{AgentWorkers: 2, ScorerWorkers: 2})
	run, err := engine.Run(context.Background(), makeDataset(4), scorers)
	require.NoError(t, err)

	for _, c := range run.Cases {
		require.Len(t, c.Scores, len(scorers))
		seen := make(map[string]bool)
		for j, s := range c.Scores {
			assert.Equal(t, scorers[j].Name(), s.Scorer, "scores keep registration order")
			assert.False(t, seen[s.Scorer], "duplicate scorer %s", s.Scorer)
			seen[s.Scorer] = true
		}
	}

	assert.Equal(t, 1.0, run.Aggregates["A"].PassRate)
	assert.Equal(t, 0.0, run.Aggregates["C"].PassRate)
}

// Dataset scenario: the expected document is retrieved with exactly one tool
// call, so Retrieval and MinimalToolCalls both pass.
func TestRunTravelPolicyScenario(t *testing.T) {
	ds := &Dataset{
		Name: "oscorp_policies_validation_set",
		Rows: []Row{{
			Inputs: Inputs{Question: "Where must travelers check in?"},
			Expectations: scoring.Expectation{
				ExpectedResponse: "At the front desk",
				ExpectedDocument: "travel_policy_12",
			},
		}},
	}

	runner := funcRunner(func(_ context.Context, question string) (*agent.Run, error) {
		return &agent.Run{
			Question:    question,
			FinalAnswer: "Travelers must check in at the front desk.",
			Status:      agent.StatusSuccess,
			ToolCalls: []agent.ToolCall{{
				Tool:    "search",
				Query:   "traveler check in location",
				Results: []search.Result{{ID: "travel_policy_12", Text: "front desk", Score: 0.9}},
			}},
		}, nil
	})

	engine := NewEngine(runner, Options{})
	scorers := []scoring.Scorer{scoring.RetrievalScorer{}, scoring.MinimalToolCallsScorer{}}

	run, err := engine.Run(context.Background(), ds, scorers)
	require.NoError(t, err)
	require.Len(t, run.Cases, 1)

	scores := run.Cases[0].Scores
	require.Len(t, scores, 2)
	assert.True(t, scores[0].Pass, "Retrieval should pass")
	assert.True(t, scores[1].Pass, "MinimalToolCalls should pass")
}

// Outage scenario: every search fails, the run is Failed, and all five
// scorers emit degenerate failing scores while the case stays in the run.
func TestRunRetrievalOutageScenario(t *testing.T) {
	runner := funcRunner(func(_ context.Context, question string) (*agent.Run, error) {
		return &agent.Run{
			Question: question,
			Status:   agent.StatusFailed,
			Err:      "search tool failed: search backend unavailable",
		}, fmt.Errorf("search tool failed: %w", search.ErrUnavailable)
	})

	provider := &stubProvider{content: `{"score": 1.0, "rationale": "should never be asked"}`}
	scorers := []scoring.Scorer{
		scoring.NewCorrectness(provider),
		scoring.NewCompleteness(provider),
		scoring.NewRelevance(provider),
		scoring.RetrievalScorer{},
		scoring.MinimalToolCallsScorer{},
	}

	engine := NewEngine(runner, Options{})
	run, err := engine.Run(context.Background(), makeDataset(1), scorers)
	require.NoError(t, err, "a failed row must not abort the run")

	require.Len(t, run.Cases, 1)
	require.Len(t, run.Cases[0].Scores, 5)
	for _, s := range run.Cases[0].Scores {
		assert.False(t, s.Pass, "scorer %s must fail for a failed run", s.Scorer)
		assert.Equal(t, 0.0, s.Value)
	}
}

// Partial oracle failure: one judge times out, the other scorer passes, and
// the run still finalizes.
func TestRunOracleTimeoutScenario(t *testing.T) {
	runner := funcRunner(func(_ context.Context, question string) (*agent.Run, error) {
		return answeredRun(question), nil
	})
	scorers := []scoring.Scorer{
		stubScorer{name: "Retrieval", pass: true},
		scoring.NewRelevance(&stubProvider{err: fmt.Errorf("oracle timeout")}),
	}

	engine := NewEngine(runner, Options{})
	run, err := engine.Run(context.Background(), makeDataset(1), scorers)
	require.NoError(t, err)

	scores := run.Cases[0].Scores
	require.Len(t, scores, 2)
	assert.True(t, scores[0].Pass)
	assert.False(t, scores[1].Pass)
	assert.Contains(t, scores[1].Rationale, "oracle timeout")
}

func TestRunRetriesRetrievalOutages(t *testing.T) {
	calls := 0
	runner := funcRunner(func(_ context.Context, question string) (*agent.Run, error) {
		calls++
		if calls == 1 {
			return &agent.Run{Question: question, Status: agent.StatusFailed, Err: "unavailable"},
				fmt.Errorf("search tool failed: %w", search.ErrUnavailable)
		}
		return answeredRun(question), nil
	})

	engine := NewEngine(runner, Options{AgentRetries: 1})
	run, err := engine.Run(context.Background(), makeDataset(1), []scoring.Scorer{stubScorer{name: "A", pass: true}})
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Equal(t, agent.StatusSuccess, run.Cases[0].AgentRun.Status)
}

func TestRunDoesNotRetryReasoningFailures(t *testing.T) {
	calls := 0
	runner := funcRunner(func(_ context.Context, question string) (*agent.Run, error) {
		calls++
		return &agent.Run{Question: question, Status: agent.StatusFailed, Err: "reasoning step failed"},
			fmt.Errorf("reasoning step failed")
	})

	engine := NewEngine(runner, Options{AgentRetries: 2})
	_, err := engine.Run(context.Background(), makeDataset(1), []scoring.Scorer{stubScorer{name: "A"}})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRunCancelledContextExcludesAbandonedRows(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := funcRunner(func(_ context.Context, question string) (*agent.Run, error) {
		return answeredRun(question), nil
	})

	engine := NewEngine(runner, Options{AgentWorkers: 1})
	run, err := engine.Run(ctx, makeDataset(3), []scoring.Scorer{stubScorer{name: "A", pass: true}})
	require.Error(t, err)
	assert.Empty(t, run.Cases, "no partial cases in an aborted run")
}

func TestAggregate(t *testing.T) {
	cases := []Case{
		{Scores: []scoring.ScoreResult{
			{Scorer: "A", Value: 1.0, Pass: true},
			{Scorer: "B", Value: 0.5, Pass: false},
		}},
		{Scores: []scoring.ScoreResult{
			{Scorer: "A", Value: 0.0, Pass: false},
			{Scorer: "B", Value: 0.9, Pass: true},
		}},
	}

	aggs := aggregate(cases)
	assert.InDelta(t, 0.5, aggs["A"].Mean, 1e-9)
	assert.InDelta(t, 0.5, aggs["A"].PassRate, 1e-9)
	assert.InDelta(t, 0.7, aggs["B"].Mean, 1e-9)
	assert.InDelta(t, 0.5, aggs["B"].PassRate, 1e-9)
}

func TestRunJSONShape(t *testing.T) {
	runner := funcRunner(func(_ context.Context, question string) (*agent.Run, error) {
		return answeredRun(question), nil
	})
	engine := NewEngine(runner, Options{})
	run, err := engine.Run(context.Background(), makeDataset(1), []scoring.Scorer{stubScorer{name: "A", pass: true}})
	require.NoError(t, err)

	data, err := json.Marshal(run)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"aggregates"`)
	assert.Contains(t, string(data), `"cases"`)
}
