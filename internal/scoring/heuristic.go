package scoring

import (
	"context"
	"fmt"

	"github.com/oscorp/policy-agent/internal/agent"
)

// RetrievalScorer checks that the expected document was retrieved by a tool
// call at some point during the run.
type RetrievalScorer struct{}

func (RetrievalScorer) Name() string { return "Retrieval" }

func (s RetrievalScorer) Score(_ context.Context, _ string, exp Expectation, run *agent.Run) ScoreResult {
	if run.Status == agent.StatusFailed {
		return failing(s.Name(), failedRunRationale)
	}
	if exp.ExpectedDocument == "" {
		return passing(s.Name(), "No expected document provided")
	}
	if run.Retrieved(exp.ExpectedDocument) {
		return passing(s.Name(), "Expected document was retrieved by tool calls")
	}
	return failing(s.Name(), "Expected document was not retrieved by tool calls")
}

// MinimalToolCallsScorer checks that the question was resolved with exactly
// one tool call.
type MinimalToolCallsScorer struct{}

func (MinimalToolCallsScorer) Name() string { return "MinimalToolCalls" }

func (s MinimalToolCallsScorer) Score(_ context.Context, _ string, _ Expectation, run *agent.Run) ScoreResult {
	if run.Status == agent.StatusFailed {
		return failing(s.Name(), failedRunRationale)
	}
	switch n := len(run.ToolCalls); {
	case n == 1:
		return passing(s.Name(), "Exactly one tool call was made")
	case n == 0:
		return failing(s.Name(), "No tool calls were made")
	default:
		return failing(s.Name(), fmt.Sprintf("It took %d tool calls before the agent responded", n))
	}
}
