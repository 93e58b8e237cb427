// Package scoring grades agent runs along independent dimensions. Every
// scorer is a pure function of (question, expectation, run); failures are
// contained inside the ScoreResult, never raised to the caller.
package scoring

import (
	"context"

	"github.com/oscorp/policy-agent/internal/agent"
)

// Expectation is the reference data for one dataset row. Read-only.
type Expectation struct {
	ExpectedResponse string `json:"expected_response" yaml:"expected_response"`
	ExpectedDocument string `json:"expected_document" yaml:"expected_document"`
}

// ScoreResult is one scorer's verdict on one run. Value is bounded to [0, 1].
type ScoreResult struct {
	Scorer    string  `json:"scorer"`
	Value     float64 `json:"value"`
	Pass      bool    `json:"pass"`
	Rationale string  `json:"rationale"`
}

type Scorer interface {
	Name() string
	Score(ctx context.Context, question string, exp Expectation, run *agent.Run) ScoreResult
}

// passThreshold converts a graded judge score into a pass/fail verdict.
const passThreshold = 0.7

func failing(name, rationale string) ScoreResult {
	return ScoreResult{Scorer: name, Value: 0, Pass: false, Rationale: rationale}
}

func passing(name, rationale string) ScoreResult {
	return ScoreResult{Scorer: name, Value: 1, Pass: true, Rationale: rationale}
}

const failedRunRationale = "agent run failed, no answer to grade"
