package evals

import (
	"time"

	"github.com/oscorp/policy-agent/internal/agent"
	"github.com/oscorp/policy-agent/internal/scoring"
)

// Case is one graded dataset row: the agent run plus one score per
// registered scorer, in scorer registration order.
type Case struct {
	Index       int                   `json:"index"`
	Question    string                `json:"question"`
	Expectation scoring.Expectation   `json:"expectation"`
	AgentRun    *agent.Run            `json:"agent_run"`
	Scores      []scoring.ScoreResult `json:"scores"`
}

// Aggregate summarizes one scorer across all cases of a run.
type Aggregate struct {
	Mean     float64 `json:"mean"`
	PassRate float64 `json:"pass_rate"`
}

// Run is a finalized evaluation run. Cases are ordered by dataset index.
type Run struct {
	ID         string               `json:"id"`
	Dataset    string               `json:"dataset"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Cases      []Case               `json:"cases"`
	Aggregates map[string]Aggregate `json:"aggregates"`
}

func aggregate(cases []Case) map[string]Aggregate {
	type acc struct {
		sum    float64
		passed int
		count  int
	}
	accs := make(map[string]*acc)
	for _, c := range cases {
		for _, s := range c.Scores {
			a := accs[s.Scorer]
			if a == nil {
				a = &acc{}
				accs[s.Scorer] = a
			}
			a.sum += s.Value
			if s.Pass {
				a.passed++
			}
			a.count++
		}
	}

	out := make(map[string]Aggregate, len(accs))
	for name, a := range accs {
		out[name] = Aggregate{
			Mean:     a.sum / float64(a.count),
			PassRate: float64(a.passed) / float64(a.count),
		}
	}
	return out
}
