package agent

import (
	"context"
	"time"

	"github.com/oscorp/policy-agent/internal/search"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// ToolCall records one search issued during a run, in issue order.
type ToolCall struct {
	Tool    string          `json:"tool"`
	Query   string          `json:"query"`
	K       int             `json:"k"`
	Results []search.Result `json:"results"`
	At      time.Time       `json:"at"`
}

// Run is the complete record of one agent invocation. It is immutable once
// returned. FinalAnswer is empty exactly when Status is StatusFailed.
type Run struct {
	Question    string     `json:"question"`
	ToolCalls   []ToolCall `json:"tool_calls"`
	FinalAnswer string     `json:"final_answer"`
	Status      Status     `json:"status"`
	Err         string     `json:"error,omitempty"`
	TokensUsed  int64      `json:"tokens_used"`
}

// Retrieved reports whether any tool call returned the given document.
func (r *Run) Retrieved(documentID string) bool {
	for _, tc := range r.ToolCalls {
		for _, res := range tc.Results {
			if res.ID == documentID {
				return true
			}
		}
	}
	return false
}

// Runner produces exactly one Run per invocation. The returned Run is always
// non-nil; err is non-nil iff the run failed.
type Runner interface {
	Run(ctx context.Context, question string) (*Run, error)
}
