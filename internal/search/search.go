package search

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the search backend could not be reached.
// Callers treat this as a tool-call failure, not a fatal error.
var ErrUnavailable = errors.New("search backend unavailable")

// Result is a single knowledge-base hit, most relevant results first.
type Result struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Searcher is the capability the agent uses to query the knowledge base.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Result, error)
}
