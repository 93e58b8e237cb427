package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oscorp/policy-agent/internal/llm"
	"github.com/oscorp/policy-agent/internal/search"
)

// LimitPolicy decides what happens when a run hits MaxToolCalls.
type LimitPolicy string

const (
	// LimitSynthesize answers from the gathered context (degraded success).
	LimitSynthesize LimitPolicy = "synthesize"
	// LimitFail terminates the run as failed.
	LimitFail LimitPolicy = "fail"
)

const (
	DefaultMaxToolCalls = 5
	maxAnswerLen        = 5000
	resultSnippetLen    = 1000
)

var SystemPrompt = `You are a helpful assistant. You answer questions using a knowledge base.

When a user asks a question, you must search for the answer in the knowledge base.

DO NOT provide any answer that is not supported by information from the knowledge base.

If you cannot find any information on the topic in the knowledge base, tell the user and do not attempt to answer the question on your own.

!!!IMPORTANT NOTE!!!: Do not repeat searches with the same query if the results are already known.
If no new information is available, proceed to final answer.`

type Config struct {
	MaxToolCalls int
	LimitPolicy  LimitPolicy
	TopK         int
}

// Agent drives the decide/search/answer cycle for a single question.
type Agent struct {
	searcher search.Searcher
	provider llm.Provider
	cfg      Config
}

func New(searcher search.Searcher, provider llm.Provider, cfg Config) *Agent {
	if cfg.MaxToolCalls <= 0 {
		cfg.MaxToolCalls = DefaultMaxToolCalls
	}
	if cfg.LimitPolicy == "" {
		cfg.LimitPolicy = LimitSynthesize
	}
	if cfg.TopK < 1 {
		cfg.TopK = search.DefaultK
	}
	return &Agent{
		searcher: searcher,
		provider: provider,
		cfg:      cfg,
	}
}

// actionKind enumerates the possible outcomes of a decision step.
type actionKind int

const (
	actionCallTool actionKind = iota
	actionAnswer
)

type nextAction struct {
	kind   actionKind
	query  string
	k      int
	answer string
}

// Run executes the loop for one question. The returned Run is never nil and is
// append-only while the loop executes; it is immutable once returned.
func (a *Agent) Run(ctx context.Context, question string) (*Run, error) {
	slog.Info("Starting agent run", "question", question)

	run := &Run{Question: question}

	for len(run.ToolCalls) < a.cfg.MaxToolCalls {
		action, usage, err := a.decide(ctx, run)
		run.TokensUsed += usage.TotalTokens
		if err != nil {
			return a.fail(run, fmt.Errorf("reasoning step failed: %w", err))
		}

		switch action.kind {
		case actionAnswer:
			run.FinalAnswer = truncateString(action.answer, maxAnswerLen)
			run.Status = StatusSuccess
			slog.Info("Agent run answered", "tool_calls", len(run.ToolCalls))
			return run, nil

		case actionCallTool:
			k := action.k
			if k < 1 {
				k = a.cfg.TopK
			}
			slog.Info("Executing search", "query", action.query, "k", k)
			results, err := a.searcher.Search(ctx, action.query, k)
			if err != nil {
				return a.fail(run, fmt.Errorf("search tool failed: %w", err))
			}
			run.ToolCalls = append(run.ToolCalls, ToolCall{
				Tool:    searchToolName,
				Query:   action.query,
				K:       k,
				Results: results,
				At:      time.Now(),
			})
		}
	}

	if a.cfg.LimitPolicy == LimitFail {
		return a.fail(run, fmt.Errorf("tool call limit of %d exceeded", a.cfg.MaxToolCalls))
	}
	return a.synthesize(ctx, run)
}

// decide calls the model with the search tool attached and maps the reply to a
// tagged action: a requested tool call or a final answer.
func (a *Agent) decide(ctx context.Context, run *Run) (nextAction, llm.Usage, error) {
	systemContent := fmt.Sprintf(
		"%s\n\nSearches used: %d/%d\nPrevious findings:\n%s",
		SystemPrompt, len(run.ToolCalls), a.cfg.MaxToolCalls, summarizeFindings(run.ToolCalls),
	)

	resp, err := a.provider.Analyze(ctx,
		[]string{systemContent},
		[]string{run.Question},
		func(o *llm.Options) {
			o.Tools = toolDefinitions
		},
	)
	if err != nil {
		slog.Error("LLM decision step failed", "error", err)
		return nextAction{}, llm.Usage{}, err
	}

	if resp.FunctionCall != nil {
		if resp.FunctionCall.Name != searchToolName {
			return nextAction{}, resp.Usage, fmt.Errorf("model requested unknown tool %q", resp.FunctionCall.Name)
		}
		args, err := parseSearchArgs(resp.FunctionCall.Arguments)
		if err != nil {
			return nextAction{}, resp.Usage, err
		}
		slog.Debug("Model requested search", "query", args.Query)
		return nextAction{kind: actionCallTool, query: args.Query, k: args.K}, resp.Usage, nil
	}

	if strings.TrimSpace(resp.Content) == "" {
		return nextAction{}, resp.Usage, fmt.Errorf("model returned neither a tool call nor an answer")
	}
	slog.Debug("Model provided final answer")
	return nextAction{kind: actionAnswer, answer: resp.Content}, resp.Usage, nil
}

// synthesize produces a best-effort answer from gathered context after the
// tool call limit was reached.
func (a *Agent) synthesize(ctx context.Context, run *Run) (*Run, error) {
	slog.Info("Tool call limit reached, synthesizing answer", "tool_calls", len(run.ToolCalls))

	systemContent := fmt.Sprintf(`You have reached the maximum number of knowledge base searches (%d). Provide a final answer now.
Original question: %s

Previous findings:
%s

Provide a truthful and concise final answer that reflects only the information discovered.`,
		a.cfg.MaxToolCalls, run.Question, summarizeFindings(run.ToolCalls))

	resp, err := a.provider.Analyze(ctx, []string{systemContent}, nil)
	if err != nil {
		return a.fail(run, fmt.Errorf("synthesis step failed: %w", err))
	}
	run.TokensUsed += resp.Usage.TotalTokens
	if strings.TrimSpace(resp.Content) == "" {
		return a.fail(run, fmt.Errorf("synthesis step returned an empty answer"))
	}

	run.FinalAnswer = truncateString(resp.Content, maxAnswerLen)
	run.Status = StatusSuccess
	return run, nil
}

func (a *Agent) fail(run *Run, err error) (*Run, error) {
	slog.Error("Agent run failed", "question", run.Question, "error", err)
	run.Status = StatusFailed
	run.FinalAnswer = ""
	run.Err = err.Error()
	return run, err
}

func summarizeFindings(calls []ToolCall) string {
	if len(calls) == 0 {
		return "No searches have been made yet."
	}
	var sb strings.Builder
	for i, tc := range calls {
		fmt.Fprintf(&sb, "Search %d: %q\n", i+1, tc.Query)
		if len(tc.Results) == 0 {
			sb.WriteString("  No results.\n")
			continue
		}
		for _, res := range tc.Results {
			fmt.Fprintf(&sb, "  [%s] %s\n", res.ID, truncateString(res.Text, resultSnippetLen))
		}
	}
	return sb.String()
}

func truncateString(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "\n[truncated]"
	}
	return s
}
