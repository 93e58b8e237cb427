// cmd/traceevals/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"

	"github.com/oscorp/policy-agent/internal/config"
	"github.com/oscorp/policy-agent/internal/evals"
	"github.com/oscorp/policy-agent/internal/llm"
	"github.com/oscorp/policy-agent/internal/scoring"
	"github.com/oscorp/policy-agent/internal/trace"
)

func main() {
	maxTraces := flag.Int("max-traces", 5, "number of recent traces to evaluate")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	llmProvider, err := llm.NewOpenAI(&cfg.OpenAI)
	if err != nil {
		log.Fatalf("failed to create LLM provider: %v", err)
	}

	traceStore, err := trace.NewStore(cfg.Trace.DBPath)
	if err != nil {
		log.Fatalf("failed to open trace store: %v", err)
	}
	defer traceStore.Close()

	ctx := context.Background()
	records, err := traceStore.Recent(ctx, *maxTraces)
	if err != nil {
		log.Fatalf("failed to load traces: %v", err)
	}
	if len(records) == 0 {
		log.Println("no traces found; run the agent server and generate some traffic, then re-run")
		return
	}

	// Reference-free scorers only: recorded traffic has no expectations.
	scorers := []scoring.Scorer{
		scoring.NewRelevance(llmProvider),
		scoring.MinimalToolCallsScorer{},
	}

	engine := evals.NewEngine(nil, evals.Options{
		AgentWorkers:  cfg.Eval.AgentWorkers,
		ScorerWorkers: cfg.Eval.ScorerWorkers,
	})

	run, err := engine.EvaluateTraces(ctx, records, scorers)
	if err != nil {
		log.Fatalf("trace evaluation failed: %v", err)
	}

	names := make([]string, 0, len(run.Aggregates))
	for name := range run.Aggregates {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("evaluated %d traces\n", len(run.Cases))
	for _, name := range names {
		agg := run.Aggregates[name]
		fmt.Printf("  %-18s mean=%.3f pass_rate=%.3f\n", name, agg.Mean, agg.PassRate)
	}
}
