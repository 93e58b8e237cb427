// cmd/evals/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"sort"

	"github.com/oscorp/policy-agent/internal/agent"
	"github.com/oscorp/policy-agent/internal/config"
	"github.com/oscorp/policy-agent/internal/evals"
	"github.com/oscorp/policy-agent/internal/llm"
	"github.com/oscorp/policy-agent/internal/scoring"
	"github.com/oscorp/policy-agent/internal/search"
	"github.com/oscorp/policy-agent/internal/trace"
)

func main() {
	datasetPath := flag.String("dataset", "datasets/validation.yaml", "path to the YAML evaluation dataset")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	dataset, err := evals.LoadDataset(*datasetPath)
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}

	searcher, err := search.NewClient(cfg.Search.Endpoint, cfg.Search.Timeout)
	if err != nil {
		log.Fatalf("failed to create search client: %v", err)
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

	evalStore, err := evals.NewStore(cfg.Eval.DBPath)
	if err != nil {
		log.Fatalf("failed to open eval store: %v", err)
	}
	defer evalStore.Close()

	kbAgent := agent.New(searcher, llmProvider, agent.Config{
		MaxToolCalls: cfg.Agent.MaxToolCalls,
		LimitPolicy:  agent.LimitPolicy(cfg.Agent.LimitPolicy),
		TopK:         cfg.Search.TopK,
	})
	runner := trace.NewRecorder(kbAgent, traceStore)

	scorers := []scoring.Scorer{
		scoring.NewCorrectness(llmProvider),
		scoring.NewCompleteness(llmProvider),
		scoring.NewRelevance(llmProvider),
		scoring.RetrievalScorer{},
		scoring.MinimalToolCallsScorer{},
	}

	engine := evals.NewEngine(runner, evals.Options{
		AgentWorkers:  cfg.Eval.AgentWorkers,
		ScorerWorkers: cfg.Eval.ScorerWorkers,
		AgentRetries:  cfg.Eval.AgentRetries,
	})

	ctx := context.Background()
	run, err := engine.Run(ctx, dataset, scorers)
	if err != nil {
		log.Fatalf("evaluation failed: %v", err)
	}

	if err := evalStore.SaveRun(ctx, run); err != nil {
		log.Fatalf("failed to persist run: %v", err)
	}
	slog.Info("evaluation run persisted", "run_id", run.ID, "dataset", run.Dataset)

	printAggregates(run)
}

func printAggregates(run *evals.Run) {
	names := make([]string, 0, len(run.Aggregates))
	for name := range run.Aggregates {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("run %s on %q: %d cases\n", run.ID, run.Dataset, len(run.Cases))
	for _, name := range names {
		agg := run.Aggregates[name]
		fmt.Printf("  %-18s mean=%.3f pass_rate=%.3f\n", name, agg.Mean, agg.PassRate)
	}
}
