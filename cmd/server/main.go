// cmd/server/main.go
package main

import (
	"log"
	"log/slog"

	"github.com/oscorp/policy-agent/internal/agent"
	"github.com/oscorp/policy-agent/internal/config"
	"github.com/oscorp/policy-agent/internal/llm"
	"github.com/oscorp/policy-agent/internal/search"
	"github.com/oscorp/policy-agent/internal/server"
	"github.com/oscorp/policy-agent/internal/trace"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
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

	kbAgent := agent.New(searcher, llmProvider, agent.Config{
		MaxToolCalls: cfg.Agent.MaxToolCalls,
		LimitPolicy:  agent.LimitPolicy(cfg.Agent.LimitPolicy),
		TopK:         cfg.Search.TopK,
	})
	runner := trace.NewRecorder(kbAgent, traceStore)

	srv := server.New(*cfg, runner)
	slog.Info("starting server", "host", cfg.Server.Host, "port", cfg.Server.Port)
	if err := srv.Run(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
