package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/oscorp/policy-agent/apimodels"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req apimodels.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if strings.TrimSpace(req.Question) == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	run, err := s.runner.Run(r.Context(), req.Question)
	if err != nil {
		slog.Error("Chat request failed", "error", err)
		http.Error(w, run.Err, http.StatusInternalServerError)
		return
	}

	resp := apimodels.ChatResponse{
		Answer: run.FinalAnswer,
		Metadata: apimodels.ChatMetadata{
			Duration:   time.Since(start).String(),
			TokensUsed: run.TokensUsed,
			ToolCalls:  len(run.ToolCalls),
		},
	}
	for _, tc := range run.ToolCalls {
		for _, res := range tc.Results {
			resp.Sources = append(resp.Sources, apimodels.Source{
				DocumentID: res.ID,
				Score:      res.Score,
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
