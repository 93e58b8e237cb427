package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oscorp/policy-agent/apimodels"
	"github.com/oscorp/policy-agent/internal/agent"
	"github.com/oscorp/policy-agent/internal/config"
	"github.com/oscorp/policy-agent/internal/search"
)

type stubRunner struct {
	run *agent.Run
	err error
}

func (r stubRunner) Run(_ context.Context, _ string) (*agent.Run, error) {
	return r.run, r.err
}

func newTestServer(runner agent.Runner) *Server {
	return New(config.Config{Server: config.ServerConfig{Host: "127.0.0.1", Port: "0"}}, runner)
}

func TestHandleChat(t *testing.T) {
	run := &agent.Run{
		Question:    "Where must travelers check in?",
		FinalAnswer: "At the front desk",
		Status:      agent.StatusSuccess,
		TokensUsed:  42,
		ToolCalls: []agent.ToolCall{{
			Tool:    "search",
			Query:   "check in",
			Results: []search.Result{{ID: "travel_policy_12", Score: 0.9}},
		}},
	}
	srv := newTestServer(stubRunner{run: run})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat",
		strings.NewReader(`{"question":"Where must travelers check in?"}`))
	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp apimodels.ChatResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "At the front desk", resp.Answer)
	assert.Equal(t, int64(42), resp.Metadata.TokensUsed)
	assert.Equal(t, 1, resp.Metadata.ToolCalls)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "travel_policy_12", resp.Sources[0].DocumentID)
}

func TestHandleChatRejectsEmptyQuestion(t *testing.T) {
	srv := newTestServer(stubRunner{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"question":"  "}`))
	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleChatFailedRun(t *testing.T) {
	run := &agent.Run{Question: "q", Status: agent.StatusFailed, Err: "search tool failed"}
	srv := newTestServer(stubRunner{run: run, err: fmt.Errorf("search tool failed")})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"question":"q"}`))
	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(stubRunner{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
