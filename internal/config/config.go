package config

import (
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server ServerConfig
	OpenAI OpenAIConfig
	Search SearchConfig
	Agent  AgentConfig
	Eval   EvalConfig
	Trace  TraceConfig
}

type ServerConfig struct {
	Port         string        `envconfig:"SERVER_PORT" default:"8000"`
	Host         string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	ReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"120s"`
}

type OpenAIConfig struct {
	Provider       string `envconfig:"OPENAI_PROVIDER" default:"openai"`
	APIKey         string `envconfig:"OPENAI_API_KEY" required:"true"`
	APIEndpoint    string `envconfig:"OPENAI_ENDPOINT" default:"https://api.openai.com/v1"`
	Model          string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	DeploymentName string `envconfig:"OPENAI_DEPLOYMENT" default:"gpt-4o"`
	APIVersion     string `envconfig:"OPENAI_API_VERSION" default:"2023-05-15"`
}

type SearchConfig struct {
	Endpoint string        `envconfig:"SEARCH_ENDPOINT" default:"http://localhost:8081/search"`
	Timeout  time.Duration `envconfig:"SEARCH_TIMEOUT" default:"30s"`
	TopK     int           `envconfig:"SEARCH_TOP_K" default:"3"`
}

type AgentConfig struct {
	// MaxToolCalls bounds the decide/search cycle of a single run.
	MaxToolCalls int `envconfig:"AGENT_MAX_TOOL_CALLS" default:"5"`
	// LimitPolicy is "synthesize" (answer from gathered context) or "fail".
	LimitPolicy string `envconfig:"AGENT_LIMIT_POLICY" default:"synthesize"`
}

type EvalConfig struct {
	AgentWorkers  int    `envconfig:"EVAL_AGENT_WORKERS" default:"4"`
	ScorerWorkers int    `envconfig:"EVAL_SCORER_WORKERS" default:"5"`
	AgentRetries  int    `envconfig:"EVAL_AGENT_RETRIES" default:"1"`
	DBPath        string `envconfig:"EVAL_DB_PATH" default:"data/evals.db"`
}

type TraceConfig struct {
	DBPath string `envconfig:"TRACE_DB_PATH" default:"data/traces.db"`
}

func LoadConfig() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("configuration loaded successfully")
	return &cfg, nil
}
