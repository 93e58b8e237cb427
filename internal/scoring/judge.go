package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/oscorp/policy-agent/internal/agent"
	"github.com/oscorp/policy-agent/internal/llm"
)

const judgeMaxTokens = 256

const judgeSystemPrompt = `You are a strict evaluator. Respond with a JSON object of the form
{"score": <number between 0 and 1>, "rationale": "<one sentence>"}
and nothing else.`

var scorePattern = regexp.MustCompile(`[-+]?[0-9]*\.?[0-9]+`)

// judgeScorer grades an answer by asking an LLM oracle for a bounded score
// plus rationale. The prompt builder defines the grading dimension.
type judgeScorer struct {
	name     string
	provider llm.Provider
	prompt   func(question string, exp Expectation, run *agent.Run) string
}

func (j *judgeScorer) Name() string { return j.name }

func (j *judgeScorer) Score(ctx context.Context, question string, exp Expectation, run *agent.Run) ScoreResult {
	if run.Status == agent.StatusFailed {
		return failing(j.name, failedRunRationale)
	}

	resp, err := j.provider.Analyze(ctx,
		[]string{judgeSystemPrompt},
		[]string{j.prompt(question, exp, run)},
		func(o *llm.Options) {
			o.MaxTokens = judgeMaxTokens
		},
	)
	if err != nil {
		slog.Error("Judge call failed", "scorer", j.name, "error", err)
		return failing(j.name, fmt.Sprintf("judge call failed: %v", err))
	}

	value, rationale, err := parseJudgment(resp.Content)
	if err != nil {
		slog.Error("Judge reply unparseable", "scorer", j.name, "error", err)
		return failing(j.name, fmt.Sprintf("judge reply unparseable: %v", err))
	}

	return ScoreResult{
		Scorer:    j.name,
		Value:     value,
		Pass:      value >= passThreshold,
		Rationale: rationale,
	}
}

// NewCorrectness grades how well the answer is factually supported by the
// expected response.
func NewCorrectness(provider llm.Provider) Scorer {
	return &judgeScorer{
		name:     "Correctness",
		provider: provider,
		prompt: func(question string, exp Expectation, run *agent.Run) string {
			return fmt.Sprintf(
				"Rate how well the answer is factually supported by the expected response. "+
					"0 means contradicted or unsupported, 1 means fully supported. "+
					"Do not require an exact wording match.\n\nQuestion:\n%s\n\nExpected response:\n%s\n\nAnswer:\n%s",
				question, exp.ExpectedResponse, run.FinalAnswer)
		},
	}
}

// NewCompleteness grades whether the answer addresses every aspect of the
// question implied by the expected response.
func NewCompleteness(provider llm.Provider) Scorer {
	return &judgeScorer{
		name:     "Completeness",
		provider: provider,
		prompt: func(question string, exp Expectation, run *agent.Run) string {
			return fmt.Sprintf(
				"Rate whether the answer addresses all aspects of the question implied by the expected response. "+
					"0 means key aspects are missing, 1 means everything is covered.\n\nQuestion:\n%s\n\nExpected response:\n%s\n\nAnswer:\n%s",
				question, exp.ExpectedResponse, run.FinalAnswer)
		},
	}
}

// NewRelevance penalizes answer content that is not relevant to the question.
func NewRelevance(provider llm.Provider) Scorer {
	return &judgeScorer{
		name:     "Relevance",
		provider: provider,
		prompt: func(question string, _ Expectation, run *agent.Run) string {
			return fmt.Sprintf(
				"Rate how relevant the answer is to the question. "+
					"0 means unrelated or mostly off-topic content, 1 means everything in the answer is on topic.\n\nQuestion:\n%s\n\nAnswer:\n%s",
				question, run.FinalAnswer)
		},
	}
}

type judgment struct {
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

// parseJudgment extracts {score, rationale} from a judge reply. Models mostly
// return the requested JSON; a bare numeric reply is accepted as a fallback.
func parseJudgment(text string) (float64, string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, "", fmt.Errorf("empty judge response")
	}

	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			var j judgment
			if err := json.Unmarshal([]byte(trimmed[start:end+1]), &j); err == nil {
				if j.Score < 0 || j.Score > 1 {
					return 0, "", fmt.Errorf("score out of range: %v", j.Score)
				}
				return j.Score, j.Rationale, nil
			}
		}
	}

	match := scorePattern.FindString(trimmed)
	if match == "" {
		return 0, "", fmt.Errorf("no numeric score in response: %q", trimmed)
	}
	val, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid score %q: %w", match, err)
	}
	if val > 1 && val <= 100 && strings.Contains(trimmed, "%") {
		val = val / 100
	}
	if val < 0 || val > 1 {
		return 0, "", fmt.Errorf("score out of range: %v", val)
	}
	return val, trimmed, nil
}
