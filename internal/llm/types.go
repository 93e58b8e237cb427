package llm

import (
	"context"

	"github.com/openai/openai-go"
)

type Provider interface {
	// Analyze sends the system and user messages to the model and returns a
	// structured response, including any tool call the model requested.
	Analyze(ctx context.Context, systemMessages []string, userMessages []string, opts ...Option) (*Response, error)
}

type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

type Option func(*Options)

type Options struct {
	Model       string
	MaxTokens   int64
	Temperature float64
	Tools       []openai.ChatCompletionToolParam
}

// FunctionResponse represents the structured response from a function call
type FunctionResponse struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Response is the model's reply: either plain content or a function call.
type Response struct {
	Content      string
	FunctionCall *FunctionResponse
	Usage        Usage
}
