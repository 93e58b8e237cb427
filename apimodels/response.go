package apimodels

type ChatResponse struct {
	// The agent's final answer
	Answer string `json:"answer"`

	// Documents retrieved while answering
	Sources []Source `json:"sources,omitempty"`

	// Metadata about the invocation
	Metadata ChatMetadata `json:"metadata"`
}

type Source struct {
	DocumentID string  `json:"documentId"`
	Score      float64 `json:"score"`
}

type ChatMetadata struct {
	// Time taken to answer
	Duration string `json:"duration"`

	// Tokens used while answering
	TokensUsed int64 `json:"tokensUsed"`

	// Number of knowledge base searches issued
	ToolCalls int `json:"toolCalls"`
}
