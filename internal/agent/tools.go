package agent

import (
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
)

const searchToolName = "search"

// toolDefinitions exposes the knowledge-base search capability to the model.
var toolDefinitions = []openai.ChatCompletionToolParam{
	{
		Type: openai.F(openai.ChatCompletionToolTypeFunction),
		Function: openai.F(openai.FunctionDefinitionParam{
			Name:        openai.String(searchToolName),
			Description: openai.String("Search the knowledge base using semantic search"),
			Parameters: openai.F(openai.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "A natural language query to search the knowledge base",
					},
					"k": map[string]interface{}{
						"type":        "integer",
						"description": "Number of search results to return",
					},
				},
				"required": []string{"query"},
			}),
		}),
	},
}

type searchArgs struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

func parseSearchArgs(raw string) (searchArgs, error) {
	var args searchArgs
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return searchArgs{}, fmt.Errorf("invalid search arguments %q: %w", raw, err)
	}
	if args.Query == "" {
		return searchArgs{}, fmt.Errorf("search arguments missing query: %q", raw)
	}
	return args, nil
}
