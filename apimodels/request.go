package apimodels

type ChatRequest struct {
	// Question is the natural language question to answer
	Question string `json:"question"`
}
