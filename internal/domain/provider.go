package domain

import "context"

// Provider is the interface all LLM completion providers must implement.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Name() string
	Models() []string
	Healthy(ctx context.Context) error
}

type ChatRequest struct {
	Model        string
	SystemPrompt string
	History      []Turn // prior turns, oldest first
	UserText     string // the new inbound text
	MaxTokens    int
	Temperature  float64
}

type ChatResponse struct {
	Content   string
	Usage     Usage
	LatencyMs int64 // time taken for this LLM call in milliseconds
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
