package domain

// ChatMessage is the provider-agnostic chat message shape used by the LLM
// integrations.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a single instruction + user text completion call.
// Every LLM backend accepts this shape and returns plain text.
type CompletionRequest struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}
