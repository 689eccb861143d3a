// Package chat calls an OpenAI-compatible chat completion endpoint.
package chat

// Message roles understood by the completion endpoint.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in a completion request or response.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the internal completion request structure.
type Request struct {
	Messages    []Message
	Temperature *float32 // optional temperature
	MaxTokens   *int     // optional max output tokens
}

// Result is the internal completion result structure.
type Result struct {
	Message      Message
	Model        string
	FinishReason string
	Usage        Usage
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
