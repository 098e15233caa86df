package types

import "time"

// Message represents a single message in a conversation context: the
// ordered history a language model sees, plus its system prompt.
type Message struct {
	Role    string `json:"role"`    // "system", "user", "assistant"
	Content string `json:"content"` // message text

	Timestamp time.Time              `json:"timestamp,omitempty"`
	LatencyMs int64                  `json:"latency_ms,omitempty"` // time taken to generate, for assistant messages
	CostInfo  *CostInfo              `json:"cost_info,omitempty"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
}

// CostInfo tracks token usage and associated costs for LLM operations.
// All cost values are in USD.
type CostInfo struct {
	InputTokens   int     `json:"input_tokens"`
	OutputTokens  int     `json:"output_tokens"`
	CachedTokens  int     `json:"cached_tokens,omitempty"`
	InputCostUSD  float64 `json:"input_cost_usd"`
	OutputCostUSD float64 `json:"output_cost_usd"`
	CachedCostUSD float64 `json:"cached_cost_usd,omitempty"`
	TotalCost     float64 `json:"total_cost_usd"`
}

// NewUserMessage builds a user message stamped with the current time.
func NewUserMessage(content string) Message {
	return Message{Role: "user", Content: content, Timestamp: time.Now()}
}

// NewAssistantMessage builds an assistant message stamped with the current time.
func NewAssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content, Timestamp: time.Now()}
}

// NewSystemMessage builds a system message stamped with the current time.
func NewSystemMessage(content string) Message {
	return Message{Role: "system", Content: content, Timestamp: time.Now()}
}
