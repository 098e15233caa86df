// Package providers implements the LLM facade: a vendor-agnostic chat
// completion contract consumed by the dialogue manager.
//
// It handles:
//   - Chat completion requests with streaming support
//   - Cost tracking and token usage accounting
//   - Resilience (retry, circuit breaker) composed from the resilience package
//
// Concrete vendors (OpenAI, Groq) implement the Provider interface.
package providers

import (
	"context"
	"time"

	"github.com/lattice-voice/callcore/types"
)

// ChatRequest represents a request to a chat provider.
type ChatRequest struct {
	System      string                 `json:"system"`
	Messages    []types.Message        `json:"messages"`
	Temperature float32                `json:"temperature"`
	TopP        float32                `json:"top_p"`
	MaxTokens   int                    `json:"max_tokens"`
	Seed        *int                   `json:"seed,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// ChatResponse represents a response from a chat provider.
type ChatResponse struct {
	Content      string          `json:"content"`
	CostInfo     *types.CostInfo `json:"cost_info,omitempty"`
	Latency      time.Duration   `json:"latency"`
	Raw          []byte          `json:"raw,omitempty"`
	RawRequest   interface{}     `json:"raw_request,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"`
}

// Pricing defines cost per 1K tokens for input and output.
type Pricing struct {
	InputCostPer1K  float64
	OutputCostPer1K float64
}

// ProviderDefaults holds default parameters for providers.
type ProviderDefaults struct {
	Temperature float32
	TopP        float32
	MaxTokens   int
	Pricing     Pricing
}

// Provider interface defines the contract for chat providers.
type Provider interface {
	ID() string
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)

	// Streaming support
	ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error)
	SupportsStreaming() bool

	ShouldIncludeRawOutput() bool
	Close() error // Close cleans up provider resources (e.g. HTTP connections)

	// CalculateCost calculates cost breakdown for given token counts.
	CalculateCost(inputTokens, outputTokens, cachedTokens int) types.CostInfo
}
