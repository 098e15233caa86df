package providers

import (
	"time"

	"github.com/lattice-voice/callcore/types"
)

// StreamChunk represents a batch of tokens with metadata.
type StreamChunk struct {
	// Content is the accumulated content so far.
	Content string `json:"content"`

	// Delta is the new content in this chunk.
	Delta string `json:"delta"`

	// TokenCount is the total number of tokens so far.
	TokenCount int `json:"token_count"`

	// DeltaTokens is the number of tokens in this delta.
	DeltaTokens int `json:"delta_tokens"`

	// FinishReason is nil until the stream is complete.
	// Values: "stop", "length", "error", "cancelled".
	FinishReason *string `json:"finish_reason,omitempty"`

	// Error is set if an error occurred during streaming.
	Error error `json:"error,omitempty"`

	// Metadata contains provider-specific metadata.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// CostInfo contains cost breakdown, only present in the final chunk.
	CostInfo *types.CostInfo `json:"cost_info,omitempty"`
}

// StreamEvent is sent to observers for monitoring.
type StreamEvent struct {
	Type      string       `json:"type"` // "chunk", "complete", "error"
	Chunk     *StreamChunk `json:"chunk,omitempty"`
	Error     error        `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// StreamObserver receives stream events for monitoring.
type StreamObserver interface {
	OnChunk(chunk StreamChunk)
	OnComplete(totalTokens int, duration time.Duration)
	OnError(err error)
}

// ptr is a helper to get a pointer to a string.
func ptr(s string) *string {
	return &s
}
