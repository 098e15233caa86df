package providers

import (
	"context"

	"github.com/lattice-voice/callcore/logger"
	"github.com/lattice-voice/callcore/types"
)

// MockProvider is a deterministic chat provider for tests and local
// development. It returns a fixed or generated response without making any
// network call.
type MockProvider struct {
	id                string
	model             string
	response          string // fixed response, if set
	includeRawOutput  bool
	supportsStreaming bool
}

// NewMockProvider creates a mock provider that always returns a fixed response.
// If response is empty, a deterministic placeholder derived from the request
// is used instead.
func NewMockProvider(id, model, response string, includeRawOutput bool) *MockProvider {
	return &MockProvider{
		id:                id,
		model:             model,
		response:          response,
		includeRawOutput:  includeRawOutput,
		supportsStreaming: true,
	}
}

func (m *MockProvider) responseFor(req ChatRequest) string {
	if m.response != "" {
		return m.response
	}
	if len(req.Messages) == 0 {
		return "I'm not sure I understood that."
	}
	return "Got it: " + req.Messages[len(req.Messages)-1].Content
}

// ID returns the provider ID.
func (m *MockProvider) ID() string {
	return m.id
}

// Chat returns a deterministic mock response.
func (m *MockProvider) Chat(_ context.Context, req ChatRequest) (ChatResponse, error) {
	responseText := m.responseFor(req)

	logger.Debug("mock provider chat", "provider_id", m.id, "model", m.model, "response", responseText)

	inputTokens := estimateTokens(req.Messages)
	outputTokens := estimateTokensOf(responseText)

	return ChatResponse{
		Content:      responseText,
		CostInfo:     ptrCostInfo(m.CalculateCost(inputTokens, outputTokens, 0)),
		FinishReason: "stop",
	}, nil
}

// ChatStream returns the mock response as a single streamed chunk.
func (m *MockProvider) ChatStream(_ context.Context, req ChatRequest) (<-chan StreamChunk, error) {
	outChan := make(chan StreamChunk, 1)

	responseText := m.responseFor(req)
	inputTokens := estimateTokens(req.Messages)
	outputTokens := estimateTokensOf(responseText)

	go func() {
		defer close(outChan)
		outChan <- StreamChunk{
			Content:      responseText,
			Delta:        responseText,
			TokenCount:   outputTokens,
			DeltaTokens:  outputTokens,
			FinishReason: ptr("stop"),
			CostInfo:     ptrCostInfo(m.CalculateCost(inputTokens, outputTokens, 0)),
		}
	}()

	return outChan, nil
}

// SupportsStreaming indicates whether the provider supports streaming.
func (m *MockProvider) SupportsStreaming() bool {
	return m.supportsStreaming
}

// Close is a no-op for the mock provider.
func (m *MockProvider) Close() error {
	return nil
}

// ShouldIncludeRawOutput returns whether raw API responses should be included.
func (m *MockProvider) ShouldIncludeRawOutput() bool {
	return m.includeRawOutput
}

// CalculateCost calculates cost breakdown for given token counts using a
// flat, made-up rate -- the mock provider never bills anything real.
func (m *MockProvider) CalculateCost(inputTokens, outputTokens, cachedTokens int) types.CostInfo {
	const perThousand = 0.01
	const cachedPerThousand = 0.005

	billedInput := inputTokens - cachedTokens
	inputCost := float64(billedInput) / 1000.0 * perThousand
	cachedCost := float64(cachedTokens) / 1000.0 * cachedPerThousand
	outputCost := float64(outputTokens) / 1000.0 * perThousand

	return types.CostInfo{
		InputTokens:   billedInput,
		OutputTokens:  outputTokens,
		CachedTokens:  cachedTokens,
		InputCostUSD:  inputCost,
		OutputCostUSD: outputCost,
		CachedCostUSD: cachedCost,
		TotalCost:     inputCost + cachedCost + outputCost,
	}
}

func estimateTokens(messages []types.Message) int {
	total := 0
	for _, msg := range messages {
		total += len(msg.Content) / 4
	}
	if total == 0 {
		total = 10
	}
	return total
}

func estimateTokensOf(text string) int {
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}

func ptrCostInfo(c types.CostInfo) *types.CostInfo {
	return &c
}
