package providers

import (
	"net/http"
	"os"
	"time"
)

// GroqProvider implements the Provider interface for Groq's OpenAI-compatible
// chat completions API. Groq hosts open models (Llama, Mixtral) behind the
// same wire format OpenAI uses, so the adapter only overrides the base URL,
// credential lookup, and default timeout; request/response shapes, SSE
// framing, and cost accounting are all inherited from the embedded
// OpenAIProvider and its promoted methods.
type GroqProvider struct {
	*OpenAIProvider
}

// NewGroqProvider creates a new Groq provider.
func NewGroqProvider(id, model, baseURL string, defaults ProviderDefaults, includeRawOutput bool) *GroqProvider {
	inner := NewOpenAIProvider(id, model, baseURL, defaults, includeRawOutput)

	if apiKey := os.Getenv("GROQ_API_KEY"); apiKey != "" {
		inner.apiKey = apiKey
	}
	inner.client = &http.Client{Timeout: 30 * time.Second}

	return &GroqProvider{OpenAIProvider: inner}
}
