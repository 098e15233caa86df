package providers

import "testing"

func TestNewGroqProvider_InheritsOpenAIContract(t *testing.T) {
	p := NewGroqProvider("groq-1", "llama-3.3-70b-versatile", "https://api.groq.com/openai/v1", ProviderDefaults{}, false)

	if p.ID() != "groq-1" {
		t.Errorf("ID() = %q, want groq-1", p.ID())
	}
	if !p.SupportsStreaming() {
		t.Error("expected Groq provider to support streaming")
	}
	var _ Provider = p
}
