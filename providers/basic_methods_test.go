package providers

import (
	"testing"
)

func TestProvider_BasicMethods(t *testing.T) {
	tests := []struct {
		name     string
		provider Provider
	}{
		{
			name:     "MockProvider",
			provider: NewMockProvider("test", "test-model", "", false),
		},
		{
			name:     "OpenAIProvider",
			provider: NewOpenAIProvider("test-openai", "gpt-4o-mini", "https://api.openai.com/v1", ProviderDefaults{}, false),
		},
		{
			name:     "GroqProvider",
			provider: NewGroqProvider("test-groq", "llama-3.3-70b-versatile", "https://api.groq.com/openai/v1", ProviderDefaults{}, false),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.provider.Close()
			if err != nil {
				t.Errorf("Close() error = %v", err)
			}

			shouldInclude := tt.provider.ShouldIncludeRawOutput()
			_ = shouldInclude
		})
	}
}
