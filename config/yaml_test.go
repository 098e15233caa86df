package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfig_YAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.LLM.SystemPrompt = "You are a courteous support agent."
	cfg.Quality.Thresholds.Good = 0.8

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	var decoded Config
	require.NoError(t, yaml.Unmarshal(data, &decoded))

	assert.Equal(t, cfg.LLM.SystemPrompt, decoded.LLM.SystemPrompt)
	assert.Equal(t, cfg.Quality.Thresholds.Good, decoded.Quality.Thresholds.Good)
	assert.Equal(t, cfg.Orchestrator.MaxConcurrentCalls, decoded.Orchestrator.MaxConcurrentCalls)
	assert.Equal(t, cfg.Retry.BaseDelay, decoded.Retry.BaseDelay)
}

func TestConfig_YAMLUnmarshalPartialOverridesOnlyNamedFields(t *testing.T) {
	cfg := Default()

	partial := []byte(`
orchestrator:
  max_concurrent_calls: 250
llm:
  model: gpt-4o
`)
	require.NoError(t, yaml.Unmarshal(partial, &cfg))

	assert.Equal(t, 250, cfg.Orchestrator.MaxConcurrentCalls)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	// Untouched fields keep their defaults.
	assert.Equal(t, Default().Pool.PoolSize, cfg.Pool.PoolSize)
}
