// Package config defines the typed configuration record for a call
// orchestration core and its defaults, grounded on the option table the
// rest of the module's Config structs already anticipate via yaml struct
// tags (see resilience.Config). No CLI, file, or environment-variable
// surface lives here; an external loader unmarshals this into YAML (or any
// other format) and hands the result to the components below.
package config

import (
	"fmt"
	"time"
)

// PoolConfig sizes and times the upstream media-server connection pool.
type PoolConfig struct {
	PoolSize             int           `yaml:"pool_size"`
	MaxPoolSize          int           `yaml:"max_pool_size"`
	HealthCheckInterval  time.Duration `yaml:"health_check_interval"`
	ConnectionTimeout    time.Duration `yaml:"connection_timeout"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
}

// RoomLimitsConfig bounds room, participant, and track concurrency.
type RoomLimitsConfig struct {
	MaxConcurrentRooms     int           `yaml:"max_concurrent_rooms"`
	MaxParticipantsPerRoom int           `yaml:"max_participants_per_room"`
	MaxAudioTracksPerRoom  int           `yaml:"max_audio_tracks_per_room"`
	MaxVideoTracksPerRoom  int           `yaml:"max_video_tracks_per_room"`
	EmptyRoomTimeout       time.Duration `yaml:"empty_room_timeout"`
	DepartureTimeout       time.Duration `yaml:"departure_timeout"`
}

// AudioConfig tunes the media leg's jitter buffer and bitrate adaptation.
type AudioConfig struct {
	TargetLatencyMs  int  `yaml:"target_latency_ms"`
	BufferSizeMs     int  `yaml:"buffer_size_ms"`
	JitterBufferMs   int  `yaml:"jitter_buffer_ms"`
	EchoCancellation bool `yaml:"echo_cancellation"`
	NoiseSuppression bool `yaml:"noise_suppression"`
	AutoGainControl  bool `yaml:"auto_gain_control"`
	AdaptiveBitrate  bool `yaml:"adaptive_bitrate"`
	MinBitrateKbps   int  `yaml:"min_bitrate_kbps"`
	MaxBitrateKbps   int  `yaml:"max_bitrate_kbps"`
}

// QualityThresholds buckets a [0,1] quality score into a human label.
// Thresholds are the minimum score for each bucket; Poor is implicit below
// Fair.
type QualityThresholds struct {
	Excellent float64 `yaml:"excellent"`
	Good      float64 `yaml:"good"`
	Fair      float64 `yaml:"fair"`
}

// Bucket returns the label for score under these thresholds.
func (t QualityThresholds) Bucket(score float64) string {
	switch {
	case score >= t.Excellent:
		return "excellent"
	case score >= t.Good:
		return "good"
	case score >= t.Fair:
		return "fair"
	default:
		return "poor"
	}
}

// QualityConfig governs the health observer's monitoring cadence and
// quality/latency classification.
type QualityConfig struct {
	MonitoringInterval time.Duration     `yaml:"monitoring_interval"`
	Thresholds         QualityThresholds `yaml:"quality_thresholds"`
	LatencyThresholdMs int               `yaml:"latency_threshold_ms"`
	MinSuccessRate     float64           `yaml:"min_success_rate"`
}

// RetryConfig parameterizes the resilient client wrapper's backoff.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	BaseDelay       time.Duration `yaml:"base_delay"`
	MaxDelay        time.Duration `yaml:"max_delay"`
	ExponentialBase float64       `yaml:"exponential_base"`
	Jitter          bool          `yaml:"jitter"`
}

// BreakerConfig parameterizes the resilient client wrapper's circuit
// breaker.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout"`
	SuccessThreshold int           `yaml:"success_threshold"`
}

// LLMConfig configures the dialogue manager's language-model facade.
type LLMConfig struct {
	Model                  string  `yaml:"model"`
	MaxContextTokens       int     `yaml:"max_context_tokens"`
	MaxResponseTokens      int     `yaml:"max_response_tokens"`
	Temperature            float32 `yaml:"temperature"`
	SummarizationThreshold int     `yaml:"summarization_threshold"`
	SystemPrompt           string  `yaml:"system_prompt"`
}

// STTConfig configures the speech-to-text facade.
type STTConfig struct {
	Model          string `yaml:"model"`
	Language       string `yaml:"language"`
	SampleRate     int    `yaml:"sample_rate"`
	Channels       int    `yaml:"channels"`
	Encoding       string `yaml:"encoding"`
	InterimResults bool   `yaml:"interim_results"`
	EndpointingMs  int    `yaml:"endpointing_ms"`
}

// TTSConfig configures the text-to-speech facade.
type TTSConfig struct {
	ModelID        string `yaml:"model_id"`
	DefaultVoiceID string `yaml:"default_voice_id"`
	Container      string `yaml:"container"`
	SampleRate     int    `yaml:"sample_rate"`
}

// OrchestratorConfig bounds the call orchestrator's own behavior.
type OrchestratorConfig struct {
	MaxConcurrentCalls int           `yaml:"max_concurrent_calls"`
	AudioBufferSize    int           `yaml:"audio_buffer_size"`
	ResponseTimeout    time.Duration `yaml:"response_timeout"`
}

// Config is the full typed configuration record for one orchestration core
// instance. It is never loaded from a file or environment by this module;
// an external loader is responsible for populating it (e.g. by unmarshaling
// YAML into it, since every field carries a yaml tag) and handing the
// result to Validate before use.
type Config struct {
	Pool         PoolConfig         `yaml:"pool"`
	RoomLimits   RoomLimitsConfig   `yaml:"room_limits"`
	Audio        AudioConfig        `yaml:"audio"`
	Quality      QualityConfig      `yaml:"quality"`
	Retry        RetryConfig        `yaml:"retry"`
	Breaker      BreakerConfig      `yaml:"breaker"`
	LLM          LLMConfig          `yaml:"llm"`
	STT          STTConfig          `yaml:"stt"`
	TTS          TTSConfig          `yaml:"tts"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
}

// Default returns the configuration defaults named across the option
// table, matching resilience.DefaultConfig and admission.DefaultAudioOptimization
// where the same values are named in both places.
func Default() Config {
	return Config{
		Pool: PoolConfig{
			PoolSize:             4,
			MaxPoolSize:          16,
			HealthCheckInterval:  30 * time.Second,
			ConnectionTimeout:    5 * time.Second,
			MaxReconnectAttempts: 5,
			ReconnectBaseDelay:   200 * time.Millisecond,
		},
		RoomLimits: RoomLimitsConfig{
			MaxConcurrentRooms:     1000,
			MaxParticipantsPerRoom: 2,
			MaxAudioTracksPerRoom:  2,
			MaxVideoTracksPerRoom:  0,
			EmptyRoomTimeout:       time.Hour,
			DepartureTimeout:       30 * time.Second,
		},
		Audio: AudioConfig{
			TargetLatencyMs:  150,
			BufferSizeMs:     20,
			JitterBufferMs:   40,
			EchoCancellation: true,
			NoiseSuppression: true,
			AutoGainControl:  true,
			AdaptiveBitrate:  true,
			MinBitrateKbps:   16,
			MaxBitrateKbps:   64,
		},
		Quality: QualityConfig{
			MonitoringInterval: 30 * time.Second,
			Thresholds:         QualityThresholds{Excellent: 0.9, Good: 0.75, Fair: 0.5},
			LatencyThresholdMs: 1000,
			MinSuccessRate:     0.5,
		},
		Retry: RetryConfig{
			MaxAttempts:     3,
			BaseDelay:       200 * time.Millisecond,
			MaxDelay:        5 * time.Second,
			ExponentialBase: 2.0,
			Jitter:          true,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			RecoveryTimeout:  30 * time.Second,
			SuccessThreshold: 2,
		},
		LLM: LLMConfig{
			MaxContextTokens:       8000,
			MaxResponseTokens:      500,
			Temperature:            0.7,
			SummarizationThreshold: 20,
			SystemPrompt:           "You are a helpful voice assistant.",
		},
		STT: STTConfig{
			Language:      "en",
			SampleRate:    16000,
			Channels:      1,
			Encoding:      "pcm",
			EndpointingMs: 300,
		},
		TTS: TTSConfig{
			Container:  "raw",
			SampleRate: 8000,
		},
		Orchestrator: OrchestratorConfig{
			MaxConcurrentCalls: 100,
			AudioBufferSize:    32 * 1024,
			ResponseTimeout:    10 * time.Second,
		},
	}
}

// Validate checks the record for internally inconsistent or out-of-range
// values. It never mutates Config; callers fix the field named in the
// error and revalidate.
func (c Config) Validate() error {
	if c.Pool.PoolSize <= 0 {
		return fmt.Errorf("config: pool.pool_size must be positive")
	}
	if c.Pool.MaxPoolSize > 0 && c.Pool.MaxPoolSize < c.Pool.PoolSize {
		return fmt.Errorf("config: pool.max_pool_size must be >= pool.pool_size")
	}
	if c.RoomLimits.MaxConcurrentRooms <= 0 {
		return fmt.Errorf("config: room_limits.max_concurrent_rooms must be positive")
	}
	if c.RoomLimits.MaxParticipantsPerRoom <= 0 {
		return fmt.Errorf("config: room_limits.max_participants_per_room must be positive")
	}
	if c.Audio.MinBitrateKbps > 0 && c.Audio.MaxBitrateKbps > 0 && c.Audio.MinBitrateKbps > c.Audio.MaxBitrateKbps {
		return fmt.Errorf("config: audio.min_bitrate_kbps must be <= audio.max_bitrate_kbps")
	}
	if c.Quality.MinSuccessRate < 0 || c.Quality.MinSuccessRate > 1 {
		return fmt.Errorf("config: quality.min_success_rate must be in [0,1]")
	}
	if err := c.Quality.Thresholds.validate(); err != nil {
		return err
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("config: retry.max_attempts must be positive")
	}
	if c.Retry.BaseDelay <= 0 {
		return fmt.Errorf("config: retry.base_delay must be positive")
	}
	if c.Retry.MaxDelay > 0 && c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("config: retry.max_delay must be >= retry.base_delay")
	}
	if c.Breaker.FailureThreshold <= 0 {
		return fmt.Errorf("config: breaker.failure_threshold must be positive")
	}
	if c.Breaker.SuccessThreshold <= 0 {
		return fmt.Errorf("config: breaker.success_threshold must be positive")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("config: llm.temperature must be in [0,2]")
	}
	if c.LLM.MaxContextTokens <= 0 {
		return fmt.Errorf("config: llm.max_context_tokens must be positive")
	}
	if c.STT.SampleRate <= 0 {
		return fmt.Errorf("config: stt.sample_rate must be positive")
	}
	if c.TTS.SampleRate <= 0 {
		return fmt.Errorf("config: tts.sample_rate must be positive")
	}
	if c.Orchestrator.MaxConcurrentCalls <= 0 {
		return fmt.Errorf("config: orchestrator.max_concurrent_calls must be positive")
	}
	if c.Orchestrator.AudioBufferSize <= 0 {
		return fmt.Errorf("config: orchestrator.audio_buffer_size must be positive")
	}
	return nil
}

func (t QualityThresholds) validate() error {
	if !(t.Excellent > t.Good && t.Good > t.Fair) {
		return fmt.Errorf("config: quality.quality_thresholds must satisfy excellent > good > fair")
	}
	if t.Fair < 0 || t.Excellent > 1 {
		return fmt.Errorf("config: quality.quality_thresholds must lie within [0,1]")
	}
	return nil
}
