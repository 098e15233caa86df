package config

import (
	"github.com/lattice-voice/callcore/admission"
	"github.com/lattice-voice/callcore/pool"
	"github.com/lattice-voice/callcore/resilience"
	"github.com/lattice-voice/callcore/stt"
	"github.com/lattice-voice/callcore/tts"
)

// AdmissionLimits projects RoomLimitsConfig into admission.Limits.
func (c Config) AdmissionLimits() admission.Limits {
	return admission.Limits{
		MaxConcurrentRooms:     c.RoomLimits.MaxConcurrentRooms,
		MaxParticipantsPerRoom: c.RoomLimits.MaxParticipantsPerRoom,
		MaxAudioTracksPerRoom:  c.RoomLimits.MaxAudioTracksPerRoom,
		MaxVideoTracksPerRoom:  c.RoomLimits.MaxVideoTracksPerRoom,
	}
}

// AudioOptimization projects AudioConfig into admission.AudioOptimization,
// the sub-object embedded in room metadata.
func (c Config) AudioOptimization() admission.AudioOptimization {
	return admission.AudioOptimization{
		TargetLatencyMs:      c.Audio.TargetLatencyMs,
		BufferSizeMs:         c.Audio.BufferSizeMs,
		JitterBufferMs:       c.Audio.JitterBufferMs,
		EchoCancellation:     c.Audio.EchoCancellation,
		NoiseSuppression:     c.Audio.NoiseSuppression,
		AutomaticGainControl: c.Audio.AutoGainControl,
		AdaptiveBitrate:      c.Audio.AdaptiveBitrate,
		MinBitrateKbps:       c.Audio.MinBitrateKbps,
		MaxBitrateKbps:       c.Audio.MaxBitrateKbps,
	}
}

// PoolConfig projects PoolConfig into pool.Config, for constructing a
// pool.Pool[T] of upstream media-server API clients.
func (c Config) PoolSettings() pool.Config {
	return pool.Config{
		InitialSize: c.Pool.PoolSize,
		MaxSize:     c.Pool.MaxPoolSize,
		AcquireWait: c.Pool.ConnectionTimeout,
	}
}

// ResilienceConfig projects RetryConfig and BreakerConfig into
// resilience.Config, for constructing a resilience.Client around any
// vendor-facing call.
func (c Config) ResilienceConfig() resilience.Config {
	return resilience.Config{
		MaxAttempts:      c.Retry.MaxAttempts,
		BaseDelay:        c.Retry.BaseDelay,
		MaxDelay:         c.Retry.MaxDelay,
		ExponentialBase:  c.Retry.ExponentialBase,
		Jitter:           c.Retry.Jitter,
		FailureThreshold: c.Breaker.FailureThreshold,
		RecoveryTimeout:  c.Breaker.RecoveryTimeout,
		SuccessThreshold: c.Breaker.SuccessThreshold,
		MinSuccessRate:   c.Quality.MinSuccessRate,
	}
}

// TranscriptionConfig projects STTConfig into stt.TranscriptionConfig.
func (c Config) TranscriptionConfig() stt.TranscriptionConfig {
	return stt.TranscriptionConfig{
		Format:     c.STT.Encoding,
		SampleRate: c.STT.SampleRate,
		Channels:   c.STT.Channels,
		BitDepth:   stt.DefaultBitDepth,
		Language:   c.STT.Language,
		Model:      c.STT.Model,
	}
}

// VoiceSpec projects TTSConfig into tts.VoiceSpec.
func (c Config) VoiceSpec() tts.VoiceSpec {
	return tts.VoiceSpec{ID: c.TTS.DefaultVoiceID}
}

// AudioFormat projects TTSConfig into tts.FormatSpec.
func (c Config) AudioFormat() tts.FormatSpec {
	return tts.FormatSpec{Container: c.TTS.Container, SampleRate: c.TTS.SampleRate}
}
