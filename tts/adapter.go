package tts

import (
	"context"
	"io"
	"time"
)

// serviceAdapter adapts the teacher's Service/StreamingService interfaces
// onto the facade's BatchVendor/StreamVendor contracts, translating the
// facade's vendor-neutral VoiceSpec/FormatSpec value objects into a
// SynthesisConfig.
type serviceAdapter struct {
	svc Service
}

// AdaptBatchVendor wraps a Service as a facade BatchVendor.
func AdaptBatchVendor(svc Service) BatchVendor {
	return &serviceAdapter{svc: svc}
}

func (a *serviceAdapter) Name() string { return a.svc.Name() }

func toAudioFormat(format FormatSpec) AudioFormat {
	switch {
	case format.SampleRate == 8000:
		if format.Container == "wav" {
			return FormatTelephonyWAV
		}
		return FormatTelephonyPCM
	case format.Container == "wav":
		return FormatWAV
	case format.Container == "raw":
		return FormatPCM16
	default:
		return FormatMP3
	}
}

func toSynthesisConfig(voice VoiceSpec, format FormatSpec) SynthesisConfig {
	return SynthesisConfig{
		Voice:    voice.ID,
		Format:   toAudioFormat(format),
		Speed:    voice.Speed,
		Language: voice.Language,
	}
}

func (a *serviceAdapter) SynthesizeBatch(ctx context.Context, text string, voice VoiceSpec, format FormatSpec) (BatchResult, error) {
	start := time.Now()
	reader, err := a.svc.Synthesize(ctx, text, toSynthesisConfig(voice, format))
	if err != nil {
		return BatchResult{}, err
	}
	defer reader.Close()

	audio, err := io.ReadAll(reader)
	if err != nil {
		return BatchResult{}, err
	}

	return BatchResult{
		Audio:               audio,
		Format:              format,
		SampleRate:          format.SampleRate,
		CharactersProcessed: len(text),
		SynthesisTime:       time.Since(start),
	}, nil
}

// AdaptStreamVendor wraps a StreamingService as a facade StreamVendor.
func AdaptStreamVendor(svc StreamingService) StreamVendor {
	return &streamingAdapter{svc: svc}
}

type streamingAdapter struct {
	svc StreamingService
}

func (a *streamingAdapter) Name() string { return a.svc.Name() }

func (a *streamingAdapter) SynthesizeStream(ctx context.Context, text string, voice VoiceSpec, format FormatSpec) (<-chan AudioChunk, error) {
	return a.svc.SynthesizeStream(ctx, text, toSynthesisConfig(voice, format))
}
