package tts

import (
	"context"
	"time"

	"github.com/lattice-voice/callcore/resilience"
)

// VoiceSpec is a value object describing the voice to synthesize with.
// Speed is clamped to [0.5, 2.0].
type VoiceSpec struct {
	ID       string
	Speed    float64
	Language string
	Emotion  string // optional
}

// clampSpeed enforces the [0.5, 2.0] synthesis speed range.
func clampSpeed(speed float64) float64 {
	if speed == 0 {
		return 1.0
	}
	if speed < 0.5 {
		return 0.5
	}
	if speed > 2.0 {
		return 2.0
	}
	return speed
}

// NewVoiceSpec builds a VoiceSpec with speed clamped to the valid range.
func NewVoiceSpec(id string, speed float64, language, emotion string) VoiceSpec {
	return VoiceSpec{ID: id, Speed: clampSpeed(speed), Language: language, Emotion: emotion}
}

// FormatSpec is a value object describing the desired output audio shape.
type FormatSpec struct {
	Container   string // "wav", "mp3", "raw"
	SampleRate  int
	Encoding    string // optional
	BitRateKbps int    // optional
}

// Telephony formats: 8 kHz mono 16-bit PCM, per the media gateway leg.
func TelephonyFormat() FormatSpec {
	return FormatSpec{Container: "raw", SampleRate: 8000, Encoding: "pcm_s16le"}
}

// Preset22kFormat mirrors the teacher's default streaming preset.
func Preset22kFormat() FormatSpec {
	return FormatSpec{Container: "raw", SampleRate: sampleRateDefault, Encoding: "pcm_s16le"}
}

// Preset44kFormat is a high-quality batch preset.
func Preset44kFormat() FormatSpec {
	return FormatSpec{Container: "wav", SampleRate: 44100, Encoding: "pcm_s16le"}
}

// BatchResult is the facade's vendor-neutral batch synthesis outcome.
type BatchResult struct {
	Audio               []byte
	Duration            time.Duration
	Format              FormatSpec
	SampleRate          int
	CharactersProcessed int
	SynthesisTime       time.Duration
}

// silenceDuration is the fixed length of the fallback silence chunk emitted
// on a mid-stream synthesis failure.
const silenceDuration = 500 * time.Millisecond

// BatchVendor is implemented by vendors offering batch synthesis.
type BatchVendor interface {
	Name() string
	SynthesizeBatch(ctx context.Context, text string, voice VoiceSpec, format FormatSpec) (BatchResult, error)
}

// StreamVendor is implemented by vendors offering streaming synthesis.
type StreamVendor interface {
	Name() string
	SynthesizeStream(ctx context.Context, text string, voice VoiceSpec, format FormatSpec) (<-chan AudioChunk, error)
}

// Facade is the narrow, vendor-agnostic TTS contract the turn pipeline
// consumes. It composes a resilience.Client rather than implementing
// retry/breaker logic itself.
type Facade struct {
	batch  BatchVendor
	stream StreamVendor // optional; nil falls back to chunking SynthesizeBatch's output
	client *resilience.Client
}

// NewFacade builds a TTS facade around a batch vendor, and optionally a
// streaming vendor.
func NewFacade(batch BatchVendor, stream StreamVendor, client *resilience.Client) *Facade {
	return &Facade{batch: batch, stream: stream, client: client}
}

// SynthesizeBatch preprocesses and validates text, then synthesizes it
// through the resilience-wrapped vendor call.
func (f *Facade) SynthesizeBatch(ctx context.Context, text string, voice VoiceSpec, format FormatSpec) (BatchResult, error) {
	if err := ValidateText(text); err != nil {
		return BatchResult{}, err
	}
	processed := PreprocessText(text)

	return resilience.Execute(ctx, f.client, "", func(ctx context.Context) (BatchResult, error) {
		return f.batch.SynthesizeBatch(ctx, processed, voice, format)
	})
}

// SynthesizeStream preprocesses and validates text, then streams synthesis.
// On any mid-stream vendor failure, it emits one chunk of synthesized
// silence in the requested format rather than raising.
func (f *Facade) SynthesizeStream(ctx context.Context, text string, voice VoiceSpec, format FormatSpec) (<-chan AudioChunk, error) {
	if err := ValidateText(text); err != nil {
		return nil, err
	}
	processed := PreprocessText(text)

	if f.stream == nil {
		return f.fallbackToBatchStream(ctx, processed, voice, format), nil
	}

	vendorChan, err := f.stream.SynthesizeStream(ctx, processed, voice, format)
	if err != nil {
		return f.silenceChannel(format), nil
	}

	out := make(chan AudioChunk, 8)
	go func() {
		defer close(out)
		for chunk := range vendorChan {
			if chunk.Error != nil {
				out <- silenceChunk(format, 0)
				return
			}
			out <- chunk
		}
	}()
	return out, nil
}

func (f *Facade) fallbackToBatchStream(ctx context.Context, text string, voice VoiceSpec, format FormatSpec) <-chan AudioChunk {
	out := make(chan AudioChunk, 1)
	go func() {
		defer close(out)
		result, err := f.SynthesizeBatch(ctx, text, voice, format)
		if err != nil {
			out <- silenceChunk(format, 0)
			return
		}
		out <- AudioChunk{Data: result.Audio, Index: 0, Final: true}
	}()
	return out
}

func (f *Facade) silenceChannel(format FormatSpec) <-chan AudioChunk {
	out := make(chan AudioChunk, 1)
	out <- silenceChunk(format, 0)
	close(out)
	return out
}

// silenceChunk synthesizes a fixed-duration block of digital silence in the
// requested format, grounded on
// original_source/src/clients/cartesia_tts.py::_generate_silence.
func silenceChunk(format FormatSpec, index int) AudioChunk {
	sampleRate := format.SampleRate
	if sampleRate == 0 {
		sampleRate = sampleRateDefault
	}
	numSamples := int(silenceDuration.Seconds() * float64(sampleRate))
	data := make([]byte, numSamples*2) // 16-bit samples
	return AudioChunk{Data: data, Index: index, Final: true}
}
