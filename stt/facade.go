package stt

import (
	"context"
	"time"

	"github.com/lattice-voice/callcore/resilience"
)

// InvalidAudioError is returned by pre-validation before any vendor call is
// attempted; it never counts against the resilience client's metrics.
type InvalidAudioError struct {
	Reason string
}

func (e *InvalidAudioError) Error() string {
	return "invalid audio: " + e.Reason
}

// WordTiming is one word's approximate position in the audio, when the
// vendor supplies it.
type WordTiming struct {
	Word  string
	Start time.Duration
	End   time.Duration
}

// BatchResult is the facade's vendor-neutral batch transcription outcome.
type BatchResult struct {
	Text         string
	Confidence   float64 // [0, 1]
	Language     string
	Duration     time.Duration
	Alternatives []string
	WordTimings  []WordTiming
}

// StreamResult is one incremental or final transcription event from a
// streaming session.
type StreamResult struct {
	Text       string
	Confidence float64
	IsFinal    bool
	Error      error
}

// maxBatchAudioBytes bounds a single TranscribeBatch payload.
const maxBatchAudioBytes = 25 * 1024 * 1024

// BatchVendor is implemented by vendors offering batch transcription. The
// existing Service interface (plain text, no confidence) is adapted onto
// this by wholeTextVendor.
type BatchVendor interface {
	Name() string
	TranscribeRich(ctx context.Context, audio []byte, config TranscriptionConfig) (BatchResult, error)
}

// wholeTextVendor adapts a plain Service (text-only) into a BatchVendor by
// reporting a fixed high confidence, since the underlying vendor does not
// surface one.
type wholeTextVendor struct {
	svc Service
}

func (w *wholeTextVendor) Name() string { return w.svc.Name() }

func (w *wholeTextVendor) TranscribeRich(ctx context.Context, audio []byte, config TranscriptionConfig) (BatchResult, error) {
	text, err := w.svc.Transcribe(ctx, audio, config)
	if err != nil {
		return BatchResult{}, err
	}
	return BatchResult{Text: text, Confidence: 1.0, Language: config.Language}, nil
}

// AdaptService wraps a plain Service as a BatchVendor for use with NewFacade.
func AdaptService(svc Service) BatchVendor {
	return &wholeTextVendor{svc: svc}
}

// StreamVendor is implemented by vendors offering streaming transcription.
type StreamVendor interface {
	Name() string
	OpenStream(ctx context.Context, connectionID string) (<-chan StreamResult, error)
}

// Facade is the narrow, vendor-agnostic STT contract the turn pipeline
// consumes. It composes a resilience.Client rather than implementing
// retry/breaker logic itself.
type Facade struct {
	vendor BatchVendor
	client *resilience.Client
	stream StreamVendor // optional; nil if the vendor has no streaming support
}

// NewFacade builds an STT facade around a batch vendor. streamVendor may be
// nil if the vendor only supports batch transcription.
func NewFacade(vendor BatchVendor, client *resilience.Client, streamVendor StreamVendor) *Facade {
	return &Facade{vendor: vendor, client: client, stream: streamVendor}
}

// TranscribeBatch validates audio, then transcribes it through the
// resilience-wrapped vendor call.
func (f *Facade) TranscribeBatch(ctx context.Context, audio []byte, config TranscriptionConfig) (BatchResult, error) {
	if len(audio) == 0 {
		return BatchResult{}, &InvalidAudioError{Reason: "empty audio buffer"}
	}
	if len(audio) > maxBatchAudioBytes {
		return BatchResult{}, &InvalidAudioError{Reason: "audio exceeds per-buffer cap"}
	}

	return resilience.Execute(ctx, f.client, "", func(ctx context.Context) (BatchResult, error) {
		return f.vendor.TranscribeRich(ctx, audio, config)
	})
}

// TranscribeStream opens a reconnecting streaming transcription session.
// Returns an error if the facade's vendor has no streaming support.
func (f *Facade) TranscribeStream(ctx context.Context, connectionID string) (<-chan StreamResult, error) {
	if f.stream == nil {
		return nil, &InvalidAudioError{Reason: "vendor does not support streaming transcription"}
	}
	return f.stream.OpenStream(ctx, connectionID)
}

// ErrUnhealthy is returned by HealthCheck when the facade's resilience
// client currently reports the vendor as unhealthy.
var ErrUnhealthy = &InvalidAudioError{Reason: "vendor circuit breaker unhealthy"}

// HealthCheck reports whether the underlying resilience client currently
// considers the vendor healthy.
func (f *Facade) HealthCheck(ctx context.Context) error {
	if !f.client.Healthy() {
		return ErrUnhealthy
	}
	return nil
}
