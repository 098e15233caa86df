package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-voice/callcore/dialogue"
	"github.com/lattice-voice/callcore/events"
	"github.com/lattice-voice/callcore/providers"
	"github.com/lattice-voice/callcore/resilience"
	"github.com/lattice-voice/callcore/stt"
	"github.com/lattice-voice/callcore/tts"
	"github.com/lattice-voice/callcore/turn"
)

type recordingSink struct {
	mu  sync.Mutex
	got [][]byte
}

func (r *recordingSink) SendAudio(_ context.Context, _ string, audio []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, audio)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

type fixedSTTVendor struct {
	result stt.BatchResult
	err    error
}

func (f *fixedSTTVendor) Name() string { return "fixed" }
func (f *fixedSTTVendor) TranscribeRich(_ context.Context, _ []byte, _ stt.TranscriptionConfig) (stt.BatchResult, error) {
	return f.result, f.err
}

type fixedTTSVendor struct {
	audio []byte
	err   error
}

func (f *fixedTTSVendor) Name() string { return "fixed" }
func (f *fixedTTSVendor) SynthesizeBatch(_ context.Context, _ string, _ tts.VoiceSpec, _ tts.FormatSpec) (tts.BatchResult, error) {
	if f.err != nil {
		return tts.BatchResult{}, f.err
	}
	return tts.BatchResult{Audio: f.audio}, nil
}

func fastResilienceConfig() resilience.Config {
	cfg := resilience.DefaultConfig()
	cfg.MaxAttempts = 1
	cfg.BaseDelay = time.Millisecond
	cfg.MaxDelay = time.Millisecond
	return cfg
}

func newTestOrchestrator(t *testing.T, maxConcurrentCalls int) (*Orchestrator, *recordingSink, *events.EventBus) {
	t.Helper()

	sink := &recordingSink{}
	o, bus := newTestOrchestratorWithSink(t, maxConcurrentCalls, sink)
	return o, sink, bus
}

func newTestOrchestratorWithSink(t *testing.T, maxConcurrentCalls int, sink turn.MediaSink) (*Orchestrator, *events.EventBus) {
	t.Helper()

	sttFacade := stt.NewFacade(
		&fixedSTTVendor{result: stt.BatchResult{Text: "hello", Confidence: 0.9}},
		resilience.NewClient("stt-test", fastResilienceConfig()),
		nil,
	)
	ttsFacade := tts.NewFacade(
		&fixedTTSVendor{audio: []byte("synthesized-audio")},
		nil,
		resilience.NewClient("tts-test", fastResilienceConfig()),
	)
	bus := events.NewEventBus()

	deps := Dependencies{
		STT:                    sttFacade,
		TTS:                    ttsFacade,
		Sink:                   sink,
		SummarizationThreshold: 20,
		SystemPrompt:           "You are a helpful assistant.",
		ContextMaxTokens:       1000,
		NewLLMFacade: func() *dialogue.Facade {
			provider := providers.NewMockProvider("mock", "mock-model", "assistant reply", false)
			client := resilience.NewClient("llm-test", fastResilienceConfig())
			return dialogue.NewFacade(provider, client, nil)
		},
		STTConfig:   stt.DefaultTranscriptionConfig(),
		Voice:       tts.NewVoiceSpec("voice-1", 1.0, "en", ""),
		AudioFormat: tts.TelephonyFormat(),
	}

	return New(bus, deps, maxConcurrentCalls), bus
}

// panickingSink simulates an unrecoverable invariant violation in the
// media-send stage, exercising the fatal-error recovery path.
type panickingSink struct{}

func (panickingSink) SendAudio(context.Context, string, []byte) error {
	panic("media sink invariant violated")
}

func TestOnCallStart_AdmitsUnderCeiling(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, 2)

	accepted, reason := o.OnCallStart(CallContext{CallID: "call-1"})

	assert.True(t, accepted)
	assert.Empty(t, reason)
	assert.Equal(t, 1, o.Metrics().ActiveCalls)
}

func TestOnCallStart_RejectsAtCeiling(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, 1)

	accepted, _ := o.OnCallStart(CallContext{CallID: "call-1"})
	require.True(t, accepted)

	accepted, reason := o.OnCallStart(CallContext{CallID: "call-2"})
	assert.False(t, accepted)
	assert.Equal(t, ReasonMaxConcurrentCalls, reason)
}

func TestOnCallStart_PublishesStartedEvent(t *testing.T) {
	o, _, bus := newTestOrchestrator(t, 2)

	received := make(chan *events.Event, 1)
	bus.Subscribe(events.EventCallStarted, func(e *events.Event) {
		received <- e
	})

	o.OnCallStart(CallContext{CallID: "call-1", CallerIdentifier: "caller-a"})

	select {
	case e := <-received:
		assert.Equal(t, "call-1", e.CallID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for call-started event")
	}
}

func TestOnCallStart_RejectsAfterClose(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, 2)
	o.Close()

	accepted, reason := o.OnCallStart(CallContext{CallID: "call-1"})
	assert.False(t, accepted)
	assert.Equal(t, ReasonUpstreamUnavailable, reason)
}

func TestOnAudioReceived_DropsUnknownCall(t *testing.T) {
	o, sink, _ := newTestOrchestrator(t, 2)

	o.OnAudioReceived(context.Background(), "ghost-call", make([]byte, audioTriggerBytes))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, sink.count())
}

func TestOnAudioReceived_TriggersTurnAtThreshold(t *testing.T) {
	o, sink, _ := newTestOrchestrator(t, 2)
	accepted, _ := o.OnCallStart(CallContext{CallID: "call-1"})
	require.True(t, accepted)

	o.OnAudioReceived(context.Background(), "call-1", make([]byte, audioTriggerBytes))

	require.Eventually(t, func() bool {
		return sink.count() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestOnAudioReceived_BelowThresholdDoesNotTrigger(t *testing.T) {
	o, sink, _ := newTestOrchestrator(t, 2)
	accepted, _ := o.OnCallStart(CallContext{CallID: "call-1"})
	require.True(t, accepted)

	o.OnAudioReceived(context.Background(), "call-1", make([]byte, audioTriggerBytes/4))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, sink.count())
}

func TestOnCallEnd_FoldsMetricsAndRemovesCall(t *testing.T) {
	o, sink, _ := newTestOrchestrator(t, 2)
	accepted, _ := o.OnCallStart(CallContext{CallID: "call-1"})
	require.True(t, accepted)

	o.OnAudioReceived(context.Background(), "call-1", make([]byte, audioTriggerBytes))
	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)

	o.OnCallEnd(CallContext{CallID: "call-1"})

	m := o.Metrics()
	assert.Equal(t, 0, m.ActiveCalls)
	assert.Equal(t, 1, m.Successes)
	assert.Equal(t, 1.0, m.SuccessRate)
}

func TestOnCallEnd_UnknownCallIsNoOp(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, 2)
	o.OnCallEnd(CallContext{CallID: "ghost-call"})
	assert.Equal(t, 0, o.Metrics().TotalCalls)
}

func TestActiveCalls_ReturnsSnapshotPerCall(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, 2)
	o.OnCallStart(CallContext{CallID: "call-1"})
	o.OnCallStart(CallContext{CallID: "call-2"})

	snaps := o.ActiveCalls()
	assert.Len(t, snaps, 2)
}

func TestClose_IsIdempotentAndEndsActiveCalls(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, 2)
	o.OnCallStart(CallContext{CallID: "call-1"})
	o.OnCallStart(CallContext{CallID: "call-2"})

	o.Close()
	assert.Equal(t, 0, o.Metrics().ActiveCalls)

	assert.NotPanics(t, func() { o.Close() })
}

func TestOnAudioReceived_PanicEndsOnlyTheOffendingCall(t *testing.T) {
	o, bus := newTestOrchestratorWithSink(t, 2, panickingSink{})
	accepted, _ := o.OnCallStart(CallContext{CallID: "call-1"})
	require.True(t, accepted)
	accepted, _ = o.OnCallStart(CallContext{CallID: "call-2"})
	require.True(t, accepted)

	failed := make(chan *events.Event, 1)
	bus.Subscribe(events.EventCallFailed, func(e *events.Event) { failed <- e })

	o.OnAudioReceived(context.Background(), "call-1", make([]byte, audioTriggerBytes))

	select {
	case e := <-failed:
		assert.Equal(t, "call-1", e.CallID)
		data, ok := e.Data.(events.CallFailedData)
		require.True(t, ok)
		assert.Contains(t, data.Reason, "runTurn")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for call-failed event")
	}

	require.Eventually(t, func() bool {
		return o.Metrics().ActiveCalls == 1
	}, time.Second, 5*time.Millisecond, "the panicking call should be torn down while the other stays active")
}

func TestOnCallStart_RejectsPublishesRejectedEvent(t *testing.T) {
	o, _, bus := newTestOrchestrator(t, 1)
	o.OnCallStart(CallContext{CallID: "call-1"})

	received := make(chan *events.Event, 1)
	bus.Subscribe(events.EventCallRejected, func(e *events.Event) {
		received <- e
	})

	o.OnCallStart(CallContext{CallID: "call-2"})

	select {
	case e := <-received:
		data, ok := e.Data.(events.CallRejectedData)
		require.True(t, ok)
		assert.Equal(t, string(ReasonMaxConcurrentCalls), data.Reason)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for call-rejected event")
	}
}
