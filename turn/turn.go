// Package turn implements the per-call audio turn pipeline: a small ordered
// stage chain (STT -> Dialogue -> TTS) grounded on the teacher's
// pipeline.Pipeline middleware/semaphore skeleton, generalized from "LLM
// tool middleware" to the listen-process-speak cycle. A single call never
// experiences overlapped turns; concurrency across calls is bounded by a
// process-wide semaphore.
package turn

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/lattice-voice/callcore/dialogue"
	"github.com/lattice-voice/callcore/events"
	"github.com/lattice-voice/callcore/fsm"
	"github.com/lattice-voice/callcore/logger"
	"github.com/lattice-voice/callcore/stt"
	"github.com/lattice-voice/callcore/tts"
)

// ErrEmptyBuffer is returned (not raised to the caller of Run; recorded as a
// no-op) when the audio buffer is empty.
var ErrEmptyBuffer = errors.New("turn: audio buffer is empty")

// ErrBufferTooLarge is returned when the buffer exceeds the per-buffer cap.
var ErrBufferTooLarge = errors.New("turn: audio buffer exceeds per-call cap")

// maxBufferBytes bounds a single turn's input audio.
const maxBufferBytes = 10 * 1024 * 1024

// lowConfidenceThreshold is the STT confidence floor below which a turn is
// abandoned back to Listening.
const lowConfidenceThreshold = 0.4

// MediaSink receives synthesized audio destined for the call's media leg.
type MediaSink interface {
	SendAudio(ctx context.Context, callID string, audio []byte) error
}

// Metrics accumulates per-call turn counters, mirroring CallMetrics'
// turn-facing fields.
type Metrics struct {
	mu              sync.Mutex
	SuccessfulTurns int
	FailedTurns     int
	BytesReceived   int64
	BytesSent       int64
	LastActivity    time.Time
}

func (m *Metrics) recordSuccess(sent int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SuccessfulTurns++
	m.BytesSent += int64(sent)
	m.LastActivity = time.Now()
}

func (m *Metrics) recordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailedTurns++
	m.LastActivity = time.Now()
}

func (m *Metrics) recordReceived(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BytesReceived += int64(n)
}

// Snapshot is a point-in-time copy of Metrics.
type Snapshot struct {
	SuccessfulTurns int
	FailedTurns     int
	BytesReceived   int64
	BytesSent       int64
	LastActivity    time.Time
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		SuccessfulTurns: m.SuccessfulTurns,
		FailedTurns:     m.FailedTurns,
		BytesReceived:   m.BytesReceived,
		BytesSent:       m.BytesSent,
		LastActivity:    m.LastActivity,
	}
}

// Pipeline drives one call's turn processing: STT -> Dialogue -> TTS. One
// Pipeline per call; a per-call mutex guarantees turns never overlap for a
// single call. callSem bounds concurrency across all calls sharing a
// process.
type Pipeline struct {
	callID   string
	fsm      *fsm.FSM
	stt      *stt.Facade
	dialogue *dialogue.Manager
	tts      *tts.Facade
	sink     MediaSink
	metrics  *Metrics
	callSem  *semaphore.Weighted
	bus      *events.EventBus

	mu sync.Mutex
}

// New constructs a turn pipeline for one call. callSem, when non-nil, is a
// process-wide semaphore shared across every call's Pipeline, bounding how
// many turns may run their external-service stages concurrently regardless
// of how many calls are active. Pass nil to run unbounded (e.g. in tests).
// bus, when non-nil, receives a turn.started event and a matching
// turn.completed or turn.failed event for every Run call.
func New(callID string, f *fsm.FSM, sttFacade *stt.Facade, dm *dialogue.Manager, ttsFacade *tts.Facade, sink MediaSink, callSem *semaphore.Weighted, bus *events.EventBus) *Pipeline {
	return &Pipeline{
		callID:   callID,
		fsm:      f,
		stt:      sttFacade,
		dialogue: dm,
		tts:      ttsFacade,
		sink:     sink,
		metrics:  &Metrics{},
		callSem:  callSem,
		bus:      bus,
	}
}

func (p *Pipeline) publish(typ events.EventType, data events.EventData) {
	if p.bus == nil {
		return
	}
	p.bus.Publish(&events.Event{
		Type:      typ,
		Timestamp: time.Now(),
		CallID:    p.callID,
		Data:      data,
	})
}

// NewSemaphore constructs the process-wide semaphore to share across every
// call's Pipeline, sized to the maximum number of turns allowed to run
// concurrently across the whole process.
func NewSemaphore(maxConcurrentTurns int64) *semaphore.Weighted {
	return semaphore.NewWeighted(maxConcurrentTurns)
}

// Metrics exposes the pipeline's counters.
func (p *Pipeline) Metrics() *Metrics { return p.metrics }

// Run drives one full turn over the given audio buffer, per the documented
// eight-step flow. It never returns an error that should terminate the
// call: validation failures and mid-pipeline errors are routed to the
// local error-handling policy, the FSM is reset, and failure counters
// update, but the call remains open.
func (p *Pipeline) Run(ctx context.Context, audio []byte, sttConfig stt.TranscriptionConfig, voice tts.VoiceSpec, format tts.FormatSpec) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metrics.recordReceived(len(audio))

	if len(audio) == 0 {
		return
	}
	if len(audio) > maxBufferBytes {
		logger.Warn("turn: buffer exceeds cap, dropping", "call_id", p.callID, "bytes", len(audio))
		p.metrics.recordFailure()
		return
	}

	if p.callSem != nil {
		if err := p.callSem.Acquire(ctx, 1); err != nil {
			logger.Warn("turn: semaphore acquire canceled", "call_id", p.callID, "error", err)
			p.metrics.recordFailure()
			return
		}
		defer p.callSem.Release(1)
	}

	turnID := uuid.NewString()
	turnStart := time.Now()
	p.publish(events.EventTurnStarted, events.TurnStartedData{TurnID: turnID})

	p.fsm.TransitionTo(fsm.Processing, fsm.TriggerUserSpeechDetected, nil)

	sttStart := time.Now()
	sttResult, err := p.stt.TranscribeBatch(ctx, audio, sttConfig)
	p.dialogue.RecordSTTLatency(time.Since(sttStart))
	if err != nil {
		p.abandonTurn(ctx, turnID, "stt failure", err)
		return
	}
	if sttResult.Confidence < lowConfidenceThreshold || sttResult.Text == "" {
		p.fsm.ForceTransition(fsm.Listening, fsm.TriggerLowConfidence, map[string]interface{}{"confidence": sttResult.Confidence})
		p.metrics.recordFailure()
		p.publish(events.EventTurnFailed, events.TurnFailedData{TurnID: turnID, Reason: "low confidence transcription"})
		return
	}

	llmStart := time.Now()
	assistantText, _, err := p.dialogue.ProcessUserInput(ctx, sttResult.Text, map[string]interface{}{"call_id": p.callID})
	p.dialogue.RecordLLMLatency(time.Since(llmStart))
	if err != nil {
		p.abandonTurn(ctx, turnID, "dialogue failure", err)
		return
	}

	p.fsm.TransitionTo(fsm.Speaking, fsm.TriggerResponseReady, nil)

	ttsStart := time.Now()
	ttsResult, err := p.tts.SynthesizeBatch(ctx, assistantText, voice, format)
	p.dialogue.RecordTTSLatency(time.Since(ttsStart))
	if err != nil {
		p.abandonTurn(ctx, turnID, "tts failure", err)
		return
	}

	if err := p.sink.SendAudio(ctx, p.callID, ttsResult.Audio); err != nil {
		p.abandonTurn(ctx, turnID, "media send failure", err)
		return
	}

	p.fsm.TransitionTo(fsm.Listening, fsm.TriggerUtteranceComplete, nil)
	p.metrics.recordSuccess(len(ttsResult.Audio))

	status := p.dialogue.Status()
	p.publish(events.EventTurnCompleted, events.TurnCompletedData{
		TurnID:         turnID,
		ProcessingTime: time.Since(turnStart),
		STTLatency:     status.Metrics.LastSTTLatency,
		LLMLatency:     status.Metrics.LastLLMLatency,
		TTSLatency:     status.Metrics.LastTTSLatency,
		Fallback:       false,
	})
}

// abandonTurn forces the FSM back to Listening, updates failure metrics, and
// publishes a turn-failed event. The call is never terminated by a turn
// failure.
func (p *Pipeline) abandonTurn(ctx context.Context, turnID, stage string, cause error) {
	logger.ErrorContext(ctx, "turn: stage failed, resetting to listening", "call_id", p.callID, "stage", stage, "error", cause)
	p.fsm.ForceTransition(fsm.Listening, fsm.TriggerProcessingError, map[string]interface{}{"stage": stage, "error": cause.Error()})
	p.metrics.recordFailure()
	p.publish(events.EventTurnFailed, events.TurnFailedData{TurnID: turnID, Reason: stage, Err: cause})
}
