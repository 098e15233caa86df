// Package orchestrator is the call-lifecycle entry point: it admits calls,
// feeds them audio, and tears them down, wiring together the FSM, dialogue
// manager, and turn pipeline for each active call and publishing every
// lifecycle transition on a shared events.EventBus.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/lattice-voice/callcore/dialogue"
	"github.com/lattice-voice/callcore/events"
	"github.com/lattice-voice/callcore/fsm"
	"github.com/lattice-voice/callcore/logger"
	pkgerrors "github.com/lattice-voice/callcore/pkg/errors"
	"github.com/lattice-voice/callcore/stt"
	"github.com/lattice-voice/callcore/tts"
	"github.com/lattice-voice/callcore/turn"
)

// RejectionReason enumerates why OnCallStart refused a call.
type RejectionReason string

const (
	ReasonMaxConcurrentCalls  RejectionReason = "max_concurrent_calls_reached"
	ReasonResourceExhausted   RejectionReason = "resource_exhausted"
	ReasonUpstreamUnavailable RejectionReason = "upstream_unavailable"
)

// CallContext describes one call's identifying and session information.
type CallContext struct {
	CallID           string
	CallerIdentifier string
	MediaRoomID      string
}

// audioTriggerBytes is the buffer fill level that schedules a turn-pipeline
// run.
const audioTriggerBytes = 32 * 1024

// callState is the orchestrator's per-call working set.
type callState struct {
	mu        sync.Mutex
	ctx       CallContext
	fsm       *fsm.FSM
	dialogue  *dialogue.Manager
	pipeline  *turn.Pipeline
	startedAt time.Time

	buffer      []byte
	turnPending bool
}

// Dependencies bundles the facades and sink an orchestrator wires each new
// call's turn pipeline to.
type Dependencies struct {
	STT  *stt.Facade
	TTS  *tts.Facade
	Sink turn.MediaSink

	SummarizationThreshold int
	SystemPrompt           string
	ContextMaxTokens       int
	NewLLMFacade           func() *dialogue.Facade

	STTConfig   stt.TranscriptionConfig
	Voice       tts.VoiceSpec
	AudioFormat tts.FormatSpec
}

// Orchestrator owns every active call and the aggregate metrics across them.
type Orchestrator struct {
	mu    sync.Mutex
	calls map[string]*callState
	bus   *events.EventBus
	deps  Dependencies

	maxConcurrentCalls int
	turnSem            *semaphore.Weighted

	totalCalls   int
	totalSuccess int
	totalFailure int

	closed bool
}

// New constructs an orchestrator bounded to maxConcurrentCalls active calls.
// Every call's turn.Pipeline shares one process-wide semaphore sized to
// maxConcurrentCalls, so a burst of audio arrivals cannot run more
// concurrent turns than the call ceiling allows.
func New(bus *events.EventBus, deps Dependencies, maxConcurrentCalls int) *Orchestrator {
	return &Orchestrator{
		calls:              make(map[string]*callState),
		bus:                bus,
		deps:               deps,
		maxConcurrentCalls: maxConcurrentCalls,
		turnSem:            turn.NewSemaphore(int64(maxConcurrentCalls)),
	}
}

// OnCallStart admits a call if under the concurrency ceiling, otherwise
// publishes a rejection event and returns the reason. Rejection is
// observable, not an error.
func (o *Orchestrator) OnCallStart(ctx CallContext) (accepted bool, reason RejectionReason) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		o.publishRejection(ctx, ReasonUpstreamUnavailable)
		return false, ReasonUpstreamUnavailable
	}
	if len(o.calls) >= o.maxConcurrentCalls {
		o.mu.Unlock()
		o.publishRejection(ctx, ReasonMaxConcurrentCalls)
		return false, ReasonMaxConcurrentCalls
	}

	f := fsm.New()
	llmFacade := o.deps.NewLLMFacade()
	dmCtx := dialogue.NewContext(o.deps.SystemPrompt, o.deps.ContextMaxTokens, 0.7)
	dm := dialogue.NewManager(llmFacade, dmCtx, o.deps.SummarizationThreshold)
	pipeline := turn.New(ctx.CallID, f, o.deps.STT, dm, o.deps.TTS, o.deps.Sink, o.turnSem, o.bus)

	cs := &callState{ctx: ctx, fsm: f, dialogue: dm, pipeline: pipeline, startedAt: time.Now()}
	o.calls[ctx.CallID] = cs
	o.totalCalls++
	o.mu.Unlock()

	o.bus.Publish(&events.Event{
		Type:      events.EventCallStarted,
		Timestamp: time.Now(),
		CallID:    ctx.CallID,
		Data:      events.CallStartedData{CallerIdentifier: ctx.CallerIdentifier, MediaRoomID: ctx.MediaRoomID},
	})

	return true, ""
}

func (o *Orchestrator) publishRejection(ctx CallContext, reason RejectionReason) {
	o.bus.Publish(&events.Event{
		Type:      events.EventCallRejected,
		Timestamp: time.Now(),
		CallID:    ctx.CallID,
		Data:      events.CallRejectedData{Reason: string(reason)},
	})
}

// OnAudioReceived appends audio to the call's buffer. Unknown calls are
// dropped silently. When the buffer crosses the trigger threshold, a
// turn-pipeline run is scheduled; concurrent arrivals while a turn is
// in-flight for the same call coalesce into a single pending run.
func (o *Orchestrator) OnAudioReceived(ctx context.Context, callID string, audio []byte) {
	o.mu.Lock()
	cs, ok := o.calls[callID]
	o.mu.Unlock()
	if !ok {
		return
	}

	cs.mu.Lock()
	cs.buffer = append(cs.buffer, audio...)

	o.bus.Publish(&events.Event{
		Type:      events.EventAudioReceived,
		Timestamp: time.Now(),
		CallID:    callID,
		Data:      events.AudioReceivedData{Bytes: len(audio)},
	})

	shouldRun := len(cs.buffer) >= audioTriggerBytes && !cs.turnPending
	var pending []byte
	if shouldRun {
		cs.turnPending = true
		pending = cs.buffer
		cs.buffer = nil
	}
	cs.mu.Unlock()

	if shouldRun {
		go o.runTurn(ctx, cs, pending)
	}
}

func (o *Orchestrator) runTurn(ctx context.Context, cs *callState, audio []byte) {
	defer func() {
		cs.mu.Lock()
		cs.turnPending = false
		cs.mu.Unlock()
	}()

	if !o.runPipelineSafely(ctx, cs, audio) {
		return
	}

	snap := cs.pipeline.Metrics().Snapshot()
	o.bus.Publish(&events.Event{
		Type:      events.EventAudioEmitted,
		Timestamp: time.Now(),
		CallID:    cs.ctx.CallID,
		Data:      events.AudioEmittedData{Bytes: int(snap.BytesSent)},
	})
}

// runPipelineSafely runs the call's turn pipeline, converting a panic into
// a Fatal error per the documented error-handling policy: the panic is
// logged with full context, a call-failed event is published, and the
// offending call is torn down while the orchestrator keeps serving every
// other call. Returns false when a panic was recovered.
func (o *Orchestrator) runPipelineSafely(ctx context.Context, cs *callState, audio []byte) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			var cause error
			if err, isErr := r.(error); isErr {
				cause = err
			} else {
				cause = fmt.Errorf("%v", r)
			}
			fatal := pkgerrors.New("orchestrator", "runTurn", cause).
				WithDetails(map[string]any{"call_id": cs.ctx.CallID})
			logger.ErrorContext(ctx, "orchestrator: fatal invariant violation, ending call", "call_id", cs.ctx.CallID, "error", fatal)

			o.bus.Publish(&events.Event{
				Type:      events.EventCallFailed,
				Timestamp: time.Now(),
				CallID:    cs.ctx.CallID,
				Data:      events.CallFailedData{Reason: fatal.Error()},
			})

			o.OnCallEnd(cs.ctx)
			ok = false
		}
	}()

	cs.pipeline.Run(ctx, audio, o.deps.STTConfig, o.deps.Voice, o.deps.AudioFormat)
	return true
}

// OnCallEnd finalizes a call: publishes end events, folds per-call metrics
// into the orchestrator's aggregate, and releases the call's resources.
func (o *Orchestrator) OnCallEnd(ctx CallContext) {
	o.mu.Lock()
	cs, ok := o.calls[ctx.CallID]
	if !ok {
		o.mu.Unlock()
		return
	}
	delete(o.calls, ctx.CallID)
	o.mu.Unlock()

	snap := cs.pipeline.Metrics().Snapshot()
	success := snap.FailedTurns == 0

	o.mu.Lock()
	if success {
		o.totalSuccess++
	} else {
		o.totalFailure++
	}
	o.mu.Unlock()

	o.bus.Publish(&events.Event{
		Type:      events.EventCallEnded,
		Timestamp: time.Now(),
		CallID:    ctx.CallID,
		Data: events.CallEndedData{
			Duration:      time.Since(cs.startedAt),
			TotalTurns:    snap.SuccessfulTurns + snap.FailedTurns,
			SuccessTurns:  snap.SuccessfulTurns,
			FailedTurns:   snap.FailedTurns,
			BytesSent:     snap.BytesSent,
			BytesReceived: snap.BytesReceived,
		},
	})
}

// AggregateMetrics is the orchestrator's process-wide view across all calls.
type AggregateMetrics struct {
	TotalCalls  int
	Successes   int
	Failures    int
	ActiveCalls int
	SuccessRate float64
}

// Metrics returns the orchestrator's current aggregate view.
func (o *Orchestrator) Metrics() AggregateMetrics {
	o.mu.Lock()
	defer o.mu.Unlock()

	rate := 1.0
	finished := o.totalSuccess + o.totalFailure
	if finished > 0 {
		rate = float64(o.totalSuccess) / float64(finished)
	}

	return AggregateMetrics{
		TotalCalls:  o.totalCalls,
		Successes:   o.totalSuccess,
		Failures:    o.totalFailure,
		ActiveCalls: len(o.calls),
		SuccessRate: rate,
	}
}

// ActiveCallSnapshot is a point-in-time view of one active call.
type ActiveCallSnapshot struct {
	CallID string
	State  fsm.State
	Status turn.Snapshot
}

// ActiveCalls returns a snapshot of every currently active call.
func (o *Orchestrator) ActiveCalls() []ActiveCallSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]ActiveCallSnapshot, 0, len(o.calls))
	for id, cs := range o.calls {
		out = append(out, ActiveCallSnapshot{
			CallID: id,
			State:  cs.fsm.State(),
			Status: cs.pipeline.Metrics().Snapshot(),
		})
	}
	return out
}

// Close ends every active call, then marks the orchestrator closed so no
// further calls are admitted. Idempotent.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	ids := make([]string, 0, len(o.calls))
	for id := range o.calls {
		ids = append(ids, id)
	}
	o.mu.Unlock()

	for _, id := range ids {
		o.OnCallEnd(CallContext{CallID: id})
	}

	logger.Info("orchestrator: closed", "calls_ended", len(ids))
}
