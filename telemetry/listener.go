package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lattice-voice/callcore/events"
)

// callState tracks the root span for one active call.
type callState struct {
	span trace.Span
	ctx  context.Context //nolint:containedctx // needed to parent turn spans
}

// pendingEnd buffers a span completion that arrived before its start.
// The EventBus dispatches each Publish() in its own goroutine, so a
// turn-completed event can race ahead of the turn-started event that
// should have opened its span.
type pendingEnd struct {
	errMsg string // empty means success
	attrs  []attribute.KeyValue
}

// OTelEventListener converts call-orchestration events into OTel spans in
// real time: one span per call, with child spans per turn. It implements
// the events.Listener function signature via OnEvent and is safe for
// concurrent use; it tolerates out-of-order event delivery.
type OTelEventListener struct {
	tracer trace.Tracer

	mu          sync.Mutex
	calls       map[string]*callState // callID -> root span + ctx
	inflight    map[string]*spanEntry // "turn:<callID>" -> span + ctx
	pendingEnds map[string]*pendingEnd
}

type spanEntry struct {
	span trace.Span
	ctx  context.Context //nolint:containedctx // needed to parent nested spans
}

// NewOTelEventListener creates a listener that creates OTel spans from
// call-orchestration events using the given tracer.
func NewOTelEventListener(tracer trace.Tracer) *OTelEventListener {
	return &OTelEventListener{
		tracer:      tracer,
		calls:       make(map[string]*callState),
		inflight:    make(map[string]*spanEntry),
		pendingEnds: make(map[string]*pendingEnd),
	}
}

// OnEvent handles one event and creates or completes OTel spans accordingly.
// Pass it to events.EventBus.SubscribeAll, or Subscribe it per EventType.
func (l *OTelEventListener) OnEvent(evt *events.Event) {
	//nolint:exhaustive // only span-producing events are handled here
	switch evt.Type {
	case events.EventCallStarted:
		l.startCall(evt)
	case events.EventCallEnded:
		l.endCall(evt, "")
	case events.EventCallFailed:
		l.failCall(evt)
	case events.EventTurnStarted:
		l.startTurn(evt)
	case events.EventTurnCompleted:
		l.completeTurn(evt)
	case events.EventTurnFailed:
		l.failTurn(evt)
	}
}

func (l *OTelEventListener) startCall(evt *events.Event) {
	data, _ := evt.Data.(events.CallStartedData)
	ctx, span := l.tracer.Start(context.Background(), "callcore.call",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("call.id", evt.CallID),
			attribute.String("call.caller_identifier", data.CallerIdentifier),
			attribute.String("call.media_room_id", data.MediaRoomID),
		),
	)
	l.mu.Lock()
	l.calls[evt.CallID] = &callState{span: span, ctx: ctx}
	l.mu.Unlock()
}

func (l *OTelEventListener) endCall(evt *events.Event, errMsg string) {
	l.mu.Lock()
	cs, ok := l.calls[evt.CallID]
	if ok {
		delete(l.calls, evt.CallID)
	}
	l.mu.Unlock()
	if !ok {
		return
	}

	if data, ok := evt.Data.(events.CallEndedData); ok {
		cs.span.SetAttributes(
			attribute.Int64("call.duration_ms", data.Duration.Milliseconds()),
			attribute.Int("call.total_turns", data.TotalTurns),
			attribute.Int("call.success_turns", data.SuccessTurns),
			attribute.Int("call.failed_turns", data.FailedTurns),
			attribute.Int64("call.bytes_sent", data.BytesSent),
			attribute.Int64("call.bytes_received", data.BytesReceived),
		)
	}
	if errMsg != "" {
		cs.span.SetStatus(codes.Error, errMsg)
	} else {
		cs.span.SetStatus(codes.Ok, "")
	}
	cs.span.End()
}

func (l *OTelEventListener) failCall(evt *events.Event) {
	data, _ := evt.Data.(events.CallFailedData)
	l.endCall(evt, data.Reason)
}

// callCtx returns the context to parent a turn span under, falling back to
// context.Background() if the call is unknown (e.g. a turn event arriving
// after the call-ended span already closed).
func (l *OTelEventListener) callCtx(callID string) context.Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cs, ok := l.calls[callID]; ok {
		return cs.ctx
	}
	return context.Background()
}

func (l *OTelEventListener) startTurn(evt *events.Event) {
	data, ok := evt.Data.(events.TurnStartedData)
	if !ok {
		return
	}
	key := "turn:" + evt.CallID
	parentCtx := l.callCtx(evt.CallID)
	ctx, span := l.tracer.Start(parentCtx, "callcore.turn",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("call.id", evt.CallID),
			attribute.String("turn.id", data.TurnID),
		),
	)

	l.mu.Lock()
	pe, havePending := l.pendingEnds[key]
	if havePending {
		delete(l.pendingEnds, key)
	} else {
		l.inflight[key] = &spanEntry{span: span, ctx: ctx}
	}
	l.mu.Unlock()

	if havePending {
		span.SetAttributes(pe.attrs...)
		if pe.errMsg != "" {
			span.SetStatus(codes.Error, pe.errMsg)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

func (l *OTelEventListener) completeTurn(evt *events.Event) {
	data, ok := evt.Data.(events.TurnCompletedData)
	if !ok {
		return
	}
	l.endTurn(evt.CallID,
		attribute.Int64("turn.processing_time_ms", data.ProcessingTime.Milliseconds()),
		attribute.Int64("turn.stt_latency_ms", data.STTLatency.Milliseconds()),
		attribute.Int64("turn.llm_latency_ms", data.LLMLatency.Milliseconds()),
		attribute.Int64("turn.tts_latency_ms", data.TTSLatency.Milliseconds()),
		attribute.Bool("turn.fallback", data.Fallback),
	)
}

func (l *OTelEventListener) failTurn(evt *events.Event) {
	data, ok := evt.Data.(events.TurnFailedData)
	if !ok {
		return
	}
	l.failTurnSpan(evt.CallID, data.Reason, attribute.String("turn.id", data.TurnID))
}

// endTurn ends an inflight turn span. If the span hasn't started yet
// (out-of-order delivery), the completion is buffered and applied when
// startTurn creates the span.
func (l *OTelEventListener) endTurn(callID string, attrs ...attribute.KeyValue) {
	key := "turn:" + callID
	l.mu.Lock()
	entry, ok := l.inflight[key]
	if ok {
		delete(l.inflight, key)
	} else {
		l.pendingEnds[key] = &pendingEnd{attrs: attrs}
	}
	l.mu.Unlock()
	if !ok {
		return
	}
	entry.span.SetAttributes(attrs...)
	entry.span.SetStatus(codes.Ok, "")
	entry.span.End()
}

func (l *OTelEventListener) failTurnSpan(callID, errMsg string, attrs ...attribute.KeyValue) {
	key := "turn:" + callID
	l.mu.Lock()
	entry, ok := l.inflight[key]
	if ok {
		delete(l.inflight, key)
	} else {
		l.pendingEnds[key] = &pendingEnd{errMsg: errMsg, attrs: attrs}
	}
	l.mu.Unlock()
	if !ok {
		return
	}
	entry.span.SetAttributes(attrs...)
	entry.span.SetStatus(codes.Error, errMsg)
	entry.span.End()
}
