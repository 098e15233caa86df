package events

import "time"

// EventType identifies the type of event emitted by the runtime.
type EventType string

const (
	// EventCallStarted marks a call being admitted and set up.
	EventCallStarted EventType = "call.started"
	// EventCallRejected marks a call being refused by admission control.
	EventCallRejected EventType = "call.rejected"
	// EventCallEnded marks a call tearing down.
	EventCallEnded EventType = "call.ended"
	// EventCallFailed marks a call ended by an unrecoverable invariant
	// violation rather than a normal hangup.
	EventCallFailed EventType = "call.failed"

	// EventAudioReceived marks inbound audio appended to a call's buffer.
	EventAudioReceived EventType = "call.audio_received"
	// EventAudioEmitted marks synthesized audio handed back to the media adapter.
	EventAudioEmitted EventType = "call.audio_emitted"

	// EventStateTransitioned marks a conversation FSM transition.
	EventStateTransitioned EventType = "fsm.transitioned"
	// EventStateTransitionRejected marks an invalid FSM transition attempt.
	EventStateTransitionRejected EventType = "fsm.transition_rejected"

	// EventTurnStarted marks the beginning of a turn-pipeline run.
	EventTurnStarted EventType = "turn.started"
	// EventTurnCompleted marks a turn that produced synthesized audio.
	EventTurnCompleted EventType = "turn.completed"
	// EventTurnFailed marks a turn that fell back after exhausting retries.
	EventTurnFailed EventType = "turn.failed"

	// EventBreakerOpened marks a resilience circuit breaker tripping open.
	EventBreakerOpened EventType = "resilience.breaker_opened"
	// EventBreakerClosed marks a resilience circuit breaker closing again.
	EventBreakerClosed EventType = "resilience.breaker_closed"

	// EventConnectionReconnected marks a pool connection recovering after failure.
	EventConnectionReconnected EventType = "pool.reconnected"
	// EventConnectionFailed marks a pool connection exhausting its reconnect attempts.
	EventConnectionFailed EventType = "pool.connection_failed"

	// EventRoomCleaned marks an idle room being removed by the health observer.
	EventRoomCleaned EventType = "room.cleaned"
)

// EventData is a marker interface for event payloads.
type EventData interface {
	eventData()
}

// Event represents a runtime event delivered to listeners.
type Event struct {
	Type      EventType
	Timestamp time.Time
	CallID    string
	Data      EventData
}

// baseEventData provides a shared marker implementation for all event payloads.
type baseEventData struct{}

func (baseEventData) eventData() {
	// marker method to satisfy EventData
}

// CallStartedData contains data for call-started events.
type CallStartedData struct {
	baseEventData
	CallerIdentifier string
	MediaRoomID      string
}

// CallRejectedData contains data for call-rejection events.
type CallRejectedData struct {
	baseEventData
	Reason string
}

// CallEndedData contains data for call-ended events.
type CallEndedData struct {
	baseEventData
	Duration      time.Duration
	TotalTurns    int
	SuccessTurns  int
	FailedTurns   int
	BytesSent     int64
	BytesReceived int64
}

// CallFailedData contains data for call-failed events.
type CallFailedData struct {
	baseEventData
	Reason string
}

// AudioReceivedData contains data for audio-received events.
type AudioReceivedData struct {
	baseEventData
	Bytes int
}

// AudioEmittedData contains data for audio-emitted events.
type AudioEmittedData struct {
	baseEventData
	Bytes int
}

// StateTransitionedData contains data for FSM transition events.
type StateTransitionedData struct {
	baseEventData
	From    string
	To      string
	Trigger string
	Forced  bool
}

// StateTransitionRejectedData contains data for rejected FSM transition attempts.
type StateTransitionRejectedData struct {
	baseEventData
	From    string
	To      string
	Trigger string
}

// TurnStartedData contains data for turn-started events.
type TurnStartedData struct {
	baseEventData
	TurnID string
}

// TurnCompletedData contains data for turn-completed events.
type TurnCompletedData struct {
	baseEventData
	TurnID         string
	ProcessingTime time.Duration
	STTLatency     time.Duration
	LLMLatency     time.Duration
	TTSLatency     time.Duration
	Fallback       bool
}

// TurnFailedData contains data for turn-failed events.
type TurnFailedData struct {
	baseEventData
	TurnID string
	Reason string
	Err    error
}

// BreakerOpenedData contains data for breaker-opened events.
type BreakerOpenedData struct {
	baseEventData
	Component string
}

// BreakerClosedData contains data for breaker-closed events.
type BreakerClosedData struct {
	baseEventData
	Component string
}

// ConnectionReconnectedData contains data for pool reconnection events.
type ConnectionReconnectedData struct {
	baseEventData
	ConnectionID string
	Attempts     int
}

// ConnectionFailedData contains data for pool connection failure events.
type ConnectionFailedData struct {
	baseEventData
	ConnectionID string
	Attempts     int
}

// RoomCleanedData contains data for idle-room cleanup events.
type RoomCleanedData struct {
	baseEventData
	RoomName string
	IdleFor  time.Duration
}
