package events

import "testing"

func TestBaseEventData_EventData(t *testing.T) {
	var _ EventData = baseEventData{}
	bed := baseEventData{}
	bed.eventData()
}

func TestEventDataStructs(t *testing.T) {
	var _ EventData = &CallStartedData{}
	var _ EventData = &CallRejectedData{}
	var _ EventData = &CallEndedData{}
	var _ EventData = &AudioReceivedData{}
	var _ EventData = &AudioEmittedData{}
	var _ EventData = &StateTransitionedData{}
	var _ EventData = &StateTransitionRejectedData{}
	var _ EventData = &TurnStartedData{}
	var _ EventData = &TurnCompletedData{}
	var _ EventData = &TurnFailedData{}
	var _ EventData = &BreakerOpenedData{}
	var _ EventData = &BreakerClosedData{}
	var _ EventData = &ConnectionReconnectedData{}
	var _ EventData = &ConnectionFailedData{}
	var _ EventData = &RoomCleanedData{}
}

func TestEvent_CarriesCallID(t *testing.T) {
	event := &Event{
		Type:   EventCallStarted,
		CallID: "call-1",
		Data:   CallStartedData{CallerIdentifier: "+15555550123", MediaRoomID: "room-1"},
	}
	if event.CallID != "call-1" {
		t.Errorf("CallID = %v, want call-1", event.CallID)
	}
	data, ok := event.Data.(CallStartedData)
	if !ok {
		t.Fatalf("Data is not CallStartedData: %T", event.Data)
	}
	if data.MediaRoomID != "room-1" {
		t.Errorf("MediaRoomID = %v, want room-1", data.MediaRoomID)
	}
}

func TestEventTypes_Constants(t *testing.T) {
	tests := []struct {
		eventType EventType
		expected  string
	}{
		{EventCallStarted, "call.started"},
		{EventCallRejected, "call.rejected"},
		{EventCallEnded, "call.ended"},
		{EventAudioReceived, "call.audio_received"},
		{EventAudioEmitted, "call.audio_emitted"},
		{EventStateTransitioned, "fsm.transitioned"},
		{EventStateTransitionRejected, "fsm.transition_rejected"},
		{EventTurnStarted, "turn.started"},
		{EventTurnCompleted, "turn.completed"},
		{EventTurnFailed, "turn.failed"},
		{EventBreakerOpened, "resilience.breaker_opened"},
		{EventBreakerClosed, "resilience.breaker_closed"},
		{EventConnectionReconnected, "pool.reconnected"},
		{EventConnectionFailed, "pool.connection_failed"},
		{EventRoomCleaned, "room.cleaned"},
	}
	for _, tt := range tests {
		if string(tt.eventType) != tt.expected {
			t.Errorf("EventType = %v, want %v", tt.eventType, tt.expected)
		}
	}
}
