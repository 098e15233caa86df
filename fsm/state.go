// Package fsm implements the three-state conversation state machine
// (Listening, Processing, Speaking) that drives one call's turn-taking,
// grounded on original_source/src/conversation/state_machine.py.
package fsm

import "time"

// State is one of the three conversational states a call can be in.
type State string

const (
	Listening  State = "listening"
	Processing State = "processing"
	Speaking   State = "speaking"
)

// Trigger names the event that caused (or was requested to cause) a transition.
type Trigger string

const (
	TriggerUserSpeechDetected Trigger = "user_speech_detected"
	TriggerAgentInitiated     Trigger = "agent_initiated_utterance"
	TriggerResponseReady      Trigger = "response_ready"
	TriggerProcessingError    Trigger = "processing_error"
	TriggerLowConfidence      Trigger = "low_confidence"
	TriggerUtteranceComplete  Trigger = "utterance_complete"
	TriggerUserInterruption   Trigger = "user_interruption"
)

// allowedTransitions enumerates the valid (from, to) pairs independent of
// trigger; the trigger is recorded for observability but does not itself
// gate validity beyond the documented mapping.
var allowedTransitions = map[State]map[State]bool{
	Listening:  {Processing: true, Speaking: true},
	Processing: {Speaking: true, Listening: true},
	Speaking:   {Listening: true, Processing: true},
}

// isAllowed reports whether from -> to is in the allowed set. Self-transitions
// are always allowed (treated as a no-op success elsewhere).
func isAllowed(from, to State) bool {
	if from == to {
		return true
	}
	return allowedTransitions[from][to]
}

// Transition is one recorded state change attempt.
type Transition struct {
	From      State
	To        State
	Timestamp time.Time
	Trigger   Trigger
	Metadata  map[string]interface{}
	Forced    bool
	Accepted  bool
}
