package fsm

import (
	"sync"
	"time"

	"github.com/lattice-voice/callcore/logger"
)

// EnterHandler is invoked after the FSM has moved into a state.
type EnterHandler func(Transition)

// FSM is a guarded three-state machine. All mutation is serialized by an
// internal mutex; concurrent TransitionTo calls are linearized, and a
// transition to the state a concurrent predecessor just entered resolves as
// a self-transition no-op.
type FSM struct {
	mu sync.Mutex

	state          State
	history        []Transition
	stateDurations map[State]time.Duration
	lastEntered    time.Time

	enterHandlers map[State][]EnterHandler
	callbacks     []EnterHandler

	rejectedCount int
}

// New creates an FSM starting in Listening.
func New() *FSM {
	return &FSM{
		state:          Listening,
		stateDurations: make(map[State]time.Duration),
		enterHandlers:  make(map[State][]EnterHandler),
		lastEntered:    time.Now(),
	}
}

// State returns the current state.
func (f *FSM) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// OnEnter registers a handler invoked whenever the FSM enters state s.
func (f *FSM) OnEnter(s State, h EnterHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enterHandlers[s] = append(f.enterHandlers[s], h)
}

// OnTransition registers a handler invoked on every transition regardless of
// target state.
func (f *FSM) OnTransition(h EnterHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callbacks = append(f.callbacks, h)
}

// TransitionTo attempts a guarded transition. Returns true if the transition
// was applied (including self-transition no-ops); false if rejected as
// invalid. trigger and metadata are recorded regardless of outcome.
func (f *FSM) TransitionTo(to State, trigger Trigger, metadata map[string]interface{}) bool {
	return f.transition(to, trigger, metadata, false)
}

// ForceTransition bypasses validation entirely and always succeeds. Intended
// only for error recovery.
func (f *FSM) ForceTransition(to State, trigger Trigger, metadata map[string]interface{}) {
	f.transition(to, trigger, metadata, true)
}

func (f *FSM) transition(to State, trigger Trigger, metadata map[string]interface{}, forced bool) bool {
	f.mu.Lock()

	from := f.state
	accepted := forced || isAllowed(from, to)

	if !accepted {
		f.rejectedCount++
		f.history = append(f.history, Transition{
			From: from, To: to, Timestamp: time.Now(), Trigger: trigger,
			Metadata: metadata, Forced: forced, Accepted: false,
		})
		f.mu.Unlock()
		logger.Warn("fsm: invalid transition rejected", "from", from, "to", to, "trigger", trigger)
		return false
	}

	now := time.Now()
	f.stateDurations[from] += now.Sub(f.lastEntered)
	f.lastEntered = now
	f.state = to

	t := Transition{From: from, To: to, Timestamp: now, Trigger: trigger, Metadata: metadata, Forced: forced, Accepted: true}
	f.history = append(f.history, t)

	handlers := append([]EnterHandler{}, f.enterHandlers[to]...)
	callbacks := append([]EnterHandler{}, f.callbacks...)
	f.mu.Unlock()

	dispatch(handlers, t)
	dispatch(callbacks, t)

	return true
}

func dispatch(handlers []EnterHandler, t Transition) {
	for _, h := range handlers {
		safeInvoke(h, t)
	}
}

func safeInvoke(h EnterHandler, t Transition) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("fsm: handler panic recovered", "panic", r, "transition", t)
		}
	}()
	h(t)
}

// WithTemporaryState enters target for the lifetime of body and
// deterministically returns to the prior state afterward, even if body
// panics. If the entry transition is rejected as invalid, body still runs in
// the original state and no return transition is issued.
func (f *FSM) WithTemporaryState(target State, trigger Trigger, body func()) {
	prior := f.State()
	entered := f.TransitionTo(target, trigger, nil)

	defer func() {
		if entered {
			f.TransitionTo(prior, trigger, nil)
		}
		if r := recover(); r != nil {
			panic(r)
		}
	}()

	body()
}

// Reset returns the FSM to Listening and clears history and durations.
func (f *FSM) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = Listening
	f.history = nil
	f.stateDurations = make(map[State]time.Duration)
	f.lastEntered = time.Now()
	f.rejectedCount = 0
}

// History returns a copy of the recorded transitions.
func (f *FSM) History() []Transition {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Transition, len(f.history))
	copy(out, f.history)
	return out
}

// StateDurations returns a copy of the accumulated per-state durations. The
// currently active state's duration does not include time since it was
// entered; call Status() for a live view.
func (f *FSM) StateDurations() map[State]time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[State]time.Duration, len(f.stateDurations))
	for k, v := range f.stateDurations {
		out[k] = v
	}
	return out
}

// Snapshot is a point-in-time view of the FSM, mirroring the original's
// get_state_summary().
type Snapshot struct {
	State           State
	TransitionCount int
	RejectedCount   int
	StateDurations  map[State]time.Duration
}

// Status returns a Snapshot of the FSM's current state.
func (f *FSM) Status() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	durations := make(map[State]time.Duration, len(f.stateDurations))
	for k, v := range f.stateDurations {
		durations[k] = v
	}
	durations[f.state] += time.Since(f.lastEntered)

	return Snapshot{
		State:           f.state,
		TransitionCount: len(f.history),
		RejectedCount:   f.rejectedCount,
		StateDurations:  durations,
	}
}
