package prometheus

import (
	"github.com/lattice-voice/callcore/events"
)

// Status constants for metric labels.
const (
	statusSuccess = "success"
	statusFailed  = "failed"
)

// MetricsListener records call-orchestration events as Prometheus metrics.
// It implements the events.Listener signature and should be registered with
// an EventBus using SubscribeAll.
type MetricsListener struct{}

// NewMetricsListener creates a new MetricsListener.
func NewMetricsListener() *MetricsListener {
	return &MetricsListener{}
}

// Handle processes an event and records relevant metrics.
func (l *MetricsListener) Handle(event *events.Event) {
	//exhaustive:ignore
	switch event.Type {
	case events.EventCallStarted:
		RecordCallStarted()
	case events.EventCallEnded:
		l.handleCallEnded(event)
	case events.EventCallRejected:
		l.handleCallRejected(event)
	case events.EventAudioReceived:
		l.handleAudioReceived(event)
	case events.EventAudioEmitted:
		l.handleAudioEmitted(event)
	case events.EventTurnCompleted:
		RecordTurn(statusSuccess)
	case events.EventTurnFailed:
		RecordTurn(statusFailed)
	case events.EventBreakerOpened:
		l.handleBreakerOpened(event)
	case events.EventBreakerClosed:
		l.handleBreakerClosed(event)
	case events.EventRoomCleaned:
		RecordRoomCleaned()
	case events.EventCallFailed:
		RecordCallFatal()
	default:
		// Ignore events that don't have metrics.
	}
}

func (l *MetricsListener) handleCallEnded(event *events.Event) {
	if data, ok := event.Data.(events.CallEndedData); ok {
		status := statusSuccess
		if data.FailedTurns > 0 && data.SuccessTurns == 0 {
			status = statusFailed
		}
		RecordCallEnded(status, data.Duration.Seconds())
	}
}

func (l *MetricsListener) handleCallRejected(event *events.Event) {
	if data, ok := event.Data.(events.CallRejectedData); ok {
		RecordCallRejected(data.Reason)
	}
}

func (l *MetricsListener) handleAudioReceived(event *events.Event) {
	if data, ok := event.Data.(events.AudioReceivedData); ok {
		RecordAudioBytes("received", data.Bytes)
	}
}

func (l *MetricsListener) handleAudioEmitted(event *events.Event) {
	if data, ok := event.Data.(events.AudioEmittedData); ok {
		RecordAudioBytes("emitted", data.Bytes)
	}
}

func (l *MetricsListener) handleBreakerOpened(event *events.Event) {
	if data, ok := event.Data.(events.BreakerOpenedData); ok {
		RecordBreakerStateChange(data.Component, "open")
	}
}

func (l *MetricsListener) handleBreakerClosed(event *events.Event) {
	if data, ok := event.Data.(events.BreakerClosedData); ok {
		RecordBreakerStateChange(data.Component, "closed")
	}
}

// Listener returns an events.Listener function that can be registered with an EventBus.
func (l *MetricsListener) Listener() events.Listener {
	return l.Handle
}
