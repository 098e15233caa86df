package events

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestEventBusPublishesToSpecificAndGlobalListeners(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()

	event := &Event{Type: EventCallStarted, Data: CallStartedData{MediaRoomID: "room-1"}}

	var mu sync.Mutex
	var received []EventType
	var wg sync.WaitGroup
	wg.Add(2)

	bus.Subscribe(EventCallStarted, func(e *Event) {
		mu.Lock()
		received = append(received, e.Type)
		mu.Unlock()
		wg.Done()
	})

	bus.SubscribeAll(func(e *Event) {
		mu.Lock()
		received = append(received, e.Type)
		mu.Unlock()
		wg.Done()
	})

	bus.Publish(event)

	if !waitForWG(&wg, 200*time.Millisecond) {
		t.Fatal("timed out waiting for listeners")
	}

	if len(received) != 2 {
		t.Fatalf("expected 2 events, got %d", len(received))
	}
}

func TestEventBusRecoversFromPanic(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()

	event := &Event{Type: EventTurnFailed}

	var wg sync.WaitGroup
	wg.Add(1)

	bus.Subscribe(EventTurnFailed, func(*Event) {
		panic("listener panic")
	})

	// This listener should still fire even if another panics.
	bus.Subscribe(EventTurnFailed, func(*Event) {
		wg.Done()
	})

	bus.Publish(event)

	if !waitForWG(&wg, 200*time.Millisecond) {
		t.Fatal("listener after panic did not fire")
	}
}

func TestEventBusClear(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()

	var count atomic.Int32

	bus.Subscribe(EventCallStarted, func(*Event) {
		count.Add(1)
	})
	bus.SubscribeAll(func(*Event) {
		count.Add(1)
	})

	bus.Clear()

	// Publish and wait for it to pass through, via a sentinel listener
	// registered after Clear.
	var wg sync.WaitGroup
	wg.Add(1)
	bus.Subscribe(EventCallEnded, func(*Event) {
		wg.Done()
	})
	bus.Publish(&Event{Type: EventCallEnded})
	if !waitForWG(&wg, 200*time.Millisecond) {
		t.Fatal("timed out waiting for sentinel after clear")
	}

	// The cleared listeners for EventCallStarted/global should not have fired.
	if got := count.Load(); got != 0 {
		t.Fatalf("expected cleared listeners to not fire, got count %d", got)
	}
}

func waitForWG(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
