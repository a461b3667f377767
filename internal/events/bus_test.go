package events

import (
	"sync"
	"testing"
	"time"
)

func TestBusPublishSubscribeFiltered(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	var received []Event

	bus.Subscribe(func(e Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	}, TypeToolCall)

	bus.Publish(ToolCall("lead", "bash", `{"command":"ls"}`))
	bus.Publish(RoundStarted("lead", 1, 16))

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	if received[0].Type != TypeToolCall {
		t.Errorf("expected tool.call, got %s", received[0].Type)
	}
	if received[0].Payload["tool"] != "bash" {
		t.Errorf("payload tool = %v", received[0].Payload["tool"])
	}
}

func TestBusSubscribeAll(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	count := 0

	bus.Subscribe(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	bus.Publish(RoundStarted("lead", 1, 16))
	bus.Publish(AssistantReply("lead", 42))

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 2 {
		t.Errorf("expected 2 events, got %d", count)
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	count := 0

	unsub := bus.Subscribe(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	unsub()

	bus.Publish(RoundStarted("lead", 1, 16))
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Errorf("expected 0 events after unsubscribe, got %d", count)
	}
}

func TestHistoryKeepsMostRecent(t *testing.T) {
	bus := NewBus(3)
	defer bus.Close()

	for i := 0; i < 5; i++ {
		bus.Publish(RoundStarted("lead", i, 16))
	}
	time.Sleep(50 * time.Millisecond)

	events := bus.History(10)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[len(events)-1].Payload["round"] != 4 {
		t.Errorf("last event round = %v, want 4", events[len(events)-1].Payload["round"])
	}
}

func TestPublishAfterCloseIsDropped(t *testing.T) {
	bus := NewBus(8)
	bus.Close()

	bus.Publish(RoundStarted("lead", 1, 16))
	if got := bus.History(10); len(got) != 0 {
		t.Fatalf("expected no events after close, got %d", len(got))
	}
}
