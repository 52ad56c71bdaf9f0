package bus

import (
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func testBusLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestEventBus_EmitAndReceive(t *testing.T) {
	eb := NewEventBus(testBusLogger())

	var received int32
	eb.On(EventReplySent, func(e Event) {
		atomic.AddInt32(&received, 1)
	})

	eb.Emit(Event{Type: EventReplySent, Payload: map[string]any{"contact": "5511999998888"}})

	if atomic.LoadInt32(&received) != 1 {
		t.Errorf("expected 1 event received, got %d", received)
	}
}

func TestEventBus_WildcardHandler(t *testing.T) {
	eb := NewEventBus(testBusLogger())

	var count int32
	eb.On("*", func(e Event) {
		atomic.AddInt32(&count, 1)
	})

	eb.Emit(Event{Type: EventReplySent})
	eb.Emit(Event{Type: EventReplyFailed})

	if atomic.LoadInt32(&count) != 2 {
		t.Errorf("expected 2, got %d", count)
	}
}

func TestEventBus_Off(t *testing.T) {
	eb := NewEventBus(testBusLogger())

	var count int32
	id := eb.On(EventRowAppended, func(e Event) {
		atomic.AddInt32(&count, 1)
	})

	eb.Emit(Event{Type: EventRowAppended})
	eb.Off(EventRowAppended, id)
	eb.Emit(Event{Type: EventRowAppended})

	if atomic.LoadInt32(&count) != 1 {
		t.Errorf("expected 1 after unsubscribe, got %d", count)
	}
}

func TestEventBus_Replay(t *testing.T) {
	eb := NewEventBus(testBusLogger())

	eb.Emit(Event{Type: EventReplySent})
	eb.Emit(Event{Type: EventReplyFailed})
	eb.Emit(Event{Type: EventReplySent})

	sent := eb.Replay(EventReplySent, time.Time{})
	if len(sent) != 2 {
		t.Errorf("expected 2 reply.sent events, got %d", len(sent))
	}
	all := eb.Replay("*", time.Time{})
	if len(all) != 3 {
		t.Errorf("expected 3 total events, got %d", len(all))
	}
}

func TestEventBus_HandlerPanicIsRecovered(t *testing.T) {
	eb := NewEventBus(testBusLogger())

	var after int32
	eb.On(EventPollCompleted, func(e Event) { panic("bad handler") })
	eb.On(EventPollCompleted, func(e Event) { atomic.AddInt32(&after, 1) })

	eb.Emit(Event{Type: EventPollCompleted})

	if atomic.LoadInt32(&after) != 1 {
		t.Error("handler after a panicking handler should still run")
	}
}
