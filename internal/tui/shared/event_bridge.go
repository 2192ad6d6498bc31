package shared

import (
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/migrate-verify/internal/hashengine"
)

// eventBufferSize keeps the pipelines from blocking on a slow terminal.
const eventBufferSize = 256

// EngineEventMsg wraps a hashengine.Event for use as a tea.Msg.
type EngineEventMsg struct {
	Event hashengine.Event
}

// EventBridge adapts pipeline events to bubble tea messages.
// It implements hashengine.EventEmitter and provides a channel for TUI consumption.
// Both pipelines emit into the same bridge.
type EventBridge struct {
	mu        sync.RWMutex
	eventChan chan tea.Msg
	gone      chan struct{}
	closed    bool
	detached  sync.Once
	dropped   atomic.Int64
}

// NewEventBridge creates a new event bridge.
func NewEventBridge() *EventBridge {
	return &EventBridge{
		eventChan: make(chan tea.Msg, eventBufferSize),
		gone:      make(chan struct{}),
	}
}

// Emit implements hashengine.EventEmitter.
// The send never blocks: when the buffer is full the event is dropped, since
// the display catches up from the next progress snapshot anyway.
func (b *EventBridge) Emit(event hashengine.Event) {
	b.Send(EngineEventMsg{Event: event})
}

// Send queues any message for the TUI without blocking. Used for progress
// snapshots.
func (b *EventBridge) Send(msg tea.Msg) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	select {
	case b.eventChan <- msg:
	default:
		b.dropped.Add(1)
	}
}

// SendFinal queues a message that must not be lost, such as the last
// snapshot or AllDoneMsg. It waits for buffer space until the consumer
// detaches.
func (b *EventBridge) SendFinal(msg tea.Msg) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	select {
	case b.eventChan <- msg:
	case <-b.gone:
		b.dropped.Add(1)
	}
}

// Detach tells the bridge that nobody reads any more, releasing SendFinal.
func (b *EventBridge) Detach() {
	b.detached.Do(func() { close(b.gone) })
}

// Dropped reports how many messages were discarded.
func (b *EventBridge) Dropped() int {
	return int(b.dropped.Load())
}

// Subscribe returns the event channel for receiving events.
func (b *EventBridge) Subscribe() <-chan tea.Msg {
	return b.eventChan
}

// ListenCmd returns a tea.Cmd that blocks until an event is received.
// Use this in Init() or after processing an event to continue listening.
func (b *EventBridge) ListenCmd() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-b.eventChan
		if !ok {
			return BridgeClosedMsg{}
		}

		return msg
	}
}

// Close closes the event channel. Later sends are ignored.
func (b *EventBridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.eventChan)
	}
}
