package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

type message struct {
	event   string
	payload json.RawMessage
}

// Bus is an in-process Channel. Every emit is delivered, in emit order, to
// the handlers subscribed to that event on a single dispatch goroutine. Both
// sides of a conversation share one Bus.
type Bus struct {
	handlers *registry

	mu        sync.Mutex
	queue     []message
	busy      bool
	connected bool
	closed    bool
	wake      chan struct{}
	idle      *sync.Cond
	done      chan struct{}
}

// NewBus creates a connected bus and starts its dispatch goroutine.
func NewBus() *Bus {
	b := &Bus{
		handlers:  newRegistry(),
		connected: true,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	b.idle = sync.NewCond(&b.mu)
	go b.run()
	return b
}

// Emit queues event for delivery.
func (b *Bus) Emit(ctx context.Context, event string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := encode(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}

	b.mu.Lock()
	switch {
	case b.closed:
		b.mu.Unlock()
		return ErrClosed
	case !b.connected:
		b.mu.Unlock()
		return ErrNotConnected
	}
	b.queue = append(b.queue, message{event: event, payload: raw})
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
	return nil
}

// On subscribes h to event.
func (b *Bus) On(event string, h Handler) func() {
	return b.handlers.add(event, h)
}

// Connected reports the simulated connection state.
func (b *Bus) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected && !b.closed
}

// SetConnected simulates the peer going away or coming back.
func (b *Bus) SetConnected(connected bool) {
	b.mu.Lock()
	b.connected = connected
	b.mu.Unlock()
}

// Flush blocks until every queued message has been handled, including
// messages emitted by handlers while flushing.
func (b *Bus) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for (len(b.queue) > 0 || b.busy) && !b.closed {
		b.idle.Wait()
	}
}

// Close stops dispatch. Queued messages are dropped.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.queue = nil
	b.idle.Broadcast()
	b.mu.Unlock()

	close(b.done)
	return nil
}

func (b *Bus) run() {
	for {
		select {
		case <-b.done:
			return
		case <-b.wake:
		}

		for {
			b.mu.Lock()
			if b.closed || len(b.queue) == 0 {
				b.busy = false
				b.idle.Broadcast()
				b.mu.Unlock()
				break
			}
			msg := b.queue[0]
			b.queue = b.queue[1:]
			b.busy = true
			b.mu.Unlock()

			b.handlers.dispatch(msg.event, msg.payload)
		}
	}
}
