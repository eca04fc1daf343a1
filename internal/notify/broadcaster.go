// Package notify broadcasts cart change events to subscribers through an
// in-process Watermill pub/sub. Events are debounced: within a quiet window
// only the latest event survives, so subscribers see the final state of a
// burst of mutations but not every intermediate transition.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/agromercado/cartstate/internal/domain"
)

const topic = "cart.changes"

// DefaultWindow is the coalescing window between a mutation and its broadcast.
const DefaultWindow = 100 * time.Millisecond

type Broadcaster struct {
	window time.Duration
	logger *slog.Logger
	bus    *gochannel.GoChannel

	mu      sync.Mutex
	pending *domain.ChangeEvent
	timer   *time.Timer
	closed  bool
}

func New(window time.Duration, logger *slog.Logger) *Broadcaster {
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = slog.Default()
	}

	bus := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 16},
		watermill.NewSlogLogger(logger),
	)

	return &Broadcaster{
		window: window,
		logger: logger,
		bus:    bus,
	}
}

// Publish stages the event as the latest of the current window. The window
// restarts on every call, so a rapid burst collapses into its last event.
func (b *Broadcaster) Publish(ev domain.ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.pending = &ev
	if b.timer == nil {
		b.timer = time.AfterFunc(b.window, b.flush)
	} else {
		b.timer.Reset(b.window)
	}
}

func (b *Broadcaster) flush() {
	b.mu.Lock()
	ev := b.pending
	b.pending = nil
	closed := b.closed
	b.mu.Unlock()

	if ev == nil || closed {
		return
	}
	b.publishNow(ev)
}

func (b *Broadcaster) publishNow(ev *domain.ChangeEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		b.logger.Warn("marshal change event", "action", ev.Action, "err", err)
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.bus.Publish(topic, msg); err != nil {
		b.logger.Warn("publish change event", "action", ev.Action, "err", err)
	}
}

// Subscribe returns a channel of decoded change events. The channel closes
// when ctx is cancelled or the broadcaster shuts down.
func (b *Broadcaster) Subscribe(ctx context.Context) (<-chan domain.ChangeEvent, error) {
	msgs, err := b.bus.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("bus.Subscribe: %w", err)
	}

	out := make(chan domain.ChangeEvent, 1)
	go func() {
		defer close(out)

		for msg := range msgs {
			var ev domain.ChangeEvent
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				b.logger.Warn("decode change event", "err", err)
				msg.Ack()
				continue
			}
			msg.Ack()

			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close delivers the pending event, if any, and shuts the bus down.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
	}
	ev := b.pending
	b.pending = nil
	b.mu.Unlock()

	if ev != nil {
		b.publishNow(ev)
	}
	return b.bus.Close()
}
