package broadcast

import (
	"context"
	"sync"

	"driveme/internal/general/contracts"
	"driveme/internal/general/logger"
)

// defaultBuffer is the per-subscriber queue depth when none is configured.
const defaultBuffer = 64

// Channel is the single logical topic all driver connections subscribe to.
// Publish delivers to every subscriber registered at the moment of the call;
// there is no replay for late joiners. Delivery is per-subscriber bounded and
// drop-oldest, so a slow consumer never blocks the publisher or its peers.
type Channel struct {
	logger *logger.Logger
	buffer int

	mu   sync.RWMutex
	subs map[*Subscriber]struct{}
}

// Subscriber is the handle returned by Subscribe. Events arrive on Events()
// until Unsubscribe closes it.
type Subscriber struct {
	events chan contracts.RequestOpenEvent
	once   sync.Once
}

// Events returns the stream of broadcast events for this subscriber.
func (sub *Subscriber) Events() <-chan contracts.RequestOpenEvent {
	return sub.events
}

// NewChannel creates a broadcast channel with the given per-subscriber buffer.
func NewChannel(logger *logger.Logger, buffer int) *Channel {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Channel{
		logger: logger,
		buffer: buffer,
		subs:   make(map[*Subscriber]struct{}),
	}
}

// Subscribe registers a new subscriber and returns its handle.
func (channel *Channel) Subscribe() *Subscriber {
	sub := &Subscriber{events: make(chan contracts.RequestOpenEvent, channel.buffer)}

	channel.mu.Lock()
	channel.subs[sub] = struct{}{}
	count := len(channel.subs)
	channel.mu.Unlock()

	channel.logger.Debug(context.Background(), "broadcast_subscribed", "Subscriber registered",
		map[string]any{"subscribers": count})
	return sub
}

// Unsubscribe removes a subscriber and closes its event stream. Safe to call
// more than once; repeated calls are no-ops.
func (channel *Channel) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	channel.mu.Lock()
	_, registered := channel.subs[sub]
	delete(channel.subs, sub)
	count := len(channel.subs)
	channel.mu.Unlock()

	sub.once.Do(func() { close(sub.events) })

	if registered {
		channel.logger.Debug(context.Background(), "broadcast_unsubscribed", "Subscriber removed",
			map[string]any{"subscribers": count})
	}
}

// Publish delivers event to every current subscriber. It never fails the
// caller: with zero subscribers it is a no-op, and a full subscriber queue
// sheds its oldest entry to make room.
func (channel *Channel) Publish(event contracts.RequestOpenEvent) {
	channel.mu.RLock()
	defer channel.mu.RUnlock()

	for sub := range channel.subs {
		select {
		case sub.events <- event:
		default:
			// queue full: drop the oldest event, then retry once
			select {
			case <-sub.events:
			default:
			}
			select {
			case sub.events <- event:
			default:
				channel.logger.Debug(context.Background(), "broadcast_dropped",
					"Subscriber queue full, event dropped",
					map[string]any{"request_id": event.RequestID})
			}
		}
	}
}

// SubscriberCount reports the current number of registered subscribers.
func (channel *Channel) SubscriberCount() int {
	channel.mu.RLock()
	defer channel.mu.RUnlock()
	return len(channel.subs)
}
