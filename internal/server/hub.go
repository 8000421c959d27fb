package server

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/rustedturnip/flipclock/dom"
)

// subscriberBuffer is how many mutations a stream may fall behind before
// further mutations are dropped for it.
const subscriberBuffer = 64

type subscriber struct {
	id     uuid.UUID
	ch     chan dom.Mutation
	closed atomic.Bool
}

// hub fans document mutations out to the connected event streams. publish
// never blocks, so a slow browser cannot stall the ticker.
type hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*subscriber
	dropped     atomic.Int64
}

func newHub() *hub {
	return &hub{
		subscribers: make(map[uuid.UUID]*subscriber),
	}
}

// subscribe registers a stream and closes it when ctx is done.
func (h *hub) subscribe(ctx context.Context) *subscriber {
	sub := &subscriber{
		id: uuid.New(),
		ch: make(chan dom.Mutation, subscriberBuffer),
	}

	h.mu.Lock()
	h.subscribers[sub.id] = sub
	h.mu.Unlock()

	go func() {
		<-ctx.Done()

		h.mu.Lock()
		delete(h.subscribers, sub.id)
		sub.closed.Store(true)
		h.mu.Unlock()

		close(sub.ch)
	}()

	return sub
}

func (h *hub) publish(m dom.Mutation) {
	// the element is not serialized and must not outlive the observer call
	m.Element = nil

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers {
		if sub.closed.Load() {
			continue
		}

		select {
		case sub.ch <- m:
		default:
			h.dropped.Inc()
		}
	}
}

func (h *hub) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
