package order

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

type EventKind string

const (
	EventOrderCreated EventKind = "order.created"
	EventOrderUpdated EventKind = "order.updated"
)

type Event struct {
	Kind  EventKind `json:"kind"`
	Order Order     `json:"order"`
	At    time.Time `json:"at"`
}

type Handler func(Event)

type subscription struct {
	restaurantID string // empty matches every restaurant
	fn           Handler
}

// Bus delivers events synchronously, in subscription order, to whoever is
// subscribed at publish time. Missed events are not kept or replayed.
type Bus struct {
	mu   sync.RWMutex
	next uint64
	subs map[uint64]subscription
	log  *zap.Logger
}

func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{subs: make(map[uint64]subscription), log: log}
}

// Subscribe registers fn for every restaurant. The returned func unsubscribes.
func (b *Bus) Subscribe(fn Handler) func() {
	return b.SubscribeRestaurant("", fn)
}

func (b *Bus) SubscribeRestaurant(restaurantID string, fn Handler) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = subscription{restaurantID: restaurantID, fn: fn}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Stream adapts a subscription to a buffered channel. When the reader falls
// behind, events are dropped rather than blocking the publisher.
func (b *Bus) Stream(restaurantID string, buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	var (
		mu     sync.Mutex
		closed bool
	)
	unsubscribe := b.SubscribeRestaurant(restaurantID, func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- e:
		default:
			b.log.Warn("event stream full, dropping event",
				zap.String("restaurant_id", restaurantID),
				zap.String("order_id", e.Order.ID),
				zap.String("kind", string(e.Kind)))
		}
	})
	return ch, func() {
		unsubscribe()
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			close(ch)
		}
	}
}

func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	ids := make([]uint64, 0, len(b.subs))
	for id, s := range b.subs {
		if s.restaurantID == "" || s.restaurantID == e.Order.RestaurantID {
			ids = append(ids, id)
		}
	}
	handlers := make([]Handler, 0, len(ids))
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		handlers = append(handlers, b.subs[id].fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		b.deliver(fn, Event{Kind: e.Kind, Order: e.Order.Clone(), At: e.At})
	}
}

func (b *Bus) deliver(fn Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked",
				zap.String("kind", string(e.Kind)),
				zap.String("order_id", e.Order.ID),
				zap.Any("panic", r))
		}
	}()
	fn(e)
}
