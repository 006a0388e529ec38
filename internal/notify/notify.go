// Package notify relays order events from the in-process bus to external brokers.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MikeMC777/menu-orders/internal/order"
)

// Message is the broker payload for one order event.
type Message struct {
	EventID      string          `json:"event_id"`
	Kind         string          `json:"kind"`
	OrderID      string          `json:"order_id"`
	OrderNumber  string          `json:"order_number"`
	RestaurantID string          `json:"restaurant_id"`
	Status       string          `json:"status"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Order        order.Order     `json:"order"`
}

func NewMessage(e order.Event) Message {
	return Message{
		EventID:      e.Order.ID + ":" + e.At.Format(time.RFC3339Nano),
		Kind:         string(e.Kind),
		OrderID:      e.Order.ID,
		OrderNumber:  e.Order.OrderNumber,
		RestaurantID: e.Order.RestaurantID,
		Status:       string(e.Order.Status),
		TotalAmount:  e.Order.TotalAmount,
		OccurredAt:   e.At,
		Order:        e.Order,
	}
}

func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Sink publishes a message to an external system.
type Sink interface {
	Name() string
	Publish(ctx context.Context, m Message) error
	Close() error
}

var ErrQueueFull = errors.New("notify: queue full")

// Forwarder buffers bus events and publishes them from a single goroutine, so a
// slow broker never stalls the ledger. Overflow is dropped and logged.
type Forwarder struct {
	sink    Sink
	queue   chan Message
	timeout time.Duration
	log     *zap.Logger
}

func NewForwarder(sink Sink, buffer int, log *zap.Logger) *Forwarder {
	if buffer <= 0 {
		buffer = 256
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Forwarder{
		sink:    sink,
		queue:   make(chan Message, buffer),
		timeout: 10 * time.Second,
		log:     log.Named("notify").With(zap.String("sink", sink.Name())),
	}
}

// Handle matches order.Handler and never blocks.
func (f *Forwarder) Handle(e order.Event) {
	if err := f.Enqueue(NewMessage(e)); err != nil {
		f.log.Warn("dropping order event",
			zap.String("order_id", e.Order.ID),
			zap.String("kind", string(e.Kind)),
			zap.Error(err))
	}
}

func (f *Forwarder) Enqueue(m Message) error {
	select {
	case f.queue <- m:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run publishes queued messages until ctx is done, then drains what is left
// with a fresh deadline and closes the sink.
func (f *Forwarder) Run(ctx context.Context) error {
	for {
		select {
		case m := <-f.queue:
			f.publish(ctx, m)
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), f.timeout)
			defer cancel()
			for {
				select {
				case m := <-f.queue:
					f.publish(drainCtx, m)
				default:
					return f.sink.Close()
				}
			}
		}
	}
}

func (f *Forwarder) publish(ctx context.Context, m Message) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := f.sink.Publish(ctx, m); err != nil {
		f.log.Error("failed to publish order event",
			zap.String("order_id", m.OrderID),
			zap.String("kind", m.Kind),
			zap.Error(err))
		return
	}
	f.log.Debug("order event published",
		zap.String("order_id", m.OrderID),
		zap.String("kind", m.Kind))
}
