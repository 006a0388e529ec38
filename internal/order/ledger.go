package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger is the only way orders are created or mutated. It enforces the status
// machine, keeps timestamps monotonic and publishes a Bus event after every write.
type Ledger struct {
	store       Store
	bus         *Bus
	restaurants RestaurantDirectory
	policy      StatsPolicy
	log         *zap.Logger
	now         func() time.Time
	seq         atomic.Uint64
}

type Option func(*Ledger)

func WithLogger(log *zap.Logger) Option {
	return func(l *Ledger) { l.log = log.Named("ledger") }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithRestaurantDirectory makes CreateOrder reject unknown restaurants.
func WithRestaurantDirectory(d RestaurantDirectory) Option {
	return func(l *Ledger) { l.restaurants = d }
}

func WithStatsPolicy(p StatsPolicy) Option {
	return func(l *Ledger) { l.policy = p }
}

func NewLedger(store Store, bus *Bus, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		bus:    bus,
		log:    zap.NewNop(),
		policy: StatsPolicy{TopItems: DefaultTopItems},
		now: func() time.Time {
			// Postgres keeps microseconds; truncating keeps round trips exact.
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.bus == nil {
		l.bus = NewBus(l.log)
	}
	return l
}

func (l *Ledger) Bus() *Bus { return l.bus }

func (l *Ledger) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	req.RestaurantID = strings.TrimSpace(req.RestaurantID)
	if err := validateCreate(&req); err != nil {
		l.log.Warn("create rejected", zap.String("restaurant_id", req.RestaurantID), zap.Error(err))
		return nil, err
	}
	if l.restaurants != nil {
		ok, err := l.restaurants.RestaurantExists(ctx, req.RestaurantID)
		if err != nil {
			return nil, fmt.Errorf("check restaurant %s: %w", req.RestaurantID, err)
		}
		if !ok {
			return nil, invalid("restaurant_id", "unknown restaurant "+req.RestaurantID)
		}
	}

	total := decimal.Zero
	items := make([]Item, len(req.Items))
	for i, it := range req.Items {
		it.Name = strings.TrimSpace(it.Name)
		items[i] = it
		total = total.Add(it.Subtotal())
	}

	now := l.now()
	id := uuid.NewString()
	o := &Order{
		ID:              id,
		OrderNumber:     l.orderNumber(now, id),
		RestaurantID:    req.RestaurantID,
		Customer:        req.Customer,
		Items:           items,
		TotalAmount:     total,
		Status:          StatusPending,
		PaymentMethod:   req.PaymentMethod,
		DeliveryMethod:  req.DeliveryMethod,
		TableNumber:     req.TableNumber,
		DeliveryAddress: req.DeliveryAddress,
		History:         []StatusChange{{Status: StatusPending, At: now}},
		Notes:           []Note{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var err error
	for attempt := 1; ; attempt++ {
		err = l.store.Save(ctx, o)
		if !errors.Is(err, ErrNumberTaken) || attempt == numberAttempts {
			break
		}
		l.log.Warn("order number taken, renumbering",
			zap.String("order_id", o.ID), zap.String("order_number", o.OrderNumber))
		o.OrderNumber = l.orderNumber(now, id)
	}
	if err != nil {
		l.log.Error("failed to save order", zap.String("order_id", o.ID), zap.Error(err))
		return nil, err
	}
	l.log.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.String("restaurant_id", o.RestaurantID),
		zap.String("total_amount", o.TotalAmount.String()))

	l.bus.Publish(Event{Kind: EventOrderCreated, Order: *o, At: now})
	out := o.Clone()
	return &out, nil
}

// numberAttempts bounds how often CreateOrder renumbers after a clash.
const numberAttempts = 3

// orderNumber combines the day, a per-process sequence and a slice of the id,
// so numbers never repeat within one process and rarely across restarts.
func (l *Ledger) orderNumber(now time.Time, id string) string {
	n := l.seq.Add(1)
	return fmt.Sprintf("ORD-%s-%04d-%s", now.Format("20060102"), n, strings.ToUpper(id[:4]))
}

func validateCreate(req *CreateOrderRequest) error {
	if req.RestaurantID == "" {
		return invalid("restaurant_id", "is required")
	}
	req.Customer.Name = strings.TrimSpace(req.Customer.Name)
	req.Customer.Phone = strings.TrimSpace(req.Customer.Phone)
	req.Customer.Email = strings.TrimSpace(req.Customer.Email)
	if req.Customer.Name == "" {
		return invalid("customer.name", "is required")
	}
	if req.Customer.Phone == "" {
		return invalid("customer.phone", "is required")
	}
	if len(req.Items) == 0 {
		return invalid("items", "order must have at least one item")
	}
	for i, it := range req.Items {
		if strings.TrimSpace(it.Name) == "" {
			return invalid(fmt.Sprintf("items[%d].name", i), "is required")
		}
		if it.Quantity < 1 {
			return invalid(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		}
		if it.Price.IsNegative() {
			return invalid(fmt.Sprintf("items[%d].price", i), "must not be negative")
		}
	}
	if !req.PaymentMethod.Valid() {
		return invalid("payment_method", fmt.Sprintf("unknown method %q", req.PaymentMethod))
	}

	req.TableNumber = strings.TrimSpace(req.TableNumber)
	req.DeliveryAddress = strings.TrimSpace(req.DeliveryAddress)
	switch req.DeliveryMethod {
	case DeliveryDineIn:
		req.DeliveryAddress = ""
		if req.TableNumber == "" {
			return invalid("table_number", "is required for dine_in orders")
		}
	case DeliveryAddress:
		req.TableNumber = ""
		if req.DeliveryAddress == "" {
			return invalid("delivery_address", "is required for delivery orders")
		}
	case DeliveryPickup:
		req.TableNumber = ""
		req.DeliveryAddress = ""
	default:
		return invalid("delivery_method", fmt.Sprintf("unknown method %q", req.DeliveryMethod))
	}
	return nil
}

// ListOrders never fails: an unreadable store yields an empty list.
func (l *Ledger) ListOrders(ctx context.Context, restaurantID string) []Order {
	orders, err := l.store.List(ctx, restaurantID)
	if err != nil {
		l.log.Warn("order store unreadable, returning empty list",
			zap.String("restaurant_id", restaurantID), zap.Error(err))
		return []Order{}
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders
}

func (l *Ledger) GetOrder(ctx context.Context, id string) (*Order, error) {
	return l.store.Get(ctx, id)
}

// stamp returns a timestamp no earlier than o.UpdatedAt.
func (l *Ledger) stamp(o *Order) time.Time {
	ts := l.now()
	if ts.Before(o.UpdatedAt) {
		ts = o.UpdatedAt
	}
	return ts
}

func (l *Ledger) UpdateStatus(ctx context.Context, id string, next Status, note string) (*Order, error) {
	if next == "" {
		return nil, invalid("status", "is required")
	}
	note = strings.TrimSpace(note)

	// Unknown targets have no edge in the table and fail like any other illegal move.
	o, err := l.store.Update(ctx, id, func(o *Order) error {
		if !o.Status.CanTransitionTo(next) {
			return &InvalidTransitionError{From: o.Status, To: next}
		}
		ts := l.stamp(o)
		o.Status = next
		o.History = append(o.History, StatusChange{Status: next, At: ts, Note: note})
		o.UpdatedAt = ts
		return nil
	})
	if err != nil {
		var te *InvalidTransitionError
		if errors.As(err, &te) {
			l.log.Warn("transition rejected", zap.String("order_id", id),
				zap.String("from", string(te.From)), zap.String("to", string(te.To)))
		}
		return nil, err
	}

	l.log.Info("order status updated", zap.String("order_id", id), zap.String("status", string(next)))
	l.bus.Publish(Event{Kind: EventOrderUpdated, Order: *o, At: o.UpdatedAt})
	return o, nil
}

func (l *Ledger) CancelOrder(ctx context.Context, id, reason string) (*Order, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, invalid("reason", "a cancellation reason is required")
	}
	return l.UpdateStatus(ctx, id, StatusCancelled, reason)
}

// AddNote is allowed in every status, terminal ones included.
func (l *Ledger) AddNote(ctx context.Context, id, note string) (*Order, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, invalid("note", "must not be empty")
	}
	o, err := l.store.Update(ctx, id, func(o *Order) error {
		ts := l.stamp(o)
		o.Notes = append(o.Notes, Note{Text: note, At: ts})
		o.UpdatedAt = ts
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.log.Info("order note added", zap.String("order_id", id))
	l.bus.Publish(Event{Kind: EventOrderUpdated, Order: *o, At: o.UpdatedAt})
	return o, nil
}

// DeleteOrder permanently removes the record. Unknown ids are a no-op.
func (l *Ledger) DeleteOrder(ctx context.Context, id string) error {
	if err := l.store.Delete(ctx, id); err != nil {
		l.log.Error("failed to delete order", zap.String("order_id", id), zap.Error(err))
		return err
	}
	l.log.Info("order deleted", zap.String("order_id", id))
	return nil
}

func (l *Ledger) Statistics(ctx context.Context, restaurantID string) Statistics {
	return Aggregate(l.ListOrders(ctx, restaurantID), l.policy)
}
