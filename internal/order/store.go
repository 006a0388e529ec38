package order

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/MikeMC777/menu-orders/internal/kv"
)

// Store is the persistence primitive behind the Ledger.
type Store interface {
	// List returns the restaurant's orders in insertion order.
	List(ctx context.Context, restaurantID string) ([]Order, error)
	Get(ctx context.Context, id string) (*Order, error)
	// Save is create-only: ErrAlreadyExists when the id is taken,
	// ErrNumberTaken when the restaurant already has the order number.
	Save(ctx context.Context, o *Order) error
	// Update applies mutate to the stored order and persists the result.
	// An error from mutate aborts the update and is returned as is.
	Update(ctx context.Context, id string, mutate func(*Order) error) (*Order, error)
	// Delete is idempotent: deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}

// KVStore keeps every order in one JSON array under a single key and rewrites the whole
// collection on each mutation. The mutex serializes writers inside this process only;
// several processes sharing the same key can still lose updates (use PGRepo there).
type KVStore struct {
	kv  kv.Store
	key string
	mu  sync.Mutex
}

func NewKVStore(store kv.Store, key string) *KVStore {
	if key == "" {
		key = "orders"
	}
	return &KVStore{kv: store, key: key}
}

func (s *KVStore) load(ctx context.Context) ([]Order, error) {
	data, ok, err := s.kv.Read(ctx, s.key)
	if err != nil {
		return nil, storageErr("read", err)
	}
	if !ok || len(data) == 0 {
		return nil, nil
	}
	var orders []Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, storageErr("decode", err)
	}
	return orders, nil
}

func (s *KVStore) flush(ctx context.Context, orders []Order) error {
	if orders == nil {
		orders = []Order{}
	}
	data, err := json.Marshal(orders)
	if err != nil {
		return storageErr("encode", err)
	}
	return storageErr("write", s.kv.Write(ctx, s.key, data))
}

func (s *KVStore) List(ctx context.Context, restaurantID string) ([]Order, error) {
	orders, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if o.RestaurantID == restaurantID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *KVStore) Get(ctx context.Context, id string) (*Order, error) {
	orders, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].ID == id {
			return &orders[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *KVStore) Save(ctx context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.load(ctx)
	if err != nil {
		return err
	}
	for _, cur := range orders {
		if cur.ID == o.ID {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, o.ID)
		}
		if o.OrderNumber != "" && cur.RestaurantID == o.RestaurantID && cur.OrderNumber == o.OrderNumber {
			return fmt.Errorf("%w: %s", ErrNumberTaken, o.OrderNumber)
		}
	}
	return s.flush(ctx, append(orders, o.Clone()))
}

func (s *KVStore) Update(ctx context.Context, id string, mutate func(*Order) error) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].ID != id {
			continue
		}
		next := orders[i].Clone()
		if err := mutate(&next); err != nil {
			return nil, err
		}
		orders[i] = next
		if err := s.flush(ctx, orders); err != nil {
			return nil, err
		}
		out := next.Clone()
		return &out, nil
	}
	return nil, ErrNotFound
}

func (s *KVStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.load(ctx)
	if err != nil {
		return err
	}
	kept := orders[:0]
	for _, o := range orders {
		if o.ID != id {
			kept = append(kept, o)
		}
	}
	if len(kept) == len(orders) {
		return nil
	}
	return s.flush(ctx, kept)
}
