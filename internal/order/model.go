package order

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Persisted amounts are JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentOnline PaymentMethod = "online"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentOnline:
		return true
	}
	return false
}

type DeliveryMethod string

const (
	DeliveryDineIn  DeliveryMethod = "dine_in"
	DeliveryPickup  DeliveryMethod = "pickup"
	DeliveryAddress DeliveryMethod = "delivery"
)

func (d DeliveryMethod) Valid() bool {
	switch d {
	case DeliveryDineIn, DeliveryPickup, DeliveryAddress:
		return true
	}
	return false
}

// Customer is a snapshot taken at order time.
type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

type Item struct {
	MenuItemID string          `json:"menu_item_id,omitempty"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
}

func (it Item) Subtotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

type StatusChange struct {
	Status Status    `json:"status"`
	At     time.Time `json:"at"`
	Note   string    `json:"note,omitempty"`
}

type Note struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

type Order struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"order_number"`
	RestaurantID    string          `json:"restaurant_id"`
	Customer        Customer        `json:"customer"`
	Items           []Item          `json:"items"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          Status          `json:"status"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	DeliveryMethod  DeliveryMethod  `json:"delivery_method"`
	TableNumber     string          `json:"table_number,omitempty"`
	DeliveryAddress string          `json:"delivery_address,omitempty"`
	History         []StatusChange  `json:"status_history"`
	Notes           []Note          `json:"notes"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Clone returns a copy that shares no slices with o.
func (o Order) Clone() Order {
	cp := o
	cp.Items = cloneSlice(o.Items)
	cp.History = cloneSlice(o.History)
	cp.Notes = cloneSlice(o.Notes)
	return cp
}

// cloneSlice copies s, keeping nil and empty distinct so JSON shows [] for empty.
func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
