package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const Schema = `
CREATE TABLE IF NOT EXISTS orders (
    seq              BIGSERIAL PRIMARY KEY,
    id               TEXT NOT NULL UNIQUE,
    order_number     TEXT NOT NULL,
    restaurant_id    TEXT NOT NULL,
    customer_name    TEXT NOT NULL,
    customer_phone   TEXT NOT NULL,
    customer_email   TEXT NOT NULL DEFAULT '',
    items            JSONB NOT NULL,
    total_amount     NUMERIC NOT NULL CHECK (total_amount >= 0),
    status           TEXT NOT NULL,
    payment_method   TEXT NOT NULL,
    delivery_method  TEXT NOT NULL,
    table_number     TEXT NOT NULL DEFAULT '',
    delivery_address TEXT NOT NULL DEFAULT '',
    status_history   JSONB NOT NULL,
    notes            JSONB NOT NULL,
    created_at       TIMESTAMPTZ NOT NULL,
    updated_at       TIMESTAMPTZ NOT NULL,
    CONSTRAINT orders_number_key UNIQUE (restaurant_id, order_number)
);
CREATE INDEX IF NOT EXISTS orders_restaurant_idx ON orders (restaurant_id, seq);
`

const selectColumns = `
    id, order_number, restaurant_id, customer_name, customer_phone, customer_email,
    items::text, total_amount::text, status, payment_method, delivery_method,
    table_number, delivery_address, status_history::text, notes::text, created_at, updated_at`

// PGRepo stores one row per order. Updates lock the single row they touch,
// so concurrent writers on different orders never block or overwrite each other.
type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, Schema)
	return storageErr("migrate", err)
}

func (r *PGRepo) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *PGRepo) List(ctx context.Context, restaurantID string) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT `+selectColumns+`
    FROM orders WHERE restaurant_id = $1
    ORDER BY seq`, restaurantID)
	if err != nil {
		return nil, storageErr("list", err)
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, storageErr("list", err)
		}
		out = append(out, *o)
	}
	return out, storageErr("list", rows.Err())
}

func (r *PGRepo) Get(ctx context.Context, id string) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get", err)
	}
	return o, nil
}

func (r *PGRepo) Save(ctx context.Context, o *Order) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	items, history, notes, err := encodeCollections(o)
	if err != nil {
		return storageErr("encode", err)
	}
	_, err = r.db.Exec(ctx, `
    INSERT INTO orders (
        id, order_number, restaurant_id, customer_name, customer_phone, customer_email,
        items, total_amount, status, payment_method, delivery_method,
        table_number, delivery_address, status_history, notes, created_at, updated_at
    ) VALUES ($1,$2,$3,$4,$5,$6,$7::jsonb,$8::numeric,$9,$10,$11,$12,$13,$14::jsonb,$15::jsonb,$16,$17)
  `, o.ID, o.OrderNumber, o.RestaurantID, o.Customer.Name, o.Customer.Phone, o.Customer.Email,
		items, o.TotalAmount.String(), string(o.Status), string(o.PaymentMethod), string(o.DeliveryMethod),
		o.TableNumber, o.DeliveryAddress, history, notes, o.CreatedAt, o.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if pgErr.ConstraintName == "orders_number_key" {
			return fmt.Errorf("%w: %s", ErrNumberTaken, o.OrderNumber)
		}
		return fmt.Errorf("%w: %s", ErrAlreadyExists, o.ID)
	}
	return storageErr("insert", err)
}

func (r *PGRepo) Update(ctx context.Context, id string, mutate func(*Order) error) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, storageErr("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cur, err := scanOrder(tx.QueryRow(ctx, `SELECT `+selectColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("lock", err)
	}
	if err := mutate(cur); err != nil {
		return nil, err
	}

	// Only status, history, notes and updated_at are mutable.
	_, history, notes, err := encodeCollections(cur)
	if err != nil {
		return nil, storageErr("encode", err)
	}
	if _, err := tx.Exec(ctx, `
    UPDATE orders
    SET status = $2, status_history = $3::jsonb, notes = $4::jsonb, updated_at = $5
    WHERE id = $1
  `, id, string(cur.Status), history, notes, cur.UpdatedAt); err != nil {
		return nil, storageErr("update", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, storageErr("commit", err)
	}
	return cur, nil
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	return storageErr("delete", err)
}

func encodeCollections(o *Order) (items, history, notes string, err error) {
	b, err := json.Marshal(nonNil(o.Items))
	if err != nil {
		return "", "", "", err
	}
	h, err := json.Marshal(nonNil(o.History))
	if err != nil {
		return "", "", "", err
	}
	n, err := json.Marshal(nonNil(o.Notes))
	if err != nil {
		return "", "", "", err
	}
	return string(b), string(h), string(n), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o                      Order
		items, total           string
		history, notes         string
		status, payment, deliv string
	)
	if err := row.Scan(&o.ID, &o.OrderNumber, &o.RestaurantID, &o.Customer.Name, &o.Customer.Phone, &o.Customer.Email,
		&items, &total, &status, &payment, &deliv,
		&o.TableNumber, &o.DeliveryAddress, &history, &notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("total_amount: %w", err)
	}
	o.TotalAmount = amount
	o.Status = Status(status)
	o.PaymentMethod = PaymentMethod(payment)
	o.DeliveryMethod = DeliveryMethod(deliv)
	if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
		return nil, fmt.Errorf("items: %w", err)
	}
	if err := json.Unmarshal([]byte(history), &o.History); err != nil {
		return nil, fmt.Errorf("status_history: %w", err)
	}
	if err := json.Unmarshal([]byte(notes), &o.Notes); err != nil {
		return nil, fmt.Errorf("notes: %w", err)
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return &o, nil
}
