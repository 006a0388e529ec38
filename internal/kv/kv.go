// Package kv provides the durable key-value primitive the order store is built on.
// Implementations give no transactional guarantees across keys.
package kv

import (
	"context"
	"errors"
)

var ErrEmptyKey = errors.New("kv: empty key")

type Store interface {
	// Read returns ok=false when the key is absent.
	Read(ctx context.Context, key string) (value []byte, ok bool, err error)
	Write(ctx context.Context, key string, value []byte) error
}
