package metadata

import (
	"context"
)

// Key names one stored value. Keys are grouped by a dotted namespace.
type Key string

const (
	KeyUsername  Key = "auth.username"
	KeyTokens    Key = "auth.tokens"
	KeySelection Key = "filter.selection"
)

// AuthNamespace prefixes everything that belongs to the signed-in user.
const AuthNamespace = "auth."

// Repository is a small durable key/value store. The client keeps its
// bearer tokens and the last applied location filter here.
type Repository interface {
	// Get returns common.ErrorNotFound for a missing key.
	Get(ctx context.Context, key Key) ([]byte, error)
	Put(ctx context.Context, key Key, value []byte) error
	// Delete is a no-op for a missing key.
	Delete(ctx context.Context, key Key) error
	// DeleteNamespace removes every key starting with prefix and reports
	// how many went.
	DeleteNamespace(ctx context.Context, prefix string) (int64, error)
}
