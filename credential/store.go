package credential

import (
	"context"
	"errors"
)

// ErrNotFound is returned by [Store.Get] when no record is stored.
var ErrNotFound = errors.New("credential not found")

// ErrStoreUnavailable wraps backend failures.
var ErrStoreUnavailable = errors.New("credential store unavailable")

// ErrRecordCorrupt is returned when a stored blob cannot be decoded.
var ErrRecordCorrupt = errors.New("credential record corrupt")

// Store is durable get/set/remove of the credential pair. Remove is idempotent.
type Store interface {
	Get(ctx context.Context) (*Record, error)
	Set(ctx context.Context, rec Record) error
	Remove(ctx context.Context) error
}
