package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when no state has been persisted yet.
var ErrNotFound = errors.New("no persisted state")

// BlobStore persists the coordinator's state as a single opaque blob. One
// blob per coordinator instance, identified by key.
type BlobStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Close() error
}
