package port

import (
	"context"
	"errors"
)

// ErrSnapshotNotFound is returned by Load when the slot has never been written.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Store is a string-keyed slot for serialized cart snapshots. It is a
// convenience cache, not a source of truth: callers log and swallow its
// failures.
type Store interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
