// Package blobs stores uploaded covers and book files. Names are
// write-once: a Put never overwrites an existing object.
package blobs

import (
	"context"
	"io"
	"time"
)

// Store persists binary assets under opaque references.
type Store interface {
	// Put stores r under a reference derived from name and returns it.
	Put(ctx context.Context, name string, r io.Reader) (string, error)
	// Open returns common.ErrNotFound for unknown references.
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
}

// Presigner is implemented by stores that can hand out time-limited
// direct download URLs.
type Presigner interface {
	PresignGet(ctx context.Context, ref string, ttl time.Duration) (string, error)
}
