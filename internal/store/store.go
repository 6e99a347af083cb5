// File: internal/store/store.go

// Package store persists abandoned (position, direction) movement records
// across sessions. The navigation core treats persistence as best-effort:
// every backend keeps an authoritative in-memory set, and durable writes
// that fail are logged and dropped without affecting queries.
package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/mossriver/tilenav/api/schemas"
)

// Key identifies one abandoned movement: attempting Dir from (X, Y).
type Key struct {
	X   int
	Y   int
	Dir schemas.Direction
}

// KeyFor builds a Key from a position and direction.
func KeyFor(p schemas.Position, d schemas.Direction) Key {
	return Key{X: p.X, Y: p.Y, Dir: d}
}

// Position returns the key's position part.
func (k Key) Position() schemas.Position {
	return schemas.Position{X: k.X, Y: k.Y}
}

// Store is a keyed set of abandoned movements plus a lifetime total counter.
// Contains, All and Total are pure queries against the in-memory set; Add and
// Clear also mutate durable storage where the backend has any.
type Store interface {
	// Contains reports whether the key is marked abandoned.
	Contains(Key) bool
	// Add marks the key abandoned and increments the lifetime counter.
	// Durable persistence is queued and best-effort.
	Add(Key)
	// All returns every abandoned key, in unspecified order.
	All() []Key
	// Total returns the lifetime abandoned counter. Unlike the live set it
	// only ever grows, except through Clear, which resets it.
	Total() int
	// Clear removes every abandoned entry and resets the counter.
	Clear(ctx context.Context) error
	// Close flushes pending writes and releases backend resources.
	Close() error
}

// Open selects a backend for the given path: sqlite when the path is
// non-empty, otherwise a purely in-memory set. A sqlite backend that fails to
// open degrades to the in-memory set so a broken cache file never stops a
// session; the set simply starts empty.
func Open(ctx context.Context, path string, opts SQLiteOptions, logger *zap.Logger) Store {
	if path == "" {
		return NewMemory()
	}
	s, err := NewSQLite(ctx, path, opts, logger)
	if err != nil {
		logger.Warn("Failed to open abandoned-movement store; continuing without persistence",
			zap.String("path", path), zap.Error(err))
		return NewMemory()
	}
	return s
}
