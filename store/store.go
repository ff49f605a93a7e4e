// Package store persists small pieces of client-local state, such as the
// identifier of the conversation the user last selected, in a flat
// key/value namespace.
package store

import "context"

// Store reads and writes entries. Implementations perform I/O on every call
// and hold no cache.
type Store interface {
	// List returns every key present, in lexical order.
	List(ctx context.Context) ([]string, error)
	// Load returns the entries for keys, failing with ErrKeyNotFound on the
	// first missing one.
	Load(ctx context.Context, keys ...string) ([]Entry, error)
	// Save creates or overwrites entries.
	Save(ctx context.Context, entries ...Entry) error
	// Delete removes entries. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}
