package store

import (
	"context"
	"errors"
	"strings"
)

// SelectionKey is where the active conversation id is kept.
const SelectionKey = NamespaceSelection + "/active"

// Selection remembers which conversation the user has open, so a restarted
// client reconnects to it.
type Selection struct {
	store Store
}

// NewSelection creates a Selection on top of s.
func NewSelection(s Store) *Selection {
	return &Selection{store: s}
}

// Get returns the active conversation id, or "" when none is selected.
func (s *Selection) Get(ctx context.Context) (string, error) {
	entries, err := s.store.Load(ctx, SelectionKey)
	if errors.Is(err, ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(entries[0].Value)), nil
}

// Set records id as active. An empty id clears the selection.
func (s *Selection) Set(ctx context.Context, id string) error {
	if id == "" {
		return s.Clear(ctx)
	}
	return s.store.Save(ctx, Entry{Key: SelectionKey, Value: []byte(id)})
}

// Clear forgets the active conversation.
func (s *Selection) Clear(ctx context.Context) error {
	return s.store.Delete(ctx, SelectionKey)
}
