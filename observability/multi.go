package observability

import (
	"context"
	"slices"
)

// MultiObserver forwards each event to every member in order. Members share
// the Event value, so Data must be treated as read-only.
type MultiObserver []Observer

// NewMultiObserver combines the non-nil observers.
func NewMultiObserver(observers ...Observer) MultiObserver {
	return slices.DeleteFunc(slices.Clone(observers), func(o Observer) bool {
		return o == nil
	})
}

func (m MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, o := range m {
		o.OnEvent(ctx, event)
	}
}
