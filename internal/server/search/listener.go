package search

import (
	"context"

	"github.com/openpaas/groupd/internal/logging"
	"github.com/openpaas/groupd/internal/server/events"
)

const subscriberBuffer = 64

// Listener consumes group lifecycle events and applies them to the index:
// created and updated upsert the denormalized document, deleted removes it.
type Listener struct {
	index  Index
	events <-chan events.Event
}

func NewListener(index Index, dispatcher *events.Dispatcher) *Listener {
	return &Listener{
		index:  index,
		events: dispatcher.Subscribe(subscriberBuffer),
	}
}

// Run applies events until the dispatcher closes or ctx is cancelled. Index
// failures are logged and skipped; a consumer can always rebuild from the
// store.
func (l *Listener) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-l.events:
			if !ok {
				return nil
			}
			if err := l.apply(ctx, event); err != nil {
				logging.Errorf("search index %s for group %s: %v", event.Type, event.GroupID, err)
			}
		}
	}
}

func (l *Listener) apply(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.TypeDeleted:
		return l.index.Delete(ctx, event.GroupID)
	default:
		return l.index.Upsert(ctx, Document{
			ID:    event.GroupID,
			Name:  event.Name,
			Email: event.Email,
		})
	}
}
