// Package events carries group lifecycle notifications from the mutation
// path to in-process consumers such as the search index listener.
package events

import (
	"sync"

	"github.com/openpaas/groupd/internal/logging"
	"github.com/openpaas/groupd/uid"
)

type Type string

const (
	TypeCreated Type = "created"
	TypeUpdated Type = "updated"
	TypeDeleted Type = "deleted"
)

// Event is keyed by group id. Name and Email are denormalized so consumers
// never have to read the store.
type Event struct {
	Type    Type
	GroupID uid.ID
	Name    string
	Email   string
}

// Dispatcher fans events out to subscribers. Publishing never blocks the
// request path: a subscriber that cannot keep up loses events, which is
// acceptable because consumers can reindex from the store.
type Dispatcher struct {
	mu     sync.Mutex
	subs   []chan Event
	closed bool
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

func (d *Dispatcher) Subscribe(buffer int) <-chan Event {
	d.mu.Lock()
	defer d.mu.Unlock()

	ch := make(chan Event, buffer)
	d.subs = append(d.subs, ch)
	return ch
}

func (d *Dispatcher) Publish(e Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	for _, ch := range d.subs {
		select {
		case ch <- e:
		default:
			logging.Warnf("dropping %s event for group %s: subscriber is behind", e.Type, e.GroupID)
		}
	}
}

// Close stops delivery and closes all subscriber channels.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	for _, ch := range d.subs {
		close(ch)
	}
}
