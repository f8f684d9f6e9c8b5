package kb

import (
	"fmt"
	"slices"
	"sync"
)

// EventType indicates what kind of change happened in the registry.
type EventType int

const (
	EventSpotAdded EventType = iota
	EventSpotsCleared
)

func (t EventType) String() string {
	switch t {
	case EventSpotAdded:
		return "spot_added"
	case EventSpotsCleared:
		return "spots_cleared"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is emitted to subscribers when the registry changes. ID is set for
// EventSpotAdded; Count is the number of entries after the change.
type Event struct {
	Type  EventType
	ID    string
	Count int
}

// Registry is an in-memory, thread-safe store that keeps entries in
// insertion order.
type Registry[T any] struct {
	mu sync.RWMutex

	order []string
	items map[string]T

	nextSub int
	subs    map[int]func(Event)
}

// NewRegistry constructs an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		items: make(map[string]T),
		subs:  make(map[int]func(Event)),
	}
}

// Add stores v under id. It returns an error if the ID already exists.
func (r *Registry[T]) Add(id string, v T) error {
	r.mu.Lock()
	if _, exists := r.items[id]; exists {
		r.mu.Unlock()
		return fmt.Errorf("entry with ID %q already exists", id)
	}
	r.items[id] = v
	r.order = append(r.order, id)
	event := Event{Type: EventSpotAdded, ID: id, Count: len(r.order)}
	subs := r.snapshotSubs()
	r.mu.Unlock()

	notify(subs, event)
	return nil
}

// List returns a snapshot of all entries in insertion order.
func (r *Registry[T]) List() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]T, 0, len(r.order))
	for _, id := range r.order {
		res = append(res, r.items[id])
	}
	return res
}

// Len returns the number of entries.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Clear removes every entry and notifies subscribers.
func (r *Registry[T]) Clear() {
	r.mu.Lock()
	r.order = nil
	r.items = make(map[string]T)
	subs := r.snapshotSubs()
	r.mu.Unlock()

	notify(subs, Event{Type: EventSpotsCleared})
}

// Subscribe registers a callback for registry events. Callbacks run on the
// goroutine that made the change, outside the lock. It returns an
// unsubscribe function.
func (r *Registry[T]) Subscribe(fn func(Event)) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

// snapshotSubs must be called with r.mu held.
func (r *Registry[T]) snapshotSubs() []func(Event) {
	ids := make([]int, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	// Deliver in subscription order.
	slices.Sort(ids)
	out := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		out = append(out, r.subs[id])
	}
	return out
}

func notify(subs []func(Event), event Event) {
	for _, sub := range subs {
		sub(event)
	}
}
