package stream

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Kind distinguishes the two frame types spec.md §4.L7 names: text log
// lines and JSON stats samples.
type Kind string

const (
	KindLogs  Kind = "logs"
	KindStats Kind = "stats"
)

type entryKey struct {
	containerID uuid.UUID
	kind        Kind
}

type entry[T any] struct {
	broadcaster *Broadcaster[T]
	cancel      context.CancelFunc
	refs        int
}

// Registry owns one broadcaster per (container, kind), created on first
// subscribe and torn down on last unsubscribe, per spec.md §9.
type Registry[T any] struct {
	mu      sync.Mutex
	entries map[entryKey]*entry[T]
	// Start is called the first time a container/kind pair gains a
	// subscriber; it should run the producer loop (e.g. engine stats or
	// logs streaming) until ctx is cancelled, publishing frames to pub.
	Start func(ctx context.Context, containerID uuid.UUID, kind Kind, pub func(T))
}

// NewRegistry constructs a Registry whose producer loops are started by
// start.
func NewRegistry[T any](start func(ctx context.Context, containerID uuid.UUID, kind Kind, pub func(T))) *Registry[T] {
	return &Registry[T]{entries: map[entryKey]*entry[T]{}, Start: start}
}

// Subscribe attaches a new receiver for (containerID, kind), starting the
// producer loop if this is the first subscriber, and returns an
// unsubscribe function that tears the producer down once the last
// subscriber leaves.
func (r *Registry[T]) Subscribe(containerID uuid.UUID, kind Kind) (<-chan T, func()) {
	key := entryKey{containerID: containerID, kind: kind}

	r.mu.Lock()
	e, exists := r.entries[key]
	if !exists {
		ctx, cancel := context.WithCancel(context.Background())
		e = &entry[T]{broadcaster: NewBroadcaster[T](), cancel: cancel}
		r.entries[key] = e
		go r.Start(ctx, containerID, kind, e.broadcaster.Publish)
	}
	e.refs++
	r.mu.Unlock()

	ch, unsub := e.broadcaster.Subscribe()

	return ch, func() {
		unsub()
		r.mu.Lock()
		defer r.mu.Unlock()
		e.refs--
		if e.refs <= 0 {
			e.cancel()
			e.broadcaster.Close()
			delete(r.entries, key)
		}
	}
}
