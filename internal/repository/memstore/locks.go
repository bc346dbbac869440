package memstore

import (
	"context"
	"sync"
)

// keyedLocks is a mutex per key. Entries exist only while someone holds or
// waits for them.
type keyedLocks[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*lockEntry
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

func newKeyedLocks[K comparable]() *keyedLocks[K] {
	return &keyedLocks[K]{entries: make(map[K]*lockEntry)}
}

// acquire blocks until key is held by the caller or ctx is done. On success
// the returned release func must be called exactly once.
func (l *keyedLocks[K]) acquire(ctx context.Context, key K) (func(), error) {
	l.mu.Lock()
	ent, ok := l.entries[key]
	if !ok {
		ent = &lockEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = ent
	}
	ent.refs++
	l.mu.Unlock()

	select {
	case ent.sem <- struct{}{}:
		return func() {
			<-ent.sem
			l.unref(key, ent)
		}, nil
	case <-ctx.Done():
		l.unref(key, ent)
		return nil, ctx.Err()
	}
}

func (l *keyedLocks[K]) unref(key K, ent *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ent.refs--
	if ent.refs == 0 {
		delete(l.entries, key)
	}
}

// size returns the number of keys currently held or waited on.
func (l *keyedLocks[K]) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// holdOnce acquires key unless releases already holds it, and records the
// release func in releases.
func holdOnce[K comparable](ctx context.Context, mu *sync.Mutex, locks *keyedLocks[K], releases map[K]func(), key K) error {
	mu.Lock()
	_, held := releases[key]
	mu.Unlock()
	if held {
		return nil
	}

	release, err := locks.acquire(ctx, key)
	if err != nil {
		return err
	}
	mu.Lock()
	releases[key] = release
	mu.Unlock()
	return nil
}
