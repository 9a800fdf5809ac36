package keylock

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Key identifies a single inventory position: one product at one store.
// All stock-affecting operations on a key are serialized through its lock.
type Key struct {
	StoreID   uuid.UUID
	ProductID uuid.UUID
}

func (k Key) String() string {
	return k.StoreID.String() + "/" + k.ProductID.String()
}

// Less orders keys by (store id, product id). Multi-key acquisition always
// walks keys in this order so overlapping transactions cannot deadlock.
func (k Key) Less(o Key) bool {
	if c := bytes.Compare(k.StoreID[:], o.StoreID[:]); c != 0 {
		return c < 0
	}
	return bytes.Compare(k.ProductID[:], o.ProductID[:]) < 0
}

// Map hands out one lock per key, created lazily on first use.
// Locks are channel-based so acquisition can give up when the caller's
// context expires instead of blocking forever.
type Map struct {
	mu    sync.Mutex
	locks map[Key]chan struct{}
}

func NewMap() *Map {
	return &Map{locks: make(map[Key]chan struct{})}
}

func (m *Map) lock(k Key) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.locks[k]
	if !ok {
		ch = make(chan struct{}, 1)
		m.locks[k] = ch
	}
	return ch
}

// Acquire blocks until the key's lock is held or ctx is done. On success it
// returns the release function; the caller must invoke it exactly once.
func (m *Map) Acquire(ctx context.Context, k Key) (func(), error) {
	ch := m.lock(k)
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// AcquireMany acquires the locks for every distinct key in keys, in sorted
// order. On failure any locks already held are released before returning.
func (m *Map) AcquireMany(ctx context.Context, keys []Key) (func(), error) {
	sorted := make([]Key, 0, len(keys))
	seen := make(map[Key]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		sorted = append(sorted, k)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	held := make([]func(), 0, len(sorted))
	releaseAll := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}
	for _, k := range sorted {
		release, err := m.Acquire(ctx, k)
		if err != nil {
			releaseAll()
			return nil, err
		}
		held = append(held, release)
	}
	return releaseAll, nil
}
