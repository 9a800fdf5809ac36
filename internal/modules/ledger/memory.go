package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jmwansa/storecore-backend/internal/keylock"
)

// MemoryStore keeps the ledger in process memory. It is the backing store
// for tests and single-node deployments without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[keylock.Key][]Entry
	ids     map[uuid.UUID]struct{}

	// failAppends makes the next N appends fail with ErrStorageUnavailable,
	// simulating a storage fault. Test hook.
	failAppends int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[keylock.Key][]Entry),
		ids:     make(map[uuid.UUID]struct{}),
	}
}

// FailAppends makes the next n Append calls fail before writing anything.
func (s *MemoryStore) FailAppends(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAppends = n
}

func (s *MemoryStore) Append(ctx context.Context, entries []Entry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failAppends > 0 {
		s.failAppends--
		return fmt.Errorf("%w: injected fault", ErrStorageUnavailable)
	}

	// Validate the whole batch before touching state so a bad entry cannot
	// leave a partial write behind.
	batchIDs := make(map[uuid.UUID]struct{}, len(entries))
	for _, e := range entries {
		if !e.Reason.Valid() {
			return fmt.Errorf("invalid reason %q on entry %s", e.Reason, e.ID)
		}
		if _, ok := s.ids[e.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
		}
		if _, ok := batchIDs[e.ID]; ok {
			return fmt.Errorf("%w: %s repeated within batch", ErrDuplicateID, e.ID)
		}
		batchIDs[e.ID] = struct{}{}
	}

	now := time.Now().UTC()
	for _, e := range entries {
		key := keylock.Key{StoreID: e.StoreID, ProductID: e.ProductID}
		e.Seq = uint64(len(s.entries[key]) + 1)
		if e.RecordedAt.IsZero() {
			e.RecordedAt = now
		}
		s.entries[key] = append(s.entries[key], e)
		s.ids[e.ID] = struct{}{}
	}
	return nil
}

func (s *MemoryStore) EntriesFor(ctx context.Context, storeID, productID uuid.UUID) (Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := keylock.Key{StoreID: storeID, ProductID: productID}
	snapshot := make([]Entry, len(s.entries[key]))
	copy(snapshot, s.entries[key])
	return &sliceCursor{entries: snapshot, pos: -1}, nil
}

type sliceCursor struct {
	entries []Entry
	pos     int
}

func (c *sliceCursor) Next() bool {
	c.pos++
	return c.pos < len(c.entries)
}

func (c *sliceCursor) Entry() *Entry { return &c.entries[c.pos] }
func (c *sliceCursor) Err() error    { return nil }
func (c *sliceCursor) Close() error  { return nil }
