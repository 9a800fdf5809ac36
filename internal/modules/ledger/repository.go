package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Common errors returned by ledger stores.
var (
	// ErrStorageUnavailable marks a transient fault. The batch was not
	// written; the caller may retry the whole append.
	ErrStorageUnavailable = errors.New("ledger storage unavailable")

	// ErrDuplicateID means an entry id was submitted twice. This is a
	// client error, not a fault, and is never retried.
	ErrDuplicateID = errors.New("duplicate ledger entry id")
)

// Store is an append-only log of stock changes. There are no update or
// delete operations.
type Store interface {
	// Append writes all entries as a single atomic unit, or none of them.
	Append(ctx context.Context, entries []Entry) error

	// EntriesFor returns the entries for one (store, product) position in
	// seq order. The cursor is lazy; calling EntriesFor again restarts
	// from the beginning.
	EntriesFor(ctx context.Context, storeID, productID uuid.UUID) (Cursor, error)
}

// Cursor iterates ledger entries, sql.Rows style.
type Cursor interface {
	Next() bool
	Entry() *Entry
	Err() error
	Close() error
}

// OnHand folds every entry for the position into the current on-hand
// quantity. Both the projector and the reservation manager use this fold so
// the two never disagree about what the ledger says.
func OnHand(ctx context.Context, s Store, storeID, productID uuid.UUID) (int64, error) {
	cur, err := s.EntriesFor(ctx, storeID, productID)
	if err != nil {
		return 0, err
	}
	defer cur.Close()
	var total int64
	for cur.Next() {
		total += cur.Entry().Delta
	}
	if err := cur.Err(); err != nil {
		return 0, err
	}
	return total, nil
}
