package stock

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jmwansa/storecore-backend/internal/keylock"
	"github.com/jmwansa/storecore-backend/internal/modules/ledger"
)

type fakeReserved struct{ qty int64 }

func (f *fakeReserved) ActiveReserved(storeID, productID uuid.UUID) int64 { return f.qty }

func seed(t *testing.T, s ledger.Store, storeID, productID uuid.UUID, deltas ...int64) {
	t.Helper()
	var entries []ledger.Entry
	for _, d := range deltas {
		reason := ledger.ReasonRestock
		if d < 0 {
			reason = ledger.ReasonSale
		}
		entries = append(entries, ledger.Entry{
			ID:            uuid.New(),
			StoreID:       storeID,
			ProductID:     productID,
			Delta:         d,
			Reason:        reason,
			TransactionID: uuid.New(),
		})
	}
	require.NoError(t, s.Append(context.Background(), entries))
}

func TestSnapshotFoldsLedgerAndReservations(t *testing.T) {
	store := ledger.NewMemoryStore()
	reserved := &fakeReserved{qty: 3}
	p := NewProjector(store, reserved, keylock.NewMap())
	storeID, productID := uuid.New(), uuid.New()
	seed(t, store, storeID, productID, 10, -2)

	snap, err := p.Snapshot(context.Background(), storeID, productID)
	require.NoError(t, err)
	require.Equal(t, int64(8), snap.OnHand)
	require.Equal(t, int64(3), snap.Reserved)
	require.Equal(t, int64(5), snap.Sellable)
}

func TestSnapshotEmptyPosition(t *testing.T) {
	p := NewProjector(ledger.NewMemoryStore(), &fakeReserved{}, keylock.NewMap())

	snap, err := p.Snapshot(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	require.Zero(t, snap.OnHand)
	require.Zero(t, snap.Reserved)
	require.Zero(t, snap.Sellable)
}

func TestCacheInvalidation(t *testing.T) {
	store := ledger.NewMemoryStore()
	p := NewProjector(store, &fakeReserved{}, keylock.NewMap())
	storeID, productID := uuid.New(), uuid.New()
	key := keylock.Key{StoreID: storeID, ProductID: productID}
	seed(t, store, storeID, productID, 10)

	snap, err := p.Snapshot(context.Background(), storeID, productID)
	require.NoError(t, err)
	require.Equal(t, int64(10), snap.OnHand)

	// Without invalidation the cached on-hand is served.
	seed(t, store, storeID, productID, 5)
	snap, err = p.Snapshot(context.Background(), storeID, productID)
	require.NoError(t, err)
	require.Equal(t, int64(10), snap.OnHand)

	p.Invalidate(key)
	snap, err = p.Snapshot(context.Background(), storeID, productID)
	require.NoError(t, err)
	require.Equal(t, int64(15), snap.OnHand)
}

func TestSnapshotBlockedWhileKeyLocked(t *testing.T) {
	store := ledger.NewMemoryStore()
	locks := keylock.NewMap()
	p := NewProjector(store, &fakeReserved{}, locks)
	storeID, productID := uuid.New(), uuid.New()

	release, err := locks.Acquire(context.Background(), keylock.Key{StoreID: storeID, ProductID: productID})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Snapshot(ctx, storeID, productID)
	require.Error(t, err)

	release()
	_, err = p.Snapshot(context.Background(), storeID, productID)
	require.NoError(t, err)
}
