package txn

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jmwansa/storecore-backend/internal/keylock"
	"github.com/jmwansa/storecore-backend/internal/modules/ledger"
	"github.com/jmwansa/storecore-backend/internal/modules/reservation"
	"github.com/jmwansa/storecore-backend/internal/modules/stock"
)

type fixture struct {
	store       *ledger.MemoryStore
	holds       *reservation.Manager
	projector   *stock.Projector
	coordinator *Coordinator
	locks       *keylock.Map
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithConfig(t, Config{
		HoldTTL:       time.Minute,
		LockTimeout:   2 * time.Second,
		AppendTimeout: 2 * time.Second,
	})
}

func newFixtureWithConfig(t *testing.T, cfg Config) *fixture {
	t.Helper()
	store := ledger.NewMemoryStore()
	locks := keylock.NewMap()
	holds := reservation.NewManager(store, locks)
	projector := stock.NewProjector(store, holds, locks)
	coordinator := NewCoordinator(store, holds, projector, NewMemoryRepository(), locks, cfg)
	return &fixture{store: store, holds: holds, projector: projector, coordinator: coordinator, locks: locks}
}

func (f *fixture) restock(t *testing.T, storeID, productID uuid.UUID, qty int64) {
	t.Helper()
	tx, err := f.coordinator.Submit(context.Background(), SubmitRequest{
		Lines: []LineRequest{{
			StoreID:   storeID.String(),
			ProductID: productID.String(),
			Quantity:  qty,
			Reason:    string(ledger.ReasonRestock),
		}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusCommitted, tx.Status)
}

func (f *fixture) snapshot(t *testing.T, storeID, productID uuid.UUID) *stock.Snapshot {
	t.Helper()
	snap, err := f.projector.Snapshot(context.Background(), storeID, productID)
	require.NoError(t, err)
	return snap
}

func TestSubmitSaleCommits(t *testing.T) {
	f := newFixture(t)
	storeID, productID := uuid.New(), uuid.New()
	f.restock(t, storeID, productID, 10)

	tx, err := f.coordinator.Submit(context.Background(), SubmitRequest{
		Lines: []LineRequest{{
			StoreID:   storeID.String(),
			ProductID: productID.String(),
			Quantity:  7,
			Reason:    string(ledger.ReasonSale),
		}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusCommitted, tx.Status)
	require.Len(t, tx.ReservationIDs, 1)

	// The hold was committed, not left active: on_hand=3, reserved=0.
	snap := f.snapshot(t, storeID, productID)
	require.Equal(t, int64(3), snap.OnHand)
	require.Equal(t, int64(0), snap.Reserved)
	require.Equal(t, int64(3), snap.Sellable)

	// The ledger carries a SALE entry of -7 tagged with the transaction id.
	cur, err := f.store.EntriesFor(context.Background(), storeID, productID)
	require.NoError(t, err)
	defer cur.Close()
	var sale *ledger.Entry
	for cur.Next() {
		if cur.Entry().Reason == ledger.ReasonSale {
			e := *cur.Entry()
			sale = &e
		}
	}
	require.NotNil(t, sale)
	require.Equal(t, int64(-7), sale.Delta)
	require.Equal(t, tx.ID, sale.TransactionID)
}

func TestSubmitInsufficientStockAborts(t *testing.T) {
	f := newFixture(t)
	storeID, productID := uuid.New(), uuid.New()
	f.restock(t, storeID, productID, 5)

	tx, err := f.coordinator.Submit(context.Background(), SubmitRequest{
		Lines: []LineRequest{{
			StoreID:   storeID.String(),
			ProductID: productID.String(),
			Quantity:  8,
			Reason:    string(ledger.ReasonSale),
		}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusAborted, tx.Status)
	require.Equal(t, AbortInsufficientStock, tx.AbortReason)

	// Nothing was written and no hold lingers.
	snap := f.snapshot(t, storeID, productID)
	require.Equal(t, int64(5), snap.OnHand)
	require.Equal(t, int64(0), snap.Reserved)
}

func TestSubmitMultiLineReleasesEarlierHoldsOnFailure(t *testing.T) {
	f := newFixture(t)
	storeID := uuid.New()
	p1, p2 := uuid.New(), uuid.New()
	f.restock(t, storeID, p1, 10)
	// p2 has no stock, so its hold must fail after p1's hold succeeded.

	tx, err := f.coordinator.Submit(context.Background(), SubmitRequest{
		Lines: []LineRequest{
			{StoreID: storeID.String(), ProductID: p1.String(), Quantity: 4, Reason: string(ledger.ReasonSale)},
			{StoreID: storeID.String(), ProductID: p2.String(), Quantity: 1, Reason: string(ledger.ReasonSale)},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusAborted, tx.Status)
	require.Equal(t, AbortInsufficientStock, tx.AbortReason)

	// p1's hold was rolled back.
	require.Equal(t, int64(0), f.holds.ActiveReserved(storeID, p1))
	require.Equal(t, int64(10), f.snapshot(t, storeID, p1).Sellable)
}

func TestSubmitTransferCommitsAtomically(t *testing.T) {
	f := newFixture(t)
	s1, s2 := uuid.New(), uuid.New()
	product := uuid.New()
	f.restock(t, s1, product, 10)

	tx, err := f.coordinator.Submit(context.Background(), SubmitRequest{
		Lines: []LineRequest{
			{StoreID: s1.String(), ProductID: product.String(), Quantity: 3, Reason: string(ledger.ReasonTransferOut)},
			{StoreID: s2.String(), ProductID: product.String(), Quantity: 3, Reason: string(ledger.ReasonTransferIn)},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusCommitted, tx.Status)

	require.Equal(t, int64(7), f.snapshot(t, s1, product).OnHand)
	require.Equal(t, int64(3), f.snapshot(t, s2, product).OnHand)

	// Both sides carry the same transaction id.
	for _, storeID := range []uuid.UUID{s1, s2} {
		cur, err := f.store.EntriesFor(context.Background(), storeID, product)
		require.NoError(t, err)
		found := false
		for cur.Next() {
			if cur.Entry().TransactionID == tx.ID {
				found = true
			}
		}
		cur.Close()
		require.True(t, found, "store %s missing transfer entry", storeID)
	}
}

func TestSubmitUnbalancedTransferAborts(t *testing.T) {
	f := newFixture(t)
	s1, s2 := uuid.New(), uuid.New()
	product := uuid.New()
	f.restock(t, s1, product, 10)

	tx, err := f.coordinator.Submit(context.Background(), SubmitRequest{
		Lines: []LineRequest{
			{StoreID: s1.String(), ProductID: product.String(), Quantity: 3, Reason: string(ledger.ReasonTransferOut)},
			{StoreID: s2.String(), ProductID: product.String(), Quantity: 2, Reason: string(ledger.ReasonTransferIn)},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusAborted, tx.Status)
	require.Equal(t, AbortInvariantViolation, tx.AbortReason)

	// Holds rolled back, no ledger entries written.
	require.Equal(t, int64(10), f.snapshot(t, s1, product).Sellable)
	require.Equal(t, int64(0), f.snapshot(t, s2, product).OnHand)
}

func TestSubmitStorageFailureReleasesHolds(t *testing.T) {
	f := newFixture(t)
	storeID, productID := uuid.New(), uuid.New()
	f.restock(t, storeID, productID, 10)

	f.store.FailAppends(1)
	tx, err := f.coordinator.Submit(context.Background(), SubmitRequest{
		Lines: []LineRequest{{
			StoreID:   storeID.String(),
			ProductID: productID.String(),
			Quantity:  4,
			Reason:    string(ledger.ReasonSale),
		}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusAborted, tx.Status)
	require.Equal(t, AbortStorageFailure, tx.AbortReason)

	// No partial state: full stock sellable, nothing reserved.
	snap := f.snapshot(t, storeID, productID)
	require.Equal(t, int64(10), snap.OnHand)
	require.Equal(t, int64(0), snap.Reserved)
	require.Equal(t, int64(10), snap.Sellable)

	// A fresh submission (new transaction id) succeeds after the fault clears.
	retry, err := f.coordinator.Submit(context.Background(), SubmitRequest{
		Lines: []LineRequest{{
			StoreID:   storeID.String(),
			ProductID: productID.String(),
			Quantity:  4,
			Reason:    string(ledger.ReasonSale),
		}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusCommitted, retry.Status)
	require.NotEqual(t, tx.ID, retry.ID)
}

func TestSubmitCancelledBeforeAppend(t *testing.T) {
	f := newFixture(t)
	storeID, productID := uuid.New(), uuid.New()
	f.restock(t, storeID, productID, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tx, err := f.coordinator.Submit(ctx, SubmitRequest{
		Lines: []LineRequest{{
			StoreID:   storeID.String(),
			ProductID: productID.String(),
			Quantity:  1,
			Reason:    string(ledger.ReasonSale),
		}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusAborted, tx.Status)
	require.Equal(t, AbortCancelled, tx.AbortReason)
	require.Equal(t, int64(10), f.snapshot(t, storeID, productID).OnHand)
}

func TestSubmitRejectsMalformedRequests(t *testing.T) {
	f := newFixture(t)

	_, err := f.coordinator.Submit(context.Background(), SubmitRequest{})
	require.Error(t, err)

	_, err = f.coordinator.Submit(context.Background(), SubmitRequest{
		Lines: []LineRequest{{StoreID: "nope", ProductID: uuid.NewString(), Quantity: 1, Reason: "SALE"}},
	})
	require.Error(t, err)

	_, err = f.coordinator.Submit(context.Background(), SubmitRequest{
		Lines: []LineRequest{{StoreID: uuid.NewString(), ProductID: uuid.NewString(), Quantity: -1, Reason: "SALE"}},
	})
	require.Error(t, err)

	_, err = f.coordinator.Submit(context.Background(), SubmitRequest{
		Lines: []LineRequest{{StoreID: uuid.NewString(), ProductID: uuid.NewString(), Quantity: 0, Reason: "ADJUSTMENT"}},
	})
	require.Error(t, err)
}

func TestNegativeAdjustmentRequiresStock(t *testing.T) {
	f := newFixture(t)
	storeID, productID := uuid.New(), uuid.New()
	f.restock(t, storeID, productID, 5)

	tx, err := f.coordinator.Submit(context.Background(), SubmitRequest{
		Lines: []LineRequest{{
			StoreID:   storeID.String(),
			ProductID: productID.String(),
			Quantity:  -8,
			Reason:    string(ledger.ReasonAdjustment),
		}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusAborted, tx.Status)
	require.Equal(t, AbortInsufficientStock, tx.AbortReason)

	tx, err = f.coordinator.Submit(context.Background(), SubmitRequest{
		Lines: []LineRequest{{
			StoreID:   storeID.String(),
			ProductID: productID.String(),
			Quantity:  -3,
			Reason:    string(ledger.ReasonAdjustment),
		}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusCommitted, tx.Status)
	require.Equal(t, int64(2), f.snapshot(t, storeID, productID).OnHand)
}

// Concurrent sales race for the same stock; sellable must never go negative
// and exactly the available quantity must be sold.
func TestConcurrentSubmitsNeverOversell(t *testing.T) {
	f := newFixture(t)
	storeID, productID := uuid.New(), uuid.New()
	f.restock(t, storeID, productID, 20)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var committed int64
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := f.coordinator.Submit(context.Background(), SubmitRequest{
				Lines: []LineRequest{{
					StoreID:   storeID.String(),
					ProductID: productID.String(),
					Quantity:  3,
					Reason:    string(ledger.ReasonSale),
				}},
			})
			if err == nil && tx.Status == StatusCommitted {
				mu.Lock()
				committed += 3
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	snap := f.snapshot(t, storeID, productID)
	require.GreaterOrEqual(t, snap.Sellable, int64(0))
	require.Equal(t, int64(20)-committed, snap.OnHand)
	require.Equal(t, int64(0), snap.Reserved)
	// 30 submissions of 3 against 20 units: exactly 6 can commit.
	require.Equal(t, int64(18), committed)
}

// Overlapping transfers in opposite directions exercise the sorted multi-key
// acquisition path.
func TestConcurrentOpposingTransfersNoDeadlock(t *testing.T) {
	f := newFixture(t)
	s1, s2 := uuid.New(), uuid.New()
	product := uuid.New()
	f.restock(t, s1, product, 50)
	f.restock(t, s2, product, 50)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		out, in := s1, s2
		if i%2 == 1 {
			out, in = s2, s1
		}
		wg.Add(1)
		go func(out, in uuid.UUID) {
			defer wg.Done()
			_, err := f.coordinator.Submit(context.Background(), SubmitRequest{
				Lines: []LineRequest{
					{StoreID: out.String(), ProductID: product.String(), Quantity: 1, Reason: string(ledger.ReasonTransferOut)},
					{StoreID: in.String(), ProductID: product.String(), Quantity: 1, Reason: string(ledger.ReasonTransferIn)},
				},
			})
			require.NoError(t, err)
		}(out, in)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("transfers deadlocked")
	}

	// Stock is conserved across the two stores.
	total := f.snapshot(t, s1, product).OnHand + f.snapshot(t, s2, product).OnHand
	require.Equal(t, int64(100), total)
}

// A hold placed in the first phase can lapse while the transaction waits for
// another position's lock. The lapsed hold no longer protects its stock, so
// the transaction must abort instead of committing against quantities a
// competing sale has meanwhile consumed.
func TestSubmitAbortsWhenHoldLapsesBeforeFinalize(t *testing.T) {
	f := newFixtureWithConfig(t, Config{
		HoldTTL:       50 * time.Millisecond,
		LockTimeout:   5 * time.Second,
		AppendTimeout: 2 * time.Second,
	})
	product := uuid.New()

	// The transfer has to park on the destination's lock while holding no
	// other key lock, so the destination key must sort first.
	var src, dst uuid.UUID
	for {
		src, dst = uuid.New(), uuid.New()
		dstKey := keylock.Key{StoreID: dst, ProductID: product}
		srcKey := keylock.Key{StoreID: src, ProductID: product}
		if dstKey.Less(srcKey) {
			break
		}
	}
	f.restock(t, src, product, 10)

	releaseDst, err := f.locks.Acquire(context.Background(), keylock.Key{StoreID: dst, ProductID: product})
	require.NoError(t, err)

	result := make(chan *Transaction, 1)
	go func() {
		tx, err := f.coordinator.Submit(context.Background(), SubmitRequest{
			Lines: []LineRequest{
				{StoreID: src.String(), ProductID: product.String(), Quantity: 7, Reason: string(ledger.ReasonTransferOut)},
				{StoreID: dst.String(), ProductID: product.String(), Quantity: 7, Reason: string(ledger.ReasonTransferIn)},
			},
		})
		if err == nil {
			result <- tx
		}
	}()

	// Wait for the transfer's hold, then let its TTL lapse while it is
	// parked on the destination lock.
	require.Eventually(t, func() bool {
		return f.holds.ActiveReserved(src, product) == 7
	}, 2*time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	// The expired hold no longer counts, so a competing sale takes the stock.
	sale, err := f.coordinator.Submit(context.Background(), SubmitRequest{
		Lines: []LineRequest{{
			StoreID:   src.String(),
			ProductID: product.String(),
			Quantity:  8,
			Reason:    string(ledger.ReasonSale),
		}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusCommitted, sale.Status)

	releaseDst()
	select {
	case tx := <-result:
		require.Equal(t, StatusAborted, tx.Status)
		require.Equal(t, AbortInsufficientStock, tx.AbortReason)
	case <-time.After(5 * time.Second):
		t.Fatal("transfer never finished")
	}

	// Only the sale landed; no position went negative.
	require.Equal(t, int64(2), f.snapshot(t, src, product).OnHand)
	require.Equal(t, int64(0), f.snapshot(t, dst, product).OnHand)
	for _, storeID := range []uuid.UUID{src, dst} {
		require.GreaterOrEqual(t, f.snapshot(t, storeID, product).Sellable, int64(0))
	}
}

func TestGetAndListTransactions(t *testing.T) {
	f := newFixture(t)
	storeID, productID := uuid.New(), uuid.New()
	f.restock(t, storeID, productID, 5)

	tx, err := f.coordinator.Submit(context.Background(), SubmitRequest{
		Lines: []LineRequest{{
			StoreID:   storeID.String(),
			ProductID: productID.String(),
			Quantity:  2,
			Reason:    string(ledger.ReasonSale),
		}},
	})
	require.NoError(t, err)

	got, err := f.coordinator.Get(context.Background(), tx.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCommitted, got.Status)

	txs, err := f.coordinator.ListByStore(context.Background(), storeID)
	require.NoError(t, err)
	require.Len(t, txs, 2) // restock + sale

	_, err = f.coordinator.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}
