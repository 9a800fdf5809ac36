package stock

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/jmwansa/storecore-backend/internal/keylock"
	"github.com/jmwansa/storecore-backend/internal/modules/ledger"
)

// ReservedSource reports the total quantity currently held by active
// reservations on a position. The reservation manager implements it.
type ReservedSource interface {
	ActiveReserved(storeID, productID uuid.UUID) int64
}

// Snapshot is the derived view of one inventory position. It is computed on
// demand and never stored.
type Snapshot struct {
	StoreID   uuid.UUID `json:"store_id"`
	ProductID uuid.UUID `json:"product_id"`
	OnHand    int64     `json:"on_hand"`
	Reserved  int64     `json:"reserved"`
	Sellable  int64     `json:"sellable"`
}

// Projector computes stock snapshots by folding the ledger and asking the
// reservation manager for active holds. Its only state is an on-hand cache,
// invalidated by the coordinator after every successful append.
type Projector struct {
	store    ledger.Store
	reserved ReservedSource
	locks    *keylock.Map

	mu    sync.RWMutex
	cache map[keylock.Key]int64
}

func NewProjector(store ledger.Store, reserved ReservedSource, locks *keylock.Map) *Projector {
	return &Projector{
		store:    store,
		reserved: reserved,
		locks:    locks,
		cache:    make(map[keylock.Key]int64),
	}
}

// Snapshot computes the current view of one position. It runs under the
// position's key lock so it can never observe a half-finalized transaction.
func (p *Projector) Snapshot(ctx context.Context, storeID, productID uuid.UUID) (*Snapshot, error) {
	key := keylock.Key{StoreID: storeID, ProductID: productID}
	release, err := p.locks.Acquire(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("inventory position busy: %w", err)
	}
	defer release()
	return p.SnapshotLocked(ctx, storeID, productID)
}

// SnapshotLocked is Snapshot for callers that already hold the key's lock,
// such as the coordinator during finalize.
func (p *Projector) SnapshotLocked(ctx context.Context, storeID, productID uuid.UUID) (*Snapshot, error) {
	onHand, err := p.OnHand(ctx, storeID, productID)
	if err != nil {
		return nil, err
	}
	reserved := p.reserved.ActiveReserved(storeID, productID)
	return &Snapshot{
		StoreID:   storeID,
		ProductID: productID,
		OnHand:    onHand,
		Reserved:  reserved,
		Sellable:  onHand - reserved,
	}, nil
}

// OnHand folds the ledger for one position, consulting the cache first.
// On-hand only changes on append, and every append is followed by an
// Invalidate call, so a cache hit is always current.
func (p *Projector) OnHand(ctx context.Context, storeID, productID uuid.UUID) (int64, error) {
	key := keylock.Key{StoreID: storeID, ProductID: productID}
	p.mu.RLock()
	cached, ok := p.cache[key]
	p.mu.RUnlock()
	if ok {
		return cached, nil
	}
	onHand, err := ledger.OnHand(ctx, p.store, storeID, productID)
	if err != nil {
		return 0, err
	}
	p.mu.Lock()
	p.cache[key] = onHand
	p.mu.Unlock()
	return onHand, nil
}

// Invalidate drops the cached on-hand value for the given positions. The
// coordinator calls it after every successful ledger append.
func (p *Projector) Invalidate(keys ...keylock.Key) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, k := range keys {
		delete(p.cache, k)
	}
}
