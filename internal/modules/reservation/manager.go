package reservation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jmwansa/storecore-backend/internal/keylock"
	"github.com/jmwansa/storecore-backend/internal/modules/ledger"
)

// Manager owns all reservations. Holds are advisory, in-memory claims: they
// are rebuildable intent, not committed facts, so losing them on restart is
// acceptable. The ledger remains the only durable source of truth.
type Manager struct {
	store ledger.Store
	locks *keylock.Map

	mu     sync.Mutex
	byID   map[uuid.UUID]*Reservation
	active map[keylock.Key]int64 // sum of ACTIVE quantities per position

	now  func() time.Time
	stop chan struct{}
	done chan struct{}
}

func NewManager(store ledger.Store, locks *keylock.Map) *Manager {
	return &Manager{
		store:  store,
		locks:  locks,
		byID:   make(map[uuid.UUID]*Reservation),
		active: make(map[keylock.Key]int64),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Hold places a claim on qty units of the position if, at this instant, the
// sellable quantity covers it. The check and the create run under the
// position's key lock, so two racing holds can never both succeed when only
// one fits. Arrival order at the lock decides who goes first.
func (m *Manager) Hold(ctx context.Context, storeID, productID uuid.UUID, qty int64, ttl time.Duration) (*Reservation, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	key := keylock.Key{StoreID: storeID, ProductID: productID}
	release, err := m.locks.Acquire(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("inventory position busy: %w", err)
	}
	defer release()

	onHand, err := ledger.OnHand(ctx, m.store, storeID, productID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweepLocked(now)

	sellable := onHand - m.active[key]
	if qty > sellable {
		return nil, fmt.Errorf("%w: requested %d, sellable %d", ErrInsufficientStock, qty, sellable)
	}

	r := &Reservation{
		ID:        uuid.New(),
		StoreID:   storeID,
		ProductID: productID,
		Quantity:  qty,
		ExpiresAt: now.Add(ttl),
		Status:    StatusActive,
		CreatedAt: now,
	}
	m.byID[r.ID] = r
	m.active[key] += qty

	out := *r
	return &out, nil
}

// Release cancels a hold. It is idempotent: releasing a reservation that is
// already RELEASED or EXPIRED is a no-op success. Releasing a COMMITTED
// reservation is refused, since its stock has already left the ledger.
func (m *Manager) Release(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked(m.now())

	r, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	switch r.Status {
	case StatusActive:
		r.Status = StatusReleased
		m.decrementLocked(r)
	case StatusReleased, StatusExpired:
		// no-op
	case StatusCommitted:
		return fmt.Errorf("%w: %s", ErrAlreadyTerminal, r.Status)
	}
	return nil
}

// Commit finalizes a hold as part of committing its owning transaction. The
// coordinator calls it while already holding the position's key lock, so no
// key lock is taken here.
func (m *Manager) Commit(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	if r.Status != StatusActive {
		return fmt.Errorf("%w: %s", ErrAlreadyTerminal, r.Status)
	}
	r.Status = StatusCommitted
	m.decrementLocked(r)
	return nil
}

// Refresh re-validates a set of holds for finalize. Every id must still be
// ACTIVE or the whole call fails; on success each hold gets a fresh TTL so it
// cannot lapse between this check and the commit that consumes it. The check
// and the extension are atomic under the manager mutex.
func (m *Manager) Refresh(ids []uuid.UUID, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweepLocked(now)

	for _, id := range ids {
		r, ok := m.byID[id]
		if !ok {
			return ErrNotFound
		}
		if r.Status != StatusActive {
			return fmt.Errorf("%w: %s", ErrAlreadyTerminal, r.Status)
		}
	}
	for _, id := range ids {
		m.byID[id].ExpiresAt = now.Add(ttl)
	}
	return nil
}

// Get returns a copy of the reservation.
func (m *Manager) Get(id uuid.UUID) (*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked(m.now())
	r, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *r
	return &out, nil
}

// ActiveReserved reports the quantity currently held by active reservations
// on a position. Expired holds are swept before counting, so a read after
// expiry never sees a stale claim.
func (m *Manager) ActiveReserved(storeID, productID uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked(m.now())
	return m.active[keylock.Key{StoreID: storeID, ProductID: productID}]
}

// StartSweeper runs a periodic expiry sweep until Stop is called. The lazy
// sweep on every read already keeps counts correct; the background cycle just
// bounds how long a dead hold lingers in memory.
func (m *Manager) StartSweeper(interval time.Duration) {
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.mu.Lock()
				m.sweepLocked(m.now())
				m.mu.Unlock()
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop shuts down the background sweeper.
func (m *Manager) Stop() {
	if m.stop == nil {
		return
	}
	close(m.stop)
	<-m.done
	m.stop = nil
}

// sweepLocked expires every ACTIVE reservation whose expiry has passed.
// Caller holds m.mu.
func (m *Manager) sweepLocked(now time.Time) {
	for _, r := range m.byID {
		if r.Status == StatusActive && now.After(r.ExpiresAt) {
			r.Status = StatusExpired
			m.decrementLocked(r)
		}
	}
}

func (m *Manager) decrementLocked(r *Reservation) {
	key := keylock.Key{StoreID: r.StoreID, ProductID: r.ProductID}
	m.active[key] -= r.Quantity
	if m.active[key] <= 0 {
		delete(m.active, key)
	}
}
