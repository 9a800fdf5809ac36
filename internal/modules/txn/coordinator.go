package txn

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jmwansa/storecore-backend/internal/keylock"
	"github.com/jmwansa/storecore-backend/internal/modules/ledger"
	"github.com/jmwansa/storecore-backend/internal/modules/reservation"
	"github.com/jmwansa/storecore-backend/internal/modules/stock"
)

// Config bounds the coordinator's suspension points. No hold, key lock, or
// append may block past its timeout; on timeout the transaction aborts with
// STORAGE_FAILURE and every acquired hold is released.
type Config struct {
	HoldTTL       time.Duration
	LockTimeout   time.Duration
	AppendTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.HoldTTL <= 0 {
		c.HoldTTL = 60 * time.Second
	}
	if c.LockTimeout <= 0 {
		c.LockTimeout = 5 * time.Second
	}
	if c.AppendTimeout <= 0 {
		c.AppendTimeout = 10 * time.Second
	}
	return c
}

// Coordinator orchestrates multi-line transactions: it places holds for
// every outflow, validates the combined effect, appends all ledger entries
// as one atomic batch, and finalizes the holds. Concurrency control is
// per (store, product); transactions on disjoint positions never contend.
type Coordinator struct {
	store ledger.Store
	holds *reservation.Manager
	proj  *stock.Projector
	repo  Repository
	locks *keylock.Map
	cfg   Config
}

func NewCoordinator(store ledger.Store, holds *reservation.Manager, proj *stock.Projector,
	repo Repository, locks *keylock.Map, cfg Config) *Coordinator {
	return &Coordinator{
		store: store,
		holds: holds,
		proj:  proj,
		repo:  repo,
		locks: locks,
		cfg:   cfg.withDefaults(),
	}
}

// Submit processes a transaction request to a terminal state. Business
// aborts (insufficient stock, invariant violations, storage faults) are not
// Go errors: they come back as an ABORTED transaction with a reason. The
// error return is reserved for malformed requests and repository faults.
//
// Cancellation via ctx is honored only until the ledger append begins; after
// that the transaction runs to COMMITTED or a storage abort.
func (c *Coordinator) Submit(ctx context.Context, req SubmitRequest) (*Transaction, error) {
	tx, err := c.newTransaction(req)
	if err != nil {
		return nil, err
	}
	if err := c.repo.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("record transaction: %w", err)
	}

	if ctx.Err() != nil {
		return c.abort(tx, AbortCancelled)
	}

	// Phase 1: place a hold for every line that consumes stock, walking
	// lines in sorted key order.
	outflows := consumingLines(tx.Lines)
	sort.Slice(outflows, func(i, j int) bool {
		return lineKey(outflows[i]).Less(lineKey(outflows[j]))
	})
	heldByKey := make(map[keylock.Key]int64)
	for _, line := range outflows {
		holdCtx, cancel := context.WithTimeout(ctx, c.cfg.LockTimeout)
		res, err := c.holds.Hold(holdCtx, line.StoreID, line.ProductID, consumedQty(line), c.cfg.HoldTTL)
		cancel()
		if err != nil {
			c.releaseHolds(tx)
			if errors.Is(err, reservation.ErrInsufficientStock) {
				return c.abort(tx, AbortInsufficientStock)
			}
			return c.abort(tx, AbortStorageFailure)
		}
		tx.ReservationIDs = append(tx.ReservationIDs, res.ID)
		heldByKey[lineKey(line)] += res.Quantity
	}

	// Phase 2: combined-effect validation across all lines.
	if err := validateNet(tx.Lines); err != nil {
		c.releaseHolds(tx)
		return c.abort(tx, AbortInvariantViolation)
	}

	// Last point at which the caller can cancel.
	if ctx.Err() != nil {
		c.releaseHolds(tx)
		return c.abort(tx, AbortCancelled)
	}

	// Phase 3: finalize under every affected key's lock, acquired in sorted
	// order so overlapping transactions cannot deadlock.
	keys := affectedKeys(tx.Lines)
	lockCtx, cancelLock := context.WithTimeout(ctx, c.cfg.LockTimeout)
	unlock, err := c.locks.AcquireMany(lockCtx, keys)
	cancelLock()
	if err != nil {
		c.releaseHolds(tx)
		return c.abort(tx, AbortStorageFailure)
	}
	defer unlock()

	// Holds may have lapsed while we waited for the locks, and an expired
	// hold no longer protects its stock from competing transactions. Re-arm
	// every hold with a fresh TTL; if any already lapsed, the hold-time
	// sellable check is stale and the transaction must not commit.
	if err := c.holds.Refresh(tx.ReservationIDs, c.cfg.HoldTTL); err != nil {
		c.releaseHolds(tx)
		return c.abort(tx, AbortInsufficientStock)
	}

	// Re-check: applying the batch and consuming our holds must leave every
	// position with sellable >= 0.
	net := netDeltas(tx.Lines)
	for _, key := range keys {
		snap, err := c.proj.SnapshotLocked(ctx, key.StoreID, key.ProductID)
		if err != nil {
			c.releaseHolds(tx)
			return c.abort(tx, AbortStorageFailure)
		}
		newOnHand := snap.OnHand + net[key]
		newReserved := snap.Reserved - heldByKey[key]
		if newReserved < 0 {
			// A hold of ours can never loosen the check.
			newReserved = 0
		}
		if newOnHand-newReserved < 0 {
			c.releaseHolds(tx)
			return c.abort(tx, AbortInvariantViolation)
		}
	}

	// Phase 4: single atomic batch append, tagged with the transaction id.
	appendCtx, cancelAppend := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.AppendTimeout)
	appendErr := c.store.Append(appendCtx, c.buildEntries(tx))
	cancelAppend()
	if appendErr != nil {
		if errors.Is(appendErr, ledger.ErrDuplicateID) {
			log.Printf("ledger rejected duplicate entry id for transaction %s: %v", tx.ID, appendErr)
		}
		c.releaseHolds(tx)
		return c.abort(tx, AbortStorageFailure)
	}

	// Phase 5: the batch is durable; finalize holds and refresh the read model.
	for _, id := range tx.ReservationIDs {
		if err := c.holds.Commit(id); err != nil {
			log.Printf("commit reservation %s for transaction %s: %v", id, tx.ID, err)
		}
	}
	c.proj.Invalidate(keys...)

	tx.Status = StatusCommitted
	tx.UpdatedAt = time.Now().UTC()
	if err := c.repo.Finalize(context.WithoutCancel(ctx), tx); err != nil {
		log.Printf("finalize transaction %s: %v", tx.ID, err)
	}
	return tx, nil
}

// Get returns a transaction from the history.
func (c *Coordinator) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return c.repo.GetByID(ctx, id)
}

// ListByStore returns the transactions touching a store.
func (c *Coordinator) ListByStore(ctx context.Context, storeID uuid.UUID) ([]*Transaction, error) {
	return c.repo.ListByStore(ctx, storeID)
}

func (c *Coordinator) newTransaction(req SubmitRequest) (*Transaction, error) {
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("transaction requires at least one line")
	}
	now := time.Now().UTC()
	tx := &Transaction{
		ID:        uuid.New(),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.CustomerID != "" {
		id, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("invalid customer_id: %w", err)
		}
		tx.CustomerID = &id
	}
	if req.EmployeeID != "" {
		id, err := uuid.Parse(req.EmployeeID)
		if err != nil {
			return nil, fmt.Errorf("invalid employee_id: %w", err)
		}
		tx.EmployeeID = &id
	}
	for i, lr := range req.Lines {
		storeID, err := uuid.Parse(lr.StoreID)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid store_id: %w", i, err)
		}
		productID, err := uuid.Parse(lr.ProductID)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid product_id: %w", i, err)
		}
		reason := ledger.Reason(lr.Reason)
		if !reason.Valid() {
			return nil, fmt.Errorf("line %d: invalid reason %q", i, lr.Reason)
		}
		if reason == ledger.ReasonAdjustment {
			if lr.Quantity == 0 {
				return nil, fmt.Errorf("line %d: adjustment quantity must be non-zero", i)
			}
		} else if lr.Quantity <= 0 {
			return nil, fmt.Errorf("line %d: quantity must be positive", i)
		}
		tx.Lines = append(tx.Lines, Line{
			StoreID:   storeID,
			ProductID: productID,
			Quantity:  lr.Quantity,
			Reason:    reason,
		})
	}
	return tx, nil
}

func (c *Coordinator) abort(tx *Transaction, reason AbortReason) (*Transaction, error) {
	tx.Status = StatusAborted
	tx.AbortReason = reason
	tx.UpdatedAt = time.Now().UTC()
	if err := c.repo.Finalize(context.Background(), tx); err != nil {
		log.Printf("finalize aborted transaction %s: %v", tx.ID, err)
	}
	return tx, nil
}

func (c *Coordinator) releaseHolds(tx *Transaction) {
	for _, id := range tx.ReservationIDs {
		if err := c.holds.Release(id); err != nil {
			log.Printf("release reservation %s for transaction %s: %v", id, tx.ID, err)
		}
	}
}

func (c *Coordinator) buildEntries(tx *Transaction) []ledger.Entry {
	entries := make([]ledger.Entry, 0, len(tx.Lines))
	for _, l := range tx.Lines {
		entries = append(entries, ledger.Entry{
			ID:            uuid.New(),
			StoreID:       l.StoreID,
			ProductID:     l.ProductID,
			Delta:         lineDelta(l),
			Reason:        l.Reason,
			TransactionID: tx.ID,
		})
	}
	return entries
}

// lineDelta maps a line to its signed ledger delta. SALE and TRANSFER_OUT
// consume; RESTOCK and TRANSFER_IN produce; ADJUSTMENT is already signed.
func lineDelta(l Line) int64 {
	switch l.Reason {
	case ledger.ReasonSale, ledger.ReasonTransferOut:
		return -l.Quantity
	case ledger.ReasonAdjustment:
		return l.Quantity
	default:
		return l.Quantity
	}
}

func consumedQty(l Line) int64 { return -lineDelta(l) }

func consumingLines(lines []Line) []Line {
	var out []Line
	for _, l := range lines {
		if lineDelta(l) < 0 {
			out = append(out, l)
		}
	}
	return out
}

func lineKey(l Line) keylock.Key {
	return keylock.Key{StoreID: l.StoreID, ProductID: l.ProductID}
}

func affectedKeys(lines []Line) []keylock.Key {
	seen := make(map[keylock.Key]struct{}, len(lines))
	var keys []keylock.Key
	for _, l := range lines {
		k := lineKey(l)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

func netDeltas(lines []Line) map[keylock.Key]int64 {
	net := make(map[keylock.Key]int64)
	for _, l := range lines {
		net[lineKey(l)] += lineDelta(l)
	}
	return net
}

// validateNet checks that the transfer lines are internally consistent: for
// every product, quantity moved out must equal quantity moved in.
func validateNet(lines []Line) error {
	transfer := make(map[uuid.UUID]int64)
	for _, l := range lines {
		switch l.Reason {
		case ledger.ReasonTransferOut:
			transfer[l.ProductID] -= l.Quantity
		case ledger.ReasonTransferIn:
			transfer[l.ProductID] += l.Quantity
		}
	}
	for productID, net := range transfer {
		if net != 0 {
			return fmt.Errorf("transfer for product %s does not net to zero (off by %d)", productID, net)
		}
	}
	return nil
}
