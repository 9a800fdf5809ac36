package txn

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound means the transaction id is unknown.
var ErrNotFound = errors.New("transaction not found")

// Repository records transaction history. The ledger, not this table, is the
// source of truth for stock; this is the audit trail an API consumer queries.
type Repository interface {
	Create(ctx context.Context, tx *Transaction) error
	Finalize(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListByStore(ctx context.Context, storeID uuid.UUID) ([]*Transaction, error)
}

// memoryRepo keeps transactions in memory. Used by tests and database-less
// deployments.
type memoryRepo struct {
	mu  sync.RWMutex
	txs map[uuid.UUID]*Transaction
}

func NewMemoryRepository() Repository {
	return &memoryRepo{txs: make(map[uuid.UUID]*Transaction)}
}

func (r *memoryRepo) Create(ctx context.Context, tx *Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := cloneTransaction(tx)
	r.txs[tx.ID] = cp
	return nil
}

func (r *memoryRepo) Finalize(ctx context.Context, tx *Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.txs[tx.ID]; !ok {
		return ErrNotFound
	}
	r.txs[tx.ID] = cloneTransaction(tx)
	return nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tx, ok := r.txs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTransaction(tx), nil
}

func (r *memoryRepo) ListByStore(ctx context.Context, storeID uuid.UUID) ([]*Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Transaction
	for _, tx := range r.txs {
		for _, l := range tx.Lines {
			if l.StoreID == storeID {
				out = append(out, cloneTransaction(tx))
				break
			}
		}
	}
	return out, nil
}

func cloneTransaction(tx *Transaction) *Transaction {
	cp := *tx
	cp.Lines = append([]Line(nil), tx.Lines...)
	cp.ReservationIDs = append([]uuid.UUID(nil), tx.ReservationIDs...)
	return &cp
}
