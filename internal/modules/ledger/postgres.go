package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type postgresStore struct{ db *sql.DB }

// NewPostgresStore returns a Store backed by the ledger_entries table.
// Rows are written once and never updated; seq numbering per (store,product)
// relies on the coordinator's per-key serialization.
func NewPostgresStore(db *sql.DB) Store { return &postgresStore{db: db} }

func (s *postgresStore) Append(ctx context.Context, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrStorageUnavailable, err)
	}
	now := time.Now().UTC()
	for _, e := range entries {
		recordedAt := e.RecordedAt
		if recordedAt.IsZero() {
			recordedAt = now
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ledger_entries
			  (id, store_id, product_id, delta, reason, transaction_id, seq, recorded_at)
			VALUES ($1,$2,$3,$4,$5,$6,
			  (SELECT COALESCE(MAX(seq),0)+1 FROM ledger_entries WHERE store_id=$2 AND product_id=$3),
			  $7)`,
			e.ID, e.StoreID, e.ProductID, e.Delta, e.Reason, e.TransactionID, recordedAt)
		if err != nil {
			tx.Rollback()
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
			}
			return fmt.Errorf("%w: insert: %v", ErrStorageUnavailable, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *postgresStore) EntriesFor(ctx context.Context, storeID, productID uuid.UUID) (Cursor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, product_id, delta, reason, transaction_id, seq, recorded_at
		FROM ledger_entries
		WHERE store_id=$1 AND product_id=$2
		ORDER BY seq`, storeID, productID)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrStorageUnavailable, err)
	}
	return &rowsCursor{rows: rows}, nil
}

type rowsCursor struct {
	rows    *sql.Rows
	current Entry
	err     error
}

func (c *rowsCursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	e := Entry{}
	c.err = c.rows.Scan(&e.ID, &e.StoreID, &e.ProductID, &e.Delta, &e.Reason,
		&e.TransactionID, &e.Seq, &e.RecordedAt)
	if c.err != nil {
		return false
	}
	c.current = e
	return true
}

func (c *rowsCursor) Entry() *Entry { return &c.current }

func (c *rowsCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *rowsCursor) Close() error { return c.rows.Close() }
