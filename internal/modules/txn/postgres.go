package txn

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository returns transaction history storage backed by the
// transactions and transaction_lines tables.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) Create(ctx context.Context, t *Transaction) error {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	_, err = dbtx.ExecContext(ctx, `
		INSERT INTO transactions (id, customer_id, employee_id, status, abort_reason)
		VALUES ($1,$2,$3,$4,$5)`,
		t.ID, t.CustomerID, t.EmployeeID, t.Status, nullableReason(t.AbortReason))
	if err != nil {
		dbtx.Rollback()
		return err
	}
	for i, l := range t.Lines {
		_, err = dbtx.ExecContext(ctx, `
			INSERT INTO transaction_lines (id, transaction_id, line_no, store_id, product_id, quantity, reason)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			uuid.New(), t.ID, i, l.StoreID, l.ProductID, l.Quantity, l.Reason)
		if err != nil {
			dbtx.Rollback()
			return err
		}
	}
	return dbtx.Commit()
}

func (r *postgresRepo) Finalize(ctx context.Context, t *Transaction) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET status=$1, abort_reason=$2, updated_at=$3 WHERE id=$4`,
		t.Status, nullableReason(t.AbortReason), time.Now().UTC(), t.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	t := &Transaction{}
	var reason sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, employee_id, status, abort_reason, created_at, updated_at
		FROM transactions WHERE id=$1`, id).
		Scan(&t.ID, &t.CustomerID, &t.EmployeeID, &t.Status, &reason, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if reason.Valid {
		t.AbortReason = AbortReason(reason.String)
	}
	if err := r.loadLines(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *postgresRepo) ListByStore(ctx context.Context, storeID uuid.UUID) ([]*Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT t.id, t.customer_id, t.employee_id, t.status, t.abort_reason, t.created_at, t.updated_at
		FROM transactions t
		JOIN transaction_lines l ON l.transaction_id = t.id
		WHERE l.store_id=$1 ORDER BY t.created_at DESC`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var txs []*Transaction
	for rows.Next() {
		t := &Transaction{}
		var reason sql.NullString
		if err := rows.Scan(&t.ID, &t.CustomerID, &t.EmployeeID, &t.Status, &reason,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		if reason.Valid {
			t.AbortReason = AbortReason(reason.String)
		}
		if err := r.loadLines(ctx, t); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *postgresRepo) loadLines(ctx context.Context, t *Transaction) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT store_id, product_id, quantity, reason
		FROM transaction_lines WHERE transaction_id=$1 ORDER BY line_no`, t.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.StoreID, &l.ProductID, &l.Quantity, &l.Reason); err != nil {
			return err
		}
		t.Lines = append(t.Lines, l)
	}
	return rows.Err()
}

func nullableReason(r AbortReason) sql.NullString {
	if r == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: string(r), Valid: true}
}
