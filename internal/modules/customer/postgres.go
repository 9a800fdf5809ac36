package customer

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) Create(ctx context.Context, c *Customer) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO customers (id, first_name, last_name, is_registered, is_active)
		VALUES ($1,$2,$3,$4,$5)`,
		c.ID, nullableString(c.FirstName), nullableString(c.LastName), c.IsRegistered, c.IsActive)
	return err
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Customer, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	return r.scan(r.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, is_registered, is_active, created_at, updated_at
		FROM customers WHERE id=$1`, uid))
}

func (r *postgresRepo) List(ctx context.Context, registeredOnly bool) ([]*Customer, error) {
	query := `SELECT id, first_name, last_name, is_registered, is_active, created_at, updated_at FROM customers`
	if registeredOnly {
		query += ` WHERE is_registered = TRUE`
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var customers []*Customer
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (r *postgresRepo) Update(ctx context.Context, c *Customer) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE customers SET first_name=$1, last_name=$2, is_registered=$3, is_active=$4, updated_at=$5
		WHERE id=$6`,
		nullableString(c.FirstName), nullableString(c.LastName), c.IsRegistered, c.IsActive,
		time.Now().UTC(), c.ID)
	return err
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func (r *postgresRepo) scan(row rowScanner) (*Customer, error) {
	c := &Customer{}
	var first, last sql.NullString
	err := row.Scan(&c.ID, &first, &last, &c.IsRegistered, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if first.Valid {
		c.FirstName = first.String
	}
	if last.Valid {
		c.LastName = last.String
	}
	return c, nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// ── accounts ──────────────────────────────────────────────────────────────────

type accountPostgres struct{ db *sql.DB }

func NewAccountPostgresRepository(db *sql.DB) AccountRepository { return &accountPostgres{db: db} }

func (r *accountPostgres) Create(ctx context.Context, a *Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO customer_accounts (id, customer_id, email, hashed_password, phone_number, is_active)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		a.ID, a.CustomerID, a.Email, a.PasswordHash, nullableString(a.PhoneNumber), a.IsActive)
	return err
}

func (r *accountPostgres) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return r.scan(r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, email, hashed_password, phone_number, is_active, deleted_at, created_at, updated_at
		FROM customer_accounts WHERE email=$1`, email))
}

func (r *accountPostgres) GetByCustomerID(ctx context.Context, customerID string) (*Account, error) {
	uid, err := uuid.Parse(customerID)
	if err != nil {
		return nil, err
	}
	return r.scan(r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, email, hashed_password, phone_number, is_active, deleted_at, created_at, updated_at
		FROM customer_accounts WHERE customer_id=$1`, uid))
}

func (r *accountPostgres) scan(row rowScanner) (*Account, error) {
	a := &Account{}
	var phone sql.NullString
	var deletedAt sql.NullTime
	err := row.Scan(&a.ID, &a.CustomerID, &a.Email, &a.PasswordHash, &phone,
		&a.IsActive, &deletedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if phone.Valid {
		a.PhoneNumber = phone.String
	}
	if deletedAt.Valid {
		a.DeletedAt = &deletedAt.Time
	}
	return a, nil
}
