package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) Create(ctx context.Context, s *Store) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stores (id, name, address, is_active)
		VALUES ($1,$2,$3,$4)`,
		s.ID, s.Name, s.Address, s.IsActive)
	return err
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Store, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	s := &Store{}
	var address sql.NullString
	err = r.db.QueryRowContext(ctx, `
		SELECT id, name, address, is_active, created_at, updated_at
		FROM stores WHERE id=$1`, uid).
		Scan(&s.ID, &s.Name, &address, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if address.Valid {
		s.Address = address.String
	}
	return s, nil
}

func (r *postgresRepo) List(ctx context.Context, activeOnly bool) ([]*Store, error) {
	query := `SELECT id, name, address, is_active, created_at, updated_at FROM stores`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var stores []*Store
	for rows.Next() {
		s := &Store{}
		var address sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &address, &s.IsActive,
			&s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if address.Valid {
			s.Address = address.String
		}
		stores = append(stores, s)
	}
	return stores, rows.Err()
}

func (r *postgresRepo) Update(ctx context.Context, s *Store) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE stores SET name=$1, address=$2, is_active=$3, updated_at=$4 WHERE id=$5`,
		s.Name, s.Address, s.IsActive, time.Now().UTC(), s.ID)
	return err
}
