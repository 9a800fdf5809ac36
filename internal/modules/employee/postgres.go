package employee

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) Create(ctx context.Context, e *Employee) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO employees (id, first_name, last_name, dob, hire_date, store_id, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.FirstName, e.LastName, e.DOB, e.HireDate, e.StoreID, e.IsActive)
	return err
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Employee, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	return r.scan(r.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, dob, hire_date, store_id, is_active, created_at, updated_at
		FROM employees WHERE id=$1`, uid))
}

func (r *postgresRepo) ListByStore(ctx context.Context, storeID string) ([]*Employee, error) {
	uid, err := uuid.Parse(storeID)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, dob, hire_date, store_id, is_active, created_at, updated_at
		FROM employees WHERE store_id=$1 ORDER BY created_at DESC`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *postgresRepo) List(ctx context.Context, activeOnly bool) ([]*Employee, error) {
	query := `SELECT id, first_name, last_name, dob, hire_date, store_id, is_active, created_at, updated_at FROM employees`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *postgresRepo) Update(ctx context.Context, e *Employee) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE employees SET first_name=$1, last_name=$2, dob=$3, hire_date=$4, store_id=$5, is_active=$6, updated_at=$7
		WHERE id=$8`,
		e.FirstName, e.LastName, e.DOB, e.HireDate, e.StoreID, e.IsActive, time.Now().UTC(), e.ID)
	return err
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func (r *postgresRepo) scan(row rowScanner) (*Employee, error) {
	e := &Employee{}
	var dob, hireDate sql.NullTime
	var storeID sql.NullString
	err := row.Scan(&e.ID, &e.FirstName, &e.LastName, &dob, &hireDate, &storeID,
		&e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if dob.Valid {
		e.DOB = &dob.Time
	}
	if hireDate.Valid {
		e.HireDate = &hireDate.Time
	}
	if storeID.Valid {
		sid, err := uuid.Parse(storeID.String)
		if err == nil {
			e.StoreID = &sid
		}
	}
	return e, nil
}

func (r *postgresRepo) collect(rows *sql.Rows) ([]*Employee, error) {
	var employees []*Employee
	for rows.Next() {
		e, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}
