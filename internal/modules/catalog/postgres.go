package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) Create(ctx context.Context, p *Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, sku, name, base_price, is_active)
		VALUES ($1,$2,$3,$4,$5)`,
		p.ID, p.SKU, p.Name, p.BasePrice, p.IsActive)
	return err
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Product, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	p := &Product{}
	err = r.db.QueryRowContext(ctx, `
		SELECT id, sku, name, base_price, is_active, created_at, updated_at
		FROM products WHERE id=$1`, uid).
		Scan(&p.ID, &p.SKU, &p.Name, &p.BasePrice, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *postgresRepo) GetBySKU(ctx context.Context, sku string) (*Product, error) {
	p := &Product{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, sku, name, base_price, is_active, created_at, updated_at
		FROM products WHERE sku=$1`, sku).
		Scan(&p.ID, &p.SKU, &p.Name, &p.BasePrice, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *postgresRepo) List(ctx context.Context, activeOnly bool) ([]*Product, error) {
	query := `SELECT id, sku, name, base_price, is_active, created_at, updated_at FROM products`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var products []*Product
	for rows.Next() {
		p := &Product{}
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.BasePrice, &p.IsActive,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *postgresRepo) Update(ctx context.Context, p *Product) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE products SET sku=$1, name=$2, base_price=$3, is_active=$4, updated_at=$5
		WHERE id=$6`,
		p.SKU, p.Name, p.BasePrice, p.IsActive, time.Now().UTC(), p.ID)
	return err
}

// ── price history ─────────────────────────────────────────────────────────────

type pricePostgres struct{ db *sql.DB }

func NewPricePostgresRepository(db *sql.DB) PriceRepository { return &pricePostgres{db: db} }

func (r *pricePostgres) Create(ctx context.Context, p *ProductPrice) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO product_prices (id, product_id, current_price, discount_percent, effective_date, end_date)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, p.ProductID, p.CurrentPrice, p.DiscountPercent, p.EffectiveDate, p.EndDate)
	return err
}

func (r *pricePostgres) ListByProduct(ctx context.Context, productID string) ([]*ProductPrice, error) {
	uid, err := uuid.Parse(productID)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, current_price, discount_percent, effective_date, end_date, created_at
		FROM product_prices WHERE product_id=$1 ORDER BY effective_date DESC`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var prices []*ProductPrice
	for rows.Next() {
		p := &ProductPrice{}
		if err := rows.Scan(&p.ID, &p.ProductID, &p.CurrentPrice, &p.DiscountPercent,
			&p.EffectiveDate, &p.EndDate, &p.CreatedAt); err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

func (r *pricePostgres) CloseCurrent(ctx context.Context, productID string) error {
	uid, err := uuid.Parse(productID)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE product_prices SET end_date=$1 WHERE product_id=$2 AND end_date IS NULL`,
		time.Now().UTC(), uid)
	return err
}
