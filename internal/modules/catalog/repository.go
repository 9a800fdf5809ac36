package catalog

import "context"

// Repository defines product data storage.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	GetBySKU(ctx context.Context, sku string) (*Product, error)
	List(ctx context.Context, activeOnly bool) ([]*Product, error)
	Update(ctx context.Context, p *Product) error
}

// PriceRepository defines price history storage.
type PriceRepository interface {
	Create(ctx context.Context, p *ProductPrice) error
	ListByProduct(ctx context.Context, productID string) ([]*ProductPrice, error)
	CloseCurrent(ctx context.Context, productID string) error
}
