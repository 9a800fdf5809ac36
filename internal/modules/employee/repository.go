package employee

import "context"

// Repository defines employee data storage.
type Repository interface {
	Create(ctx context.Context, e *Employee) error
	GetByID(ctx context.Context, id string) (*Employee, error)
	ListByStore(ctx context.Context, storeID string) ([]*Employee, error)
	List(ctx context.Context, activeOnly bool) ([]*Employee, error)
	Update(ctx context.Context, e *Employee) error
}
