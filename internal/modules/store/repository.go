package store

import "context"

// Repository defines store data storage.
type Repository interface {
	Create(ctx context.Context, s *Store) error
	GetByID(ctx context.Context, id string) (*Store, error)
	List(ctx context.Context, activeOnly bool) ([]*Store, error)
	Update(ctx context.Context, s *Store) error
}
