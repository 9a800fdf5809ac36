package customer

import "context"

// Repository defines customer data storage.
type Repository interface {
	Create(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, id string) (*Customer, error)
	List(ctx context.Context, registeredOnly bool) ([]*Customer, error)
	Update(ctx context.Context, c *Customer) error
}

// AccountRepository defines customer account data storage.
type AccountRepository interface {
	Create(ctx context.Context, a *Account) error
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByCustomerID(ctx context.Context, customerID string) (*Account, error)
}
