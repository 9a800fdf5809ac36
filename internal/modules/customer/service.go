package customer

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service defines customer business logic.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*Customer, error)
	CreateAnonymous(ctx context.Context) (*Customer, error)
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	ListCustomers(ctx context.Context, registeredOnly bool) ([]*Customer, error)
	DeactivateCustomer(ctx context.Context, id string) (*Customer, error)
}

type service struct {
	repo        Repository
	accountRepo AccountRepository
}

func NewService(repo Repository, accountRepo AccountRepository) Service {
	return &service{repo: repo, accountRepo: accountRepo}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*Customer, error) {
	if !strings.Contains(req.Email, "@") {
		return nil, fmt.Errorf("invalid email")
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	c := &Customer{
		ID:           uuid.New(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		IsRegistered: true,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	a := &Account{
		ID:           uuid.New(),
		CustomerID:   c.ID,
		Email:        req.Email,
		PasswordHash: string(hashed),
		PhoneNumber:  req.PhoneNumber,
		IsActive:     true,
	}
	if err := s.accountRepo.Create(ctx, a); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateAnonymous records a walk-in customer with no account.
func (s *service) CreateAnonymous(ctx context.Context) (*Customer, error) {
	c := &Customer{
		ID:       uuid.New(),
		IsActive: true,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListCustomers(ctx context.Context, registeredOnly bool) ([]*Customer, error) {
	return s.repo.List(ctx, registeredOnly)
}

func (s *service) DeactivateCustomer(ctx context.Context, id string) (*Customer, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.IsActive = false
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
