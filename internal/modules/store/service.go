package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service defines store business logic.
type Service interface {
	CreateStore(ctx context.Context, req CreateStoreRequest) (*Store, error)
	GetStore(ctx context.Context, id string) (*Store, error)
	ListStores(ctx context.Context, activeOnly bool) ([]*Store, error)
	UpdateStore(ctx context.Context, id string, req CreateStoreRequest) (*Store, error)
	DeactivateStore(ctx context.Context, id string) (*Store, error)
}

type service struct{ repo Repository }

func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) CreateStore(ctx context.Context, req CreateStoreRequest) (*Store, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	st := &Store{
		ID:       uuid.New(),
		Name:     req.Name,
		Address:  req.Address,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *service) GetStore(ctx context.Context, id string) (*Store, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListStores(ctx context.Context, activeOnly bool) ([]*Store, error) {
	return s.repo.List(ctx, activeOnly)
}

func (s *service) UpdateStore(ctx context.Context, id string, req CreateStoreRequest) (*Store, error) {
	st, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		st.Name = req.Name
	}
	st.Address = req.Address
	if err := s.repo.Update(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *service) DeactivateStore(ctx context.Context, id string) (*Store, error) {
	st, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	st.IsActive = false
	if err := s.repo.Update(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}
