package employee

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service defines employee business logic.
type Service interface {
	CreateEmployee(ctx context.Context, req CreateEmployeeRequest) (*Employee, error)
	GetEmployee(ctx context.Context, id string) (*Employee, error)
	ListEmployees(ctx context.Context, activeOnly bool) ([]*Employee, error)
	ListStoreEmployees(ctx context.Context, storeID string) ([]*Employee, error)
	AssignStore(ctx context.Context, id, storeID string) (*Employee, error)
	DeactivateEmployee(ctx context.Context, id string) (*Employee, error)
}

const dateLayout = "2006-01-02"

type service struct{ repo Repository }

func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) CreateEmployee(ctx context.Context, req CreateEmployeeRequest) (*Employee, error) {
	if req.FirstName == "" || req.LastName == "" {
		return nil, fmt.Errorf("first_name and last_name are required")
	}
	e := &Employee{
		ID:        uuid.New(),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsActive:  true,
	}
	if req.DOB != "" {
		dob, err := time.Parse(dateLayout, req.DOB)
		if err != nil {
			return nil, fmt.Errorf("invalid dob: %w", err)
		}
		if !dob.Before(time.Now()) {
			return nil, fmt.Errorf("dob must be in the past")
		}
		e.DOB = &dob
	}
	if req.HireDate != "" {
		hd, err := time.Parse(dateLayout, req.HireDate)
		if err != nil {
			return nil, fmt.Errorf("invalid hire_date: %w", err)
		}
		if e.DOB != nil && hd.Before(*e.DOB) {
			return nil, fmt.Errorf("hire_date cannot be before dob")
		}
		e.HireDate = &hd
	}
	if req.StoreID != "" {
		sid, err := uuid.Parse(req.StoreID)
		if err != nil {
			return nil, fmt.Errorf("invalid store_id: %w", err)
		}
		e.StoreID = &sid
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *service) GetEmployee(ctx context.Context, id string) (*Employee, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListEmployees(ctx context.Context, activeOnly bool) ([]*Employee, error) {
	return s.repo.List(ctx, activeOnly)
}

func (s *service) ListStoreEmployees(ctx context.Context, storeID string) ([]*Employee, error) {
	return s.repo.ListByStore(ctx, storeID)
}

func (s *service) AssignStore(ctx context.Context, id, storeID string) (*Employee, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sid, err := uuid.Parse(storeID)
	if err != nil {
		return nil, fmt.Errorf("invalid store_id: %w", err)
	}
	e.StoreID = &sid
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *service) DeactivateEmployee(ctx context.Context, id string) (*Employee, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	e.IsActive = false
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}
