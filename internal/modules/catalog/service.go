package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service defines catalog business logic.
type Service interface {
	CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*Product, error)
	ListProducts(ctx context.Context, activeOnly bool) ([]*Product, error)
	UpdateProduct(ctx context.Context, id string, req CreateProductRequest) (*Product, error)
	DeactivateProduct(ctx context.Context, id string) (*Product, error)
	SetPrice(ctx context.Context, productID string, req SetPriceRequest) (*ProductPrice, error)
	PriceHistory(ctx context.Context, productID string) ([]*ProductPrice, error)
}

// CreateProductRequest holds the data for creating a product.
type CreateProductRequest struct {
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	BasePrice float64 `json:"base_price"`
}

// SetPriceRequest holds the data for recording a new price.
type SetPriceRequest struct {
	Price           float64  `json:"price"`
	DiscountPercent *float64 `json:"discount_percent,omitempty"`
}

type service struct {
	repo      Repository
	priceRepo PriceRepository
}

func NewService(repo Repository, priceRepo PriceRepository) Service {
	return &service{repo: repo, priceRepo: priceRepo}
}

func (s *service) CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error) {
	if req.SKU == "" {
		return nil, fmt.Errorf("sku is required")
	}
	if req.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if req.BasePrice <= 0 {
		return nil, fmt.Errorf("base_price must be greater than zero")
	}
	p := &Product{
		ID:        uuid.New(),
		SKU:       req.SKU,
		Name:      req.Name,
		BasePrice: req.BasePrice,
		IsActive:  true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) GetProduct(ctx context.Context, id string) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetProductBySKU(ctx context.Context, sku string) (*Product, error) {
	return s.repo.GetBySKU(ctx, sku)
}

func (s *service) ListProducts(ctx context.Context, activeOnly bool) ([]*Product, error) {
	return s.repo.List(ctx, activeOnly)
}

func (s *service) UpdateProduct(ctx context.Context, id string, req CreateProductRequest) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.BasePrice <= 0 {
		return nil, fmt.Errorf("base_price must be greater than zero")
	}
	p.Name = req.Name
	p.BasePrice = req.BasePrice
	if req.SKU != "" {
		p.SKU = req.SKU
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) DeactivateProduct(ctx context.Context, id string) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.IsActive = false
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) SetPrice(ctx context.Context, productID string, req SetPriceRequest) (*ProductPrice, error) {
	if req.Price <= 0 {
		return nil, fmt.Errorf("price must be greater than zero")
	}
	if req.DiscountPercent != nil && (*req.DiscountPercent < 0 || *req.DiscountPercent > 100) {
		return nil, fmt.Errorf("discount_percent must be between 0 and 100")
	}
	pid, err := uuid.Parse(productID)
	if err != nil {
		return nil, fmt.Errorf("invalid product id: %w", err)
	}
	if _, err := s.repo.GetByID(ctx, productID); err != nil {
		return nil, fmt.Errorf("product not found: %w", err)
	}
	if err := s.priceRepo.CloseCurrent(ctx, productID); err != nil {
		return nil, err
	}
	price := &ProductPrice{
		ID:              uuid.New(),
		ProductID:       pid,
		CurrentPrice:    req.Price,
		DiscountPercent: req.DiscountPercent,
		EffectiveDate:   time.Now().UTC(),
	}
	if err := s.priceRepo.Create(ctx, price); err != nil {
		return nil, err
	}
	return price, nil
}

func (s *service) PriceHistory(ctx context.Context, productID string) ([]*ProductPrice, error) {
	return s.priceRepo.ListByProduct(ctx, productID)
}
