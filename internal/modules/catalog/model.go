package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Product is a master catalog record: SKU, name, and base pricing.
type Product struct {
	ID        uuid.UUID `json:"id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	BasePrice float64   `json:"base_price"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductPrice is one historical or current pricing record for a product.
// An open-ended record (EndDate nil) is the price in effect.
type ProductPrice struct {
	ID              uuid.UUID  `json:"id"`
	ProductID       uuid.UUID  `json:"product_id"`
	CurrentPrice    float64    `json:"current_price"`
	DiscountPercent *float64   `json:"discount_percent,omitempty"`
	EffectiveDate   time.Time  `json:"effective_date"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
