package reservation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusReleased  Status = "RELEASED"
	StatusExpired   Status = "EXPIRED"
	StatusCommitted Status = "COMMITTED"
)

// Reservation is a temporary, expiring claim on inventory. It reduces the
// sellable quantity of its position without altering on-hand stock.
type Reservation struct {
	ID        uuid.UUID `json:"id"`
	StoreID   uuid.UUID `json:"store_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int64     `json:"quantity"`
	ExpiresAt time.Time `json:"expires_at"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Common errors returned by the manager.
var (
	ErrInsufficientStock = errors.New("insufficient sellable stock")
	ErrNotFound          = errors.New("reservation not found")
	ErrAlreadyTerminal   = errors.New("reservation already in a terminal state")
	ErrInvalidQuantity   = errors.New("reservation quantity must be positive")
)

// HoldRequest is the payload for placing a hold.
type HoldRequest struct {
	StoreID    string `json:"store_id"`
	ProductID  string `json:"product_id"`
	Quantity   int64  `json:"quantity"`
	TTLSeconds int64  `json:"ttl_seconds,omitempty"`
}
