package txn

import (
	"time"

	"github.com/google/uuid"

	"github.com/jmwansa/storecore-backend/internal/modules/ledger"
)

// Status is the lifecycle state of a transaction. COMMITTED and ABORTED are
// final; a retry is always a new transaction with a new id.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCommitted Status = "COMMITTED"
	StatusAborted   Status = "ABORTED"
)

// AbortReason explains why a transaction ended ABORTED.
type AbortReason string

const (
	AbortInsufficientStock  AbortReason = "INSUFFICIENT_STOCK"
	AbortInvariantViolation AbortReason = "INVARIANT_VIOLATION"
	AbortStorageFailure     AbortReason = "STORAGE_FAILURE"
	AbortCancelled          AbortReason = "CANCELLED"
)

// Line is one stock movement within a transaction. Quantity is positive for
// every reason except ADJUSTMENT, which carries a signed quantity.
type Line struct {
	StoreID   uuid.UUID     `json:"store_id"`
	ProductID uuid.UUID     `json:"product_id"`
	Quantity  int64         `json:"quantity"`
	Reason    ledger.Reason `json:"reason"`
}

// Transaction is a multi-line stock operation. On COMMITTED all of its
// ledger entries exist; on ABORTED none do.
type Transaction struct {
	ID             uuid.UUID   `json:"id"`
	Lines          []Line      `json:"lines"`
	Status         Status      `json:"status"`
	AbortReason    AbortReason `json:"abort_reason,omitempty"`
	CustomerID     *uuid.UUID  `json:"customer_id,omitempty"`
	EmployeeID     *uuid.UUID  `json:"employee_id,omitempty"`
	ReservationIDs []uuid.UUID `json:"reservation_ids,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// SubmitRequest is the payload for submitting a transaction.
type SubmitRequest struct {
	CustomerID string        `json:"customer_id,omitempty"`
	EmployeeID string        `json:"employee_id,omitempty"`
	Lines      []LineRequest `json:"lines"`
}

// LineRequest is one line of a submit payload.
type LineRequest struct {
	StoreID   string `json:"store_id"`
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	Reason    string `json:"reason"`
}
