package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Reason classifies why a stock quantity changed.
type Reason string

const (
	ReasonSale        Reason = "SALE"
	ReasonRestock     Reason = "RESTOCK"
	ReasonTransferIn  Reason = "TRANSFER_IN"
	ReasonTransferOut Reason = "TRANSFER_OUT"
	ReasonAdjustment  Reason = "ADJUSTMENT"
)

func (r Reason) Valid() bool {
	switch r {
	case ReasonSale, ReasonRestock, ReasonTransferIn, ReasonTransferOut, ReasonAdjustment:
		return true
	}
	return false
}

// Entry is an immutable record of one stock-quantity change. Entries are the
// sole source of truth for on-hand stock; corrections are new ADJUSTMENT
// entries, never edits.
type Entry struct {
	ID            uuid.UUID `json:"id"`
	StoreID       uuid.UUID `json:"store_id"`
	ProductID     uuid.UUID `json:"product_id"`
	Delta         int64     `json:"delta"`
	Reason        Reason    `json:"reason"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Seq           uint64    `json:"seq"`
	RecordedAt    time.Time `json:"recorded_at"`
}
