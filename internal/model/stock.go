package model

import "time"

type MovementType string

const (
	MovementIn     MovementType = "IN"
	MovementOut    MovementType = "OUT"
	MovementAdjust MovementType = "ADJUST"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjust:
		return true
	}
	return false
}

// LedgerQuantity converts a signed delta into the amount stored on the
// ledger row: IN and OUT are stored as positive magnitudes, ADJUST keeps
// its sign.
func (t MovementType) LedgerQuantity(delta int64) int64 {
	if t == MovementAdjust {
		return delta
	}
	if delta < 0 {
		return -delta
	}
	return delta
}

// Signed is the inverse of LedgerQuantity.
func (t MovementType) Signed(ledgerQty int64) int64 {
	if t == MovementOut {
		return -ledgerQty
	}
	return ledgerQty
}

// StockTransaction is an immutable ledger row. Rows are only ever inserted.
type StockTransaction struct {
	ID             string       `db:"id" json:"id"`
	Type           MovementType `db:"type" json:"type"`
	ProductID      string       `db:"product_id" json:"product_id"`
	Quantity       int64        `db:"quantity" json:"quantity"`
	QuantityBefore int64        `db:"quantity_before" json:"quantity_before"`
	QuantityAfter  int64        `db:"quantity_after" json:"quantity_after"`
	StaffID        string       `db:"staff_id" json:"staff_id"`
	Reference      string       `db:"reference" json:"reference"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
}

type Reconciliation struct {
	ProductID   string `json:"product_id"`
	OnHand      int64  `json:"on_hand"`
	LedgerTotal int64  `json:"ledger_total"`
	Entries     int    `json:"entries"`
}

func (r Reconciliation) Balanced() bool { return r.OnHand == r.LedgerTotal }
