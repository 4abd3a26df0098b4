package point

import (
	"time"

	"github.com/google/uuid"
)

// TxType classifies a ledger entry (matches point_tx_type enum).
type TxType string

const (
	TxTypeEarn   TxType = "earn"
	TxTypeSpend  TxType = "spend"
	TxTypeRefund TxType = "refund"
	TxTypeAdjust TxType = "adjust"
)

// Balance is the cached current point total for a user. It is a projection of
// the ledger: the latest transaction's balance_after always equals Points, and
// Points never goes below zero while every debit requires sufficiency.
type Balance struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Points    int       `db:"points" json:"points"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Transaction is one immutable ledger entry. Rows are created exactly once per
// balance mutation and never updated or deleted; they are the source of truth
// for audit and history.
type Transaction struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	UserID        uuid.UUID  `db:"user_id" json:"user_id"`
	Type          TxType     `db:"type" json:"type"`
	Amount        int        `db:"amount" json:"amount"`
	BalanceAfter  int        `db:"balance_after" json:"balance_after"`
	Category      string     `db:"category" json:"category"`
	ReferenceType *string    `db:"reference_type" json:"reference_type,omitempty"`
	ReferenceID   *uuid.UUID `db:"reference_id" json:"reference_id,omitempty"`
	Description   string     `db:"description" json:"description"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// typeForAmount picks the ledger entry type when the caller did not set one.
func typeForAmount(amount int) TxType {
	if amount < 0 {
		return TxTypeSpend
	}
	return TxTypeEarn
}
