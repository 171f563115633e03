package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenAccount is a value-holding account on the custody ledger. Participant
// accounts are addressed by wallet address; each market owns exactly one
// custody account with a deterministically derived address.
type TokenAccount struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Address   string    `gorm:"uniqueIndex;size:80;not null" json:"address"`
	Owner     string    `gorm:"size:80;not null;index" json:"owner"`
	Balance   int64     `gorm:"not null;default:0" json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TokenAccount) TableName() string {
	return "token_accounts"
}

type TransferKind string

const (
	TransferKindDeposit TransferKind = "DEPOSIT"
	TransferKindStake   TransferKind = "STAKE"
	TransferKindBet     TransferKind = "BET"
	TransferKindPayout  TransferKind = "PAYOUT"
	TransferKindRefund  TransferKind = "REFUND"
)

// EscrowTransfer is an audit row for every value movement on the ledger.
type EscrowTransfer struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	FromAddress string       `gorm:"size:80;index" json:"from_address"`
	ToAddress   string       `gorm:"size:80;not null;index" json:"to_address"`
	Amount      int64        `gorm:"not null" json:"amount"`
	Kind        TransferKind `gorm:"size:20;not null;index" json:"kind"`
	MarketID    *int64       `gorm:"index" json:"market_id,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

func (EscrowTransfer) TableName() string {
	return "escrow_transfers"
}

// DepositRequest credits a wallet's token account (devnet faucet semantics)
type DepositRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}
