package models

import (
	"time"
)

// User represents an authenticated participant, keyed by Solana wallet
// address. The wallet address doubles as the bettor identity on the ledger.
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	WalletAddress string    `gorm:"uniqueIndex;size:64;not null" json:"wallet_address"`
	Nickname      string    `gorm:"size:255" json:"nickname"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
