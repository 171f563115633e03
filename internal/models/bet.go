package models

import (
	"time"

	"github.com/google/uuid"
)

type BetDirection string

const (
	DirectionYes BetDirection = "YES"
	DirectionNo  BetDirection = "NO"
)

// Bet represents a single wager on one side of a market. Exactly one bet
// exists per (market, bettor) pair, enforced by the composite unique index.
// Bets are immutable after creation except for the claim flag, which is set
// atomically with the payout transfer.
type Bet struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	MarketID  int64        `gorm:"not null;uniqueIndex:idx_bets_market_bettor;index" json:"market_id"`
	Bettor    string       `gorm:"size:64;not null;uniqueIndex:idx_bets_market_bettor;index" json:"bettor"`
	Amount    int64        `gorm:"not null" json:"amount"`
	Direction BetDirection `gorm:"size:10;not null" json:"direction"`
	Claimed   bool         `gorm:"not null;default:false" json:"claimed"`
	Payout    *int64       `json:"payout,omitempty"`
	ClaimedAt *time.Time   `json:"claimed_at,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

func (Bet) TableName() string {
	return "bets"
}

// PlaceBetRequest represents a request to stake on one side of a market
type PlaceBetRequest struct {
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	Direction string `json:"direction" binding:"required,oneof=YES NO"`
}
