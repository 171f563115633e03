package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventMarketCreated   = "MarketCreated"
	EventBetPlaced       = "BetPlaced"
	EventMarketResolved  = "MarketResolved"
	EventMarketCancelled = "MarketCancelled"
	EventWinningsClaimed = "WinningsClaimed"
)

// DomainEvent is an append-only log row consumed by external indexers.
// The core never reads events back.
type DomainEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Type      string    `gorm:"size:50;not null;index" json:"type"`
	MarketID  int64     `gorm:"not null;index" json:"market_id"`
	Actor     string    `gorm:"size:64" json:"actor"`
	Amount    int64     `json:"amount"`
	Payload   string    `gorm:"type:text" json:"payload"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (DomainEvent) TableName() string {
	return "domain_events"
}
