package models

import (
	"time"

	"github.com/google/uuid"
)

type MarketStatus string

const (
	MarketStatusActive    MarketStatus = "ACTIVE"
	MarketStatusResolved  MarketStatus = "RESOLVED"
	MarketStatusCancelled MarketStatus = "CANCELLED"
)

type MarketOutcome string

const (
	// OutcomeNone is the zero value for an unresolved market.
	OutcomeNone MarketOutcome = ""
	OutcomeYes  MarketOutcome = "YES"
	OutcomeNo   MarketOutcome = "NO"
)

// Market represents a pooled binary-outcome prediction market. Amounts are
// integers in the smallest token denomination. TotalPool always equals
// CreatorStake plus the sum of all bet amounts; the creator stake is seed
// liquidity and is not attributed to either side pool.
type Market struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	MarketID       int64         `gorm:"uniqueIndex;not null" json:"market_id"`
	Creator        string        `gorm:"size:64;not null;index" json:"creator"`
	Description    string        `gorm:"size:500;not null" json:"description"`
	EndTime        time.Time     `gorm:"not null" json:"end_time"`
	CreatorStake   int64         `gorm:"not null" json:"creator_stake"`
	TotalPool      int64         `gorm:"not null" json:"total_pool"`
	YesPool        int64         `gorm:"not null;default:0" json:"yes_pool"`
	NoPool         int64         `gorm:"not null;default:0" json:"no_pool"`
	Status         MarketStatus  `gorm:"size:20;not null;default:ACTIVE;index" json:"status"`
	Outcome        MarketOutcome `gorm:"size:10" json:"outcome,omitempty"`
	CustodyAddress string        `gorm:"size:80;uniqueIndex;not null" json:"custody_address"`
	CreatedAt      time.Time     `json:"created_at"`
	ResolvedAt     *time.Time    `json:"resolved_at,omitempty"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (Market) TableName() string {
	return "markets"
}

// CreateMarketRequest represents a request to open a new market
type CreateMarketRequest struct {
	MarketID     int64  `json:"market_id" binding:"required,gt=0"`
	Description  string `json:"description" binding:"required,max=500"`
	EndTime      int64  `json:"end_time" binding:"required"` // unix seconds
	CreatorStake int64  `json:"creator_stake" binding:"gte=0"`
}

// ResolveMarketRequest declares the true outcome of an expired market
type ResolveMarketRequest struct {
	Outcome string `json:"outcome" binding:"required,oneof=YES NO"`
}
