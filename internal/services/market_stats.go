package services

import (
	"context"

	"github.com/shopspring/decimal"
)

// MarketStats summarizes a market's pools for display: side pools in token
// units and the implied probability each side's stake assigns to a YES
// outcome.
type MarketStats struct {
	MarketID      int64           `json:"market_id"`
	Status        string          `json:"status"`
	TotalPool     decimal.Decimal `json:"total_pool"`
	YesPool       decimal.Decimal `json:"yes_pool"`
	NoPool        decimal.Decimal `json:"no_pool"`
	CreatorStake  decimal.Decimal `json:"creator_stake"`
	ImpliedYes    decimal.Decimal `json:"implied_yes"`
	ImpliedNo     decimal.Decimal `json:"implied_no"`
	BetCount      int64           `json:"bet_count"`
	TokenDecimals int32           `json:"token_decimals"`
}

// StatsService converts raw integer pool counters into display units.
type StatsService struct {
	markets       *MarketService
	tokenDecimals int32
}

func NewStatsService(markets *MarketService, tokenDecimals int32) *StatsService {
	return &StatsService{
		markets:       markets,
		tokenDecimals: tokenDecimals,
	}
}

// DisplayAmount converts a smallest-denomination amount into token units.
func (ss *StatsService) DisplayAmount(amount int64) decimal.Decimal {
	return decimal.NewFromInt(amount).Shift(-ss.tokenDecimals)
}

// MarketStats computes display stats for one market.
func (ss *StatsService) MarketStats(ctx context.Context, marketID int64) (*MarketStats, error) {
	market, err := ss.markets.GetMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}

	betCount, err := ss.markets.repo.CountBetsByMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}

	stats := &MarketStats{
		MarketID:      market.MarketID,
		Status:        string(market.Status),
		TotalPool:     ss.DisplayAmount(market.TotalPool),
		YesPool:       ss.DisplayAmount(market.YesPool),
		NoPool:        ss.DisplayAmount(market.NoPool),
		CreatorStake:  ss.DisplayAmount(market.CreatorStake),
		BetCount:      betCount,
		TokenDecimals: ss.tokenDecimals,
	}

	sides := decimal.NewFromInt(market.YesPool).Add(decimal.NewFromInt(market.NoPool))
	if sides.IsPositive() {
		stats.ImpliedYes = decimal.NewFromInt(market.YesPool).DivRound(sides, 4)
		stats.ImpliedNo = decimal.NewFromInt(1).Sub(stats.ImpliedYes)
	}

	return stats, nil
}
