// Package settlement computes payouts for resolved markets. It is pure
// arithmetic with no storage or transfer side effects.
package settlement

import (
	"fmt"
	"math"
	"math/bits"

	"solrem-markets/internal/models"
)

// WinningPool returns the side pool matching the market's outcome.
func WinningPool(m *models.Market) int64 {
	switch m.Outcome {
	case models.OutcomeYes:
		return m.YesPool
	case models.OutcomeNo:
		return m.NoPool
	default:
		return 0
	}
}

// Payout returns the amount owed to a bet on a resolved market:
// floor(bet.amount * market.total_pool / winning_pool) when the bet is on
// the winning side, zero otherwise. Winners split the entire pool (both
// sides plus the creator stake) in proportion to their share of the winning
// side. The multiplication is carried out in 128 bits so pools near the
// int64 range cannot overflow, and floor rounding means the sum of all
// payouts can fall short of total_pool by at most one unit per winning bet.
func Payout(m *models.Market, b *models.Bet) (int64, error) {
	if m.Status != models.MarketStatusResolved {
		return 0, fmt.Errorf("market %d is not resolved", m.MarketID)
	}

	if models.MarketOutcome(b.Direction) != m.Outcome {
		return 0, nil
	}

	winning := WinningPool(m)
	if winning <= 0 {
		return 0, nil
	}
	if b.Amount < 0 || m.TotalPool < 0 {
		return 0, fmt.Errorf("negative pool state on market %d", m.MarketID)
	}

	hi, lo := bits.Mul64(uint64(b.Amount), uint64(m.TotalPool))
	if hi >= uint64(winning) {
		// Unreachable while the pool invariant holds: a winning bet's amount
		// is itself part of the winning pool, so amount <= winning and the
		// quotient is bounded by total_pool.
		return 0, fmt.Errorf("payout overflow on market %d: bet %d exceeds winning pool %d",
			m.MarketID, b.Amount, winning)
	}
	quo, _ := bits.Div64(hi, lo, uint64(winning))
	if quo > math.MaxInt64 {
		return 0, fmt.Errorf("payout overflow on market %d: quotient %d", m.MarketID, quo)
	}

	return int64(quo), nil
}
