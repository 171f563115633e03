package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solrem-markets/internal/escrow"
	"solrem-markets/internal/events"
	"solrem-markets/internal/models"
	"solrem-markets/internal/repository"
	"solrem-markets/internal/settlement"

	"gorm.io/gorm"
)

// ClaimWinnings settles a bettor's position on a resolved market. The payout
// transfer out of custody is authorized by the market's own authority, never
// the caller's, and the bet's claim flag flips in the same transaction so a
// second claim cannot drain custody twice. A losing bet claims successfully
// with a zero payout.
func (ms *MarketService) ClaimWinnings(
	ctx context.Context,
	bettor string,
	marketID int64,
) (int64, error) {
	now := time.Now()
	var payout int64

	err := ms.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		market, err := txRepo.GetMarketByMarketID(ctx, marketID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMarketNotFound
			}
			return fmt.Errorf("failed to get market: %w", err)
		}
		if market.Status != models.MarketStatusResolved {
			return ErrMarketNotResolved
		}

		// The lookup is keyed by (market, bettor), so the claim is scoped to
		// the caller's own bet; a stranger simply has no bet to find.
		bet, err := txRepo.GetBet(ctx, marketID, bettor)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBetNotFound
			}
			return fmt.Errorf("failed to get bet: %w", err)
		}
		if bet.Claimed {
			return ErrAlreadyClaimed
		}

		payout, err = settlement.Payout(market, bet)
		if err != nil {
			return fmt.Errorf("failed to compute payout: %w", err)
		}

		claimed, err := txRepo.MarkBetClaimed(ctx, marketID, bettor, payout, now)
		if err != nil {
			return fmt.Errorf("failed to mark bet claimed: %w", err)
		}
		if !claimed {
			return ErrAlreadyClaimed
		}

		if payout > 0 {
			err := ms.ledger.WithTx(txRepo.DB()).Transfer(
				escrow.MarketAuthority(marketID),
				bettor,
				payout,
				models.TransferKindPayout,
				&marketID,
			)
			if err != nil {
				if errors.Is(err, escrow.ErrInsufficientFunds) {
					// Custody should always cover a computed payout; an
					// underfunded custody account means the accounting
					// invariant broke somewhere else. Reported as internal,
					// not as a caller funding error.
					return fmt.Errorf("custody invariant violation on market %d: payout %d: %v",
						marketID, payout, err)
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	ms.sink.Emit(events.Event{
		Type:     models.EventWinningsClaimed,
		MarketID: marketID,
		Actor:    bettor,
		Amount:   payout,
	})

	log.Printf("[MarketService] Winnings claimed on market %d by %s: %d", marketID, bettor, payout)

	return payout, nil
}
