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

	"gorm.io/gorm"
)

// ResolveMarket declares the true outcome of an expired market. Only the
// creator may resolve, only after the deadline, and the Active -> Resolved
// transition is one-way.
func (ms *MarketService) ResolveMarket(
	ctx context.Context,
	resolver string,
	marketID int64,
	outcome models.MarketOutcome,
) (*models.Market, error) {
	if outcome != models.OutcomeYes && outcome != models.OutcomeNo {
		return nil, ErrInvalidOutcome
	}

	now := time.Now()

	err := ms.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		market, err := txRepo.GetMarketByMarketID(ctx, marketID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMarketNotFound
			}
			return fmt.Errorf("failed to get market: %w", err)
		}
		if market.Status != models.MarketStatusActive {
			return ErrMarketNotActive
		}
		// Authorization is checked before timing: a non-creator is rejected
		// the same way whether the deadline has passed or not.
		if market.Creator != resolver {
			return ErrUnauthorizedResolver
		}
		if now.Before(market.EndTime) {
			return ErrMarketNotExpired
		}

		resolved, err := txRepo.MarkMarketResolved(ctx, marketID, outcome, now)
		if err != nil {
			return fmt.Errorf("failed to resolve market: %w", err)
		}
		if !resolved {
			return ErrMarketNotActive
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ms.sink.Emit(events.Event{
		Type:     models.EventMarketResolved,
		MarketID: marketID,
		Actor:    resolver,
		Payload: map[string]interface{}{
			"outcome":     string(outcome),
			"resolved_at": now.Unix(),
		},
	})

	log.Printf("[MarketService] Market %d resolved %s by %s", marketID, outcome, resolver)

	return ms.GetMarket(ctx, marketID)
}

// CancelMarket voids an active market that has attracted no bets, refunding
// the creator stake from custody. Resolution authority applies: only the
// creator can cancel.
func (ms *MarketService) CancelMarket(
	ctx context.Context,
	creator string,
	marketID int64,
) (*models.Market, error) {
	now := time.Now()
	var refunded int64

	err := ms.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		market, err := txRepo.GetMarketByMarketID(ctx, marketID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMarketNotFound
			}
			return fmt.Errorf("failed to get market: %w", err)
		}
		if market.Status != models.MarketStatusActive {
			return ErrMarketNotActive
		}
		if market.Creator != creator {
			return ErrUnauthorizedResolver
		}

		betCount, err := txRepo.CountBetsByMarket(ctx, marketID)
		if err != nil {
			return fmt.Errorf("failed to count bets: %w", err)
		}
		if betCount > 0 {
			return ErrMarketHasBets
		}

		cancelled, err := txRepo.MarkMarketCancelled(ctx, marketID, now)
		if err != nil {
			return fmt.Errorf("failed to cancel market: %w", err)
		}
		if !cancelled {
			return ErrMarketNotActive
		}

		if market.CreatorStake > 0 {
			refunded = market.CreatorStake
			err := ms.ledger.WithTx(txRepo.DB()).Transfer(
				escrow.MarketAuthority(marketID),
				creator,
				market.CreatorStake,
				models.TransferKindRefund,
				&marketID,
			)
			if err != nil {
				if errors.Is(err, escrow.ErrInsufficientFunds) {
					return fmt.Errorf("custody invariant violation on market %d: %v", marketID, err)
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ms.sink.Emit(events.Event{
		Type:     models.EventMarketCancelled,
		MarketID: marketID,
		Actor:    creator,
		Amount:   refunded,
	})

	log.Printf("[MarketService] Market %d cancelled by %s (refund=%d)", marketID, creator, refunded)

	return ms.GetMarket(ctx, marketID)
}
