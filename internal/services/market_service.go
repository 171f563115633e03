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

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MarketService orchestrates the market lifecycle: create, bet, resolve,
// cancel, claim. Every operation is a single transaction covering the
// ledger mutation and the custody transfer; events are emitted only after
// the transaction commits.
type MarketService struct {
	repo   *repository.Repository
	ledger *escrow.Ledger
	sink   events.Sink
}

func NewMarketService(repo *repository.Repository, ledger *escrow.Ledger, sink events.Sink) *MarketService {
	return &MarketService{
		repo:   repo,
		ledger: ledger,
		sink:   sink,
	}
}

// CreateMarket opens a new market, funds its custody account with the
// creator's stake, and emits MarketCreated.
func (ms *MarketService) CreateMarket(
	ctx context.Context,
	creator string,
	req *models.CreateMarketRequest,
) (*models.Market, error) {
	if req.CreatorStake < 0 {
		return nil, ErrInvalidAmount
	}

	endTime := time.Unix(req.EndTime, 0)
	if !endTime.After(time.Now()) {
		return nil, ErrEndTimeInPast
	}

	custody := escrow.CustodyAddress(req.MarketID)
	market := &models.Market{
		ID:             uuid.New(),
		MarketID:       req.MarketID,
		Creator:        creator,
		Description:    req.Description,
		EndTime:        endTime,
		CreatorStake:   req.CreatorStake,
		TotalPool:      req.CreatorStake,
		YesPool:        0,
		NoPool:         0,
		Status:         models.MarketStatusActive,
		CustodyAddress: custody,
		CreatedAt:      time.Now(),
	}

	err := ms.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if _, err := txRepo.GetMarketByMarketID(ctx, req.MarketID); err == nil {
			return ErrDuplicateMarket
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check market id: %w", err)
		}

		if err := txRepo.CreateMarket(ctx, market); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateMarket
			}
			return fmt.Errorf("failed to create market: %w", err)
		}

		txLedger := ms.ledger.WithTx(txRepo.DB())
		if err := txLedger.EnsureAccount(custody, custody); err != nil {
			return fmt.Errorf("failed to create custody account: %w", err)
		}

		if req.CreatorStake > 0 {
			err := txLedger.Transfer(
				escrow.AccountAuthority(creator),
				custody,
				req.CreatorStake,
				models.TransferKindStake,
				&req.MarketID,
			)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	ms.sink.Emit(events.Event{
		Type:     models.EventMarketCreated,
		MarketID: market.MarketID,
		Actor:    creator,
		Amount:   req.CreatorStake,
		Payload: map[string]interface{}{
			"description":   market.Description,
			"end_time":      market.EndTime.Unix(),
			"creator_stake": market.CreatorStake,
		},
	})

	log.Printf("[MarketService] Market %d created by %s (stake=%d, ends=%s)",
		market.MarketID, creator, req.CreatorStake, market.EndTime.Format(time.RFC3339))

	return market, nil
}

// PlaceBet records a wager on one side of an active, unexpired market,
// applies the pool increments, and moves the stake into custody.
func (ms *MarketService) PlaceBet(
	ctx context.Context,
	bettor string,
	marketID int64,
	req *models.PlaceBetRequest,
) (*models.Bet, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	direction := models.BetDirection(req.Direction)
	if direction != models.DirectionYes && direction != models.DirectionNo {
		return nil, ErrInvalidOutcome
	}

	now := time.Now()
	bet := &models.Bet{
		ID:        uuid.New(),
		MarketID:  marketID,
		Bettor:    bettor,
		Amount:    req.Amount,
		Direction: direction,
		CreatedAt: now,
	}

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
		if !now.Before(market.EndTime) {
			return ErrMarketExpired
		}

		if _, err := txRepo.GetBet(ctx, marketID, bettor); err == nil {
			return ErrDuplicateBet
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check existing bet: %w", err)
		}

		if err := txRepo.CreateBet(ctx, bet); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateBet
			}
			return fmt.Errorf("failed to create bet: %w", err)
		}

		applied, err := txRepo.ApplyBetToPools(ctx, marketID, req.Amount, direction, now)
		if err != nil {
			return fmt.Errorf("failed to update pools: %w", err)
		}
		if !applied {
			// The guarded update raced a resolve or the deadline; the
			// transaction rolls the bet back with it.
			return ErrMarketNotActive
		}

		return ms.ledger.WithTx(txRepo.DB()).Transfer(
			escrow.AccountAuthority(bettor),
			market.CustodyAddress,
			req.Amount,
			models.TransferKindBet,
			&marketID,
		)
	})
	if err != nil {
		return nil, err
	}

	ms.sink.Emit(events.Event{
		Type:     models.EventBetPlaced,
		MarketID: marketID,
		Actor:    bettor,
		Amount:   req.Amount,
		Payload: map[string]interface{}{
			"direction": string(direction),
		},
	})

	log.Printf("[MarketService] Bet placed on market %d by %s: %d on %s",
		marketID, bettor, req.Amount, direction)

	return bet, nil
}

// GetMarket retrieves a market by its external ID
func (ms *MarketService) GetMarket(ctx context.Context, marketID int64) (*models.Market, error) {
	market, err := ms.repo.GetMarketByMarketID(ctx, marketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMarketNotFound
		}
		return nil, err
	}
	return market, nil
}

// ListMarkets retrieves markets by status with pagination
func (ms *MarketService) ListMarkets(ctx context.Context, status models.MarketStatus, limit, offset int) ([]*models.Market, int64, error) {
	return ms.repo.ListMarkets(ctx, status, limit, offset)
}

// GetBet retrieves the bet for a (market, bettor) pair
func (ms *MarketService) GetBet(ctx context.Context, marketID int64, bettor string) (*models.Bet, error) {
	bet, err := ms.repo.GetBet(ctx, marketID, bettor)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBetNotFound
		}
		return nil, err
	}
	return bet, nil
}

// ListBets retrieves all bets on a market
func (ms *MarketService) ListBets(ctx context.Context, marketID int64) ([]*models.Bet, error) {
	return ms.repo.ListBetsByMarket(ctx, marketID)
}
