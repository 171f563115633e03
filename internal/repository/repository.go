package repository

import (
	"context"
	"time"

	"solrem-markets/internal/models"

	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transaction runs fn against a transaction-bound repository. Everything fn
// writes commits or rolls back as a unit.
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// DB exposes the underlying handle so collaborators (the custody ledger)
// can join an open transaction.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// CreateMarket inserts a new market record
func (r *Repository) CreateMarket(ctx context.Context, market *models.Market) error {
	return r.db.WithContext(ctx).Create(market).Error
}

// GetMarketByMarketID retrieves a market by its external numeric ID
func (r *Repository) GetMarketByMarketID(ctx context.Context, marketID int64) (*models.Market, error) {
	var market models.Market
	err := r.db.WithContext(ctx).Where("market_id = ?", marketID).First(&market).Error
	if err != nil {
		return nil, err
	}
	return &market, nil
}

// ListMarkets retrieves markets filtered by status with pagination
func (r *Repository) ListMarkets(ctx context.Context, status models.MarketStatus, limit, offset int) ([]*models.Market, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Market{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var markets []*models.Market
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&markets).Error
	if err != nil {
		return nil, 0, err
	}

	return markets, total, nil
}

// ListExpiredActiveMarkets retrieves active markets whose deadline has
// passed and which are awaiting resolution by their creator.
func (r *Repository) ListExpiredActiveMarkets(ctx context.Context, now time.Time, limit int) ([]*models.Market, error) {
	var markets []*models.Market
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_time <= ?", models.MarketStatusActive, now).
		Order("end_time ASC").
		Limit(limit).
		Find(&markets).Error
	if err != nil {
		return nil, err
	}
	return markets, nil
}

// ApplyBetToPools atomically adds a bet amount to the market's side pool and
// total pool, guarded on the market still being active and unexpired. Zero
// rows affected means one of the guards failed; the caller disambiguates.
func (r *Repository) ApplyBetToPools(ctx context.Context, marketID int64, amount int64, direction models.BetDirection, now time.Time) (bool, error) {
	sideColumn := "yes_pool"
	if direction == models.DirectionNo {
		sideColumn = "no_pool"
	}

	res := r.db.WithContext(ctx).Model(&models.Market{}).
		Where("market_id = ? AND status = ? AND end_time > ?",
			marketID, models.MarketStatusActive, now).
		Updates(map[string]interface{}{
			sideColumn:   gorm.Expr(sideColumn+" + ?", amount),
			"total_pool": gorm.Expr("total_pool + ?", amount),
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkMarketResolved performs the one-way Active -> Resolved transition,
// guarded on current status so a concurrent resolve cannot apply twice.
func (r *Repository) MarkMarketResolved(ctx context.Context, marketID int64, outcome models.MarketOutcome, resolvedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Market{}).
		Where("market_id = ? AND status = ?", marketID, models.MarketStatusActive).
		Updates(map[string]interface{}{
			"status":      models.MarketStatusResolved,
			"outcome":     outcome,
			"resolved_at": resolvedAt,
			"updated_at":  resolvedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkMarketCancelled performs the Active -> Cancelled transition.
func (r *Repository) MarkMarketCancelled(ctx context.Context, marketID int64, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Market{}).
		Where("market_id = ? AND status = ?", marketID, models.MarketStatusActive).
		Updates(map[string]interface{}{
			"status":     models.MarketStatusCancelled,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CreateBet inserts a bet record; the composite unique index on
// (market_id, bettor) rejects a second bet for the same pair.
func (r *Repository) CreateBet(ctx context.Context, bet *models.Bet) error {
	return r.db.WithContext(ctx).Create(bet).Error
}

// GetBet retrieves the bet for a (market, bettor) pair
func (r *Repository) GetBet(ctx context.Context, marketID int64, bettor string) (*models.Bet, error) {
	var bet models.Bet
	err := r.db.WithContext(ctx).
		Where("market_id = ? AND bettor = ?", marketID, bettor).
		First(&bet).Error
	if err != nil {
		return nil, err
	}
	return &bet, nil
}

// ListBetsByMarket retrieves all bets on a market
func (r *Repository) ListBetsByMarket(ctx context.Context, marketID int64) ([]*models.Bet, error) {
	var bets []*models.Bet
	err := r.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("created_at ASC").
		Find(&bets).Error
	if err != nil {
		return nil, err
	}
	return bets, nil
}

// CountBetsByMarket counts bets on a market
func (r *Repository) CountBetsByMarket(ctx context.Context, marketID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Bet{}).
		Where("market_id = ?", marketID).
		Count(&count).Error
	return count, err
}

// MarkBetClaimed flips the claim flag exactly once; the claimed = false
// guard makes a second claim a no-op the caller turns into AlreadyClaimed.
func (r *Repository) MarkBetClaimed(ctx context.Context, marketID int64, bettor string, payout int64, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Bet{}).
		Where("market_id = ? AND bettor = ? AND claimed = ?", marketID, bettor, false).
		Updates(map[string]interface{}{
			"claimed":    true,
			"payout":     payout,
			"claimed_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GetUserByWallet retrieves a user by wallet address
func (r *Repository) GetUserByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("wallet_address = ?", walletAddress).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a new user record
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}
