package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"solrem-markets/internal/escrow"
	"solrem-markets/internal/events"
	"solrem-markets/internal/models"
	"solrem-markets/internal/repository"
)

type testEnv struct {
	db     *gorm.DB
	svc    *MarketService
	ledger *escrow.Ledger
}

func setupTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Market{},
		&models.Bet{},
		&models.TokenAccount{},
		&models.EscrowTransfer{},
		&models.DomainEvent{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	// Clean all tables; the shared in-memory DB persists across tests.
	db.Exec("DELETE FROM domain_events")
	db.Exec("DELETE FROM escrow_transfers")
	db.Exec("DELETE FROM token_accounts")
	db.Exec("DELETE FROM bets")
	db.Exec("DELETE FROM markets")
	db.Exec("DELETE FROM users")

	ledger := escrow.NewLedger(db)
	repo := repository.NewRepository(db)
	return &testEnv{
		db:     db,
		svc:    NewMarketService(repo, ledger, events.LogSink{}),
		ledger: ledger,
	}
}

func (env *testEnv) deposit(t *testing.T, address string, amount int64) {
	if err := env.ledger.Credit(address, amount, models.TransferKindDeposit); err != nil {
		t.Fatalf("deposit for %s failed: %v", address, err)
	}
}

func (env *testEnv) balance(t *testing.T, address string) int64 {
	balance, err := env.ledger.Balance(address)
	if err != nil {
		t.Fatalf("balance for %s failed: %v", address, err)
	}
	return balance
}

func (env *testEnv) createMarket(t *testing.T, creator string, marketID, stake int64) *models.Market {
	market, err := env.svc.CreateMarket(context.Background(), creator, &models.CreateMarketRequest{
		MarketID:     marketID,
		Description:  "Will it rain tomorrow?",
		EndTime:      time.Now().Add(time.Hour).Unix(),
		CreatorStake: stake,
	})
	if err != nil {
		t.Fatalf("CreateMarket failed: %v", err)
	}
	return market
}

// expireMarket rewinds the deadline so resolution preconditions can be tested
// without waiting.
func (env *testEnv) expireMarket(t *testing.T, marketID int64) {
	res := env.db.Model(&models.Market{}).
		Where("market_id = ?", marketID).
		Update("end_time", time.Now().Add(-time.Minute))
	if res.Error != nil || res.RowsAffected == 0 {
		t.Fatalf("failed to expire market %d: %v", marketID, res.Error)
	}
}

func TestCreateMarket(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.deposit(t, "creator", 1000)
	market := env.createMarket(t, "creator", 1, 100)

	if market.TotalPool != 100 || market.YesPool != 0 || market.NoPool != 0 {
		t.Errorf("expected pools (100, 0, 0), got (%d, %d, %d)",
			market.TotalPool, market.YesPool, market.NoPool)
	}
	if market.Status != models.MarketStatusActive {
		t.Errorf("expected ACTIVE status, got %s", market.Status)
	}

	// The stake moved from the creator into custody.
	if got := env.balance(t, "creator"); got != 900 {
		t.Errorf("expected creator balance 900, got %d", got)
	}
	if got := env.balance(t, escrow.CustodyAddress(1)); got != 100 {
		t.Errorf("expected custody balance 100, got %d", got)
	}

	// Same market_id again is rejected.
	_, err := env.svc.CreateMarket(ctx, "creator", &models.CreateMarketRequest{
		MarketID:     1,
		Description:  "duplicate",
		EndTime:      time.Now().Add(time.Hour).Unix(),
		CreatorStake: 0,
	})
	if !errors.Is(err, ErrDuplicateMarket) {
		t.Errorf("expected ErrDuplicateMarket, got %v", err)
	}
}

func TestCreateMarketZeroStake(t *testing.T) {
	env := setupTestEnv(t)

	// No deposit needed: a zero stake never touches the ledger.
	market := env.createMarket(t, "creator", 2, 0)
	if market.TotalPool != 0 {
		t.Errorf("expected empty pool, got %d", market.TotalPool)
	}
	if got := env.balance(t, escrow.CustodyAddress(2)); got != 0 {
		t.Errorf("expected empty custody account, got %d", got)
	}
}

func TestCreateMarketEndTimeInPast(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.svc.CreateMarket(context.Background(), "creator", &models.CreateMarketRequest{
		MarketID:     3,
		Description:  "already over",
		EndTime:      time.Now().Add(-time.Hour).Unix(),
		CreatorStake: 0,
	})
	if !errors.Is(err, ErrEndTimeInPast) {
		t.Errorf("expected ErrEndTimeInPast, got %v", err)
	}
}

func TestCreateMarketInsufficientFundsRollsBack(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.deposit(t, "creator", 50)

	_, err := env.svc.CreateMarket(ctx, "creator", &models.CreateMarketRequest{
		MarketID:     4,
		Description:  "underfunded",
		EndTime:      time.Now().Add(time.Hour).Unix(),
		CreatorStake: 100,
	})
	if !errors.Is(err, escrow.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// All or nothing: the market row must not survive the failed transfer.
	if _, err := env.svc.GetMarket(ctx, 4); !errors.Is(err, ErrMarketNotFound) {
		t.Errorf("expected market 4 rolled back, got %v", err)
	}
	if got := env.balance(t, "creator"); got != 50 {
		t.Errorf("expected creator balance untouched at 50, got %d", got)
	}
}

func TestPlaceBet(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.deposit(t, "creator", 100)
	env.deposit(t, "alice", 500)
	env.deposit(t, "bob", 500)
	env.createMarket(t, "creator", 10, 100)

	_, err := env.svc.PlaceBet(ctx, "alice", 10, &models.PlaceBetRequest{Amount: 50, Direction: "YES"})
	if err != nil {
		t.Fatalf("PlaceBet failed: %v", err)
	}
	_, err = env.svc.PlaceBet(ctx, "bob", 10, &models.PlaceBetRequest{Amount: 150, Direction: "NO"})
	if err != nil {
		t.Fatalf("PlaceBet failed: %v", err)
	}

	market, err := env.svc.GetMarket(ctx, 10)
	if err != nil {
		t.Fatalf("GetMarket failed: %v", err)
	}
	if market.TotalPool != 300 || market.YesPool != 50 || market.NoPool != 150 {
		t.Errorf("expected pools (300, 50, 150), got (%d, %d, %d)",
			market.TotalPool, market.YesPool, market.NoPool)
	}

	// Stakes are in custody, side pools sum with the creator stake.
	if got := env.balance(t, escrow.CustodyAddress(10)); got != 300 {
		t.Errorf("expected custody balance 300, got %d", got)
	}
	if got := env.balance(t, "alice"); got != 450 {
		t.Errorf("expected alice balance 450, got %d", got)
	}

	// One bet per bettor per market.
	_, err = env.svc.PlaceBet(ctx, "alice", 10, &models.PlaceBetRequest{Amount: 10, Direction: "NO"})
	if !errors.Is(err, ErrDuplicateBet) {
		t.Errorf("expected ErrDuplicateBet, got %v", err)
	}

	_, err = env.svc.PlaceBet(ctx, "alice", 999, &models.PlaceBetRequest{Amount: 10, Direction: "YES"})
	if !errors.Is(err, ErrMarketNotFound) {
		t.Errorf("expected ErrMarketNotFound, got %v", err)
	}
}

func TestPlaceBetExpiredMarket(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.deposit(t, "alice", 100)
	env.createMarket(t, "creator", 11, 0)
	env.expireMarket(t, 11)

	_, err := env.svc.PlaceBet(ctx, "alice", 11, &models.PlaceBetRequest{Amount: 50, Direction: "YES"})
	if !errors.Is(err, ErrMarketExpired) {
		t.Errorf("expected ErrMarketExpired, got %v", err)
	}
}

func TestPlaceBetInsufficientFundsRollsBack(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.deposit(t, "alice", 30)
	env.createMarket(t, "creator", 12, 0)

	_, err := env.svc.PlaceBet(ctx, "alice", 12, &models.PlaceBetRequest{Amount: 50, Direction: "YES"})
	if !errors.Is(err, escrow.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// The bet row and the pool increments roll back together.
	if _, err := env.svc.GetBet(ctx, 12, "alice"); !errors.Is(err, ErrBetNotFound) {
		t.Errorf("expected bet rolled back, got %v", err)
	}
	market, _ := env.svc.GetMarket(ctx, 12)
	if market.TotalPool != 0 || market.YesPool != 0 {
		t.Errorf("expected pools unchanged, got total=%d yes=%d", market.TotalPool, market.YesPool)
	}
	if got := env.balance(t, "alice"); got != 30 {
		t.Errorf("expected alice balance untouched at 30, got %d", got)
	}
}

func TestResolveMarket(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.createMarket(t, "creator", 20, 0)

	// Only the creator resolves, and the rejection does not depend on
	// whether the deadline has passed.
	_, err := env.svc.ResolveMarket(ctx, "stranger", 20, models.OutcomeYes)
	if !errors.Is(err, ErrUnauthorizedResolver) {
		t.Errorf("expected ErrUnauthorizedResolver before expiry, got %v", err)
	}

	// Before the deadline resolution is premature even for the creator.
	_, err = env.svc.ResolveMarket(ctx, "creator", 20, models.OutcomeYes)
	if !errors.Is(err, ErrMarketNotExpired) {
		t.Errorf("expected ErrMarketNotExpired, got %v", err)
	}

	env.expireMarket(t, 20)

	_, err = env.svc.ResolveMarket(ctx, "stranger", 20, models.OutcomeYes)
	if !errors.Is(err, ErrUnauthorizedResolver) {
		t.Errorf("expected ErrUnauthorizedResolver after expiry, got %v", err)
	}

	market, err := env.svc.ResolveMarket(ctx, "creator", 20, models.OutcomeYes)
	if err != nil {
		t.Fatalf("ResolveMarket failed: %v", err)
	}
	if market.Status != models.MarketStatusResolved || market.Outcome != models.OutcomeYes {
		t.Errorf("expected RESOLVED/YES, got %s/%s", market.Status, market.Outcome)
	}
	if market.ResolvedAt == nil {
		t.Error("expected resolved_at to be set")
	}

	// Resolution is one-way.
	_, err = env.svc.ResolveMarket(ctx, "creator", 20, models.OutcomeNo)
	if !errors.Is(err, ErrMarketNotActive) {
		t.Errorf("expected ErrMarketNotActive on second resolve, got %v", err)
	}

	// No bets after resolution.
	env.deposit(t, "alice", 100)
	_, err = env.svc.PlaceBet(ctx, "alice", 20, &models.PlaceBetRequest{Amount: 10, Direction: "YES"})
	if !errors.Is(err, ErrMarketNotActive) {
		t.Errorf("expected ErrMarketNotActive for bet on resolved market, got %v", err)
	}
}

func TestResolveMarketInvalidOutcome(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.svc.ResolveMarket(context.Background(), "creator", 21, models.MarketOutcome("MAYBE"))
	if !errors.Is(err, ErrInvalidOutcome) {
		t.Errorf("expected ErrInvalidOutcome, got %v", err)
	}
}

func TestClaimWinnings(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.deposit(t, "creator", 100)
	env.deposit(t, "alice", 50)
	env.deposit(t, "bob", 150)

	env.createMarket(t, "creator", 30, 100)
	if _, err := env.svc.PlaceBet(ctx, "alice", 30, &models.PlaceBetRequest{Amount: 50, Direction: "YES"}); err != nil {
		t.Fatalf("PlaceBet failed: %v", err)
	}
	if _, err := env.svc.PlaceBet(ctx, "bob", 30, &models.PlaceBetRequest{Amount: 150, Direction: "NO"}); err != nil {
		t.Fatalf("PlaceBet failed: %v", err)
	}

	// Claims before resolution are rejected.
	if _, err := env.svc.ClaimWinnings(ctx, "alice", 30); !errors.Is(err, ErrMarketNotResolved) {
		t.Errorf("expected ErrMarketNotResolved, got %v", err)
	}

	env.expireMarket(t, 30)
	if _, err := env.svc.ResolveMarket(ctx, "creator", 30, models.OutcomeYes); err != nil {
		t.Fatalf("ResolveMarket failed: %v", err)
	}

	// Alice is the sole YES bettor and takes the entire 300 pool.
	payout, err := env.svc.ClaimWinnings(ctx, "alice", 30)
	if err != nil {
		t.Fatalf("ClaimWinnings failed: %v", err)
	}
	if payout != 300 {
		t.Errorf("expected payout 300, got %d", payout)
	}
	if got := env.balance(t, "alice"); got != 300 {
		t.Errorf("expected alice balance 300, got %d", got)
	}
	if got := env.balance(t, escrow.CustodyAddress(30)); got != 0 {
		t.Errorf("expected drained custody account, got %d", got)
	}

	// Bob lost: the claim succeeds with a zero payout and no transfer.
	payout, err = env.svc.ClaimWinnings(ctx, "bob", 30)
	if err != nil {
		t.Fatalf("losing ClaimWinnings failed: %v", err)
	}
	if payout != 0 {
		t.Errorf("expected zero payout for losing bet, got %d", payout)
	}

	// Both bets are now settled exactly once.
	if _, err := env.svc.ClaimWinnings(ctx, "alice", 30); !errors.Is(err, ErrAlreadyClaimed) {
		t.Errorf("expected ErrAlreadyClaimed, got %v", err)
	}
	if _, err := env.svc.ClaimWinnings(ctx, "bob", 30); !errors.Is(err, ErrAlreadyClaimed) {
		t.Errorf("expected ErrAlreadyClaimed for bob, got %v", err)
	}

	bet, err := env.svc.GetBet(ctx, 30, "alice")
	if err != nil {
		t.Fatalf("GetBet failed: %v", err)
	}
	if !bet.Claimed || bet.Payout == nil || *bet.Payout != 300 {
		t.Errorf("expected claimed bet with payout 300, got claimed=%v payout=%v", bet.Claimed, bet.Payout)
	}
}

func TestClaimWinningsNoBet(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.createMarket(t, "creator", 31, 0)
	env.expireMarket(t, 31)
	if _, err := env.svc.ResolveMarket(ctx, "creator", 31, models.OutcomeNo); err != nil {
		t.Fatalf("ResolveMarket failed: %v", err)
	}

	if _, err := env.svc.ClaimWinnings(ctx, "stranger", 31); !errors.Is(err, ErrBetNotFound) {
		t.Errorf("expected ErrBetNotFound, got %v", err)
	}
}

func TestCancelMarket(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.deposit(t, "creator", 100)
	env.createMarket(t, "creator", 40, 100)

	// Only the creator may cancel.
	_, err := env.svc.CancelMarket(ctx, "stranger", 40)
	if !errors.Is(err, ErrUnauthorizedResolver) {
		t.Errorf("expected ErrUnauthorizedResolver, got %v", err)
	}

	market, err := env.svc.CancelMarket(ctx, "creator", 40)
	if err != nil {
		t.Fatalf("CancelMarket failed: %v", err)
	}
	if market.Status != models.MarketStatusCancelled {
		t.Errorf("expected CANCELLED status, got %s", market.Status)
	}

	// The stake came back.
	if got := env.balance(t, "creator"); got != 100 {
		t.Errorf("expected refunded creator balance 100, got %d", got)
	}

	// Cancelled markets take no bets.
	env.deposit(t, "alice", 100)
	_, err = env.svc.PlaceBet(ctx, "alice", 40, &models.PlaceBetRequest{Amount: 10, Direction: "YES"})
	if !errors.Is(err, ErrMarketNotActive) {
		t.Errorf("expected ErrMarketNotActive, got %v", err)
	}
}

func TestCancelMarketWithBets(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.deposit(t, "alice", 100)
	env.createMarket(t, "creator", 41, 0)
	if _, err := env.svc.PlaceBet(ctx, "alice", 41, &models.PlaceBetRequest{Amount: 25, Direction: "NO"}); err != nil {
		t.Fatalf("PlaceBet failed: %v", err)
	}

	_, err := env.svc.CancelMarket(ctx, "creator", 41)
	if !errors.Is(err, ErrMarketHasBets) {
		t.Errorf("expected ErrMarketHasBets, got %v", err)
	}
}

func TestStoreSinkAppendsEvents(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	// Rebuild the service over a store-backed sink to check the event trail.
	repo := repository.NewRepository(env.db)
	svc := NewMarketService(repo, env.ledger, events.NewStoreSink(env.db))

	env.deposit(t, "creator", 100)
	env.deposit(t, "alice", 50)

	_, err := svc.CreateMarket(ctx, "creator", &models.CreateMarketRequest{
		MarketID:     50,
		Description:  "event trail",
		EndTime:      time.Now().Add(time.Hour).Unix(),
		CreatorStake: 100,
	})
	if err != nil {
		t.Fatalf("CreateMarket failed: %v", err)
	}
	if _, err := svc.PlaceBet(ctx, "alice", 50, &models.PlaceBetRequest{Amount: 50, Direction: "YES"}); err != nil {
		t.Fatalf("PlaceBet failed: %v", err)
	}
	env.expireMarket(t, 50)
	if _, err := svc.ResolveMarket(ctx, "creator", 50, models.OutcomeYes); err != nil {
		t.Fatalf("ResolveMarket failed: %v", err)
	}
	if _, err := svc.ClaimWinnings(ctx, "alice", 50); err != nil {
		t.Fatalf("ClaimWinnings failed: %v", err)
	}

	var rows []models.DomainEvent
	if err := env.db.Where("market_id = ?", 50).Find(&rows).Error; err != nil {
		t.Fatalf("failed to load events: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 events, got %d", len(rows))
	}

	byType := make(map[string]models.DomainEvent, len(rows))
	for _, row := range rows {
		byType[row.Type] = row
	}
	for _, want := range []string{
		models.EventMarketCreated,
		models.EventBetPlaced,
		models.EventMarketResolved,
		models.EventWinningsClaimed,
	} {
		if _, ok := byType[want]; !ok {
			t.Errorf("missing %s event", want)
		}
	}
	if claimed := byType[models.EventWinningsClaimed]; claimed.Amount != 150 {
		t.Errorf("expected claimed amount 150, got %d", claimed.Amount)
	}
}

func TestFailedOperationEmitsNoEvent(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	repo := repository.NewRepository(env.db)
	svc := NewMarketService(repo, env.ledger, events.NewStoreSink(env.db))

	// Underfunded creator: the transaction aborts before any emit.
	env.deposit(t, "creator", 10)
	_, err := svc.CreateMarket(ctx, "creator", &models.CreateMarketRequest{
		MarketID:     51,
		Description:  "never happens",
		EndTime:      time.Now().Add(time.Hour).Unix(),
		CreatorStake: 100,
	})
	if !errors.Is(err, escrow.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	var count int64
	env.db.Model(&models.DomainEvent{}).Where("market_id = ?", 51).Count(&count)
	if count != 0 {
		t.Errorf("expected no events for failed operation, got %d", count)
	}
}
