// Package escrow implements the custody ledger: token accounts keyed by
// address, conditional debits, and an audit trail of every transfer.
package escrow

import (
	"errors"
	"fmt"
	"time"

	"solrem-markets/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientFunds is returned when a debit would take an account below
// zero. Callers must treat it as aborting the whole operation.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrUnknownAccount is returned when debiting an address with no account.
var ErrUnknownAccount = errors.New("unknown token account")

// Authority is the capability to debit a single account. Participant
// authorities come from their authenticated wallet address; market custody
// authorities are constructed only by the orchestrator, never handed to
// external callers.
type Authority struct {
	account string
}

// AccountAuthority grants debit rights over a participant's own account.
func AccountAuthority(address string) Authority {
	return Authority{account: address}
}

// MarketAuthority grants debit rights over a market's custody account.
func MarketAuthority(marketID int64) Authority {
	return Authority{account: CustodyAddress(marketID)}
}

// Account returns the address this authority can debit.
func (a Authority) Account() string {
	return a.account
}

// CustodyAddress derives the deterministic custody account address for a
// market. One market, one custody account.
func CustodyAddress(marketID int64) string {
	return fmt.Sprintf("market:%d", marketID)
}

// Ledger moves value between token accounts. Methods operate on whatever
// gorm handle the Ledger is bound to, so an orchestrator transaction can
// rebind it with WithTx and keep ledger writes atomic with its own.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// WithTx returns a Ledger bound to an open transaction handle.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{db: tx}
}

// EnsureAccount creates the account for address if it does not exist.
func (l *Ledger) EnsureAccount(address, owner string) error {
	account := models.TokenAccount{
		Address: address,
		Owner:   owner,
		Balance: 0,
	}
	return l.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoNothing: true,
	}).Create(&account).Error
}

// Transfer debits the authority's account and credits the destination,
// recording an audit row. The debit is a conditional update so a concurrent
// spend cannot take the balance negative; zero rows affected means the
// account is missing or underfunded.
func (l *Ledger) Transfer(from Authority, to string, amount int64, kind models.TransferKind, marketID *int64) error {
	if amount <= 0 {
		return fmt.Errorf("transfer amount must be positive, got %d", amount)
	}

	res := l.db.Model(&models.TokenAccount{}).
		Where("address = ? AND balance >= ?", from.Account(), amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return fmt.Errorf("failed to debit %s: %w", from.Account(), res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := l.db.Model(&models.TokenAccount{}).
			Where("address = ?", from.Account()).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check account %s: %w", from.Account(), err)
		}
		if count == 0 {
			return fmt.Errorf("debit %s: %w", from.Account(), ErrUnknownAccount)
		}
		return fmt.Errorf("debit %s of %d: %w", from.Account(), amount, ErrInsufficientFunds)
	}

	if err := l.credit(to, amount); err != nil {
		return err
	}

	return l.record(from.Account(), to, amount, kind, marketID)
}

// Credit adds value to an account with no matching debit (faucet deposits).
func (l *Ledger) Credit(to string, amount int64, kind models.TransferKind) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	if err := l.credit(to, amount); err != nil {
		return err
	}
	return l.record("", to, amount, kind, nil)
}

func (l *Ledger) credit(to string, amount int64) error {
	account := models.TokenAccount{
		Address: to,
		Owner:   to,
		Balance: amount,
	}
	err := l.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "address"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"balance":    gorm.Expr("token_accounts.balance + ?", amount),
			"updated_at": time.Now(),
		}),
	}).Create(&account).Error
	if err != nil {
		return fmt.Errorf("failed to credit %s: %w", to, err)
	}
	return nil
}

func (l *Ledger) record(from, to string, amount int64, kind models.TransferKind, marketID *int64) error {
	transfer := models.EscrowTransfer{
		ID:          uuid.New(),
		FromAddress: from,
		ToAddress:   to,
		Amount:      amount,
		Kind:        kind,
		MarketID:    marketID,
		CreatedAt:   time.Now(),
	}
	if err := l.db.Create(&transfer).Error; err != nil {
		return fmt.Errorf("failed to record transfer: %w", err)
	}
	return nil
}

// Balance returns the current balance for an address, zero if no account.
func (l *Ledger) Balance(address string) (int64, error) {
	var account models.TokenAccount
	err := l.db.Where("address = ?", address).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// Transfers returns the audit trail for an address, newest first.
func (l *Ledger) Transfers(address string, limit int) ([]*models.EscrowTransfer, error) {
	var transfers []*models.EscrowTransfer
	err := l.db.
		Where("from_address = ? OR to_address = ?", address, address).
		Order("created_at DESC").
		Limit(limit).
		Find(&transfers).Error
	if err != nil {
		return nil, err
	}
	return transfers, nil
}
