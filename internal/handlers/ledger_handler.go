package handlers

import (
	"net/http"

	"solrem-markets/internal/auth"
	"solrem-markets/internal/escrow"
	"solrem-markets/internal/models"
	"solrem-markets/internal/services"

	"github.com/gin-gonic/gin"
)

// LedgerHandler exposes the caller's custody-ledger view: balance, deposit
// (devnet faucet) and transfer history. Custody debits are never reachable
// from here; only the orchestrator holds market authorities.
type LedgerHandler struct {
	ledger       *escrow.Ledger
	statsService *services.StatsService
}

func NewLedgerHandler(ledger *escrow.Ledger, statsService *services.StatsService) *LedgerHandler {
	return &LedgerHandler{
		ledger:       ledger,
		statsService: statsService,
	}
}

// GetBalance returns the caller's token account balance
// GET /api/wallet/balance
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	walletAddress, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	balance, err := h.ledger.Balance(walletAddress)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address": walletAddress,
		"balance": balance,
		"display": h.statsService.DisplayAmount(balance),
	})
}

// Deposit credits the caller's token account
// POST /api/wallet/deposit
func (h *LedgerHandler) Deposit(c *gin.Context) {
	walletAddress, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.ledger.Credit(walletAddress, req.Amount, models.TransferKindDeposit); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to deposit"})
		return
	}

	balance, err := h.ledger.Balance(walletAddress)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address": walletAddress,
		"balance": balance,
	})
}

// GetTransfers returns the caller's transfer history
// GET /api/wallet/transfers
func (h *LedgerHandler) GetTransfers(c *gin.Context) {
	walletAddress, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit, _ := paginationParams(c)

	transfers, err := h.ledger.Transfers(walletAddress, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get transfers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transfers": transfers,
		"total":     len(transfers),
	})
}
