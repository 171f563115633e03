package handlers

import (
	"net/http"

	"solrem-markets/internal/auth"
	"solrem-markets/internal/models"
	"solrem-markets/internal/services"

	"github.com/gin-gonic/gin"
)

type BetHandler struct {
	marketService *services.MarketService
}

func NewBetHandler(marketService *services.MarketService) *BetHandler {
	return &BetHandler{marketService: marketService}
}

// PlaceBet stakes on one side of an active market
// POST /api/markets/:id/bets
func (h *BetHandler) PlaceBet(c *gin.Context) {
	bettor, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	marketID, ok := marketIDParam(c)
	if !ok {
		return
	}

	var req models.PlaceBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bet, err := h.marketService.PlaceBet(c.Request.Context(), bettor, marketID, &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bet)
}

// GetMarketBets lists all bets on a market
// GET /api/markets/:id/bets
func (h *BetHandler) GetMarketBets(c *gin.Context) {
	marketID, ok := marketIDParam(c)
	if !ok {
		return
	}

	bets, err := h.marketService.ListBets(c.Request.Context(), marketID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch bets"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bets":  bets,
		"total": len(bets),
	})
}

// GetMyBet returns the caller's bet on a market
// GET /api/markets/:id/bets/me
func (h *BetHandler) GetMyBet(c *gin.Context) {
	bettor, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	marketID, ok := marketIDParam(c)
	if !ok {
		return
	}

	bet, err := h.marketService.GetBet(c.Request.Context(), marketID, bettor)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, bet)
}

// ClaimWinnings settles the caller's bet on a resolved market
// POST /api/markets/:id/claim
func (h *BetHandler) ClaimWinnings(c *gin.Context) {
	bettor, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	marketID, ok := marketIDParam(c)
	if !ok {
		return
	}

	payout, err := h.marketService.ClaimWinnings(c.Request.Context(), bettor, marketID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"market_id": marketID,
		"bettor":    bettor,
		"payout":    payout,
	})
}
