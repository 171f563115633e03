package handlers

import (
	"net/http"

	"solrem-markets/internal/auth"
	"solrem-markets/internal/models"
	"solrem-markets/internal/services"

	"github.com/gin-gonic/gin"
)

type MarketHandler struct {
	marketService *services.MarketService
	statsService  *services.StatsService
}

func NewMarketHandler(marketService *services.MarketService, statsService *services.StatsService) *MarketHandler {
	return &MarketHandler{
		marketService: marketService,
		statsService:  statsService,
	}
}

// GetMarkets returns markets with optional status filtering
// GET /api/markets
func (h *MarketHandler) GetMarkets(c *gin.Context) {
	status := models.MarketStatus(c.DefaultQuery("status", string(models.MarketStatusActive)))
	if all := c.Query("all"); all == "true" {
		status = ""
	}
	limit, offset := paginationParams(c)

	markets, total, err := h.marketService.ListMarkets(c.Request.Context(), status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch markets"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"markets": markets,
		"total":   total,
	})
}

// GetMarketByID returns a specific market
// GET /api/markets/:id
func (h *MarketHandler) GetMarketByID(c *gin.Context) {
	marketID, ok := marketIDParam(c)
	if !ok {
		return
	}

	market, err := h.marketService.GetMarket(c.Request.Context(), marketID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, market)
}

// GetMarketStats returns pool stats and implied odds for a market
// GET /api/markets/:id/stats
func (h *MarketHandler) GetMarketStats(c *gin.Context) {
	marketID, ok := marketIDParam(c)
	if !ok {
		return
	}

	stats, err := h.statsService.MarketStats(c.Request.Context(), marketID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// CreateMarket opens a new market funded by the caller's stake
// POST /api/markets
func (h *MarketHandler) CreateMarket(c *gin.Context) {
	creator, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.CreateMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	market, err := h.marketService.CreateMarket(c.Request.Context(), creator, &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, market)
}

// ResolveMarket declares the outcome of an expired market (creator only)
// POST /api/markets/:id/resolve
func (h *MarketHandler) ResolveMarket(c *gin.Context) {
	resolver, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	marketID, ok := marketIDParam(c)
	if !ok {
		return
	}

	var req models.ResolveMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	market, err := h.marketService.ResolveMarket(
		c.Request.Context(), resolver, marketID, models.MarketOutcome(req.Outcome))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, market)
}

// CancelMarket voids a market with no bets and refunds the creator stake
// POST /api/markets/:id/cancel
func (h *MarketHandler) CancelMarket(c *gin.Context) {
	creator, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	marketID, ok := marketIDParam(c)
	if !ok {
		return
	}

	market, err := h.marketService.CancelMarket(c.Request.Context(), creator, marketID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, market)
}
