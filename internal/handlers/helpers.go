package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"solrem-markets/internal/escrow"
	"solrem-markets/internal/services"

	"github.com/gin-gonic/gin"
)

// statusForError maps orchestrator errors onto HTTP status codes.
// Precondition and validation failures are caller errors; anything
// unrecognized is an internal error and must not leak as a 4xx.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrMarketNotFound),
		errors.Is(err, services.ErrBetNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDuplicateMarket),
		errors.Is(err, services.ErrDuplicateBet),
		errors.Is(err, services.ErrAlreadyClaimed),
		errors.Is(err, services.ErrMarketHasBets):
		return http.StatusConflict
	case errors.Is(err, services.ErrUnauthorizedResolver),
		errors.Is(err, services.ErrUnauthorizedClaimer):
		return http.StatusForbidden
	case errors.Is(err, escrow.ErrInsufficientFunds),
		errors.Is(err, services.ErrMarketNotActive),
		errors.Is(err, services.ErrMarketExpired),
		errors.Is(err, services.ErrMarketNotExpired),
		errors.Is(err, services.ErrMarketNotResolved),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidOutcome),
		errors.Is(err, services.ErrEndTimeInPast):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func marketIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return 0, false
	}
	return id, true
}

func paginationParams(c *gin.Context) (limit, offset int) {
	limit = 50
	offset = 0

	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}
	return limit, offset
}
