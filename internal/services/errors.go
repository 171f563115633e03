package services

import "errors"

// Precondition violations: the operation aborts with no state change and
// the caller may retry with different inputs or timing.
var (
	ErrMarketNotFound    = errors.New("market not found")
	ErrDuplicateMarket   = errors.New("market id already in use")
	ErrMarketNotActive   = errors.New("market is not active")
	ErrMarketExpired     = errors.New("market has expired")
	ErrMarketNotExpired  = errors.New("market has not expired yet")
	ErrMarketNotResolved = errors.New("market is not resolved")
	ErrMarketHasBets     = errors.New("market already has bets")
	ErrDuplicateBet      = errors.New("bettor already has a bet on this market")
	ErrBetNotFound       = errors.New("no bet found for this market and bettor")
	ErrAlreadyClaimed    = errors.New("winnings already claimed")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidOutcome    = errors.New("outcome must be YES or NO")
	ErrEndTimeInPast     = errors.New("end time must be in the future")
)

// Authorization violations: caller error, no state change.
var (
	ErrUnauthorizedResolver = errors.New("only the market creator can resolve")

	// ErrUnauthorizedClaimer is part of the public error table. Claims are
	// keyed by the authenticated caller, so a stranger currently surfaces
	// ErrBetNotFound instead; this stays for clients and future claim paths
	// (e.g. claiming on behalf of another wallet).
	ErrUnauthorizedClaimer = errors.New("bet does not belong to the caller")
)
