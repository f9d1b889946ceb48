package market

import "errors"

// Error kinds from spec §7. A failing public Market operation returns
// one of these, but may already have changed part of the market before
// failing (Place commits book changes before its initial margin check;
// Liquidate cancels the target's orders before its oracle and margin
// checks) — callers are expected to discard the whole attempt on error
// (the transaction-abort model of spec §5).
var (
	// Validation
	ErrInvalidParams  = errors.New("market: invalid params")
	ErrWouldCrossBook = errors.New("market: would cross book")
	ErrOrderExpired   = errors.New("market: order expired")

	// Resource
	ErrOutOfBlocks   = errors.New("market: out of blocks")
	ErrSeatNotFound  = errors.New("market: seat not found")
	ErrOrderNotFound = errors.New("market: order not found")

	// Risk
	ErrInsufficientMargin = errors.New("market: insufficient margin")
	ErrNotLiquidatable    = errors.New("market: not liquidatable")
	ErrSelfLiquidation    = errors.New("market: self liquidation")

	// Oracle
	ErrOracleStale       = errors.New("market: oracle stale")
	ErrOracleUnavailable = errors.New("market: oracle unavailable")

	// Seat lifecycle
	ErrSeatNotEmpty  = errors.New("market: seat has open position or orders")
	ErrSeatHasOrders = errors.New("market: seat has open orders")
	ErrDuplicateSeat = errors.New("market: seat already claimed")

	// Lifecycle
	ErrMarketNotActive = errors.New("market: not active")
)
