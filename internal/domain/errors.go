package domain

import "errors"

// Run-level errors abort a rebalance before any capital-affecting action.
var (
	ErrModelUnavailable  = errors.New("scoring model unavailable")
	ErrInvalidAllocation = errors.New("invalid allocation")
	ErrNoPriceFeed       = errors.New("no price available for any target symbol")
	ErrMisalignedSeries  = errors.New("candle series are not aligned")
	ErrRunInProgress     = errors.New("a rebalance run is already in progress")
)

// Per-symbol errors are converted into result entries and never abort a batch.
var (
	ErrPriceUnavailable      = errors.New("price unavailable")
	ErrOrderRejected         = errors.New("order rejected")
	ErrOrderSubmissionFailed = errors.New("order submission failed")
	ErrHistoryFetchFailed    = errors.New("trade history fetch failed")
)
