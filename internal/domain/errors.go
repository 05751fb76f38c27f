package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Ride completion errors. Each one rejects the action and leaves
	// State unchanged.
	ErrPaymentRequired = errors.New("payment method is required")
	ErrUnknownPayment  = errors.New("unknown payment method")
	ErrFareRequired    = errors.New("fare must be greater than zero for cash or card payments")
	ErrCashRequired    = errors.New("cash amount must be greater than zero for mixed payments")
	ErrCashExceedsFare = errors.New("cash amount cannot exceed the total fare")

	// Stored ride errors (imports)
	ErrEndBeforeStart   = errors.New("ride ends before it starts")
	ErrNegativeAmount   = errors.New("ride amounts must not be negative")
	ErrSplitMismatch    = errors.New("cash and card parts do not add up to the fare")
	ErrNegativeDuration = errors.New("ride duration must not be negative")

	// Settings errors
	ErrInvalidSetting = errors.New("invalid setting value")

	// Import errors
	ErrInvalidImport = errors.New("invalid import document")
)

// IsRideRejection reports whether err is a ride-completion validation error,
// i.e. a user mistake rather than a storage failure.
func IsRideRejection(err error) bool {
	return errors.Is(err, ErrPaymentRequired) ||
		errors.Is(err, ErrUnknownPayment) ||
		errors.Is(err, ErrFareRequired) ||
		errors.Is(err, ErrCashRequired) ||
		errors.Is(err, ErrCashExceedsFare)
}
