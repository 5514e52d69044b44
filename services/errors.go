package services

import "errors"

// Failure signals surfaced to the HTTP layer, which maps them onto status
// codes and client messages.
var (
	// Infrastructure — transient, safe to retry with backoff
	ErrCatalogUnavailable = errors.New("achievement catalog unavailable")
	ErrStatsUnavailable   = errors.New("user stats unavailable")

	// Conflict — retry-once or treat as success-equivalent
	ErrWriteConflict = errors.New("write conflict")
	ErrAlreadyOwned  = errors.New("item already owned")

	// Validation / resource exhaustion — terminal, surfaced to the user
	ErrPriceMismatch     = errors.New("price mismatch")
	ErrInsufficientFunds = errors.New("insufficient reward balance")
	ErrItemNotFound      = errors.New("store item not found")
)
