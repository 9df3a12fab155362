package apperrors

import "errors"

// Standardized engine errors. All are recoverable at the UI boundary.
var (
	// Mutation outcomes surfaced by the order store.
	ErrPlacementFailed = errors.New("order placement failed")
	ErrUpdateFailed    = errors.New("order update failed")
	ErrDeletionDenied  = errors.New("order deletion denied")
	ErrDeletionFailed  = errors.New("order deletion failed")

	// Transport-level errors the order client translates into.
	ErrNetwork         = errors.New("network error")
	ErrBackendRejected = errors.New("backend rejected request")
	ErrOrderNotFound   = errors.New("order not found")

	ErrNotAuthenticated = errors.New("no authenticated actor")
)
