package domain

import "errors"

// Failure taxonomy surfaced by the core services. Handlers translate these
// to HTTP statuses; everything else is treated as a storage failure.
var (
	// ErrForbidden: the caller's role is insufficient or they are not a
	// member of the entity.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound: the referenced order, account, or group does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRequest: malformed input (missing symbol, non-positive
	// quantity, no fields to update).
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNoPriceAvailable: no reference price is resolvable for a symbol.
	ErrNoPriceAvailable = errors.New("no price available")

	// ErrInvalidState: the requested transition is impossible from the
	// order's current status. This legitimately races with concurrent
	// transitions, so callers should treat it as a no-op outcome rather
	// than a fault.
	ErrInvalidState = errors.New("invalid order state")
)
