package delivery

import "errors"

var (
	// Lookup errors.
	ErrNotFound = errors.New("delivery not found")

	// Creation guard errors.
	ErrNotSeller          = errors.New("only a seller company can register a delivery")
	ErrSameParty          = errors.New("seller and buyer must be different companies")
	ErrInvalidCounterpart = errors.New("counterpart company must have the BUYER role")
	ErrNFDateInFuture     = errors.New("invoice issue date cannot be in the future")

	// Concurrency errors. The conditional update saw a row that no longer
	// matches the status/ball_with the caller acted on.
	ErrStaleState = errors.New("delivery changed since it was read")
)
