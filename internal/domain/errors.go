package domain

import "errors"

// Sentinel errors for errors.Is() checking across the engine.
var (
	// ErrValidation signals a violated currency/rate invariant or otherwise
	// malformed input. Always surfaced; aborts the unit of work.
	ErrValidation = errors.New("validation error")

	// ErrImmutabilityViolation signals an attempted mutation of a past-dated
	// exchange rate or a frozen ledger row.
	ErrImmutabilityViolation = errors.New("immutability violation")

	// ErrNoRateAvailable signals that no exchange rate could be resolved and
	// no fallback record exists.
	ErrNoRateAvailable = errors.New("no exchange rate available")

	// ErrUnauthorized signals a worker acting on a stage they do not own.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound signals a missing entity.
	ErrNotFound = errors.New("not found")
)
