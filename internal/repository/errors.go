package repository

import "errors"

var (
	// ErrNotFound is returned when a ledger record or stored entity doesn't exist.
	// It is a legitimate empty result, not a retryable fault.
	ErrNotFound = errors.New("not found")

	// ErrUnreachable is returned when a ledger or storage endpoint is unavailable.
	// Callers may retry; nothing below the caller retries internally.
	ErrUnreachable = errors.New("endpoint unreachable")

	// ErrMalformed is returned when content resolves but does not match the
	// expected document shape. Never retryable.
	ErrMalformed = errors.New("malformed content")

	// ErrWriteRejected is returned when a ledger transaction reverted or was not confirmed
	ErrWriteRejected = errors.New("write rejected")

	// ErrConflict is returned when a unique constraint fails
	ErrConflict = errors.New("conflict: entity already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
)
