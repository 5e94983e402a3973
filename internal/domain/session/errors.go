package session

import "errors"

var (
	// ErrSessionNotFound indicates the session doesn't exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidInput indicates invalid session input.
	ErrInvalidInput = errors.New("invalid session input")
	// ErrSessionClosed indicates the session was already closed.
	ErrSessionClosed = errors.New("session closed")
)
