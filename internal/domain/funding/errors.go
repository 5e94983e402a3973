package funding

import "errors"

var (
	// ErrInvalidInput indicates an invalid funding request.
	ErrInvalidInput = errors.New("invalid funding input")
)
