package submission

import "errors"

var (
	// ErrInvalidInput indicates an invalid submission.
	ErrInvalidInput = errors.New("invalid submission input")
	// ErrNotOwner indicates the wallet does not own the project.
	ErrNotOwner = errors.New("wallet does not own project")
	// ErrInvalidState indicates the proof cannot move to the requested state.
	ErrInvalidState = errors.New("invalid proof state")
)
