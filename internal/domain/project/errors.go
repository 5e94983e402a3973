package project

import "errors"

var (
	// ErrProjectNotFound indicates the project is not in the published collection.
	ErrProjectNotFound = errors.New("project not found")
	// ErrInvalidInput indicates invalid project input.
	ErrInvalidInput = errors.New("invalid project input")
	// ErrProofNotFound indicates the project has no such reproducibility.
	ErrProofNotFound = errors.New("reproducibility not found")
)
