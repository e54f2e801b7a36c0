package domain

import "errors"

// Sentinel errors for the domain layer.
var (
	ErrNotFound        = errors.New("domain: not found")
	ErrConflict        = errors.New("domain: conflict")
	ErrInvalidArgument = errors.New("domain: invalid argument")
)
