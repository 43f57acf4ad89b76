package domain

import "errors"

// Sentinel errors shared across services. Controllers map these to HTTP
// status codes; everything else is an internal error.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict with business rules")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
)
