package models

import "errors"

// Domain error kinds. Callers wrap these with fmt.Errorf("%w: ...") and the
// HTTP layer maps them to status codes with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrAuth         = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrStorage      = errors.New("storage failure")
	ErrPublish      = errors.New("publish rejected")
)
