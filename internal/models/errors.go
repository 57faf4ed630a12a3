package models

import "errors"

// Terminal error taxonomy surfaced to callers. All three are unretryable;
// handlers map them to 400/404/403 with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("incident not found")
	ErrForbidden  = errors.New("operation not permitted")
)
