package errors

import "errors"

var (
	ErrNotFound        = errors.New("reservation intent not found")
	ErrInvalidID       = errors.New("invalid intent ID")
	ErrStaleTransition = errors.New("intent is not in the expected state")
)
