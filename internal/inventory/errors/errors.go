package errors

import "errors"

var (
	ErrInsufficientCapacity = errors.New("insufficient capacity for requested dates")
	ErrHoldNotFound         = errors.New("hold not found")
	ErrHoldNotActive        = errors.New("hold is not in held state")
	ErrInvalidDateRange     = errors.New("invalid date range")
)
