package errors

import "errors"

var (
	ErrNotFound        = errors.New("payment not found")
	ErrInvalidID       = errors.New("invalid payment ID")
	ErrAlreadySettled  = errors.New("payment is not pending")
	ErrGatewayDeclined = errors.New("payment declined by gateway")

	// ErrGatewayTransient marks gateway failures worth retrying, such as
	// network errors talking to the processor.
	ErrGatewayTransient = errors.New("transient gateway failure")
)
