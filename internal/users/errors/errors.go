package errors

import "errors"

var (
	ErrNotFound  = errors.New("user not found")
	ErrInvalidID = errors.New("invalid user identifier")
	ErrDuplicate = errors.New("user already exists")
)
