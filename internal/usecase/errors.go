package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrUserNotFound          = errors.New("user not found")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
