package service

import "errors"

// ErrValidation marks failures caused by missing or malformed caller input,
// such as an empty title or name. Wrapped errors carry the user-facing message.
var ErrValidation = errors.New("validation failed")

// ErrUnauthorized is returned when a mutating operation is attempted without
// an authenticated session.
var ErrUnauthorized = errors.New("Unauthorized")

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
