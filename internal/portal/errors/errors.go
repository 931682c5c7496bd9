package errors

import "errors"

var (
	ErrAuthRequired = errors.New("Authentication required")

	ErrCredentialsRequired = errors.New("Email and password are required")

	ErrUnknownLocation = errors.New("unknown location")

	ErrInvalidCoordinates = errors.New("coordinates out of range")

	ErrNotInCart = errors.New("item not in cart")

	ErrInvalidPhone = errors.New("Invalid phone number")

	ErrSessionCorrupt = errors.New("persisted session is corrupt")
)
