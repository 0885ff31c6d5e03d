package domain

import "errors"

// Sentinel errors for the application.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden")
	ErrConflict         = errors.New("resource already exists")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidStatus    = errors.New("invalid status transition")
	ErrNotConnected     = errors.New("websocket session is not connected")
	ErrAlreadyConnected = errors.New("websocket session already connecting or connected")
	ErrTokenUnavailable = errors.New("websocket token unavailable")
)
