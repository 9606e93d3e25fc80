package service

import "errors"

// Sentinel kinds returned by the service.
var (
	ErrNotInitialized = errors.New("monitoring not initialized")
	ErrInvalidEvent   = errors.New("invalid event")
	ErrDuplicateEvent = errors.New("duplicate event")
	ErrNotStarted     = errors.New("service not started")
)
