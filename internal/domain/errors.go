package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUnknownVenue     = errors.New("unknown venue")
	ErrUnsupported      = errors.New("operation not supported by venue")
	ErrInvalidOrder     = errors.New("invalid order parameters")
	ErrFeedDisconnected = errors.New("price feed disconnected")
)
