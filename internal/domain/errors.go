package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrRateLimited         = errors.New("rate limited")
	ErrInvalidOrder        = errors.New("invalid order parameters")
	ErrSigningFailed       = errors.New("signing failed")
	ErrAmbiguousSubmission = errors.New("order submission outcome ambiguous")
	ErrWSDisconnect        = errors.New("websocket disconnected")
)
