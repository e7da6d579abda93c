package domain

import "errors"

var (
	ErrStoreUnavailable       = errors.New("store unavailable")
	ErrInvalidEvent           = errors.New("invalid event")
	ErrSessionNotFound        = errors.New("session not found")
	ErrRoomExists             = errors.New("room already exists for host")
	ErrRoomIDGenerationFailed = errors.New("failed to generate unique room id")
)
