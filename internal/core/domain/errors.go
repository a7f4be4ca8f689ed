package domain

import "errors"

var (
	ErrCallNotFound        = errors.New("call not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrStreamNotFound      = errors.New("stream not found")
	ErrInvalidToken        = errors.New("invalid token")
	ErrExpiredToken        = errors.New("token expired")

	// ErrIncompatibleProvider signals mixing of call objects that belong
	// to different client variants. This is a programmer error and is
	// intentionally fatal at the boundary where it is detected.
	ErrIncompatibleProvider = errors.New("incompatible call provider")
)
