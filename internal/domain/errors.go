package domain

import "errors"

var (
	ErrConnectionNotFound = errors.New("connection not found")
	ErrAlreadyPaired      = errors.New("connection already paired")
	ErrSelfPairing        = errors.New("connection cannot pair with itself")
	ErrNotPaired          = errors.New("connection not paired")

	ErrUserNotFound = errors.New("user not found")
	ErrInvalidToken = errors.New("invalid token")
)
