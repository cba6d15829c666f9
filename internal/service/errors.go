package service

import "errors"

var (
	// ErrInvalidCredentials is the only error a failed login reveals
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrBanned             = errors.New("account suspended")
	ErrForbidden          = errors.New("access denied")
	// ErrDisabled is returned by features whose backing service is not configured
	ErrDisabled = errors.New("feature not configured")
)
