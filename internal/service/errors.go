package service

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: username or email already exists")
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrEmptyMessage         = errors.New("message content must not be empty")
	ErrMessageStore         = errors.New("failed to persist message")
	ErrInternalServer       = errors.New("internal server error")
)
