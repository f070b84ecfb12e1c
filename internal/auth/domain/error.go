package domain

import "errors"

var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserInactive      = errors.New("user inactive")
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionExpired    = errors.New("session expired")
	ErrInvalidSession    = errors.New("invalid session")
	ErrCSRFMismatch      = errors.New("csrf token mismatch")
	ErrInvalidRole       = errors.New("invalid role")
	ErrSelfRevoke        = errors.New("cannot revoke own account")
)
