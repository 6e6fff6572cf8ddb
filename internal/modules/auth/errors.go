package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrOTPCooldown        = errors.New("verification code requested too recently")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrCodeExpired        = errors.New("verification code expired or not requested")
	ErrTooManyAttempts    = errors.New("too many incorrect attempts")
	ErrOAuthDisabled      = errors.New("oauth provider not configured")
	ErrInvalidOAuthState  = errors.New("invalid oauth state")
	ErrUserNotFound       = errors.New("user not found")
)
