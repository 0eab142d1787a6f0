package service

import "errors"

// Validation failures.
var (
	ErrMissingFields      = errors.New("all fields are required")
	ErrAvatarRequired     = errors.New("avatar file is required")
	ErrCoverImageRequired = errors.New("cover image file is required")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
)

// Conflicts with existing users.
var (
	ErrUserExists = errors.New("user with username or email already exists")
	ErrEmailTaken = errors.New("email is already in use")
)

// ErrInvalidCredentials is returned for an unknown identifier and for a wrong
// password alike, so callers cannot probe which accounts exist.
var ErrInvalidCredentials = errors.New("invalid username, email or password")

// Token failures. All of them mean the caller is not authenticated.
var (
	ErrTokenMissing       = errors.New("unauthorized request")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrRefreshTokenReused = errors.New("refresh token is expired or used")
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUploadFailed = errors.New("error while uploading file")
)
