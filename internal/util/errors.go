package util

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrContentNotFound    = errors.New("content not found")
	ErrInvalidLevel       = errors.New("level must be between 1 and 5")
	ErrInvalidImport      = errors.New("invalid import file")
)

var ErrInvalidContent = errors.New("invalid content")
