package fileshare

import (
	"errors"
)

var (
	ErrNotFound        = errors.New("file not found")
	ErrDuplicateID     = errors.New("duplicate file id")
	ErrRateLimited     = errors.New("upload rate limit exceeded")
	ErrNoFile          = errors.New("no file provided")
	ErrFileTooLarge    = errors.New("file exceeds maximum allowed size")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrUpstreamFailure = errors.New("storage upload failed")
)
