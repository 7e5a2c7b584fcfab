package repository

import "errors"

var (
	ErrNotFound       = errors.New("key not found")
	ErrBlobNotFound   = errors.New("remote blob not found")
	ErrInvalidPayload = errors.New("invalid sync payload")
	ErrUnauthorized   = errors.New("remote store rejected credential")
)
