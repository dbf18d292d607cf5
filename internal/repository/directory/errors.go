package directory

import "errors"

var (
	ErrNotFound      = errors.New("room not found in directory")
	ErrAlreadyExists = errors.New("room already in directory")
)
