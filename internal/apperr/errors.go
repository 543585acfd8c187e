package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrNoSession     = errors.New("no open session")
	ErrInvalidInput  = errors.New("invalid input")
)
