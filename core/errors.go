package core

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrFetchFailed  = errors.New("failed to fetch drawing")
	ErrCreateFailed = errors.New("failed to create drawing")
	ErrUpdateFailed = errors.New("failed to update drawing")
	ErrDeleteFailed = errors.New("failed to delete drawing")

	// ErrStorage is returned when local persistence fails (serialization, quota, I/O).
	ErrStorage = errors.New("storage error")
	// ErrValidation is returned for rejected input, such as an empty name.
	ErrValidation = errors.New("validation error")
	// ErrCorruptData marks stored content that failed structural validation.
	ErrCorruptData = errors.New("corrupt data")
	ErrNotFound    = errors.New("not found")
)
