package models

import "errors"

var (
	ErrDuplicateUsername = errors.New("username already exists")
	ErrNotFound          = errors.New("record not found")
	// ErrStorageWrite wraps any I/O fault while persisting bytes or metadata.
	ErrStorageWrite = errors.New("storage write failed")
)
