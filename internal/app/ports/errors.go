package ports

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a lost version check or a duplicate key. The caller
	// reloads and decides; stores never retry.
	ErrConflict = errors.New("conflict")
)
