package repository

import "errors"

// Sentinel kinds for session store errors.
var (
	ErrNotFound         = errors.New("session not found")
	ErrDuplicateID      = errors.New("session id already exists")
	ErrSessionFinalized = errors.New("session already finalized")
	ErrInvalidState     = errors.New("invalid state for this write")
)
