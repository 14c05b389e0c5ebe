package sentinel

import "errors"

// Sentinel dependency errors. Stores return these (optionally wrapped) so
// services can translate them into domain errors exactly once.
var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrStaleStatus  = errors.New("stale status") // conditional update lost to a concurrent writer
)
