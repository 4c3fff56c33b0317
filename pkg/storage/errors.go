package storage

import "errors"

// Errors shared by storage implementations.
var (
	// ErrAlreadyInTx is returned when a new transaction is requested from a
	// handle that is already transactional.
	ErrAlreadyInTx = errors.New("already in tx")
	// ErrNotInTx is returned when Commit or Rollback is called on a handle that
	// is not transactional.
	ErrNotInTx = errors.New("not in tx")
)
