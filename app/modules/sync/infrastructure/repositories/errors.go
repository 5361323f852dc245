package syncdb

import "errors"

// Sentinel errors for the sync repository layer.
var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("sync record not found")

	// ErrNoRowsAffected indicates an UPDATE affected zero rows.
	ErrNoRowsAffected = errors.New("no rows affected")
)
