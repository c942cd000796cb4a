package storage

import "errors"

// Common client storage errors
var (
	// ErrStorageUnavailable indicates that the durable medium cannot be used
	// (closed database, lock timeout, I/O failure). Callers treat it as
	// offline-degraded, not fatal.
	ErrStorageUnavailable = errors.New("local storage unavailable")

	// ErrMutationNotFound indicates that mutation record was not found
	ErrMutationNotFound = errors.New("mutation not found")

	// ErrSnapshotNotFound indicates that no cached snapshot exists for the entity
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrConflictNotFound indicates that conflict log entry was not found
	ErrConflictNotFound = errors.New("conflict not found")

	// ErrInvalidTransition indicates that the record's status does not allow the operation
	ErrInvalidTransition = errors.New("invalid mutation status transition")

	// ErrCredentialsNotFound indicates that the device has not logged in yet
	ErrCredentialsNotFound = errors.New("device credentials not found")

	// ErrInvalidPassphrase indicates that the storage key does not match the stored check value
	ErrInvalidPassphrase = errors.New("invalid storage passphrase")
)
