package storage

import "errors"

// Common storage errors
var (
	// ErrEntityNotFound indicates that the entity does not exist or is deleted
	ErrEntityNotFound = errors.New("entity not found")

	// ErrVersionConflict indicates that the expected version is not the stored one
	ErrVersionConflict = errors.New("version conflict")

	// ErrInvalidPayload indicates that the payload is not a JSON document
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrInvalidOperation indicates an unknown mutation operation
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrDeviceNotFound indicates that the device is not registered
	ErrDeviceNotFound = errors.New("device not found")
)
