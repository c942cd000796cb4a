package storage

import (
	"context"
	"time"
)

// MetadataStorage defines interface for storing client metadata
type MetadataStorage interface {
	// SaveLastSyncAt saves the time of the last completed sync cycle
	SaveLastSyncAt(ctx context.Context, at time.Time) error

	// GetLastSyncAt retrieves the time of the last completed sync cycle
	// Returns zero time if no sync has been performed yet
	GetLastSyncAt(ctx context.Context) (time.Time, error)
}

// Store объединяет все части локального хранилища устройства.
type Store interface {
	MutationStorage
	SnapshotStorage
	ConflictLog
	MetadataStorage
	CredentialStorage
	Close() error
}
