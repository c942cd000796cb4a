package storage

import (
	"context"

	"github.com/PNdlovu/writecarenotes-sub002/internal/models"
)

// SnapshotStorage defines the cache of last-known entity copies
type SnapshotStorage interface {
	// GetSnapshot retrieves a cached entity
	// Returns ErrSnapshotNotFound if entity isn't cached
	GetSnapshot(ctx context.Context, entityType, entityID string) (*models.EntitySnapshot, error)

	// PutSnapshot creates or overwrites a cached entity
	PutSnapshot(ctx context.Context, snapshot *models.EntitySnapshot) error

	// DeleteSnapshot evicts a cached entity, missing entities are ignored
	DeleteSnapshot(ctx context.Context, entityType, entityID string) error

	// ListSnapshots returns all cached entities of a type ordered by id
	ListSnapshots(ctx context.Context, entityType string) ([]*models.EntitySnapshot, error)
}
