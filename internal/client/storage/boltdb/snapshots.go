package boltdb

import (
	"bytes"
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/PNdlovu/writecarenotes-sub002/internal/client/storage"
	"github.com/PNdlovu/writecarenotes-sub002/internal/models"
)

// GetSnapshot retrieves a cached entity
func (s *Storage) GetSnapshot(ctx context.Context, entityType, entityID string) (*models.EntitySnapshot, error) {
	var snapshot *models.EntitySnapshot

	err := s.view(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSnapshots).Get(entityKey(entityType, entityID))
		if data == nil {
			return storage.ErrSnapshotNotFound
		}

		snapshot = &models.EntitySnapshot{}
		if err := s.decode(data, snapshot); err != nil {
			return fmt.Errorf("failed to decode snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return snapshot, nil
}

// PutSnapshot creates or overwrites a cached entity
func (s *Storage) PutSnapshot(ctx context.Context, snapshot *models.EntitySnapshot) error {
	if snapshot.EntityType == "" || snapshot.EntityID == "" {
		return fmt.Errorf("snapshot requires entity type and id")
	}

	data, err := s.encode(snapshot)
	if err != nil {
		return err
	}

	err = s.update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Put(entityKey(snapshot.EntityType, snapshot.EntityID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// DeleteSnapshot evicts a cached entity
func (s *Storage) DeleteSnapshot(ctx context.Context, entityType, entityID string) error {
	err := s.update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Delete(entityKey(entityType, entityID))
	})
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	return nil
}

// ListSnapshots returns all cached entities of a type ordered by id
func (s *Storage) ListSnapshots(ctx context.Context, entityType string) ([]*models.EntitySnapshot, error) {
	var snapshots []*models.EntitySnapshot

	err := s.view(func(tx *bbolt.Tx) error {
		prefix := entityPrefix(entityType)
		c := tx.Bucket(bucketSnapshots).Cursor()

		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			snapshot := &models.EntitySnapshot{}
			if err := s.decode(v, snapshot); err != nil {
				return fmt.Errorf("failed to decode snapshot %q: %w", k, err)
			}
			snapshots = append(snapshots, snapshot)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	return snapshots, nil
}
