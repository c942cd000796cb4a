package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	keyLastSyncAt = "last_sync_at"
)

// SaveLastSyncAt saves the time of the last completed sync cycle
func (s *Storage) SaveLastSyncAt(ctx context.Context, at time.Time) error {
	return s.update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		// Храним UnixNano в big endian
		value := make([]byte, 8)
		binary.BigEndian.PutUint64(value, uint64(at.UnixNano()))

		if err := bucket.Put([]byte(keyLastSyncAt), value); err != nil {
			return fmt.Errorf("failed to save last sync time: %w", err)
		}

		return nil
	})
}

// GetLastSyncAt retrieves the time of the last completed sync cycle
// Returns zero time if no sync has been performed yet
func (s *Storage) GetLastSyncAt(ctx context.Context) (time.Time, error) {
	var at time.Time

	err := s.view(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		value := bucket.Get([]byte(keyLastSyncAt))
		if value == nil {
			// Синхронизации еще не было
			return nil
		}

		at = time.Unix(0, int64(binary.BigEndian.Uint64(value))).UTC()
		return nil
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last sync time: %w", err)
	}

	return at, nil
}
