package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/PNdlovu/writecarenotes-sub002/internal/client/storage"
)

const keyCredentials = "device_credentials"

// SaveCredentials stores the device token in the metadata bucket
func (s *Storage) SaveCredentials(ctx context.Context, creds *storage.DeviceCredentials) error {
	if creds == nil || creds.Token == "" {
		return fmt.Errorf("credentials must contain a token")
	}

	data, err := s.encode(creds)
	if err != nil {
		return err
	}

	return s.update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		if err := bucket.Put([]byte(keyCredentials), data); err != nil {
			return fmt.Errorf("failed to save credentials: %w", err)
		}
		return nil
	})
}

// GetCredentials retrieves the stored device token
func (s *Storage) GetCredentials(ctx context.Context) (*storage.DeviceCredentials, error) {
	var creds *storage.DeviceCredentials

	err := s.view(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		data := bucket.Get([]byte(keyCredentials))
		if data == nil {
			return storage.ErrCredentialsNotFound
		}

		creds = &storage.DeviceCredentials{}
		return s.decode(data, creds)
	})
	if err != nil {
		return nil, err
	}

	return creds, nil
}

// DeleteCredentials removes the stored device token
func (s *Storage) DeleteCredentials(ctx context.Context) error {
	return s.update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		// Проверяем существование данных
		if bucket.Get([]byte(keyCredentials)) == nil {
			return storage.ErrCredentialsNotFound
		}

		if err := bucket.Delete([]byte(keyCredentials)); err != nil {
			return fmt.Errorf("failed to delete credentials: %w", err)
		}
		return nil
	})
}
