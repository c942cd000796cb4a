package boltdb

import (
	"context"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/PNdlovu/writecarenotes-sub002/internal/client/storage"
	"github.com/PNdlovu/writecarenotes-sub002/internal/models"
)

// AppendConflict stores an automatically resolved conflict
func (s *Storage) AppendConflict(ctx context.Context, outcome *models.ConflictOutcome) error {
	if outcome.MutationID == "" {
		return fmt.Errorf("conflict outcome requires mutation id")
	}

	data, err := s.encode(outcome)
	if err != nil {
		return err
	}

	err = s.update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketConflicts).Put([]byte(outcome.MutationID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to append conflict: %w", err)
	}

	return nil
}

// ListConflicts returns unacknowledged outcomes ordered by resolution time
func (s *Storage) ListConflicts(ctx context.Context) ([]*models.ConflictOutcome, error) {
	var outcomes []*models.ConflictOutcome

	err := s.view(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketConflicts).ForEach(func(k, v []byte) error {
			outcome := &models.ConflictOutcome{}
			if err := s.decode(v, outcome); err != nil {
				return fmt.Errorf("failed to decode conflict %s: %w", k, err)
			}
			outcomes = append(outcomes, outcome)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list conflicts: %w", err)
	}

	sort.SliceStable(outcomes, func(i, j int) bool {
		return outcomes[i].ResolvedAt.Before(outcomes[j].ResolvedAt)
	})

	return outcomes, nil
}

// AcknowledgeConflict removes an outcome from the log
func (s *Storage) AcknowledgeConflict(ctx context.Context, mutationID string) error {
	err := s.update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketConflicts)
		if bucket.Get([]byte(mutationID)) == nil {
			return storage.ErrConflictNotFound
		}
		return bucket.Delete([]byte(mutationID))
	})
	if err != nil {
		return fmt.Errorf("failed to acknowledge conflict %s: %w", mutationID, err)
	}

	return nil
}
