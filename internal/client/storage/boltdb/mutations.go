package boltdb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/PNdlovu/writecarenotes-sub002/internal/client/storage"
	"github.com/PNdlovu/writecarenotes-sub002/internal/models"
)

// Enqueue stores a new mutation or coalesces it into the live record of the entity
func (s *Storage) Enqueue(ctx context.Context, m *models.MutationRecord) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}

	rec := m.Clone()
	var id string

	err := s.update(func(tx *bbolt.Tx) error {
		mutations := tx.Bucket(bucketMutations)
		index := tx.Bucket(bucketEntityIndex)
		key := entityKey(rec.EntityType, rec.EntityID)

		// Есть живая запись - сливаем изменения в нее
		if liveID := index.Get(key); liveID != nil {
			existing, err := s.getMutation(mutations, string(liveID))
			if err != nil {
				return err
			}

			merged, drop := storage.Coalesce(existing, rec)
			id = existing.ID
			if drop {
				if err := mutations.Delete([]byte(existing.ID)); err != nil {
					return fmt.Errorf("failed to delete mutation: %w", err)
				}
				return index.Delete(key)
			}

			return s.putMutation(mutations, merged)
		}

		if rec.ID == "" {
			u, err := uuid.NewV7()
			if err != nil {
				return fmt.Errorf("failed to generate mutation id: %w", err)
			}
			rec.ID = u.String()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = s.clock.Now()
		}

		seq, err := mutations.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate sequence: %w", err)
		}

		rec.Seq = seq
		rec.Status = models.StatusPending
		rec.Attempts = 0
		rec.Revision = 0
		rec.Outcome = nil
		id = rec.ID

		if err := s.putMutation(mutations, rec); err != nil {
			return err
		}
		return index.Put(key, []byte(rec.ID))
	})
	if err != nil {
		return "", fmt.Errorf("failed to enqueue mutation: %w", err)
	}

	return id, nil
}

// DrainPending returns due pending records in FIFO order and marks them in_flight
func (s *Storage) DrainPending(ctx context.Context, now time.Time) ([]*models.MutationRecord, error) {
	var drained []*models.MutationRecord

	err := s.update(func(tx *bbolt.Tx) error {
		mutations := tx.Bucket(bucketMutations)

		records, err := s.scanMutations(mutations, func(m *models.MutationRecord) bool {
			if m.Status != models.StatusPending {
				return false
			}
			// Запись еще в backoff
			return m.NextAttemptAt.IsZero() || !m.NextAttemptAt.After(now)
		})
		if err != nil {
			return err
		}

		for _, m := range records {
			m.Status = models.StatusInFlight
			m.LastAttemptAt = now
			if err := s.putMutation(mutations, m); err != nil {
				return err
			}
		}

		drained = records
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to drain pending mutations: %w", err)
	}

	return drained, nil
}

// GetMutation retrieves a record by id
func (s *Storage) GetMutation(ctx context.Context, id string) (*models.MutationRecord, error) {
	var rec *models.MutationRecord

	err := s.view(func(tx *bbolt.Tx) error {
		var err error
		rec, err = s.getMutation(tx.Bucket(bucketMutations), id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// FindLive returns the non-terminal record of an entity
func (s *Storage) FindLive(ctx context.Context, entityType, entityID string) (*models.MutationRecord, error) {
	var rec *models.MutationRecord

	err := s.view(func(tx *bbolt.Tx) error {
		liveID := tx.Bucket(bucketEntityIndex).Get(entityKey(entityType, entityID))
		if liveID == nil {
			return storage.ErrMutationNotFound
		}

		var err error
		rec, err = s.getMutation(tx.Bucket(bucketMutations), string(liveID))
		return err
	})
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// ListMutations returns records in FIFO order, optionally filtered by status
func (s *Storage) ListMutations(ctx context.Context, statuses ...models.MutationStatus) ([]*models.MutationRecord, error) {
	var records []*models.MutationRecord

	err := s.view(func(tx *bbolt.Tx) error {
		var err error
		records, err = s.scanMutations(tx.Bucket(bucketMutations), func(m *models.MutationRecord) bool {
			if len(statuses) == 0 {
				return true
			}
			for _, st := range statuses {
				if m.Status == st {
					return true
				}
			}
			return false
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list mutations: %w", err)
	}

	return records, nil
}

// MarkSynced finishes a submitted revision
func (s *Storage) MarkSynced(ctx context.Context, id string, revision, newBaseVersion uint64) (*models.MutationRecord, error) {
	return s.transition(id, revision, func(rec *models.MutationRecord, current bool) (*models.MutationRecord, error) {
		if !current {
			// Пока запрос был в полете, пришла новая правка - отправим ее поверх новой версии
			storage.Rebase(rec, newBaseVersion)
			return rec, nil
		}
		return nil, nil
	})
}

// MarkConflicted parks the record with its resolution outcome
func (s *Storage) MarkConflicted(ctx context.Context, id string, revision uint64, outcome *models.ConflictOutcome) (*models.MutationRecord, error) {
	return s.transition(id, revision, func(rec *models.MutationRecord, current bool) (*models.MutationRecord, error) {
		if !current {
			rec.Status = models.StatusPending
			return rec, nil
		}
		rec.Status = models.StatusConflicted
		rec.Outcome = outcome.Clone()
		return rec, nil
	})
}

// MarkFailed records a transient failure
func (s *Storage) MarkFailed(ctx context.Context, id string, revision uint64, cause string, retryAt time.Time) (*models.MutationRecord, error) {
	return s.transition(id, revision, func(rec *models.MutationRecord, current bool) (*models.MutationRecord, error) {
		rec.LastError = cause
		rec.NextAttemptAt = retryAt
		rec.Status = models.StatusPending
		if !current {
			// Новая ревизия еще не отправлялась, попытку не засчитываем
			return rec, nil
		}

		rec.Attempts++
		if rec.Attempts >= s.maxAttempts {
			rec.Status = models.StatusFailed
			rec.NextAttemptAt = time.Time{}
		}
		return rec, nil
	})
}

// Release returns an in-flight record to pending, attempts stay as they are
func (s *Storage) Release(ctx context.Context, id string, revision uint64, cause string) (*models.MutationRecord, error) {
	return s.transition(id, revision, func(rec *models.MutationRecord, current bool) (*models.MutationRecord, error) {
		rec.Status = models.StatusPending
		rec.NextAttemptAt = time.Time{}
		if current {
			rec.LastError = cause
		}
		return rec, nil
	})
}

// MarkRejected moves the record to terminal failed without retry
func (s *Storage) MarkRejected(ctx context.Context, id string, revision uint64, reason string) (*models.MutationRecord, error) {
	return s.transition(id, revision, func(rec *models.MutationRecord, current bool) (*models.MutationRecord, error) {
		if !current {
			rec.Status = models.StatusPending
			return rec, nil
		}
		rec.Status = models.StatusFailed
		rec.LastError = reason
		return rec, nil
	})
}

// transition применяет переход к записи, которой владеет цикл синхронизации.
// apply получает копию записи и признак того, что ревизия не менялась;
// nil результат удаляет запись.
func (s *Storage) transition(
	id string,
	revision uint64,
	apply func(rec *models.MutationRecord, current bool) (*models.MutationRecord, error),
) (*models.MutationRecord, error) {
	var result *models.MutationRecord

	err := s.update(func(tx *bbolt.Tx) error {
		mutations := tx.Bucket(bucketMutations)

		rec, err := s.getMutation(mutations, id)
		if err != nil {
			return err
		}
		// pending допустим: запись могла быть возвращена проверкой живости
		if rec.Status != models.StatusInFlight && rec.Status != models.StatusPending {
			return fmt.Errorf("%w: mutation %s is %s", storage.ErrInvalidTransition, id, rec.Status)
		}

		next, err := apply(rec, rec.Revision == revision)
		if err != nil {
			return err
		}

		if next == nil {
			if err := mutations.Delete([]byte(id)); err != nil {
				return fmt.Errorf("failed to delete mutation: %w", err)
			}
			return s.unindex(tx, rec)
		}

		if next.Status.IsTerminal() {
			if err := s.unindex(tx, next); err != nil {
				return err
			}
		}

		result = next
		return s.putMutation(mutations, next)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update mutation %s: %w", id, err)
	}

	return result, nil
}

// ResolveManually replaces a conflicted record's payload and requeues it
func (s *Storage) ResolveManually(ctx context.Context, id string, payload []byte, baseVersion uint64) (*models.MutationRecord, error) {
	var result *models.MutationRecord

	err := s.update(func(tx *bbolt.Tx) error {
		mutations := tx.Bucket(bucketMutations)

		rec, err := s.getMutation(mutations, id)
		if err != nil {
			return err
		}
		if rec.Status != models.StatusConflicted {
			return fmt.Errorf("%w: mutation %s is %s", storage.ErrInvalidTransition, id, rec.Status)
		}

		rec.Payload = append([]byte(nil), payload...)
		if err := rec.Validate(); err != nil {
			return err
		}

		rec.BaseVersion = baseVersion
		rec.BaseUpdatedAt = time.Time{}
		if rec.Operation == models.OperationCreate && baseVersion > 0 {
			rec.Operation = models.OperationUpdate
		}
		rec.Status = models.StatusPending
		rec.Outcome = nil
		rec.Attempts = 0
		rec.NextAttemptAt = time.Time{}
		rec.LastError = ""
		rec.Revision++

		result = rec
		return s.putMutation(mutations, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve mutation %s: %w", id, err)
	}

	return result, nil
}

// DeleteMutation acknowledges and removes a record
func (s *Storage) DeleteMutation(ctx context.Context, id string) error {
	err := s.update(func(tx *bbolt.Tx) error {
		mutations := tx.Bucket(bucketMutations)

		rec, err := s.getMutation(mutations, id)
		if err != nil {
			return err
		}
		if rec.Status == models.StatusInFlight {
			return fmt.Errorf("%w: mutation %s is in flight", storage.ErrInvalidTransition, id)
		}

		if err := mutations.Delete([]byte(id)); err != nil {
			return fmt.Errorf("failed to delete mutation: %w", err)
		}
		return s.unindex(tx, rec)
	})
	if err != nil {
		return fmt.Errorf("failed to delete mutation %s: %w", id, err)
	}

	return nil
}

// RecoverInFlight demotes stale in_flight records back to pending
func (s *Storage) RecoverInFlight(ctx context.Context, olderThan time.Time) (int, error) {
	recovered := 0

	err := s.update(func(tx *bbolt.Tx) error {
		mutations := tx.Bucket(bucketMutations)

		stale, err := s.scanMutations(mutations, func(m *models.MutationRecord) bool {
			return m.Status == models.StatusInFlight && m.LastAttemptAt.Before(olderThan)
		})
		if err != nil {
			return err
		}

		for _, m := range stale {
			m.Status = models.StatusPending
			if err := s.putMutation(mutations, m); err != nil {
				return err
			}
		}

		recovered = len(stale)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to recover in-flight mutations: %w", err)
	}

	return recovered, nil
}

// CountPending returns the number of records waiting to reach the server
func (s *Storage) CountPending(ctx context.Context) (int, error) {
	records, err := s.ListMutations(ctx, models.StatusPending, models.StatusInFlight)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (s *Storage) getMutation(bucket *bbolt.Bucket, id string) (*models.MutationRecord, error) {
	data := bucket.Get([]byte(id))
	if data == nil {
		return nil, storage.ErrMutationNotFound
	}

	rec := &models.MutationRecord{}
	if err := s.decode(data, rec); err != nil {
		return nil, fmt.Errorf("failed to decode mutation %s: %w", id, err)
	}

	return rec, nil
}

func (s *Storage) putMutation(bucket *bbolt.Bucket, rec *models.MutationRecord) error {
	data, err := s.encode(rec)
	if err != nil {
		return err
	}

	if err := bucket.Put([]byte(rec.ID), data); err != nil {
		return fmt.Errorf("failed to save mutation: %w", err)
	}

	return nil
}

// scanMutations возвращает записи, прошедшие фильтр, в порядке FIFO
func (s *Storage) scanMutations(bucket *bbolt.Bucket, keep func(*models.MutationRecord) bool) ([]*models.MutationRecord, error) {
	var records []*models.MutationRecord

	err := bucket.ForEach(func(k, v []byte) error {
		rec := &models.MutationRecord{}
		if err := s.decode(v, rec); err != nil {
			return fmt.Errorf("failed to decode mutation %s: %w", k, err)
		}
		if keep(rec) {
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].Seq < records[j].Seq
	})

	return records, nil
}

// unindex удаляет запись из entity_index, если индекс указывает на нее
func (s *Storage) unindex(tx *bbolt.Tx, rec *models.MutationRecord) error {
	index := tx.Bucket(bucketEntityIndex)
	key := entityKey(rec.EntityType, rec.EntityID)

	if liveID := index.Get(key); liveID != nil && string(liveID) == rec.ID {
		if err := index.Delete(key); err != nil {
			return fmt.Errorf("failed to update entity index: %w", err)
		}
	}

	return nil
}
