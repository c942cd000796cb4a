// Package outbox is the caller-facing side of the offline store: it records
// local edits, keeps the optimistic view of entities and exposes conflicts.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PNdlovu/writecarenotes-sub002/internal/client/storage"
	"github.com/PNdlovu/writecarenotes-sub002/internal/models"
	"github.com/PNdlovu/writecarenotes-sub002/internal/version"
)

//go:generate moq -out service_mock.go . Service

// Service определяет интерфейс для работы приложения с локальными изменениями
type Service interface {
	// Enqueue records a local edit and applies it to the cached view.
	// It succeeds while the store is unavailable; the edit is then kept in
	// memory until Flush.
	Enqueue(ctx context.Context, req EnqueueRequest) (string, error)

	// Flush persists edits buffered while the store was unavailable
	Flush(ctx context.Context) (int, error)

	// Read returns the optimistic view of an entity
	Read(ctx context.Context, entityType, entityID string) (*models.EntitySnapshot, error)

	// List returns the optimistic view of all cached entities of a type
	List(ctx context.Context, entityType string) ([]*models.EntitySnapshot, error)

	// Pending returns queued records that have not reached the server yet
	Pending(ctx context.Context) ([]*models.MutationRecord, error)

	// Conflicts returns automatically resolved conflicts awaiting acknowledgement
	Conflicts(ctx context.Context) ([]*models.ConflictOutcome, error)

	// NeedsAttention returns records parked as conflicted or failed
	NeedsAttention(ctx context.Context) ([]*models.MutationRecord, error)

	// Acknowledge removes an outcome from the conflict log
	Acknowledge(ctx context.Context, mutationID string) error

	// ResolveManually requeues a conflicted record with the caller's payload
	// on top of the remote version seen during resolution
	ResolveManually(ctx context.Context, mutationID string, payload []byte) (*models.MutationRecord, error)

	// Discard drops a conflicted or failed record. The cached view falls back
	// to the server copy seen at resolution, or is evicted when none is known.
	Discard(ctx context.Context, mutationID string) error

	// Buffered returns how many edits wait in memory for the store
	Buffered() int
}

// Store is the part of the local store the outbox works with.
type Store interface {
	storage.MutationStorage
	storage.SnapshotStorage
	storage.ConflictLog
}

// EnqueueRequest описывает локальную правку.
type EnqueueRequest struct {
	BaseUpdatedAt time.Time        // время базовой версии, если известно
	EntityType    string           // тип сущности
	EntityID      string           // идентификатор сущности
	Operation     models.Operation // create/update/delete
	Payload       []byte           // полный документ сущности (пустой для delete)
	BaseVersion   uint64           // версия, поверх которой сделана правка (0 - взять из кэша)
}

// service handles local edits on top of the durable store
type service struct {
	store    Store
	clock    *version.Clock
	logger   *slog.Logger
	overflow map[models.EntityKey]*models.MutationRecord
	order    []models.EntityKey // порядок поступления правок в буфер
	mu       sync.Mutex
}

// NewService creates a new outbox service
func NewService(store Store, clock *version.Clock, logger *slog.Logger) Service {
	if clock == nil {
		clock = version.NewClock()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &service{
		store:    store,
		clock:    clock,
		logger:   logger,
		overflow: make(map[models.EntityKey]*models.MutationRecord),
	}
}

// Enqueue records a local edit
func (s *service) Enqueue(ctx context.Context, req EnqueueRequest) (string, error) {
	rec := &models.MutationRecord{
		EntityType:    req.EntityType,
		EntityID:      req.EntityID,
		Operation:     req.Operation,
		BaseVersion:   req.BaseVersion,
		BaseUpdatedAt: req.BaseUpdatedAt,
		Status:        models.StatusPending,
	}
	if len(req.Payload) > 0 {
		rec.Payload = append([]byte(nil), req.Payload...)
	}

	if err := rec.Validate(); err != nil {
		return "", err
	}
	if rec.Operation != models.OperationDelete && !json.Valid(rec.Payload) {
		return "", fmt.Errorf("%w: payload is not valid JSON", models.ErrInvalidMutation)
	}

	// Базовая версия по умолчанию - то, что пользователь видел в кэше
	cached, err := s.store.GetSnapshot(ctx, rec.EntityType, rec.EntityID)
	switch {
	case err == nil:
		if rec.BaseVersion == 0 && rec.Operation != models.OperationCreate {
			rec.BaseVersion = cached.Version
			rec.BaseUpdatedAt = cached.UpdatedAt
		}
	case errors.Is(err, storage.ErrSnapshotNotFound):
		cached = nil
	default:
		s.logger.Warn("Failed to read cached snapshot", "entity_type", rec.EntityType, "entity_id", rec.EntityID, "error", err)
		cached = nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate mutation id: %w", err)
	}
	rec.ID = id.String()
	rec.CreatedAt = s.clock.Now()

	storedID, err := s.store.Enqueue(ctx, rec)
	if err != nil {
		if !errors.Is(err, storage.ErrStorageUnavailable) {
			return "", fmt.Errorf("failed to enqueue mutation: %w", err)
		}
		storedID = s.buffer(rec)
		s.logger.Warn("Local storage unavailable, mutation buffered in memory",
			"mutation_id", storedID, "entity_type", rec.EntityType, "entity_id", rec.EntityID)
		return storedID, nil
	}

	s.applyOptimistic(ctx, rec, cached)

	s.logger.Debug("Mutation enqueued",
		"mutation_id", storedID,
		"entity_type", rec.EntityType,
		"entity_id", rec.EntityID,
		"operation", rec.Operation,
	)

	return storedID, nil
}

// buffer coalesces a record into the in-memory overflow queue
func (s *service) buffer(rec *models.MutationRecord) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := rec.EntityKey()
	existing, ok := s.overflow[key]
	if !ok {
		s.overflow[key] = rec
		s.order = append(s.order, key)
		return rec.ID
	}

	merged, drop := storage.Coalesce(existing, rec)
	if drop {
		delete(s.overflow, key)
		s.removeFromOrder(key)
		return existing.ID
	}

	s.overflow[key] = merged
	return merged.ID
}

func (s *service) removeFromOrder(key models.EntityKey) {
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// Flush persists buffered edits in arrival order
func (s *service) Flush(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flushed := 0
	for len(s.order) > 0 {
		key := s.order[0]
		rec := s.overflow[key]

		if _, err := s.store.Enqueue(ctx, rec); err != nil {
			return flushed, fmt.Errorf("failed to flush buffered mutation %s: %w", rec.ID, err)
		}
		s.applyOptimistic(ctx, rec, nil)

		delete(s.overflow, key)
		s.order = s.order[1:]
		flushed++
	}

	if flushed > 0 {
		s.logger.Info("Buffered mutations persisted", "count", flushed)
	}

	return flushed, nil
}

// Buffered returns the overflow queue length
func (s *service) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// applyOptimistic отражает правку в кэше до подтверждения сервером
func (s *service) applyOptimistic(ctx context.Context, rec *models.MutationRecord, cached *models.EntitySnapshot) {
	var err error
	if rec.Operation == models.OperationDelete {
		err = s.store.DeleteSnapshot(ctx, rec.EntityType, rec.EntityID)
	} else {
		if cached == nil {
			cached, err = s.store.GetSnapshot(ctx, rec.EntityType, rec.EntityID)
			if err != nil {
				cached = &models.EntitySnapshot{
					EntityType: rec.EntityType,
					EntityID:   rec.EntityID,
					Version:    rec.BaseVersion,
				}
			}
		}

		snapshot := cached.Clone()
		snapshot.Payload = append([]byte(nil), rec.Payload...)
		snapshot.FetchedAt = s.clock.Now()
		snapshot.Optimistic = true
		err = s.store.PutSnapshot(ctx, snapshot)
	}

	if err != nil {
		s.logger.Warn("Failed to update optimistic view", "entity_type", rec.EntityType, "entity_id", rec.EntityID, "error", err)
	}
}

// Read returns the optimistic view of an entity
func (s *service) Read(ctx context.Context, entityType, entityID string) (*models.EntitySnapshot, error) {
	if rec := s.buffered(models.EntityKey{Type: entityType, ID: entityID}); rec != nil {
		return s.bufferedView(ctx, rec)
	}

	snapshot, err := s.store.GetSnapshot(ctx, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", entityType, entityID, err)
	}

	return snapshot, nil
}

// List returns the optimistic view of all cached entities of a type
func (s *service) List(ctx context.Context, entityType string) ([]*models.EntitySnapshot, error) {
	snapshots, err := s.store.ListSnapshots(ctx, entityType)
	if err != nil && !errors.Is(err, storage.ErrStorageUnavailable) {
		return nil, fmt.Errorf("failed to list %s: %w", entityType, err)
	}

	s.mu.Lock()
	buffered := make(map[string]*models.MutationRecord)
	for key, rec := range s.overflow {
		if key.Type == entityType {
			buffered[key.ID] = rec.Clone()
		}
	}
	s.mu.Unlock()

	if err != nil && len(buffered) == 0 {
		return nil, fmt.Errorf("failed to list %s: %w", entityType, err)
	}

	result := make([]*models.EntitySnapshot, 0, len(snapshots)+len(buffered))
	for _, snap := range snapshots {
		if rec, ok := buffered[snap.EntityID]; ok {
			delete(buffered, snap.EntityID)
			if rec.Operation == models.OperationDelete {
				continue
			}
			snap.Payload = rec.Payload
			snap.Optimistic = true
		}
		result = append(result, snap)
	}
	for _, rec := range buffered {
		if rec.Operation == models.OperationDelete {
			continue
		}
		result = append(result, &models.EntitySnapshot{
			EntityType: rec.EntityType,
			EntityID:   rec.EntityID,
			Version:    rec.BaseVersion,
			Payload:    rec.Payload,
			FetchedAt:  rec.CreatedAt,
			Optimistic: true,
		})
	}

	return result, nil
}

func (s *service) buffered(key models.EntityKey) *models.MutationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.overflow[key]; ok {
		return rec.Clone()
	}
	return nil
}

func (s *service) bufferedView(ctx context.Context, rec *models.MutationRecord) (*models.EntitySnapshot, error) {
	if rec.Operation == models.OperationDelete {
		return nil, fmt.Errorf("failed to read %s: %w", rec.EntityKey(), storage.ErrSnapshotNotFound)
	}

	snapshot := &models.EntitySnapshot{
		EntityType: rec.EntityType,
		EntityID:   rec.EntityID,
		Version:    rec.BaseVersion,
	}
	// Кэш может быть доступен даже когда очередь нет
	if cached, err := s.store.GetSnapshot(ctx, rec.EntityType, rec.EntityID); err == nil {
		snapshot = cached
	}
	snapshot.Payload = rec.Payload
	snapshot.FetchedAt = rec.CreatedAt
	snapshot.Optimistic = true

	return snapshot, nil
}

// Pending returns records that have not reached the server yet
func (s *service) Pending(ctx context.Context) ([]*models.MutationRecord, error) {
	records, err := s.store.ListMutations(ctx, models.StatusPending, models.StatusInFlight)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending mutations: %w", err)
	}
	return records, nil
}

// Conflicts returns the conflict log
func (s *service) Conflicts(ctx context.Context) ([]*models.ConflictOutcome, error) {
	outcomes, err := s.store.ListConflicts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list conflicts: %w", err)
	}
	return outcomes, nil
}

// NeedsAttention returns conflicted and failed records
func (s *service) NeedsAttention(ctx context.Context) ([]*models.MutationRecord, error) {
	records, err := s.store.ListMutations(ctx, models.StatusConflicted, models.StatusFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to list mutations needing attention: %w", err)
	}
	return records, nil
}

// Acknowledge removes an outcome from the conflict log
func (s *service) Acknowledge(ctx context.Context, mutationID string) error {
	if err := s.store.AcknowledgeConflict(ctx, mutationID); err != nil {
		return fmt.Errorf("failed to acknowledge conflict: %w", err)
	}

	s.logger.Info("Conflict acknowledged", "mutation_id", mutationID)
	return nil
}

// ResolveManually requeues a conflicted record with the caller's payload
func (s *service) ResolveManually(ctx context.Context, mutationID string, payload []byte) (*models.MutationRecord, error) {
	rec, err := s.store.GetMutation(ctx, mutationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get mutation: %w", err)
	}
	if rec.Status != models.StatusConflicted || rec.Outcome == nil {
		return nil, fmt.Errorf("%w: mutation %s is %s", storage.ErrInvalidTransition, mutationID, rec.Status)
	}
	if rec.Operation != models.OperationDelete && !json.Valid(payload) {
		return nil, fmt.Errorf("%w: payload is not valid JSON", models.ErrInvalidMutation)
	}

	// Решение принимается поверх версии сервера, показанной при разрешении
	resolved, err := s.store.ResolveManually(ctx, mutationID, payload, rec.Outcome.RemoteVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve mutation: %w", err)
	}

	s.applyOptimistic(ctx, resolved, nil)
	s.logger.Info("Conflict resolved manually", "mutation_id", mutationID, "base_version", resolved.BaseVersion)

	return resolved, nil
}

// Discard drops a conflicted or failed record
func (s *service) Discard(ctx context.Context, mutationID string) error {
	rec, err := s.store.GetMutation(ctx, mutationID)
	if err != nil {
		return fmt.Errorf("failed to get mutation: %w", err)
	}
	if rec.Status != models.StatusConflicted && rec.Status != models.StatusFailed {
		return fmt.Errorf("%w: mutation %s is %s", storage.ErrInvalidTransition, mutationID, rec.Status)
	}

	if err := s.store.DeleteMutation(ctx, mutationID); err != nil {
		return fmt.Errorf("failed to delete mutation: %w", err)
	}

	// Более новая правка сама держит оптимистичную копию
	if _, err := s.store.FindLive(ctx, rec.EntityType, rec.EntityID); err == nil {
		s.logger.Info("Mutation discarded", "mutation_id", mutationID, "status", rec.Status)
		return nil
	}
	s.restoreRemote(ctx, rec)

	s.logger.Info("Mutation discarded", "mutation_id", mutationID, "status", rec.Status)
	return nil
}

// restoreRemote заменяет оптимистичную копию серверной, показанной при
// разрешении конфликта. Без известной серверной копии локальная удаляется.
func (s *service) restoreRemote(ctx context.Context, rec *models.MutationRecord) {
	cached, err := s.store.GetSnapshot(ctx, rec.EntityType, rec.EntityID)
	if err != nil && !errors.Is(err, storage.ErrSnapshotNotFound) {
		s.logger.Warn("Failed to read cached snapshot", "mutation_id", rec.ID, "error", err)
		return
	}

	out := rec.Outcome
	if out == nil || out.RemoteVersion == 0 {
		if cached != nil && cached.Optimistic {
			if err := s.store.DeleteSnapshot(ctx, rec.EntityType, rec.EntityID); err != nil {
				s.logger.Warn("Failed to evict optimistic snapshot", "mutation_id", rec.ID, "error", err)
			}
		}
		return
	}

	// Кэш уже держит эту или более новую версию сервера
	if cached != nil && !cached.Optimistic && cached.Version >= out.RemoteVersion {
		return
	}

	err = s.store.PutSnapshot(ctx, &models.EntitySnapshot{
		EntityType: rec.EntityType,
		EntityID:   rec.EntityID,
		Version:    out.RemoteVersion,
		Payload:    append([]byte(nil), out.RemotePayload...),
		FetchedAt:  s.clock.Now(),
	})
	if err != nil {
		s.logger.Warn("Failed to restore server copy", "mutation_id", rec.ID, "error", err)
	}
}
