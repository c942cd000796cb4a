package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/PNdlovu/writecarenotes-sub002/internal/server/storage"
	"github.com/PNdlovu/writecarenotes-sub002/internal/validation"
)

// GetEntity retrieves a live entity
func (s *Storage) GetEntity(ctx context.Context, tenantID, entityType, entityID string) (*storage.Entity, error) {
	query := `
		SELECT version, payload, deleted, last_mutation_id, updated_at
		FROM entities
		WHERE tenant_id = ? AND entity_type = ? AND entity_id = ?
	`

	entity := &storage.Entity{
		TenantID:   tenantID,
		EntityType: entityType,
		EntityID:   entityID,
	}
	var (
		deleted   int
		updatedAt int64
	)

	err := s.db.QueryRowContext(ctx, query, tenantID, entityType, entityID).Scan(
		&entity.Version,
		&entity.Payload,
		&deleted,
		&entity.LastMutationID,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}

	if deleted != 0 {
		return nil, storage.ErrEntityNotFound
	}

	entity.UpdatedAt = fromUnixNano(updatedAt)
	return entity, nil
}

// ApplyMutation applies a mutation inside a single transaction
func (s *Storage) ApplyMutation(ctx context.Context, tenantID string, m *storage.Mutation) (*storage.ApplyResult, error) {
	if err := validateMutation(m); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Повторная отправка: возвращаем сохраненный результат
	replayed, err := findApplied(ctx, tx, tenantID, m.MutationID)
	if err != nil {
		return nil, err
	}
	if replayed != nil {
		return replayed, tx.Commit()
	}

	var (
		stored  uint64
		deleted int
		exists  = true
	)
	err = tx.QueryRowContext(ctx, `
		SELECT version, deleted FROM entities
		WHERE tenant_id = ? AND entity_type = ? AND entity_id = ?
	`, tenantID, m.EntityType, m.EntityID).Scan(&stored, &deleted)
	if errors.Is(err, sql.ErrNoRows) {
		exists = false
	} else if err != nil {
		return nil, fmt.Errorf("failed to read entity version: %w", err)
	}

	// Удаленная сущность для клиента выглядит как отсутствующая (версия 0)
	live := exists && deleted == 0
	effective := uint64(0)
	if live {
		effective = stored
	}

	if m.Operation != storage.OperationCreate && !live {
		return nil, storage.ErrEntityNotFound
	}
	if m.ExpectedVersion != effective {
		return nil, fmt.Errorf("%w: expected %d, stored %d", storage.ErrVersionConflict, m.ExpectedVersion, effective)
	}

	result := &storage.ApplyResult{
		NewVersion: stored + 1,
		UpdatedAt:  s.now().UTC(),
	}
	updatedAt := unixNano(result.UpdatedAt)

	payload := m.Payload
	if m.Operation == storage.OperationDelete {
		payload = nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entities (tenant_id, entity_type, entity_id, version, payload, deleted, last_mutation_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, entity_type, entity_id) DO UPDATE SET
			version = excluded.version,
			payload = excluded.payload,
			deleted = excluded.deleted,
			last_mutation_id = excluded.last_mutation_id,
			updated_at = excluded.updated_at
	`,
		tenantID,
		m.EntityType,
		m.EntityID,
		result.NewVersion,
		payload,
		boolToInt(m.Operation == storage.OperationDelete),
		m.MutationID,
		updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to write entity: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO applied_mutations (tenant_id, mutation_id, entity_type, entity_id, new_version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, tenantID, m.MutationID, m.EntityType, m.EntityID, result.NewVersion, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record mutation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit mutation: %w", err)
	}

	return result, nil
}

// findApplied возвращает результат ранее примененной мутации или nil
func findApplied(ctx context.Context, tx *sql.Tx, tenantID, mutationID string) (*storage.ApplyResult, error) {
	var (
		version   uint64
		updatedAt int64
	)
	err := tx.QueryRowContext(ctx, `
		SELECT new_version, updated_at FROM applied_mutations
		WHERE tenant_id = ? AND mutation_id = ?
	`, tenantID, mutationID).Scan(&version, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check applied mutation: %w", err)
	}

	return &storage.ApplyResult{
		NewVersion: version,
		UpdatedAt:  fromUnixNano(updatedAt),
		Replayed:   true,
	}, nil
}

func validateMutation(m *storage.Mutation) error {
	if m.MutationID == "" {
		return fmt.Errorf("%w: mutation_id is required", storage.ErrInvalidOperation)
	}
	if err := validation.ValidateIdentifier("entity type", m.EntityType); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidOperation, err)
	}
	if err := validation.ValidateIdentifier("entity id", m.EntityID); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidOperation, err)
	}

	switch m.Operation {
	case storage.OperationCreate, storage.OperationUpdate:
		if !json.Valid(m.Payload) {
			return storage.ErrInvalidPayload
		}
	case storage.OperationDelete:
	default:
		return fmt.Errorf("%w: %q", storage.ErrInvalidOperation, m.Operation)
	}

	return nil
}
