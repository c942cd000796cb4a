package storage

import (
	"context"
	"time"
)

// Операции мутации
const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

// Entity is the authoritative server copy of a tenant entity.
type Entity struct {
	UpdatedAt      time.Time
	TenantID       string
	EntityType     string
	EntityID       string
	LastMutationID string
	Payload        []byte
	Version        uint64
	Deleted        bool
}

// Mutation is a single client change submitted for a tenant.
type Mutation struct {
	MutationID      string
	EntityType      string
	EntityID        string
	Operation       string
	Payload         []byte
	ExpectedVersion uint64
}

// ApplyResult describes the stored outcome of a mutation.
type ApplyResult struct {
	UpdatedAt  time.Time
	NewVersion uint64
	Replayed   bool
}

// EntityStorage defines interface for versioned entity persistence
type EntityStorage interface {
	// GetEntity returns the live entity.
	// Returns ErrEntityNotFound if it doesn't exist or is deleted
	GetEntity(ctx context.Context, tenantID, entityType, entityID string) (*Entity, error)

	// ApplyMutation applies a mutation when ExpectedVersion matches the stored
	// version (0 for an absent entity). A mutation ID seen before returns the
	// stored result with Replayed set and changes nothing.
	ApplyMutation(ctx context.Context, tenantID string, m *Mutation) (*ApplyResult, error)
}
