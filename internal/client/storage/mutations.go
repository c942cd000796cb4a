package storage

import (
	"context"
	"time"

	"github.com/PNdlovu/writecarenotes-sub002/internal/models"
)

// DefaultMaxAttempts количество неудачных попыток, после которых мутация становится failed
const DefaultMaxAttempts = 5

// MutationStorage defines the durable outbox of local mutations.
// At most one non-terminal record exists per (entity type, entity id).
type MutationStorage interface {
	// Enqueue stores a new mutation or coalesces it into the live record for
	// the same entity. Returns the id of the record holding the change.
	Enqueue(ctx context.Context, m *models.MutationRecord) (string, error)

	// DrainPending returns pending records due at now in FIFO order and moves
	// them to in_flight in the same transaction.
	DrainPending(ctx context.Context, now time.Time) ([]*models.MutationRecord, error)

	// GetMutation retrieves a record by id
	// Returns ErrMutationNotFound if record doesn't exist
	GetMutation(ctx context.Context, id string) (*models.MutationRecord, error)

	// FindLive returns the non-terminal record for an entity
	// Returns ErrMutationNotFound if there is none
	FindLive(ctx context.Context, entityType, entityID string) (*models.MutationRecord, error)

	// ListMutations returns records in FIFO order, filtered by status when given
	ListMutations(ctx context.Context, statuses ...models.MutationStatus) ([]*models.MutationRecord, error)

	// MarkSynced finishes a submitted revision. The record is deleted, unless a
	// newer local edit was coalesced meanwhile: then it returns to pending on
	// top of newBaseVersion and is returned.
	MarkSynced(ctx context.Context, id string, revision, newBaseVersion uint64) (*models.MutationRecord, error)

	// MarkConflicted parks the record with its resolution outcome
	MarkConflicted(ctx context.Context, id string, revision uint64, outcome *models.ConflictOutcome) (*models.MutationRecord, error)

	// MarkFailed records a transient failure: attempts++, back to pending
	// until maxAttempts, then terminal failed.
	MarkFailed(ctx context.Context, id string, revision uint64, cause string, retryAt time.Time) (*models.MutationRecord, error)

	// Release returns an in-flight record to pending without counting an
	// attempt, for failures that say nothing about the mutation itself
	Release(ctx context.Context, id string, revision uint64, cause string) (*models.MutationRecord, error)
	// MarkRejected moves the record to terminal failed without retry
	MarkRejected(ctx context.Context, id string, revision uint64, reason string) (*models.MutationRecord, error)

	// ResolveManually replaces a conflicted record's payload with the caller's
	// decision and requeues it against baseVersion
	ResolveManually(ctx context.Context, id string, payload []byte, baseVersion uint64) (*models.MutationRecord, error)

	// DeleteMutation acknowledges and removes a record that is not in flight
	DeleteMutation(ctx context.Context, id string) error

	// RecoverInFlight demotes in_flight records last attempted before olderThan
	// back to pending and returns how many were recovered
	RecoverInFlight(ctx context.Context, olderThan time.Time) (int, error)

	// CountPending returns the number of records still waiting to reach the server
	CountPending(ctx context.Context) (int, error)
}
