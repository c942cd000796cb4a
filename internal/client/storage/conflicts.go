package storage

import (
	"context"

	"github.com/PNdlovu/writecarenotes-sub002/internal/models"
)

// ConflictLog keeps automatically resolved conflicts until acknowledged,
// so the discarded side of every resolution stays retrievable.
type ConflictLog interface {
	// AppendConflict stores an outcome keyed by mutation id
	AppendConflict(ctx context.Context, outcome *models.ConflictOutcome) error

	// ListConflicts returns unacknowledged outcomes ordered by resolution time
	ListConflicts(ctx context.Context) ([]*models.ConflictOutcome, error)

	// AcknowledgeConflict removes an outcome
	// Returns ErrConflictNotFound if there is no such outcome
	AcknowledgeConflict(ctx context.Context, mutationID string) error
}
