package cli

import (
	"context"
	"fmt"

	"github.com/PNdlovu/writecarenotes-sub002/internal/client/outbox"
	"github.com/PNdlovu/writecarenotes-sub002/internal/models"
)

func (c *Cli) runDelete(ctx context.Context, entityType, entityID string, baseVersion uint64, autoSync bool) error {
	id, err := c.outbox.Enqueue(ctx, outbox.EnqueueRequest{
		EntityType:  entityType,
		EntityID:    entityID,
		Operation:   models.OperationDelete,
		BaseVersion: baseVersion,
	})
	if err != nil {
		return fmt.Errorf("failed to queue delete: %w", err)
	}

	c.io.Printf("✓ Queued delete of %s/%s (mutation %s)\n", entityType, entityID, id)

	if autoSync {
		return c.runSync(ctx)
	}
	return nil
}
