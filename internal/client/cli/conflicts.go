package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/PNdlovu/writecarenotes-sub002/internal/models"
)

func (c *Cli) runConflicts(ctx context.Context) error {
	c.io.Println("=== Conflicts ===")
	c.io.Println()

	attention, err := c.outbox.NeedsAttention(ctx)
	if err != nil {
		return fmt.Errorf("failed to list mutations: %w", err)
	}

	outcomes, err := c.outbox.Conflicts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list conflicts: %w", err)
	}

	if len(attention) == 0 && len(outcomes) == 0 {
		c.io.Println("No conflicts.")
		return nil
	}

	if len(attention) > 0 {
		c.io.Println("Waiting for a decision (resolve or discard):")
		for _, rec := range attention {
			c.printParked(rec)
		}
		c.io.Println()
	}

	if len(outcomes) > 0 {
		c.io.Println("Resolved automatically (ack to dismiss):")
		for _, o := range outcomes {
			c.io.Printf("  %s  %s/%s  %s  %s\n",
				o.MutationID, o.EntityType, o.EntityID, o.Resolution, o.ResolvedAt.Format(time.RFC3339))
			if len(o.DiscardedPayload) > 0 {
				c.io.Printf("      discarded: %s\n", o.DiscardedPayload)
			}
		}
	}

	return nil
}

func (c *Cli) printParked(rec *models.MutationRecord) {
	c.io.Printf("  %s  %s/%s  %s %s\n", rec.ID, rec.EntityType, rec.EntityID, rec.Operation, rec.Status)
	if rec.LastError != "" {
		c.io.Printf("      reason: %s\n", rec.LastError)
	}
	if o := rec.Outcome; o != nil {
		if o.Reason != "" {
			c.io.Printf("      reason: %s\n", o.Reason)
		}
		c.io.Printf("      local  (base %d): %s\n", rec.BaseVersion, rec.Payload)
		c.io.Printf("      server (v%d):     %s\n", o.RemoteVersion, o.RemotePayload)
	}
}

func (c *Cli) runAck(ctx context.Context, mutationID string) error {
	if err := c.outbox.Acknowledge(ctx, mutationID); err != nil {
		return fmt.Errorf("failed to acknowledge %s: %w", mutationID, err)
	}
	c.io.Printf("✓ Conflict %s acknowledged\n", mutationID)
	return nil
}

func (c *Cli) runResolve(ctx context.Context, mutationID string, src PayloadSource) error {
	payload, err := c.readPayload(src)
	if err != nil {
		return err
	}

	rec, err := c.outbox.ResolveManually(ctx, mutationID, payload)
	if err != nil {
		return describeError(mutationID, err)
	}

	c.io.Printf("✓ Mutation %s requeued on top of server version %d\n", rec.ID, rec.BaseVersion)
	return nil
}

func (c *Cli) runDiscard(ctx context.Context, mutationID string) error {
	if err := c.outbox.Discard(ctx, mutationID); err != nil {
		return describeError(mutationID, err)
	}
	c.io.Printf("✓ Mutation %s discarded\n", mutationID)
	return nil
}
