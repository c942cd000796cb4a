package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runList(ctx context.Context, entityType string) error {
	c.io.Printf("=== Cached %s entities ===\n", entityType)
	c.io.Println()

	snapshots, err := c.outbox.List(ctx, entityType)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", entityType, err)
	}

	if len(snapshots) == 0 {
		c.io.Println("No entities found.")
		return nil
	}

	c.io.Printf("%-38s %-8s %s\n", "ID", "VERSION", "STATE")
	for _, s := range snapshots {
		state := "synced"
		if s.Optimistic {
			state = "pending"
		}
		c.io.Printf("%-38s %-8d %s\n", s.EntityID, s.Version, state)
	}

	c.io.Println()
	c.io.Printf("Total: %d\n", len(snapshots))
	return nil
}
