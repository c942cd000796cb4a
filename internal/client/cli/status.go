package cli

import (
	"context"
	"fmt"
	"time"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Sync Status ===")
	c.io.Println()
	c.printDevice(ctx)

	pending, err := c.outbox.Pending(ctx)
	if err != nil {
		return fmt.Errorf("failed to read outbox: %w", err)
	}

	attention, err := c.outbox.NeedsAttention(ctx)
	if err != nil {
		return fmt.Errorf("failed to read outbox: %w", err)
	}

	lastSync, err := c.meta.GetLastSyncAt(ctx)
	if err != nil {
		// Не прерываем выполнение, просто предупреждаем
		c.io.Printf("Warning: failed to get last sync time: %v\n", err)
	}

	if lastSync.IsZero() {
		c.io.Println("Last sync: never")
	} else {
		c.io.Printf("Last sync: %s (%s ago)\n", lastSync.Format(time.RFC3339), time.Since(lastSync).Round(time.Second))
	}

	c.io.Printf("Pending:   %d\n", len(pending))
	if buffered := c.outbox.Buffered(); buffered > 0 {
		c.io.Printf("In memory: %d\n", buffered)
	}

	c.io.Println()
	if len(attention) > 0 {
		c.io.Printf("⚠️  %d mutation(s) need attention\n", len(attention))
		for _, rec := range attention {
			c.io.Printf("  %s  %s/%s  %s\n", rec.ID, rec.EntityType, rec.EntityID, rec.Status)
		}
		c.io.Println("Run 'caresync conflicts' for details.")
	} else if len(pending) > 0 {
		c.io.Println("Run 'caresync sync' to synchronize with server.")
	} else {
		c.io.Println("✓ All changes synchronized with server")
	}

	return nil
}
