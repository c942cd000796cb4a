package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/PNdlovu/writecarenotes-sub002/internal/client/storage"
	"github.com/PNdlovu/writecarenotes-sub002/internal/models"
)

func (c *Cli) runGet(ctx context.Context, entityType, entityID string, refresh bool) error {
	c.io.Printf("=== %s/%s ===\n", entityType, entityID)

	if refresh && c.goOnline(ctx) {
		snap, err := c.syncer.Refresh(ctx, entityType, entityID)
		switch {
		case errors.Is(err, storage.ErrSnapshotNotFound):
			return fmt.Errorf("%s/%s does not exist on the server", entityType, entityID)
		case err != nil:
			// Не прерываем выполнение, показываем локальную копию
			c.io.Printf("Warning: refresh failed, showing local copy: %v\n", err)
		default:
			c.printSnapshot(snap)
			return nil
		}
	}

	snap, err := c.outbox.Read(ctx, entityType, entityID)
	if err != nil {
		return describeError(entityType+"/"+entityID, err)
	}

	c.printSnapshot(snap)
	return nil
}

func (c *Cli) printSnapshot(snap *models.EntitySnapshot) {
	c.io.Println()
	c.io.Printf("Version:  %d\n", snap.Version)
	if !snap.UpdatedAt.IsZero() {
		c.io.Printf("Updated:  %s\n", snap.UpdatedAt.Format(time.RFC3339))
	}
	if snap.Optimistic {
		c.io.Println("State:    local changes not yet synced")
	} else {
		c.io.Println("State:    synced")
	}
	c.io.Println()

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, snap.Payload, "", "  "); err != nil {
		c.io.Println(string(snap.Payload))
		return
	}
	c.io.Println(pretty.String())
}
