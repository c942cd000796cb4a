package cli

import (
	"context"
	"fmt"

	clientsync "github.com/PNdlovu/writecarenotes-sub002/internal/client/sync"
)

func (c *Cli) runSync(ctx context.Context) error {
	c.io.Println("=== Synchronization ===")
	c.io.Println()

	if !c.goOnline(ctx) {
		c.io.Println("Offline: changes stay queued and will be sent on the next sync.")
		return nil
	}

	c.io.Println("Starting synchronization with server...")

	result, err := c.syncer.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("synchronization interrupted: %w", err)
	}

	switch result.Skipped {
	case clientsync.SkipOffline:
		c.io.Println("Offline: changes stay queued and will be sent on the next sync.")
		return nil
	case clientsync.SkipCoalesced:
		c.io.Println("A sync cycle is already running; another pass was scheduled.")
		return nil
	}

	c.io.Println()
	c.io.Println("✓ Synchronization completed")
	c.io.Println()
	c.io.Printf("Synced:     %d\n", result.Synced)
	c.io.Printf("Conflicted: %d\n", result.Conflicted)
	c.io.Printf("Failed:     %d\n", result.Failed)
	c.io.Printf("Retrying:   %d\n", result.Retrying)

	if len(result.Conflicts) > 0 {
		c.io.Println()
		c.io.Println("Conflicts:")
		for _, o := range result.Conflicts {
			c.io.Printf("  %s/%s  %s  (local base %d, server %d)\n",
				o.EntityType, o.EntityID, o.Resolution, o.BaseVersion, o.RemoteVersion)
		}
	}

	if len(result.Failures) > 0 {
		c.io.Println()
		c.io.Println("Failures:")
		for _, f := range result.Failures {
			c.io.Printf("  %s/%s  %s: %s\n", f.EntityType, f.EntityID, shortID(f.MutationID), f.Reason)
		}
	}

	if result.StorageDegraded {
		c.io.Println()
		c.io.Println("⚠️  Local store was unavailable during the cycle")
	}

	if result.Unauthorized {
		c.io.Println()
		c.io.Println("⚠️  Server refused the device token. Changes stay queued, run 'caresync login' with a new token.")
	}

	return nil
}
