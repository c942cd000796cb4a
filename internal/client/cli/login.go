package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

func (c *Cli) runLogin(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		if !c.io.Interactive() {
			return errors.New("device token is required")
		}
		var err error
		token, err = c.io.ReadPassword("Device token: ")
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
		token = strings.TrimSpace(token)
	}

	creds, err := c.auth.Login(ctx, token)
	if err != nil {
		return err
	}

	c.io.Printf("✓ Logged in as device %s of tenant %s\n", creds.DeviceID, creds.TenantID)
	if !creds.ExpiresAt.IsZero() {
		c.io.Printf("Token expires: %s\n", creds.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

func (c *Cli) runLogout(ctx context.Context) error {
	if err := c.auth.Logout(ctx); err != nil {
		return err
	}
	c.io.Println("✓ Logged out. Pending changes stay in the outbox.")
	return nil
}

// printDevice выводит устройство, от имени которого идет синхронизация
func (c *Cli) printDevice(ctx context.Context) {
	if c.auth == nil {
		return
	}

	creds, err := c.auth.Current(ctx)
	switch {
	case err != nil:
		c.io.Printf("Warning: failed to read credentials: %v\n", err)
	case creds == nil:
		c.io.Println("Device:    not logged in")
	case creds.Expired(time.Now()):
		c.io.Printf("Device:    %s/%s (token expired)\n", creds.TenantID, creds.DeviceID)
	default:
		c.io.Printf("Device:    %s/%s\n", creds.TenantID, creds.DeviceID)
	}
}
