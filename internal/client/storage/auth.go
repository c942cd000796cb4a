package storage

import (
	"context"
	"time"
)

// CredentialStorage хранит токен устройства, выданный сервером.
// Токен сохраняется тем же кодеком, что и записи outbox, поэтому
// в зашифрованном хранилище он тоже зашифрован.
type CredentialStorage interface {
	// SaveCredentials replaces the stored credentials
	SaveCredentials(ctx context.Context, creds *DeviceCredentials) error

	// GetCredentials returns ErrCredentialsNotFound before the first login
	GetCredentials(ctx context.Context) (*DeviceCredentials, error)

	// DeleteCredentials removes stored credentials (logout)
	DeleteCredentials(ctx context.Context) error
}

// DeviceCredentials токен устройства и извлеченные из него claims
type DeviceCredentials struct {
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	SavedAt   time.Time `json:"saved_at"`
	Token     string    `json:"token"`
	TenantID  string    `json:"tenant_id"`
	DeviceID  string    `json:"device_id"`
}

// Expired reports whether the token has an expiry at or before now.
func (c *DeviceCredentials) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}
