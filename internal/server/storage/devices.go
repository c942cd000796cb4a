package storage

import (
	"context"
	"time"
)

// Device is a registered client device of a tenant.
type Device struct {
	CreatedAt  time.Time
	LastSeenAt *time.Time
	RevokedAt  *time.Time
	TenantID   string
	DeviceID   string
	Name       string
}

// Revoked reports whether the device lost access.
func (d *Device) Revoked() bool {
	return d.RevokedAt != nil
}

// DeviceStorage defines interface for device registrations
type DeviceStorage interface {
	// SaveDevice registers a device or renames an existing one
	SaveDevice(ctx context.Context, device *Device) error

	// GetDevice retrieves a device
	// Returns ErrDeviceNotFound if device doesn't exist
	GetDevice(ctx context.Context, tenantID, deviceID string) (*Device, error)

	// ListDevices returns all devices of a tenant
	ListDevices(ctx context.Context, tenantID string) ([]*Device, error)

	// RevokeDevice marks the device as revoked
	// Returns ErrDeviceNotFound if device doesn't exist
	RevokeDevice(ctx context.Context, tenantID, deviceID string, at time.Time) error

	// TouchDevice updates the last seen timestamp
	TouchDevice(ctx context.Context, tenantID, deviceID string, at time.Time) error
}
