package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/PNdlovu/writecarenotes-sub002/internal/server/storage"
)

// SaveDevice registers a device or renames an existing one
func (s *Storage) SaveDevice(ctx context.Context, device *storage.Device) error {
	query := `
		INSERT INTO devices (tenant_id, device_id, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (tenant_id, device_id) DO UPDATE SET name = excluded.name
	`

	createdAt := device.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, query,
		device.TenantID,
		device.DeviceID,
		device.Name,
		unixNano(createdAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save device: %w", err)
	}

	return nil
}

// GetDevice retrieves a device
func (s *Storage) GetDevice(ctx context.Context, tenantID, deviceID string) (*storage.Device, error) {
	query := `
		SELECT tenant_id, device_id, name, created_at, last_seen_at, revoked_at
		FROM devices
		WHERE tenant_id = ? AND device_id = ?
	`

	device, err := scanDevice(s.db.QueryRowContext(ctx, query, tenantID, deviceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return device, nil
}

// ListDevices returns all devices of a tenant ordered by registration time
func (s *Storage) ListDevices(ctx context.Context, tenantID string) ([]*storage.Device, error) {
	query := `
		SELECT tenant_id, device_id, name, created_at, last_seen_at, revoked_at
		FROM devices
		WHERE tenant_id = ?
		ORDER BY created_at, device_id
	`

	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	devices := make([]*storage.Device, 0)
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating devices: %w", err)
	}

	return devices, nil
}

// RevokeDevice marks the device as revoked
func (s *Storage) RevokeDevice(ctx context.Context, tenantID, deviceID string, at time.Time) error {
	return s.updateDevice(ctx, "revoked_at", tenantID, deviceID, at)
}

// TouchDevice updates the last seen timestamp
func (s *Storage) TouchDevice(ctx context.Context, tenantID, deviceID string, at time.Time) error {
	return s.updateDevice(ctx, "last_seen_at", tenantID, deviceID, at)
}

func (s *Storage) updateDevice(ctx context.Context, column, tenantID, deviceID string, at time.Time) error {
	// column берется только из констант выше
	query := fmt.Sprintf(`UPDATE devices SET %s = ? WHERE tenant_id = ? AND device_id = ?`, column)

	res, err := s.db.ExecContext(ctx, query, unixNano(at), tenantID, deviceID)
	if err != nil {
		return fmt.Errorf("failed to update device: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrDeviceNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*storage.Device, error) {
	var (
		device    storage.Device
		createdAt int64
		lastSeen  sql.NullInt64
		revokedAt sql.NullInt64
	)

	if err := row.Scan(
		&device.TenantID,
		&device.DeviceID,
		&device.Name,
		&createdAt,
		&lastSeen,
		&revokedAt,
	); err != nil {
		return nil, err
	}

	device.CreatedAt = fromUnixNano(createdAt)
	device.LastSeenAt = nullableTime(lastSeen)
	device.RevokedAt = nullableTime(revokedAt)

	return &device, nil
}
