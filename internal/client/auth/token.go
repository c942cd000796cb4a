package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/PNdlovu/writecarenotes-sub002/internal/client/storage"
)

// ErrInvalidToken возвращается, если строка не является токеном устройства
var ErrInvalidToken = errors.New("invalid device token")

// deviceClaims claims токена, выданного caresync-server
type deviceClaims struct {
	TenantID string `json:"tenant_id"`
	DeviceID string `json:"device_id"`
	jwt.RegisteredClaims
}

// ParseToken reads tenant, device and expiry from a device token. The
// signature is not checked: the device has no secret and the server validates
// every request.
func ParseToken(token string) (*storage.DeviceCredentials, error) {
	claims := &deviceClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.TenantID == "" || claims.DeviceID == "" {
		return nil, fmt.Errorf("%w: tenant or device claim is missing", ErrInvalidToken)
	}

	creds := &storage.DeviceCredentials{
		Token:    token,
		TenantID: claims.TenantID,
		DeviceID: claims.DeviceID,
	}
	if claims.ExpiresAt != nil {
		creds.ExpiresAt = claims.ExpiresAt.UTC()
	}

	return creds, nil
}
