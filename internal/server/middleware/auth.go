package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PNdlovu/writecarenotes-sub002/internal/server/handlers"
	"github.com/PNdlovu/writecarenotes-sub002/internal/server/storage"
	"github.com/PNdlovu/writecarenotes-sub002/pkg/api"
)

// touchInterval как часто обновляется last_seen_at устройства
const touchInterval = time.Minute

// DeviceRegistry проверяет, что устройство зарегистрировано и не отозвано
type DeviceRegistry interface {
	GetDevice(ctx context.Context, tenantID, deviceID string) (*storage.Device, error)
	TouchDevice(ctx context.Context, tenantID, deviceID string, at time.Time) error
}

// AuthMiddleware создает middleware для проверки токена устройства.
// devices may be nil, then any validly signed token is accepted.
func AuthMiddleware(logger *slog.Logger, jwtConfig handlers.JWTConfig, devices DeviceRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("Missing Authorization header")
				handlers.WriteError(logger, w, http.StatusUnauthorized, api.ErrCodeUnauthorized, "missing token")
				return
			}

			// Ожидаем формат: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				logger.Warn("Invalid Authorization header format")
				handlers.WriteError(logger, w, http.StatusUnauthorized, api.ErrCodeUnauthorized, "invalid token format")
				return
			}

			claims, err := handlers.ValidateDeviceToken(jwtConfig, parts[1])
			if err != nil {
				logger.Warn("Invalid device token", "error", err)
				handlers.WriteError(logger, w, http.StatusUnauthorized, api.ErrCodeUnauthorized, "invalid token")
				return
			}

			if devices != nil {
				if status, msg := checkDevice(r.Context(), logger, devices, claims); status != 0 {
					handlers.WriteError(logger, w, status, api.ErrCodeUnauthorized, msg)
					return
				}
			}

			logger.Debug("Device authenticated", "tenant_id", claims.TenantID, "device_id", claims.DeviceID)

			ctx := handlers.WithDevice(r.Context(), claims.TenantID, claims.DeviceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// checkDevice возвращает HTTP статус отказа или 0, если устройство допущено
func checkDevice(ctx context.Context, logger *slog.Logger, devices DeviceRegistry, claims *handlers.DeviceClaims) (int, string) {
	log := logger.With("tenant_id", claims.TenantID, "device_id", claims.DeviceID)

	device, err := devices.GetDevice(ctx, claims.TenantID, claims.DeviceID)
	if errors.Is(err, storage.ErrDeviceNotFound) {
		log.Warn("Token for unknown device")
		return http.StatusUnauthorized, "device not registered"
	}
	if err != nil {
		log.Error("Failed to look up device", "error", err)
		return http.StatusServiceUnavailable, "device registry unavailable"
	}
	if device.Revoked() {
		log.Warn("Token for revoked device")
		return http.StatusForbidden, "device revoked"
	}

	now := time.Now()
	if device.LastSeenAt == nil || now.Sub(*device.LastSeenAt) > touchInterval {
		if err := devices.TouchDevice(ctx, claims.TenantID, claims.DeviceID, now); err != nil {
			log.Warn("Failed to update device last seen", "error", err)
		}
	}

	return 0, ""
}
