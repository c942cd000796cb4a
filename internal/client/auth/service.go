// Package auth manages the device token used to authenticate against the
// server of record.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PNdlovu/writecarenotes-sub002/internal/client/storage"
)

//go:generate moq -out mocks_test.go -pkg auth ../storage CredentialStorage

// ErrTokenExpired возвращается при попытке сохранить просроченный токен
var ErrTokenExpired = errors.New("device token has expired")

// Service предоставляет функции авторизации устройства
type Service struct {
	store  storage.CredentialStorage
	logger *slog.Logger
	now    func() time.Time
}

// NewService создает новый сервис авторизации
func NewService(store storage.CredentialStorage, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Login проверяет токен устройства и сохраняет его локально
func (s *Service) Login(ctx context.Context, token string) (*storage.DeviceCredentials, error) {
	creds, err := ParseToken(token)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if creds.Expired(now) {
		return nil, fmt.Errorf("%w at %s", ErrTokenExpired, creds.ExpiresAt.Format(time.RFC3339))
	}
	creds.SavedAt = now.UTC()

	if err := s.store.SaveCredentials(ctx, creds); err != nil {
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}

	return creds, nil
}

// Logout удаляет сохраненный токен. Отсутствие токена не считается ошибкой.
func (s *Service) Logout(ctx context.Context) error {
	err := s.store.DeleteCredentials(ctx)
	if err != nil && !errors.Is(err, storage.ErrCredentialsNotFound) {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

// Current returns the stored credentials, or nil before the first login.
func (s *Service) Current(ctx context.Context) (*storage.DeviceCredentials, error) {
	creds, err := s.store.GetCredentials(ctx)
	if errors.Is(err, storage.ErrCredentialsNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	return creds, nil
}

// Token returns the bearer token for API calls with priority:
// 1. configured value (config file or CARESYNC_SERVER_TOKEN)
// 2. token saved by login
// 3. empty, the device works offline until it logs in
func (s *Service) Token(ctx context.Context, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	creds, err := s.Current(ctx)
	if err != nil || creds == nil {
		return "", err
	}

	// Просроченный токен все равно отдаем: сервер ответит 401,
	// а мутации останутся в outbox до нового login
	if creds.Expired(s.now()) {
		s.logger.Warn("Device token has expired, run 'caresync login' with a new token",
			"device_id", creds.DeviceID,
			"expired_at", creds.ExpiresAt)
	}

	return creds.Token, nil
}
