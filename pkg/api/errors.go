package api

import "time"

// Коды ошибок в ErrorResponse.Error
const (
	ErrCodeInvalidRequest  = "invalid_request"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeNotFound        = "not_found"
	ErrCodeVersionConflict = "version_conflict"
	ErrCodeRejected        = "rejected"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeInternal        = "internal_error"
)

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // код ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}

// HealthResponse представляет ответ проверки доступности сервера
type HealthResponse struct {
	Time    time.Time `json:"time"`
	Status  string    `json:"status"`
	Version string    `json:"version,omitempty"`
}
