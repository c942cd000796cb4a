package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/PNdlovu/writecarenotes-sub002/internal/server/storage"
	"github.com/PNdlovu/writecarenotes-sub002/pkg/api"
)

//go:generate moq -out mocks_test.go . EntityStore

// maxBodySize ограничение на размер тела мутации
const maxBodySize = 1 << 20

// EntityStore определяет интерфейс для работы с сущностями
type EntityStore interface {
	GetEntity(ctx context.Context, tenantID, entityType, entityID string) (*storage.Entity, error)
	ApplyMutation(ctx context.Context, tenantID string, m *storage.Mutation) (*storage.ApplyResult, error)
}

// EntityHandler serves the server-of-record endpoints used by devices.
type EntityHandler struct {
	logger  *slog.Logger
	storage EntityStore
}

// NewEntityHandler creates a new entity handler
func NewEntityHandler(logger *slog.Logger, storage EntityStore) *EntityHandler {
	return &EntityHandler{
		logger:  logger,
		storage: storage,
	}
}

// GetEntity обрабатывает GET /api/v1/entities/{type}/{id}
func (h *EntityHandler) GetEntity(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := GetTenantID(r.Context())
	if !ok {
		WriteError(h.logger, w, http.StatusUnauthorized, api.ErrCodeUnauthorized, "tenant not found in token")
		return
	}

	entityType := chi.URLParam(r, "type")
	entityID := chi.URLParam(r, "id")

	entity, err := h.storage.GetEntity(r.Context(), tenantID, entityType, entityID)
	if errors.Is(err, storage.ErrEntityNotFound) {
		WriteError(h.logger, w, http.StatusNotFound, api.ErrCodeNotFound, "entity not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to get entity", "error", err, "entity_type", entityType, "entity_id", entityID)
		WriteError(h.logger, w, http.StatusInternalServerError, api.ErrCodeInternal, "")
		return
	}

	writeJSON(h.logger, w, http.StatusOK, api.EntitySnapshot{
		EntityType:     entity.EntityType,
		EntityID:       entity.EntityID,
		Version:        entity.Version,
		UpdatedAt:      entity.UpdatedAt,
		LastMutationID: entity.LastMutationID,
		Payload:        json.RawMessage(entity.Payload),
	})
}

// SubmitMutation обрабатывает POST /api/v1/mutations
// Ключ идемпотентности берется из заголовка Idempotency-Key, иначе из тела
func (h *EntityHandler) SubmitMutation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := GetTenantID(ctx)
	if !ok {
		WriteError(h.logger, w, http.StatusUnauthorized, api.ErrCodeUnauthorized, "tenant not found in token")
		return
	}

	var req api.SubmitMutationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode mutation", "error", err)
		WriteError(h.logger, w, http.StatusBadRequest, api.ErrCodeInvalidRequest, "invalid request body")
		return
	}

	if key := r.Header.Get(api.IdempotencyKeyHeader); key != "" {
		if req.MutationID != "" && req.MutationID != key {
			WriteError(h.logger, w, http.StatusBadRequest, api.ErrCodeInvalidRequest, "mutation_id does not match Idempotency-Key")
			return
		}
		req.MutationID = key
	}

	log := h.logger.With(
		"tenant_id", tenantID,
		"mutation_id", req.MutationID,
		"entity_type", req.EntityType,
		"entity_id", req.EntityID,
	)
	if deviceID, ok := GetDeviceID(ctx); ok {
		log = log.With("device_id", deviceID)
	}

	result, err := h.storage.ApplyMutation(ctx, tenantID, &storage.Mutation{
		MutationID:      req.MutationID,
		EntityType:      req.EntityType,
		EntityID:        req.EntityID,
		Operation:       req.Operation,
		Payload:         []byte(req.Payload),
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		h.writeApplyError(log, w, err)
		return
	}

	log.Info("Mutation applied",
		"operation", req.Operation,
		"expected_version", req.ExpectedVersion,
		"new_version", result.NewVersion,
		"replayed", result.Replayed)

	writeJSON(h.logger, w, http.StatusOK, api.SubmitMutationResponse{
		NewVersion: result.NewVersion,
		UpdatedAt:  result.UpdatedAt,
		Replayed:   result.Replayed,
	})
}

// writeApplyError сводит ошибки хранилища к HTTP статусам
func (h *EntityHandler) writeApplyError(log *slog.Logger, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrVersionConflict):
		log.Info("Mutation rejected: version conflict", "error", err)
		WriteError(h.logger, w, http.StatusConflict, api.ErrCodeVersionConflict, err.Error())
	case errors.Is(err, storage.ErrEntityNotFound):
		WriteError(h.logger, w, http.StatusNotFound, api.ErrCodeNotFound, "entity not found")
	case errors.Is(err, storage.ErrInvalidPayload), errors.Is(err, storage.ErrInvalidOperation):
		log.Warn("Mutation rejected", "error", err)
		WriteError(h.logger, w, http.StatusUnprocessableEntity, api.ErrCodeRejected, err.Error())
	default:
		log.Error("Failed to apply mutation", "error", err)
		WriteError(h.logger, w, http.StatusInternalServerError, api.ErrCodeInternal, "")
	}
}
