// Package gateway defines how the sync engine talks to the server of record.
// The engine depends only on RemoteGateway; transports live elsewhere.
package gateway

import (
	"context"
	"time"

	"github.com/PNdlovu/writecarenotes-sub002/internal/models"
)

//go:generate moq -out gateway_mock.go . RemoteGateway

// RemoteGateway is the server of record as seen by the device.
type RemoteGateway interface {
	// FetchCurrent returns the current server copy of an entity
	// Returns ErrNotFound if the entity does not exist (or was deleted)
	FetchCurrent(ctx context.Context, entityType, entityID string) (*models.EntitySnapshot, error)

	// Submit applies a mutation if the entity is still at ExpectedVersion.
	// Receivers de-duplicate by MutationID: a replayed id returns the original result.
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
}

// SubmitRequest запрос на применение мутации на сервере
type SubmitRequest struct {
	MutationID      string           // ключ идемпотентности
	EntityType      string           // тип сущности
	EntityID        string           // идентификатор сущности
	Operation       models.Operation // create/update/delete
	Payload         []byte           // тело сущности (пустое для delete)
	ExpectedVersion uint64           // версия, поверх которой вычислено изменение
}

// SubmitResult ответ сервера на применение мутации
type SubmitResult struct {
	UpdatedAt  time.Time // время записи на сервере
	NewVersion uint64    // новая версия сущности
	Replayed   bool      // мутация уже применялась ранее
}
