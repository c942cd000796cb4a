package api

import (
	"encoding/json"
	"time"
)

// IdempotencyKeyHeader заголовок с ключом идемпотентности мутации
const IdempotencyKeyHeader = "Idempotency-Key"

// EntitySnapshot представляет текущую копию сущности на сервере
type EntitySnapshot struct {
	UpdatedAt      time.Time       `json:"updated_at"`                 // время последней записи
	EntityType     string          `json:"entity_type"`                // тип сущности
	EntityID       string          `json:"entity_id"`                  // идентификатор сущности
	LastMutationID string          `json:"last_mutation_id,omitempty"` // мутация, записавшая текущую версию
	Payload        json.RawMessage `json:"payload"`                    // JSON документ сущности
	Version        uint64          `json:"version"`                    // версия сущности
}

// SubmitMutationRequest представляет запрос на применение мутации
type SubmitMutationRequest struct {
	MutationID      string          `json:"mutation_id"`       // ключ идемпотентности
	EntityType      string          `json:"entity_type"`       // тип сущности
	EntityID        string          `json:"entity_id"`         // идентификатор сущности
	Operation       string          `json:"operation"`         // create, update или delete
	Payload         json.RawMessage `json:"payload,omitempty"` // JSON документ (пустой для delete)
	ExpectedVersion uint64          `json:"expected_version"`  // версия, поверх которой сделано изменение
}

// SubmitMutationResponse представляет результат применения мутации
type SubmitMutationResponse struct {
	UpdatedAt  time.Time `json:"updated_at"`         // время записи
	NewVersion uint64    `json:"new_version"`        // новая версия сущности
	Replayed   bool      `json:"replayed,omitempty"` // мутация уже применялась, возвращен сохраненный результат
}
