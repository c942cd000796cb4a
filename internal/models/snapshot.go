package models

import (
	"time"

	"github.com/PNdlovu/writecarenotes-sub002/internal/version"
)

// EntitySnapshot представляет последнюю известную копию сущности.
// На сервере это текущее состояние записи, на устройстве - кэш,
// который может отражать еще не синхронизированные локальные изменения.
type EntitySnapshot struct {
	UpdatedAt      time.Time `json:"updated_at"`                 // UpdatedAt время последнего изменения на сервере
	FetchedAt      time.Time `json:"fetched_at,omitzero"`        // FetchedAt когда копия получена или изменена локально
	EntityType     string    `json:"entity_type"`                // EntityType тип сущности
	EntityID       string    `json:"entity_id"`                  // EntityID идентификатор сущности
	LastMutationID string    `json:"last_mutation_id,omitempty"` // LastMutationID ключ мутации, записавшей текущую версию
	Payload        []byte    `json:"payload"`                    // Payload тело сущности
	Version        uint64    `json:"version"`                    // Version версия сервера
	Optimistic     bool      `json:"optimistic,omitempty"`       // Optimistic копия содержит неотправленные изменения
}

// Stamp returns the snapshot's version stamp.
func (s *EntitySnapshot) Stamp() version.Stamp {
	return version.Stamp{Version: s.Version, UpdatedAt: s.UpdatedAt}
}

// EntityKey возвращает ключ сущности.
func (s *EntitySnapshot) EntityKey() EntityKey {
	return EntityKey{Type: s.EntityType, ID: s.EntityID}
}

// Clone создает глубокую копию снимка
func (s *EntitySnapshot) Clone() *EntitySnapshot {
	if s == nil {
		return nil
	}

	clone := *s
	clone.Payload = cloneBytes(s.Payload)

	return &clone
}
