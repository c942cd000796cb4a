package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PNdlovu/writecarenotes-sub002/internal/validation"
)

// ErrInvalidMutation возвращается, если мутация не проходит валидацию.
var ErrInvalidMutation = errors.New("invalid mutation")

// Operation тип изменения сущности.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Valid reports whether op is one of the known operations.
func (op Operation) Valid() bool {
	switch op {
	case OperationCreate, OperationUpdate, OperationDelete:
		return true
	default:
		return false
	}
}

// ParseOperation converts a string into an Operation.
func ParseOperation(s string) (Operation, error) {
	op := Operation(s)
	if !op.Valid() {
		return "", fmt.Errorf("unknown operation %q", s)
	}
	return op, nil
}

// MutationStatus статус мутации в локальной очереди.
type MutationStatus string

const (
	StatusPending    MutationStatus = "pending"
	StatusInFlight   MutationStatus = "in_flight"
	StatusSynced     MutationStatus = "synced"
	StatusConflicted MutationStatus = "conflicted"
	StatusFailed     MutationStatus = "failed"
)

// IsTerminal reports whether the status ends the mutation's lifecycle.
// Synced and failed records no longer count toward the single-live-record-per-entity rule.
func (s MutationStatus) IsTerminal() bool {
	return s == StatusSynced || s == StatusFailed
}

// MutationRecord представляет локальное изменение сущности, ожидающее синхронизации.
// На одну пару (EntityType, EntityID) существует не более одной нетерминальной записи.
type MutationRecord struct {
	CreatedAt     time.Time        `json:"created_at"`               // CreatedAt время постановки в очередь (часы устройства)
	LastAttemptAt time.Time        `json:"last_attempt_at,omitzero"` // LastAttemptAt время последней попытки отправки
	NextAttemptAt time.Time        `json:"next_attempt_at,omitzero"` // NextAttemptAt раньше этого времени запись не отправляется (backoff)
	BaseUpdatedAt time.Time        `json:"base_updated_at,omitzero"` // BaseUpdatedAt updatedAt версии, на которой основано изменение
	Outcome       *ConflictOutcome `json:"outcome,omitempty"`        // Outcome результат разрешения конфликта (для conflicted)
	ID            string           `json:"id"`                       // ID идентификатор мутации (UUIDv7), он же ключ идемпотентности
	EntityType    string           `json:"entity_type"`              // EntityType тип сущности ("task", "resident", "handover", ...)
	EntityID      string           `json:"entity_id"`                // EntityID идентификатор сущности
	Operation     Operation        `json:"operation"`                // Operation create/update/delete
	Status        MutationStatus   `json:"status"`                   // Status текущий статус записи
	LastError     string           `json:"last_error,omitempty"`     // LastError причина последней неудачи
	Payload       []byte           `json:"payload"`                  // Payload непрозрачное тело изменения
	BaseVersion   uint64           `json:"base_version"`             // BaseVersion версия сервера, на которой основано изменение
	Revision      uint64           `json:"revision"`                 // Revision растет при каждом слиянии локальных правок
	Seq           uint64           `json:"seq"`                      // Seq порядковый номер в хранилище для FIFO
	Attempts      int              `json:"attempts"`                 // Attempts количество неудачных попыток
}

// EntityKey возвращает ключ сущности.
func (m *MutationRecord) EntityKey() EntityKey {
	return EntityKey{Type: m.EntityType, ID: m.EntityID}
}

// IdempotencyKey возвращает ключ, с которым мутация отправляется на сервер.
// Ключ стабилен между повторами одной ревизии и меняется после слияния
// новой локальной правки, иначе сервер принял бы ее за повтор.
func (m *MutationRecord) IdempotencyKey() string {
	if m.Revision == 0 {
		return m.ID
	}
	return fmt.Sprintf("%s.%d", m.ID, m.Revision)
}

// IssuedKey reports whether key was sent by this record, in its current or an
// earlier revision.
func (m *MutationRecord) IssuedKey(key string) bool {
	if key == m.ID {
		return true
	}
	rest, ok := strings.CutPrefix(key, m.ID+".")
	if !ok {
		return false
	}
	rev, err := strconv.ParseUint(rest, 10, 64)
	return err == nil && rev <= m.Revision
}

// IsLive reports whether the record still occupies its entity's queue slot.
func (m *MutationRecord) IsLive() bool {
	return !m.Status.IsTerminal()
}

// Clone создает глубокую копию записи
func (m *MutationRecord) Clone() *MutationRecord {
	if m == nil {
		return nil
	}

	clone := *m
	clone.Payload = cloneBytes(m.Payload)
	if m.Outcome != nil {
		clone.Outcome = m.Outcome.Clone()
	}

	return &clone
}

// Validate checks that the record carries everything a queue entry needs.
func (m *MutationRecord) Validate() error {
	if err := validation.ValidateIdentifier("entity type", m.EntityType); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMutation, err)
	}
	if err := validation.ValidateIdentifier("entity id", m.EntityID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMutation, err)
	}
	if !m.Operation.Valid() {
		return fmt.Errorf("%w: unknown operation %q", ErrInvalidMutation, m.Operation)
	}
	if m.Operation != OperationDelete && len(m.Payload) == 0 {
		return fmt.Errorf("%w: payload is required for %s", ErrInvalidMutation, m.Operation)
	}
	return nil
}

// EntityKey идентифицирует сущность в рамках тенанта.
type EntityKey struct {
	Type string
	ID   string
}

// String implements fmt.Stringer.
func (k EntityKey) String() string {
	return k.Type + "/" + k.ID
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
