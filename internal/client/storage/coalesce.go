package storage

import (
	"time"

	"github.com/PNdlovu/writecarenotes-sub002/internal/models"
)

// Coalesce folds a new local edit into the live record for the same entity.
// The returned record keeps the existing id, queue position and base version.
// drop is true when the edits cancel out (a create that never left the device
// followed by a delete) and the record must be removed.
func Coalesce(existing, incoming *models.MutationRecord) (merged *models.MutationRecord, drop bool) {
	merged = existing.Clone()

	switch {
	case existing.Operation == models.OperationCreate && incoming.Operation == models.OperationDelete:
		// Создание еще не уходило на сервер - удалять нечего.
		// Attempts не подходит: его сбрасывает каждая правка, а ответ на отправку мог потеряться
		if existing.Status == models.StatusPending && existing.BaseVersion == 0 && existing.LastAttemptAt.IsZero() {
			return nil, true
		}
		merged.Operation = models.OperationDelete
	case existing.Operation == models.OperationCreate:
		merged.Operation = models.OperationCreate
	case incoming.Operation == models.OperationCreate:
		// delete+create и update+create - сущность уже известна серверу
		merged.Operation = models.OperationUpdate
	default:
		merged.Operation = incoming.Operation
	}

	merged.Payload = nil
	if len(incoming.Payload) > 0 {
		merged.Payload = append([]byte(nil), incoming.Payload...)
	}
	if merged.Operation == models.OperationDelete {
		merged.Payload = nil
	}

	merged.Attempts = 0
	merged.LastError = ""
	merged.Outcome = nil
	merged.Revision = existing.Revision + 1

	// in_flight запись принадлежит активному циклу, расхождение ревизий обработает Mark*
	if existing.Status != models.StatusInFlight {
		merged.Status = models.StatusPending
		merged.NextAttemptAt = time.Time{}
	}

	return merged, false
}

// Rebase returns a record whose earlier revision was just applied by the
// server to pending on top of the resulting version. newBaseVersion is 0 when
// the applied change deleted the entity.
func Rebase(m *models.MutationRecord, newBaseVersion uint64) {
	m.Status = models.StatusPending
	m.BaseVersion = newBaseVersion
	m.BaseUpdatedAt = time.Time{}
	m.NextAttemptAt = time.Time{}

	switch {
	case newBaseVersion == 0 && m.Operation == models.OperationUpdate:
		m.Operation = models.OperationCreate
	case newBaseVersion > 0 && m.Operation == models.OperationCreate:
		m.Operation = models.OperationUpdate
	}
}
