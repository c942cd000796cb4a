package sync

import (
	"time"

	"github.com/PNdlovu/writecarenotes-sub002/internal/models"
)

// SkipReason объясняет, почему цикл не выполнялся.
type SkipReason string

const (
	SkipNone      SkipReason = ""
	SkipOffline   SkipReason = "offline"
	SkipCoalesced SkipReason = "coalesced" // цикл уже идет, будет перезапущен после него
)

// FailedMutation описывает мутацию, ставшую failed в этом цикле.
type FailedMutation struct {
	MutationID string
	EntityType string
	EntityID   string
	Reason     string
}

// SyncCycleResult contains sync cycle results
type SyncCycleResult struct {
	StartedAt       time.Time
	FinishedAt      time.Time
	Skipped         SkipReason
	Conflicts       []models.ConflictOutcome // все конфликты цикла, в том числе разрешенные автоматически
	Failures        []FailedMutation         // терминальные ошибки цикла
	Synced          int                      // количество мутаций, дошедших до сервера или закрытых без отправки
	Conflicted      int                      // количество мутаций, ожидающих ручного решения
	Failed          int                      // количество мутаций в терминальном состоянии failed
	Retrying        int                      // количество мутаций, отложенных до следующей попытки
	StorageDegraded bool                     // локальное хранилище было недоступно
	Unauthorized    bool                     // сервер отклонил токен устройства, очередь сохранена
}

// Processed returns how many drained mutations the cycle handled.
func (r SyncCycleResult) Processed() int {
	return r.Synced + r.Conflicted + r.Failed + r.Retrying
}
