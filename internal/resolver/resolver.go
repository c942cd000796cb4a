// Package resolver decides what happens to a local mutation once the current
// remote state of its entity is known.
package resolver

import (
	"fmt"
	"time"

	"github.com/PNdlovu/writecarenotes-sub002/internal/models"
	"github.com/PNdlovu/writecarenotes-sub002/internal/version"
)

// Action что делать с мутацией после разрешения.
type Action int

const (
	// ActionApply отправить Payload на сервер с ожидаемой версией BaseVersion.
	ActionApply Action = iota
	// ActionDiscard не отправлять ничего, локальный кэш заменить удаленной копией.
	ActionDiscard
	// ActionManual ничего не применять, мутация ждет решения человека.
	ActionManual
)

// String implements fmt.Stringer.
func (a Action) String() string {
	switch a {
	case ActionApply:
		return "apply"
	case ActionDiscard:
		return "discard"
	case ActionManual:
		return "manual"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Resolution результат разрешения.
// Всегда содержит выбранный payload и отброшенную альтернативу.
type Resolution struct {
	Remote        *models.EntitySnapshot // текущая удаленная копия (nil - не существует)
	Tag           models.ResolutionTag
	Operation     models.Operation // операция для отправки (может отличаться от локальной)
	Reason        string
	Payload       []byte // выбранный payload
	Discarded     []byte // отброшенная альтернатива
	LocalPayload  []byte
	RemotePayload []byte
	BaseVersion   uint64 // ожидаемая версия сервера при отправке
	Action        Action
}

// Outcome converts the resolution into its persisted form.
func (r Resolution) Outcome(local *models.MutationRecord, resolvedAt time.Time) *models.ConflictOutcome {
	outcome := &models.ConflictOutcome{
		ResolvedAt:       resolvedAt,
		MutationID:       local.ID,
		EntityType:       local.EntityType,
		EntityID:         local.EntityID,
		Resolution:       r.Tag,
		Reason:           r.Reason,
		LocalPayload:     r.LocalPayload,
		RemotePayload:    r.RemotePayload,
		AppliedPayload:   r.Payload,
		DiscardedPayload: r.Discarded,
		BaseVersion:      local.BaseVersion,
	}
	if r.Remote != nil {
		outcome.RemoteVersion = r.Remote.Version
	}
	if r.Action != ActionApply {
		outcome.AppliedPayload = nil
	}

	return outcome.Clone()
}

// Resolver сравнивает локальную мутацию с удаленной копией.
// Не имеет состояния кроме компаратора и безопасен для конкурентного использования.
type Resolver struct {
	comparator version.Comparator
}

// New creates a resolver.
func New(comparator version.Comparator) *Resolver {
	return &Resolver{comparator: comparator}
}

// Resolve maps (local, remote, policy) to a Resolution.
// remote == nil means the entity does not exist on the server (version 0).
func (r *Resolver) Resolve(local *models.MutationRecord, remote *models.EntitySnapshot, policy Policy) Resolution {
	res := Resolution{
		Remote:       remote,
		LocalPayload: local.Payload,
		Operation:    local.Operation,
		BaseVersion:  local.BaseVersion,
	}
	if remote != nil {
		res.RemotePayload = remote.Payload
	}

	// Удалять нечего: сущности на сервере уже нет
	if remote == nil && local.Operation == models.OperationDelete {
		res.Action = ActionDiscard
		res.Tag = models.ResolutionAlreadyApplied
		res.Reason = "entity already absent on server"
		res.BaseVersion = 0
		return res
	}

	// Текущая версия сервера записана этой же ревизией: ответ на отправку был потерян
	if remote != nil && remote.LastMutationID != "" && remote.LastMutationID == local.IdempotencyKey() {
		res.Action = ActionDiscard
		res.Tag = models.ResolutionAlreadyApplied
		res.Payload = res.RemotePayload
		res.BaseVersion = remote.Version
		res.Reason = "mutation already applied on server"
		return res
	}

	// Сервер хранит результат более ранней ревизии этой же записи:
	// новая правка идет поверх него, чужого изменения здесь нет
	if remote != nil && local.IssuedKey(remote.LastMutationID) {
		res.Action = ActionApply
		res.Tag = models.ResolutionNoConflict
		res.Payload = local.Payload
		res.BaseVersion = remote.Version
		if res.Operation == models.OperationCreate {
			res.Operation = models.OperationUpdate
		}
		res.Reason = "earlier revision already applied on server"
		return res
	}

	if !r.conflicts(local, remote) {
		res.Action = ActionApply
		res.Tag = models.ResolutionNoConflict
		res.Payload = local.Payload
		// update сущности, которой никогда не было на сервере, создает ее
		if remote == nil && local.Operation == models.OperationUpdate {
			res.Operation = models.OperationCreate
		}
		return res
	}

	switch policy.Kind {
	case KindRemoteWins:
		return r.remoteWins(res, models.ResolutionRemoteWon, "remote version is newer")
	case KindLocalWins:
		res.Action = ActionApply
		res.Tag = models.ResolutionLocalWon
		res.Payload = local.Payload
		res.Discarded = res.RemotePayload
		res.Reason = "local change replayed on top of remote version"
		r.rebase(&res, local, remote)
		return res
	case KindFieldMerge:
		if policy.Merge == nil {
			return r.remoteWins(res, models.ResolutionMergeFailed, "no merge function configured")
		}
		merged, err := policy.Merge(local, remote)
		if err != nil {
			return r.remoteWins(res, models.ResolutionMergeFailed, fmt.Sprintf("merge failed: %v", err))
		}
		res.Action = ActionApply
		res.Tag = models.ResolutionMerged
		res.Payload = merged
		res.Discarded = res.RemotePayload
		res.Reason = "local and remote payloads merged"
		r.rebase(&res, local, remote)
		return res
	case KindManual:
		res.Action = ActionManual
		res.Tag = models.ResolutionManual
		res.Reason = "manual merge required"
		return res
	default:
		res.Action = ActionManual
		res.Tag = models.ResolutionManual
		res.Reason = fmt.Sprintf("unsupported policy %s", policy)
		return res
	}
}

// conflicts reports whether the remote entity moved past the local base.
func (r *Resolver) conflicts(local *models.MutationRecord, remote *models.EntitySnapshot) bool {
	var remoteVersion uint64
	if remote != nil {
		remoteVersion = remote.Version
	}
	if remoteVersion != local.BaseVersion {
		return true
	}
	if remote == nil || local.BaseUpdatedAt.IsZero() || remote.UpdatedAt.IsZero() {
		return false
	}

	base := version.Stamp{Version: local.BaseVersion, UpdatedAt: local.BaseUpdatedAt}
	return r.comparator.Compare(base, remote.Stamp()) == version.Concurrent
}

func (r *Resolver) remoteWins(res Resolution, tag models.ResolutionTag, reason string) Resolution {
	res.Action = ActionDiscard
	res.Tag = tag
	res.Payload = res.RemotePayload
	res.Discarded = res.LocalPayload
	res.Reason = reason
	if res.Remote != nil {
		res.BaseVersion = res.Remote.Version
	}
	return res
}

// rebase переносит применяемое изменение на текущую версию сервера.
func (r *Resolver) rebase(res *Resolution, local *models.MutationRecord, remote *models.EntitySnapshot) {
	if remote == nil {
		// Сущность удалена на сервере - создаем заново
		res.Operation = models.OperationCreate
		res.BaseVersion = 0
		return
	}

	res.BaseVersion = remote.Version
	if local.Operation == models.OperationCreate {
		res.Operation = models.OperationUpdate
	}
}
