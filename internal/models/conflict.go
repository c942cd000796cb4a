package models

import "time"

// ResolutionTag описывает, чем закончилось сравнение локальной мутации с удаленной версией.
type ResolutionTag string

const (
	ResolutionNoConflict     ResolutionTag = "no_conflict"
	ResolutionLocalWon       ResolutionTag = "local_won"
	ResolutionRemoteWon      ResolutionTag = "remote_won"
	ResolutionMerged         ResolutionTag = "merged"
	ResolutionMergeFailed    ResolutionTag = "merge_failed"
	ResolutionManual         ResolutionTag = "needs_manual_merge"
	ResolutionAlreadyApplied ResolutionTag = "already_applied"
)

// IsConflict reports whether the tag records a divergence between local and remote state.
func (t ResolutionTag) IsConflict() bool {
	switch t {
	case ResolutionLocalWon, ResolutionRemoteWon, ResolutionMerged, ResolutionMergeFailed, ResolutionManual:
		return true
	default:
		return false
	}
}

// NeedsAttention reports whether a human has to act before the mutation can progress.
func (t ResolutionTag) NeedsAttention() bool {
	return t == ResolutionManual || t == ResolutionMergeFailed
}

// ConflictOutcome сохраненный результат разрешения конфликта.
// Хранит обе стороны конфликта, поэтому отброшенные данные не теряются.
type ConflictOutcome struct {
	ResolvedAt       time.Time     `json:"resolved_at"`
	MutationID       string        `json:"mutation_id"`
	EntityType       string        `json:"entity_type"`
	EntityID         string        `json:"entity_id"`
	Resolution       ResolutionTag `json:"resolution"`
	Reason           string        `json:"reason,omitempty"`
	LocalPayload     []byte        `json:"local_payload,omitempty"`
	RemotePayload    []byte        `json:"remote_payload,omitempty"`
	AppliedPayload   []byte        `json:"applied_payload,omitempty"`
	DiscardedPayload []byte        `json:"discarded_payload,omitempty"`
	BaseVersion      uint64        `json:"base_version"`
	RemoteVersion    uint64        `json:"remote_version"`
	NewVersion       uint64        `json:"new_version,omitempty"`
}

// EntityKey возвращает ключ сущности.
func (c *ConflictOutcome) EntityKey() EntityKey {
	return EntityKey{Type: c.EntityType, ID: c.EntityID}
}

// Clone создает глубокую копию результата
func (c *ConflictOutcome) Clone() *ConflictOutcome {
	if c == nil {
		return nil
	}

	clone := *c
	clone.LocalPayload = cloneBytes(c.LocalPayload)
	clone.RemotePayload = cloneBytes(c.RemotePayload)
	clone.AppliedPayload = cloneBytes(c.AppliedPayload)
	clone.DiscardedPayload = cloneBytes(c.DiscardedPayload)

	return &clone
}
