package resolver

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PNdlovu/writecarenotes-sub002/internal/models"
	"github.com/PNdlovu/writecarenotes-sub002/internal/version"
)

func newTestResolver() *Resolver {
	return New(version.NewComparator(0))
}

func taskUpdate(base uint64, payload string) *models.MutationRecord {
	return &models.MutationRecord{
		ID:          "m-1",
		EntityType:  "task",
		EntityID:    "T1",
		Operation:   models.OperationUpdate,
		Payload:     []byte(payload),
		BaseVersion: base,
		Status:      models.StatusInFlight,
	}
}

func taskSnapshot(v uint64, payload string) *models.EntitySnapshot {
	return &models.EntitySnapshot{
		EntityType: "task",
		EntityID:   "T1",
		Version:    v,
		Payload:    []byte(payload),
	}
}

func TestResolve_NoConflict(t *testing.T) {
	r := newTestResolver()

	// Организация: локальная база 2 совпадает с сервером 2
	local := taskUpdate(2, `{"name":"Sunrise Care"}`)
	remote := taskSnapshot(2, `{"name":"Sunrise"}`)

	for _, policy := range []Policy{RemoteWins(), LocalWins(), Manual()} {
		t.Run(policy.String(), func(t *testing.T) {
			res := r.Resolve(local, remote, policy)

			assert.Equal(t, ActionApply, res.Action)
			assert.Equal(t, models.ResolutionNoConflict, res.Tag)
			assert.Equal(t, local.Payload, res.Payload)
			assert.Equal(t, uint64(2), res.BaseVersion)
			assert.Equal(t, models.OperationUpdate, res.Operation)
		})
	}
}

func TestResolve_LocalWinsReplaysOnRemoteVersion(t *testing.T) {
	r := newTestResolver()

	local := taskUpdate(3, `{"status":"COMPLETED"}`)
	remote := taskSnapshot(4, `{"status":"IN_PROGRESS"}`)

	res := r.Resolve(local, remote, LocalWins())

	assert.Equal(t, ActionApply, res.Action)
	assert.Equal(t, models.ResolutionLocalWon, res.Tag)
	assert.JSONEq(t, `{"status":"COMPLETED"}`, string(res.Payload))
	assert.JSONEq(t, `{"status":"IN_PROGRESS"}`, string(res.Discarded))
	assert.Equal(t, uint64(4), res.BaseVersion)
	assert.Equal(t, models.OperationUpdate, res.Operation)
}

func TestResolve_RemoteWinsKeepsDiscardedLocalPayload(t *testing.T) {
	r := newTestResolver()

	local := taskUpdate(3, `{"status":"COMPLETED"}`)
	remote := taskSnapshot(4, `{"status":"IN_PROGRESS"}`)

	res := r.Resolve(local, remote, RemoteWins())

	assert.Equal(t, ActionDiscard, res.Action)
	assert.Equal(t, models.ResolutionRemoteWon, res.Tag)
	assert.Equal(t, remote.Payload, res.Payload)
	assert.Equal(t, local.Payload, res.Discarded)

	outcome := res.Outcome(local, time.Now())
	assert.Equal(t, local.Payload, outcome.DiscardedPayload)
	assert.Equal(t, local.Payload, outcome.LocalPayload)
	assert.Nil(t, outcome.AppliedPayload)
	assert.Equal(t, uint64(3), outcome.BaseVersion)
	assert.Equal(t, uint64(4), outcome.RemoteVersion)
	assert.Equal(t, "m-1", outcome.MutationID)
}

func TestResolve_Manual(t *testing.T) {
	r := newTestResolver()

	local := taskUpdate(1, `{"note":"a"}`)
	remote := taskSnapshot(2, `{"note":"b"}`)

	res := r.Resolve(local, remote, Manual())

	assert.Equal(t, ActionManual, res.Action)
	assert.Equal(t, models.ResolutionManual, res.Tag)
	assert.Nil(t, res.Payload)
	assert.Equal(t, local.Payload, res.LocalPayload)
	assert.Equal(t, remote.Payload, res.RemotePayload)
}

func TestResolve_FieldMerge(t *testing.T) {
	r := newTestResolver()

	local := taskUpdate(3, `{"status":"COMPLETED","title":"old title"}`)
	remote := taskSnapshot(5, `{"status":"IN_PROGRESS","title":"new title","assignee":"n-7"}`)

	res := r.Resolve(local, remote, FieldMerge(PreserveLocalFields("status")))

	assert.Equal(t, ActionApply, res.Action)
	assert.Equal(t, models.ResolutionMerged, res.Tag)
	assert.JSONEq(t, `{"status":"COMPLETED","title":"new title","assignee":"n-7"}`, string(res.Payload))
	assert.Equal(t, uint64(5), res.BaseVersion)
}

func TestResolve_FieldMergeFailureFallsBackToRemote(t *testing.T) {
	r := newTestResolver()

	local := taskUpdate(3, `{"status":"COMPLETED"}`)
	remote := taskSnapshot(4, `{"status":"IN_PROGRESS"}`)

	failing := FieldMerge(func(*models.MutationRecord, *models.EntitySnapshot) ([]byte, error) {
		return nil, errors.New("boom")
	})

	tests := []struct {
		name   string
		policy Policy
	}{
		{name: "merge function error", policy: failing},
		{name: "missing merge function", policy: Policy{Kind: KindFieldMerge}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(local, remote, tt.policy)

			assert.Equal(t, ActionDiscard, res.Action)
			assert.Equal(t, models.ResolutionMergeFailed, res.Tag)
			assert.Equal(t, remote.Payload, res.Payload)
			assert.Equal(t, local.Payload, res.Discarded)
			assert.True(t, res.Tag.NeedsAttention())
		})
	}
}

func TestResolve_AbsentRemote(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		local     *models.MutationRecord
		policy    Policy
		name      string
		action    Action
		tag       models.ResolutionTag
		operation models.Operation
		base      uint64
	}{
		{
			name:      "create of new entity",
			local:     &models.MutationRecord{ID: "m", EntityType: "task", EntityID: "T9", Operation: models.OperationCreate, Payload: []byte(`{}`)},
			policy:    RemoteWins(),
			action:    ActionApply,
			tag:       models.ResolutionNoConflict,
			operation: models.OperationCreate,
		},
		{
			name:      "update never synced becomes create",
			local:     &models.MutationRecord{ID: "m", EntityType: "task", EntityID: "T9", Operation: models.OperationUpdate, Payload: []byte(`{}`)},
			policy:    RemoteWins(),
			action:    ActionApply,
			tag:       models.ResolutionNoConflict,
			operation: models.OperationCreate,
		},
		{
			name:      "delete of missing entity is already applied",
			local:     &models.MutationRecord{ID: "m", EntityType: "task", EntityID: "T9", Operation: models.OperationDelete, BaseVersion: 4},
			policy:    LocalWins(),
			action:    ActionDiscard,
			tag:       models.ResolutionAlreadyApplied,
			operation: models.OperationDelete,
			base:      0,
		},
		{
			name:      "update of remotely deleted entity under remote wins",
			local:     &models.MutationRecord{ID: "m", EntityType: "task", EntityID: "T9", Operation: models.OperationUpdate, Payload: []byte(`{}`), BaseVersion: 4},
			policy:    RemoteWins(),
			action:    ActionDiscard,
			tag:       models.ResolutionRemoteWon,
			operation: models.OperationUpdate,
			base:      4,
		},
		{
			name:      "update of remotely deleted entity under local wins re-creates",
			local:     &models.MutationRecord{ID: "m", EntityType: "task", EntityID: "T9", Operation: models.OperationUpdate, Payload: []byte(`{}`), BaseVersion: 4},
			policy:    LocalWins(),
			action:    ActionApply,
			tag:       models.ResolutionLocalWon,
			operation: models.OperationCreate,
			base:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(tt.local, nil, tt.policy)

			assert.Equal(t, tt.action, res.Action)
			assert.Equal(t, tt.tag, res.Tag)
			assert.Equal(t, tt.operation, res.Operation)
			assert.Equal(t, tt.base, res.BaseVersion)
		})
	}
}

func TestResolve_LocalWinsCreateOverExistingBecomesUpdate(t *testing.T) {
	r := newTestResolver()

	local := &models.MutationRecord{ID: "m", EntityType: "task", EntityID: "T1", Operation: models.OperationCreate, Payload: []byte(`{"a":1}`)}
	remote := taskSnapshot(2, `{"a":0}`)

	res := r.Resolve(local, remote, LocalWins())

	assert.Equal(t, ActionApply, res.Action)
	assert.Equal(t, models.OperationUpdate, res.Operation)
	assert.Equal(t, uint64(2), res.BaseVersion)
}

func TestResolve_OwnWriteIsAlreadyApplied(t *testing.T) {
	r := newTestResolver()

	// Ответ на отправку потерян, сервер уже содержит эту ревизию
	local := taskUpdate(3, `{"status":"COMPLETED"}`)
	local.Revision = 2
	remote := taskSnapshot(4, `{"status":"COMPLETED"}`)
	remote.LastMutationID = "m-1.2"

	res := r.Resolve(local, remote, Manual())

	assert.Equal(t, ActionDiscard, res.Action)
	assert.Equal(t, models.ResolutionAlreadyApplied, res.Tag)
	assert.Equal(t, uint64(4), res.BaseVersion)

	// Ревизия, которую эта запись еще не выпускала, - обычный конфликт
	remote.LastMutationID = "m-1.3"
	res = r.Resolve(local, remote, Manual())
	assert.Equal(t, ActionManual, res.Action)
}

func TestResolve_EarlierRevisionOnServer(t *testing.T) {
	tests := []struct {
		name      string
		operation models.Operation
		lastKey   string
		action    Action
		expected  models.Operation
	}{
		{name: "delete after lost create", operation: models.OperationDelete, lastKey: "m-1", action: ActionApply, expected: models.OperationDelete},
		{name: "create replayed as update", operation: models.OperationCreate, lastKey: "m-1.1", action: ActionApply, expected: models.OperationUpdate},
		{name: "update on top of own revision", operation: models.OperationUpdate, lastKey: "m-1.1", action: ActionApply, expected: models.OperationUpdate},
		{name: "foreign write stays a conflict", operation: models.OperationUpdate, lastKey: "m-2", action: ActionManual, expected: models.OperationUpdate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver()

			local := taskUpdate(0, `{"status":"DONE"}`)
			local.Operation = tt.operation
			local.Revision = 2
			remote := taskSnapshot(1, `{"status":"OPEN"}`)
			remote.LastMutationID = tt.lastKey

			res := r.Resolve(local, remote, Manual())

			assert.Equal(t, tt.action, res.Action)
			assert.Equal(t, tt.expected, res.Operation)
			if tt.action == ActionApply {
				assert.Equal(t, models.ResolutionNoConflict, res.Tag)
				assert.Equal(t, uint64(1), res.BaseVersion)
			}
		})
	}
}

func TestResolve_ConcurrentTimestampsAreConflict(t *testing.T) {
	r := newTestResolver()
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	local := taskUpdate(2, `{"a":1}`)
	local.BaseUpdatedAt = ts

	remote := taskSnapshot(2, `{"a":2}`)
	remote.UpdatedAt = ts.Add(time.Second)

	res := r.Resolve(local, remote, RemoteWins())
	assert.Equal(t, models.ResolutionRemoteWon, res.Tag)

	// С допуском в минуту те же штампы не конфликтуют
	tolerant := New(version.NewComparator(time.Minute))
	res = tolerant.Resolve(local, remote, RemoteWins())
	assert.Equal(t, models.ResolutionNoConflict, res.Tag)
}

func TestResolve_Deterministic(t *testing.T) {
	r := newTestResolver()

	local := taskUpdate(3, `{"status":"COMPLETED"}`)
	remote := taskSnapshot(4, `{"status":"IN_PROGRESS"}`)

	first := r.Resolve(local, remote, LocalWins())
	for i := 0; i < 10; i++ {
		require.Equal(t, first, r.Resolve(local, remote, LocalWins()))
	}
}
