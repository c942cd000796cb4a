package resolver

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/PNdlovu/writecarenotes-sub002/internal/models"
)

// ErrNotMergeable возвращается, если payload нельзя слить по полям.
var ErrNotMergeable = errors.New("payload is not mergeable")

// PreserveLocalFields returns a MergeFunc that takes the remote document and
// overlays the named top-level fields from the local payload.
// Fields missing from the local payload keep their remote value.
// Against a missing remote entity the local payload is used as is.
//
// Пример: PreserveLocalFields("status") сохраняет локальный статус задачи
// (COMPLETED), даже если сервер успел перевести ее в IN_PROGRESS.
func PreserveLocalFields(fields ...string) MergeFunc {
	keep := append([]string(nil), fields...)

	return func(local *models.MutationRecord, remote *models.EntitySnapshot) ([]byte, error) {
		if local.Operation == models.OperationDelete {
			return nil, fmt.Errorf("%w: delete has no fields", ErrNotMergeable)
		}

		localDoc := map[string]json.RawMessage{}
		if err := json.Unmarshal(local.Payload, &localDoc); err != nil {
			return nil, fmt.Errorf("%w: local payload: %v", ErrNotMergeable, err)
		}

		if remote == nil {
			out := make([]byte, len(local.Payload))
			copy(out, local.Payload)
			return out, nil
		}

		remoteDoc := map[string]json.RawMessage{}
		if err := json.Unmarshal(remote.Payload, &remoteDoc); err != nil {
			return nil, fmt.Errorf("%w: remote payload: %v", ErrNotMergeable, err)
		}

		for _, field := range keep {
			if v, ok := localDoc[field]; ok {
				remoteDoc[field] = v
			}
		}

		merged, err := json.Marshal(remoteDoc)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal merged payload: %w", err)
		}

		return merged, nil
	}
}
