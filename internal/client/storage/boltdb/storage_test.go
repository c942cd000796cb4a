package boltdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/PNdlovu/writecarenotes-sub002/internal/client/storage"
	"github.com/PNdlovu/writecarenotes-sub002/internal/models"
	"github.com/PNdlovu/writecarenotes-sub002/internal/version"
)

// createTestStorage создает временное хранилище для тестов
func createTestStorage(t *testing.T, opts ...Option) (*Storage, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := New(context.Background(), dbPath, opts...)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		require.NoError(t, store.Close())
	}

	return store, cleanup
}

// testClock часы с фиксированным стартом
func testClock() *version.Clock {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return version.NewClockWithSource(func() time.Time { return start })
}

func newMutation(entityID string, op models.Operation, payload string, base uint64) *models.MutationRecord {
	m := &models.MutationRecord{
		EntityType:  "task",
		EntityID:    entityID,
		Operation:   op,
		BaseVersion: base,
	}
	if payload != "" {
		m.Payload = []byte(payload)
	}
	return m
}

func TestNew_Success(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "testdb.db")

	store, err := New(context.Background(), dbPath)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, store.Close())
	}()

	// Проверяем что файл БД действительно создан
	info, err := os.Stat(dbPath)
	require.NoError(t, err)
	assert.False(t, info.IsDir())

	// Проверяем, что бакеты существуют
	err = store.db.View(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketMutations, bucketEntityIndex, bucketSnapshots, bucketConflicts, bucketMetadata} {
			if tx.Bucket(b) == nil {
				return os.ErrNotExist
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, storage.DefaultMaxAttempts, store.maxAttempts)
}

func TestNew_InvalidPath(t *testing.T) {
	store, err := New(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	assert.ErrorIs(t, err, storage.ErrStorageUnavailable)
	assert.Nil(t, store)
}

func TestNew_LockedByAnotherHandle(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "locked.db")

	first, err := New(context.Background(), dbPath)
	require.NoError(t, err)
	defer first.Close()

	second, err := New(context.Background(), dbPath, WithOpenTimeout(50*time.Millisecond))
	assert.ErrorIs(t, err, storage.ErrStorageUnavailable)
	assert.Nil(t, second)
}

func TestClose_OperationsReportUnavailable(t *testing.T) {
	store, _ := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.Close())
	// Повторное закрытие безопасно
	require.NoError(t, store.Close())

	_, err := store.Enqueue(ctx, newMutation("T1", models.OperationCreate, `{}`, 0))
	assert.ErrorIs(t, err, storage.ErrStorageUnavailable)

	_, err = store.GetSnapshot(ctx, "task", "T1")
	assert.ErrorIs(t, err, storage.ErrStorageUnavailable)

	_, err = store.DrainPending(ctx, time.Now())
	assert.ErrorIs(t, err, storage.ErrStorageUnavailable)
}

func TestStorage_Encrypted(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sealed.db")
	ctx := context.Background()

	store, err := New(ctx, dbPath, WithPassphrase("correct horse"))
	require.NoError(t, err)

	id, err := store.Enqueue(ctx, newMutation("T1", models.OperationCreate, `{"status":"OPEN"}`, 0))
	require.NoError(t, err)
	require.NoError(t, store.PutSnapshot(ctx, &models.EntitySnapshot{EntityType: "task", EntityID: "T1", Payload: []byte(`{"status":"OPEN"}`)}))

	// Значения на диске не содержат открытого текста
	err = store.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketMutations).Get([]byte(id))
		require.NotNil(t, raw)
		assert.NotContains(t, string(raw), "OPEN")
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	t.Run("reopen with same passphrase", func(t *testing.T) {
		reopened, err := New(ctx, dbPath, WithPassphrase("correct horse"))
		require.NoError(t, err)
		defer reopened.Close()

		rec, err := reopened.GetMutation(ctx, id)
		require.NoError(t, err)
		assert.JSONEq(t, `{"status":"OPEN"}`, string(rec.Payload))
	})

	t.Run("wrong passphrase", func(t *testing.T) {
		_, err := New(ctx, dbPath, WithPassphrase("wrong"))
		assert.ErrorIs(t, err, storage.ErrInvalidPassphrase)
	})

	t.Run("missing passphrase", func(t *testing.T) {
		_, err := New(ctx, dbPath)
		assert.ErrorIs(t, err, storage.ErrInvalidPassphrase)
	})
}

func TestStorage_EncryptExistingPlainStoreRefused(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "plain.db")
	ctx := context.Background()

	store, err := New(ctx, dbPath)
	require.NoError(t, err)
	_, err = store.Enqueue(ctx, newMutation("T1", models.OperationCreate, `{}`, 0))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = New(ctx, dbPath, WithPassphrase("late"))
	assert.ErrorIs(t, err, storage.ErrInvalidPassphrase)
}
