package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PNdlovu/writecarenotes-sub002/internal/client/api"
	"github.com/PNdlovu/writecarenotes-sub002/internal/client/gateway"
	"github.com/PNdlovu/writecarenotes-sub002/internal/client/outbox"
	"github.com/PNdlovu/writecarenotes-sub002/internal/client/storage/boltdb"
	clientsync "github.com/PNdlovu/writecarenotes-sub002/internal/client/sync"
	"github.com/PNdlovu/writecarenotes-sub002/internal/config"
	"github.com/PNdlovu/writecarenotes-sub002/internal/models"
	"github.com/PNdlovu/writecarenotes-sub002/internal/resolver"
	"github.com/PNdlovu/writecarenotes-sub002/internal/server/handlers"
	"github.com/PNdlovu/writecarenotes-sub002/internal/server/storage"
	"github.com/PNdlovu/writecarenotes-sub002/internal/server/storage/sqlite"
	"github.com/PNdlovu/writecarenotes-sub002/internal/version"
)

const testSecret = "test-secret"

func testConfig() *config.ServerConfig {
	cfg := &config.ServerConfig{}
	cfg.Auth.JWTSecret = testSecret
	cfg.Auth.TokenTTL = time.Hour
	cfg.HTTP.Addr = "127.0.0.1:0"
	return cfg
}

// setupServer поднимает сервер с двумя устройствами арендатора tenant-a
func setupServer(t *testing.T) (*httptest.Server, *sqlite.Storage) {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(ctx, filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	for _, id := range []string{"tablet-1", "tablet-2"} {
		require.NoError(t, store.SaveDevice(ctx, &storage.Device{TenantID: "tenant-a", DeviceID: id}))
	}

	ts := httptest.NewServer(New(testConfig(), store, nil, "test").Handler())
	t.Cleanup(ts.Close)

	return ts, store
}

func deviceToken(t *testing.T, deviceID string) string {
	t.Helper()
	token, _, err := handlers.GenerateDeviceToken(handlers.JWTConfig{Secret: []byte(testSecret), TokenTTL: time.Hour}, "tenant-a", deviceID)
	require.NoError(t, err)
	return token
}

// device собирает клиентский стек одного устройства
type device struct {
	outbox      outbox.Service
	coordinator *clientsync.Coordinator
}

func newDevice(t *testing.T, url, deviceID string, policies *resolver.Registry) *device {
	t.Helper()
	ctx := context.Background()

	store, err := boltdb.New(ctx, filepath.Join(t.TempDir(), deviceID+".db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock := version.NewClock()
	client := api.NewClient(url, api.WithToken(deviceToken(t, deviceID)))
	ob := outbox.NewService(store, clock, nil)

	coordinator := clientsync.NewCoordinator(store, client, policies, nil,
		clientsync.WithClock(clock),
		clientsync.WithFlusher(ob),
	)
	coordinator.SetOnline(true)

	return &device{outbox: ob, coordinator: coordinator}
}

func (d *device) edit(t *testing.T, op models.Operation, payload string) {
	t.Helper()
	req := outbox.EnqueueRequest{EntityType: "task", EntityID: "T1", Operation: op}
	if payload != "" {
		req.Payload = []byte(payload)
	}
	_, err := d.outbox.Enqueue(context.Background(), req)
	require.NoError(t, err)
}

func (d *device) sync(t *testing.T) clientsync.SyncCycleResult {
	t.Helper()
	result, err := d.coordinator.RunCycle(context.Background())
	require.NoError(t, err)
	return result
}

func (d *device) read(t *testing.T) *models.EntitySnapshot {
	t.Helper()
	snapshot, err := d.outbox.Read(context.Background(), "task", "T1")
	require.NoError(t, err)
	return snapshot
}

func TestSync_TwoDevices(t *testing.T) {
	tests := []struct {
		policy         resolver.Policy
		name           string
		wantPayload    string
		wantResolution models.ResolutionTag
		wantVersion    uint64
	}{
		{
			name:           "remote wins",
			policy:         resolver.RemoteWins(),
			wantResolution: models.ResolutionRemoteWon,
			wantPayload:    `{"status":"DONE"}`,
			wantVersion:    2,
		},
		{
			name:           "local wins",
			policy:         resolver.LocalWins(),
			wantResolution: models.ResolutionLocalWon,
			wantPayload:    `{"status":"CANCELLED"}`,
			wantVersion:    3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, store := setupServer(t)
			policies := resolver.NewRegistry(tt.policy)

			carer := newDevice(t, ts.URL, "tablet-1", policies)
			nurse := newDevice(t, ts.URL, "tablet-2", policies)

			carer.edit(t, models.OperationCreate, `{"status":"OPEN"}`)
			result := carer.sync(t)
			require.Equal(t, 1, result.Synced)

			// Второе устройство видит версию 1
			seen, err := nurse.coordinator.Refresh(context.Background(), "task", "T1")
			require.NoError(t, err)
			assert.Equal(t, uint64(1), seen.Version)

			carer.edit(t, models.OperationUpdate, `{"status":"DONE"}`)
			require.Equal(t, 1, carer.sync(t).Synced)

			// Правка поверх устаревшей версии 1
			nurse.edit(t, models.OperationUpdate, `{"status":"CANCELLED"}`)
			result = nurse.sync(t)

			assert.Equal(t, 1, result.Synced)
			require.Len(t, result.Conflicts, 1)
			assert.Equal(t, tt.wantResolution, result.Conflicts[0].Resolution)
			assert.Equal(t, uint64(2), result.Conflicts[0].RemoteVersion)

			local := nurse.read(t)
			assert.JSONEq(t, tt.wantPayload, string(local.Payload))
			assert.Equal(t, tt.wantVersion, local.Version)

			entity, err := store.GetEntity(context.Background(), "tenant-a", "task", "T1")
			require.NoError(t, err)
			assert.JSONEq(t, tt.wantPayload, string(entity.Payload))
			assert.Equal(t, tt.wantVersion, entity.Version)

			pending, err := nurse.outbox.Pending(context.Background())
			require.NoError(t, err)
			assert.Empty(t, pending)
		})
	}
}

func TestSync_DeleteAndReplay(t *testing.T) {
	ts, store := setupServer(t)
	ctx := context.Background()

	carer := newDevice(t, ts.URL, "tablet-1", resolver.NewRegistry(resolver.RemoteWins()))
	carer.edit(t, models.OperationCreate, `{"status":"OPEN"}`)
	carer.sync(t)

	carer.edit(t, models.OperationDelete, "")
	require.Equal(t, 1, carer.sync(t).Synced)

	_, err := store.GetEntity(ctx, "tenant-a", "task", "T1")
	assert.ErrorIs(t, err, storage.ErrEntityNotFound)

	// Повтор отправки с тем же ключом не меняет данные
	client := api.NewClient(ts.URL, api.WithToken(deviceToken(t, "tablet-1")))
	first, err := client.Submit(ctx, gateway.SubmitRequest{
		MutationID: "replayed-1",
		EntityType: "task",
		EntityID:   "T2",
		Operation:  models.OperationCreate,
		Payload:    []byte(`{"status":"OPEN"}`),
	})
	require.NoError(t, err)

	again, err := client.Submit(ctx, gateway.SubmitRequest{
		MutationID: "replayed-1",
		EntityType: "task",
		EntityID:   "T2",
		Operation:  models.OperationCreate,
		Payload:    []byte(`{"status":"OPEN"}`),
	})
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, first.NewVersion, again.NewVersion)

	remote, err := client.FetchCurrent(ctx, "task", "T2")
	require.NoError(t, err)
	assert.Equal(t, "replayed-1", remote.LastMutationID)
}

func TestServer_Auth(t *testing.T) {
	ts, store := setupServer(t)
	ctx := context.Background()

	// Health check доступен без токена
	anonymous := api.NewClient(ts.URL)
	require.NoError(t, anonymous.Ping(ctx))

	_, err := anonymous.FetchCurrent(ctx, "task", "T1")
	assert.ErrorIs(t, err, gateway.ErrUnauthorized)

	require.NoError(t, store.RevokeDevice(ctx, "tenant-a", "tablet-2", time.Now()))
	revoked := api.NewClient(ts.URL, api.WithToken(deviceToken(t, "tablet-2")))
	_, err = revoked.FetchCurrent(ctx, "task", "T1")
	assert.ErrorIs(t, err, gateway.ErrUnauthorized)

	active := api.NewClient(ts.URL, api.WithToken(deviceToken(t, "tablet-1")))
	_, err = active.FetchCurrent(ctx, "task", "T1")
	assert.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestServer_RateLimit(t *testing.T) {
	ctx := context.Background()

	store, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.SaveDevice(ctx, &storage.Device{TenantID: "tenant-a", DeviceID: "tablet-1"}))

	cfg := testConfig()
	cfg.HTTP.RateLimit = 1
	cfg.HTTP.RateWindow = time.Hour
	ts := httptest.NewServer(New(cfg, store, nil, "test").Handler())
	t.Cleanup(ts.Close)

	client := api.NewClient(ts.URL, api.WithToken(deviceToken(t, "tablet-1")))

	_, err = client.FetchCurrent(ctx, "task", "T1")
	assert.ErrorIs(t, err, gateway.ErrNotFound)

	// Превышение лимита для клиента выглядит как временная недоступность
	_, err = client.FetchCurrent(ctx, "task", "T1")
	assert.ErrorIs(t, err, gateway.ErrNetworkUnavailable)
}

func TestServer_ListenAndServe(t *testing.T) {
	store, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	srv := New(testConfig(), store, nil, "test")

	ctx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- srv.ListenAndServe(ctx, func(addr string) { addrCh <- addr })
	}()

	addr := <-addrCh
	resp, err := http.Get("http://" + addr + "/api/v1/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
