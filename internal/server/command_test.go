package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PNdlovu/writecarenotes-sub002/internal/server/handlers"
)

func setupCommandEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CARESYNC_AUTH_JWT_SECRET", testSecret)
	t.Setenv("CARESYNC_DATABASE_PATH", filepath.Join(t.TempDir(), "server.db"))
	t.Setenv("CARESYNC_HTTP_ADDR", "127.0.0.1:0")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewCommand(&out, io.Discard, "test")
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

var tokenLine = regexp.MustCompile(`Token: (\S+)`)

func TestCommand_DeviceLifecycle(t *testing.T) {
	setupCommandEnv(t)

	out, err := run(t, "device", "register", "tenant-a", "tablet-1", "--name", "Ward A")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Device tablet-1 registered for tenant tenant-a")
	assert.Contains(t, out, "Expires:")

	match := tokenLine.FindStringSubmatch(out)
	require.Len(t, match, 2)
	claims, err := handlers.ValidateDeviceToken(handlers.JWTConfig{Secret: []byte(testSecret)}, match[1])
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", claims.TenantID)
	assert.Equal(t, "tablet-1", claims.DeviceID)

	out, err = run(t, "device", "list", "tenant-a")
	require.NoError(t, err)
	assert.Contains(t, out, "DEVICE")
	assert.Contains(t, out, "Ward A")
	assert.Contains(t, out, "active")

	out, err = run(t, "device", "token", "tenant-a", "tablet-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Token: ")

	out, err = run(t, "device", "revoke", "tenant-a", "tablet-1")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Device tablet-1 revoked")

	_, err = run(t, "device", "token", "tenant-a", "tablet-1")
	assert.ErrorIs(t, err, ErrDeviceRevoked)

	out, err = run(t, "device", "list", "tenant-a")
	require.NoError(t, err)
	assert.Contains(t, out, "revoked")

	out, err = run(t, "device", "list", "tenant-b")
	require.NoError(t, err)
	assert.Equal(t, "No devices registered.\n", out)
}

func TestCommand_RegisterInvalidID(t *testing.T) {
	setupCommandEnv(t)

	_, err := run(t, "device", "register", "tenant a", "tablet-1")
	assert.ErrorContains(t, err, "tenant")

	_, err = run(t, "device", "register", "tenant-a", "tablet/1")
	assert.ErrorContains(t, err, "device")
}

func TestCommand_MissingSecret(t *testing.T) {
	t.Setenv("CARESYNC_AUTH_JWT_SECRET", "")
	t.Setenv("CARESYNC_DATABASE_PATH", filepath.Join(t.TempDir(), "server.db"))

	_, err := run(t, "device", "list", "tenant-a")
	assert.Error(t, err)
}

func TestCommand_Serve(t *testing.T) {
	setupCommandEnv(t)

	addrCh := make(chan string, 1)
	root := newCommand(&command{
		out:     io.Discard,
		logOut:  io.Discard,
		version: "test",
		ready:   func(addr string) { addrCh <- addr },
	})
	root.SetArgs([]string{"serve"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- root.ExecuteContext(ctx)
	}()

	var addr string
	select {
	case addr = <-addrCh:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

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

func TestCommand_Version(t *testing.T) {
	out, err := run(t, "--version")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "test"))
}
