// Package cli implements the caresync device commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/PNdlovu/writecarenotes-sub002/internal/client/auth"
	"github.com/PNdlovu/writecarenotes-sub002/internal/client/connectivity"
	"github.com/PNdlovu/writecarenotes-sub002/internal/client/iocli"
	"github.com/PNdlovu/writecarenotes-sub002/internal/client/outbox"
	"github.com/PNdlovu/writecarenotes-sub002/internal/client/storage"
	clientsync "github.com/PNdlovu/writecarenotes-sub002/internal/client/sync"
	"github.com/PNdlovu/writecarenotes-sub002/internal/models"
)

//go:generate moq -out mocks_test.go . Syncer Daemon

// Syncer is the part of the sync coordinator used by commands.
type Syncer interface {
	SetOnline(online bool)
	RunCycle(ctx context.Context) (clientsync.SyncCycleResult, error)
	Refresh(ctx context.Context, entityType, entityID string) (*models.EntitySnapshot, error)
	Status() clientsync.Status
}

// Daemon runs background sync until stopped.
type Daemon interface {
	Start() error
	Stop()
}

// Cli содержит зависимости команд
type Cli struct {
	io          iocli.IO
	outbox      outbox.Service
	syncer      Syncer
	prober      connectivity.Prober
	meta        storage.MetadataStorage
	auth        *auth.Service
	daemon      Daemon
	metrics     http.Handler
	metricsAddr string
}

// Deps зависимости для New
type Deps struct {
	IO          iocli.IO
	Outbox      outbox.Service
	Syncer      Syncer
	Prober      connectivity.Prober
	Meta        storage.MetadataStorage
	Auth        *auth.Service
	Daemon      Daemon
	Metrics     http.Handler
	MetricsAddr string
}

// New creates the command set.
func New(d Deps) *Cli {
	return &Cli{
		io:          d.IO,
		outbox:      d.Outbox,
		syncer:      d.Syncer,
		prober:      d.Prober,
		meta:        d.Meta,
		auth:        d.Auth,
		daemon:      d.Daemon,
		metrics:     d.Metrics,
		metricsAddr: d.MetricsAddr,
	}
}

// ResolvePassphrase returns the storage passphrase with priority:
// 1. configured value (config file or CARESYNC_STORAGE_PASSPHRASE)
// 2. file given by --passphrase-file
// 3. empty, the store is opened without encryption
func ResolvePassphrase(configured, fromFile string) (string, error) {
	// Priority 1: config / environment
	if configured != "" {
		return configured, nil
	}

	// Priority 2: File
	if fromFile != "" {
		content, err := os.ReadFile(fromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read passphrase file: %w", err)
		}
		// Убираем trailing newline/whitespace
		passphrase := strings.TrimSpace(string(content))
		if passphrase == "" {
			return "", fmt.Errorf("passphrase file is empty")
		}
		return passphrase, nil
	}

	return "", nil
}

// PromptPassphrase asks for the passphrase of an encrypted store.
func PromptPassphrase(io iocli.IO) (string, error) {
	if !io.Interactive() {
		return "", fmt.Errorf("%w: set CARESYNC_STORAGE_PASSPHRASE or --passphrase-file", storage.ErrInvalidPassphrase)
	}

	passphrase, err := io.ReadPassword("Storage passphrase: ")
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase from stdin: %w", err)
	}
	if passphrase == "" {
		return "", fmt.Errorf("passphrase cannot be empty")
	}
	return passphrase, nil
}

// goOnline probes the server and reports the result to the coordinator.
func (c *Cli) goOnline(ctx context.Context) bool {
	if c.prober == nil {
		return false
	}
	if err := c.prober.Ping(ctx); err != nil {
		c.io.Printf("Server unreachable: %v\n", err)
		c.syncer.SetOnline(false)
		return false
	}
	c.syncer.SetOnline(true)
	return true
}

// describeError переводит ошибки хранилища в сообщения для пользователя
func describeError(what string, err error) error {
	switch {
	case errors.Is(err, storage.ErrSnapshotNotFound):
		return fmt.Errorf("%s not found", what)
	case errors.Is(err, storage.ErrMutationNotFound):
		return fmt.Errorf("mutation %s not found", what)
	case errors.Is(err, storage.ErrInvalidTransition):
		return fmt.Errorf("mutation %s cannot be changed in its current state: %w", what, err)
	default:
		return err
	}
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
