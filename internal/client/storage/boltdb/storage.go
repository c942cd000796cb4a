package boltdb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"go.etcd.io/bbolt"

	"github.com/PNdlovu/writecarenotes-sub002/internal/client/storage"
	"github.com/PNdlovu/writecarenotes-sub002/internal/crypto"
	"github.com/PNdlovu/writecarenotes-sub002/internal/version"
)

var (
	// BoltDB bucket names
	bucketMutations   = []byte("mutations")
	bucketEntityIndex = []byte("entity_index")
	bucketSnapshots   = []byte("snapshots")
	bucketConflicts   = []byte("conflicts")
	bucketMetadata    = []byte("metadata")
)

var _ storage.Store = (*Storage)(nil)

// Storage represents BoltDB storage implementation for the device outbox
type Storage struct {
	db          *bbolt.DB
	sealer      *crypto.Sealer // nil - значения хранятся без шифрования
	clock       *version.Clock
	logger      *slog.Logger
	passphrase  string
	openTimeout time.Duration
	maxAttempts int
}

// Option настраивает Storage.
type Option func(*Storage)

// WithMaxAttempts sets how many failed attempts move a mutation to terminal failed.
func WithMaxAttempts(n int) Option {
	return func(s *Storage) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithPassphrase enables at-rest encryption with a key derived from passphrase.
func WithPassphrase(passphrase string) Option {
	return func(s *Storage) { s.passphrase = passphrase }
}

// WithClock sets the clock used to stamp new records.
func WithClock(clock *version.Clock) Option {
	return func(s *Storage) { s.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Storage) { s.logger = logger }
}

// WithOpenTimeout limits how long New waits for the file lock held by another process.
func WithOpenTimeout(d time.Duration) Option {
	return func(s *Storage) { s.openTimeout = d }
}

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string, opts ...Option) (*Storage, error) {
	s := &Storage{
		maxAttempts: storage.DefaultMaxAttempts,
		openTimeout: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = version.NewClock()
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	// Открываем BoltDB
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: s.openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", unavailable(err))
	}
	s.db = db

	// Инициализируем buckets
	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	if s.passphrase != "" {
		if err := s.initKey(); err != nil {
			db.Close()
			return nil, err
		}
	} else if err := s.checkUnencrypted(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.DebugContext(ctx, "local store opened",
		"path", dbPath,
		"encrypted", s.sealer != nil,
		"max_attempts", s.maxAttempts)

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMutations, bucketEntityIndex, bucketSnapshots, bucketConflicts, bucketMetadata} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

// update выполняет транзакцию записи, ошибки носителя превращаются в ErrStorageUnavailable
func (s *Storage) update(fn func(tx *bbolt.Tx) error) error {
	if s.db == nil {
		return storage.ErrStorageUnavailable
	}
	return unavailable(s.db.Update(fn))
}

// view выполняет транзакцию чтения
func (s *Storage) view(fn func(tx *bbolt.Tx) error) error {
	if s.db == nil {
		return storage.ErrStorageUnavailable
	}
	return unavailable(s.db.View(fn))
}

// unavailable оборачивает ошибки недоступности носителя
func unavailable(err error) error {
	if err == nil {
		return nil
	}

	var pathErr *fs.PathError
	switch {
	case errors.Is(err, bbolt.ErrDatabaseNotOpen),
		errors.Is(err, bbolt.ErrTimeout),
		errors.Is(err, bbolt.ErrDatabaseReadOnly),
		errors.As(err, &pathErr):
		return fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
	default:
		return err
	}
}

// entityKey ключ сущности в entity_index и snapshots
func entityKey(entityType, entityID string) []byte {
	key := make([]byte, 0, len(entityType)+1+len(entityID))
	key = append(key, entityType...)
	key = append(key, 0)
	key = append(key, entityID...)
	return key
}

// entityPrefix префикс всех ключей одного типа сущности
func entityPrefix(entityType string) []byte {
	prefix := make([]byte, 0, len(entityType)+1)
	prefix = append(prefix, entityType...)
	return append(prefix, 0)
}
