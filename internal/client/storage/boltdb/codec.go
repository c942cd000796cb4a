package boltdb

import (
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"
	"go.etcd.io/bbolt"

	"github.com/PNdlovu/writecarenotes-sub002/internal/client/storage"
	"github.com/PNdlovu/writecarenotes-sub002/internal/crypto"
)

const (
	keyStorageSalt     = "storage_salt"
	keyStorageKeyCheck = "storage_key_check"
)

// encode сериализует значение: JSON -> snappy -> AES-GCM (если включено шифрование)
func (s *Storage) encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}

	data = snappy.Encode(nil, data)

	if s.sealer != nil {
		data, err = s.sealer.Seal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to seal value: %w", err)
		}
	}

	return data, nil
}

// decode выполняет обратное преобразование
func (s *Storage) decode(data []byte, v any) error {
	var err error
	if s.sealer != nil {
		data, err = s.sealer.Open(data)
		if err != nil {
			return fmt.Errorf("failed to open value: %w", err)
		}
	}

	data, err = snappy.Decode(nil, data)
	if err != nil {
		return fmt.Errorf("failed to decompress value: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}

	return nil
}

// initKey выводит ключ из passphrase. При первом открытии генерирует соль
// и сохраняет контрольное значение ключа, при последующих - проверяет его.
func (s *Storage) initKey() error {
	var key []byte

	err := s.update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMetadata)

		salt := meta.Get([]byte(keyStorageSalt))
		if salt == nil {
			if !isEmpty(tx) {
				return fmt.Errorf("%w: storage already holds unencrypted data", storage.ErrInvalidPassphrase)
			}

			newSalt, err := crypto.GenerateSalt()
			if err != nil {
				return err
			}
			key, err = crypto.DeriveStorageKey(s.passphrase, newSalt)
			if err != nil {
				return err
			}

			if err := meta.Put([]byte(keyStorageSalt), newSalt); err != nil {
				return fmt.Errorf("failed to save salt: %w", err)
			}
			if err := meta.Put([]byte(keyStorageKeyCheck), []byte(crypto.KeyCheckValue(key))); err != nil {
				return fmt.Errorf("failed to save key check: %w", err)
			}
			return nil
		}

		var err error
		key, err = crypto.DeriveStorageKey(s.passphrase, salt)
		if err != nil {
			return err
		}

		check := meta.Get([]byte(keyStorageKeyCheck))
		if err := crypto.VerifyKeyCheck(key, string(check)); err != nil {
			return storage.ErrInvalidPassphrase
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.sealer, err = crypto.NewSealer(key)
	if err != nil {
		return fmt.Errorf("failed to create sealer: %w", err)
	}

	return nil
}

// checkUnencrypted не дает открыть зашифрованное хранилище без passphrase
func (s *Storage) checkUnencrypted() error {
	return s.view(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketMetadata).Get([]byte(keyStorageSalt)) != nil {
			return fmt.Errorf("%w: storage is encrypted", storage.ErrInvalidPassphrase)
		}
		return nil
	})
}

// isEmpty проверяет, что в хранилище нет записей
func isEmpty(tx *bbolt.Tx) bool {
	for _, name := range [][]byte{bucketMutations, bucketSnapshots, bucketConflicts} {
		if k, _ := tx.Bucket(name).Cursor().First(); k != nil {
			return false
		}
	}
	return tx.Bucket(bucketMetadata).Get([]byte(keyCredentials)) == nil
}
