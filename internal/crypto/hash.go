package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrKeyMismatch возвращается, если ключ не совпадает с сохраненным контрольным значением.
var ErrKeyMismatch = errors.New("key does not match check value")

const keyCheckLabel = "caresync-key-check"

// KeyCheckValue возвращает контрольное значение ключа (HMAC-SHA256 от фиксированной метки).
// Хранится рядом с солью, чтобы отличать неверный passphrase от поврежденных данных.
func KeyCheckValue(key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(keyCheckLabel))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyKeyCheck проверяет ключ по контрольному значению
func VerifyKeyCheck(key []byte, checkValue string) error {
	expected, err := hex.DecodeString(checkValue)
	if err != nil {
		return ErrKeyMismatch
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(keyCheckLabel))
	if !hmac.Equal(mac.Sum(nil), expected) {
		return ErrKeyMismatch
	}

	return nil
}
