package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyCheckValue(t *testing.T) {
	key := testKey(3)

	check := KeyCheckValue(key)
	assert.Len(t, check, 64)
	assert.Equal(t, check, KeyCheckValue(key))

	assert.NoError(t, VerifyKeyCheck(key, check))
	assert.ErrorIs(t, VerifyKeyCheck(testKey(4), check), ErrKeyMismatch)
	assert.ErrorIs(t, VerifyKeyCheck(key, "not-hex"), ErrKeyMismatch)
}
