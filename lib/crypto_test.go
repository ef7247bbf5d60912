package lib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundtrip(t *testing.T) {
	token := CreateToken("admin", "secret", 60)
	value, ok := ValidateToken(token, "secret")
	require.True(t, ok)
	assert.Equal(t, "admin", value)
}

func TestTokenRejectsTampering(t *testing.T) {
	token := CreateToken("admin", "secret", 60)

	_, ok := ValidateToken(token, "other-secret")
	assert.False(t, ok)

	_, ok = ValidateToken("garbage", "secret")
	assert.False(t, ok)

	_, ok = ValidateToken("", "secret")
	assert.False(t, ok)

	_, ok = ValidateToken(token+"x", "secret")
	assert.False(t, ok)
}

func TestTokenExpiry(t *testing.T) {
	token := CreateToken("admin", "secret", -1)
	reason, ok := ValidateToken(token, "secret")
	assert.False(t, ok)
	assert.Equal(t, "expired", reason)
}

func TestSecretsRoundtrip(t *testing.T) {
	secret := "0b31347d4f8694f6b38fd1d7a9bca7f845a3e0e0b57947a47e0e79c80c4a2d86"
	cipher := SecretsEncrypt(secret, "hello")
	assert.NotEqual(t, "hello", cipher)
	assert.Equal(t, "hello", SecretsDecrypt(secret, cipher))
}
