package pay

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"app/lib"
)

func TestIssuerDeriveMatchesIssue(t *testing.T) {
	issuer := NewIssuer(testConfig())
	id := lib.NewSecretID()
	address, salt, err := issuer.Issue(id)
	require.NoError(t, err)
	require.NotEmpty(t, address)
	require.NotEmpty(t, salt)

	key, err := issuer.DeriveKey(id, salt)
	require.NoError(t, err)
	assert.Equal(t, address, crypto.PubkeyToAddress(key.PublicKey).Hex())
}

func TestIssuerDeterministic(t *testing.T) {
	issuer := NewIssuer(testConfig())
	key1, err := issuer.DeriveKey("some-session", "some-salt")
	require.NoError(t, err)
	key2, err := issuer.DeriveKey("some-session", "some-salt")
	require.NoError(t, err)
	assert.Equal(t, key1.D, key2.D)
}

func TestIssuerInputsChangeKey(t *testing.T) {
	issuer := NewIssuer(testConfig())
	key1, err := issuer.DeriveKey("some-session", "salt-a")
	require.NoError(t, err)
	key2, err := issuer.DeriveKey("some-session", "salt-b")
	require.NoError(t, err)
	key3, err := issuer.DeriveKey("other-session", "salt-a")
	require.NoError(t, err)
	assert.NotEqual(t, key1.D, key2.D)
	assert.NotEqual(t, key1.D, key3.D)
}

func TestIssuerSecretChangesKey(t *testing.T) {
	cfg := testConfig()
	issuer1 := NewIssuer(cfg)
	other := testConfig()
	other.Secret = "rotated"
	issuer2 := NewIssuer(other)
	key1, err := issuer1.DeriveKey("some-session", "some-salt")
	require.NoError(t, err)
	key2, err := issuer2.DeriveKey("some-session", "some-salt")
	require.NoError(t, err)
	assert.NotEqual(t, key1.D, key2.D)
}

func TestIssuerRejectsMissingInputs(t *testing.T) {
	issuer := NewIssuer(testConfig())
	_, err := issuer.DeriveKey("", "salt")
	assert.Error(t, err)
	_, err = issuer.DeriveKey("id", "")
	assert.Error(t, err)
}
