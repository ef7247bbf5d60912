package pay

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/pbkdf2"

	"app/lib"
)

// Issuer mints one-time keypairs for sessions. The private key is never
// stored: Issue derives it, keeps the address and salt, and DeriveKey
// recomputes the exact same key later from the session id, the salt and the
// server secret. Minting and derivation share one code path on purpose, a
// split would make swept addresses unspendable.
type Issuer struct {
	secret     []byte
	iterations int
	saltLength int
}

func NewIssuer(cfg *Config) *Issuer {
	return &Issuer{
		secret:     []byte(cfg.Secret),
		iterations: cfg.KDFIterations,
		saltLength: cfg.SaltLength,
	}
}

// Issue mints the receive address for a session and returns it with the salt
// needed to re-derive the private key. Costs one full KDF run.
func (i *Issuer) Issue(sessionID string) (address string, salt string, err error) {
	bs := make([]byte, i.saltLength)
	if _, err := rand.Read(bs); err != nil {
		return "", "", fmt.Errorf("issuer: reading salt: %w", err)
	}
	salt = hex.EncodeToString(bs)
	key, err := i.DeriveKey(sessionID, salt)
	if err != nil {
		return "", "", err
	}
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), salt, nil
}

// DeriveKey recomputes a session's private key. Deliberately slow (PBKDF2
// with a configured iteration count); only the sweep engine calls it.
func (i *Issuer) DeriveKey(sessionID, salt string) (*ecdsa.PrivateKey, error) {
	if sessionID == "" || salt == "" {
		return nil, errors.New("issuer: missing session id or salt")
	}
	material := []byte(sessionID + "|" + salt)
	// A PBKDF2 output is a valid secp256k1 scalar in nearly all cases. When
	// it is not, bump a counter byte so derivation stays deterministic.
	for counter := byte(0); counter < 255; counter++ {
		seed := pbkdf2.Key(append(material, counter), i.secret, i.iterations, 32, sha256.New)
		key, err := crypto.ToECDSA(seed)
		if err == nil {
			return key, nil
		}
	}
	lib.LogError("issuer: no valid key after 255 derivation rounds", lib.J{"sessionId": sessionID})
	return nil, errors.New("issuer: derivation failed")
}
