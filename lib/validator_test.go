package lib

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	values := map[string]string{
		"address":   "0x20dE070F1887f9EA0Fd0Aa33E32d9e86B0C7fA4a",
		"sessionId": "acd5b1a09ff64ec0b72f3a5a3b5dbbfbbf255e4b3c2d0a48c3ab4b2c3d4e5f60",
		"mode":      "all",
	}
	errors := Validate(values,
		ValidatePresence("address"),
		ValidateRegexp("address", HexAddressRegexp),
		ValidateRegexp("sessionId", SessionIDRegexp),
		ValidateLength("sessionId", 64, 64),
		ValidateOneOf("mode", []string{"one", "all"}),
	)
	assert.Empty(t, errors)
}

func TestValidateFailures(t *testing.T) {
	values := map[string]string{
		"address":   "not-an-address",
		"sessionId": "TOOSHORT",
		"mode":      "sideways",
	}
	errors := Validate(values,
		ValidatePresence("missing"),
		ValidateRegexp("address", HexAddressRegexp),
		ValidateRegexp("sessionId", SessionIDRegexp),
		ValidateLength("sessionId", 64, 64),
		ValidateOneOf("mode", []string{"one", "all"}),
	)
	assert.Len(t, errors, 5)
}

func TestSessionIDRegexpRejectsUppercase(t *testing.T) {
	assert.False(t, SessionIDRegexp.MatchString("ACD5B1A09FF64EC0B72F3A5A3B5DBBFBBF255E4B3C2D0A48C3AB4B2C3D4E5F60"))
}
