package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap parameters, the real ones are too slow for a unit test loop
var testParams = Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestHashPassword_RoundTrip(t *testing.T) {
	encoded := HashPassword([]byte("pw"), testParams)
	require.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$"), encoded)

	ok, err := CheckPassword([]byte("pw"), encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword([]byte("wrong"), encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_SaltedPerCall(t *testing.T) {
	a := HashPassword([]byte("pw"), testParams)
	b := HashPassword([]byte("pw"), testParams)
	assert.NotEqual(t, a, b, "same password must produce different digests")
}

func TestCheckPassword_Malformed(t *testing.T) {
	for _, encoded := range []string{
		"",
		"pw",
		"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=1,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=1,t=1,p=1$!!!$a2V5",
		"$argon2id$v=19$m=1,t=1,p=1$c2FsdA$",
	} {
		_, err := CheckPassword([]byte("pw"), encoded)
		assert.ErrorIs(t, err, ErrMalformedHash, encoded)
	}
}

func TestHashToken(t *testing.T) {
	h := HashToken("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", h)
	assert.NotEqual(t, h, HashToken("abd"))
}
