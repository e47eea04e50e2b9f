package passhash_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mathew-Seliverstov/projectAuthServer/internal/lib/passhash"
)

func TestHashAndVerify(t *testing.T) {
	password := "securePassword123!"

	digest, err := passhash.Hash(password)
	require.NoError(t, err)
	require.NotEmpty(t, digest)

	assert.True(t, passhash.Verify(password, digest))
	assert.False(t, passhash.Verify("wrongPassword", digest))
}

func TestHash_SaltedPerCall(t *testing.T) {
	password := "samePassword"

	first, err := passhash.Hash(password)
	require.NoError(t, err)

	second, err := passhash.Hash(password)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, passhash.Verify(password, first))
	assert.True(t, passhash.Verify(password, second))
}

func TestVerify_MalformedDigest(t *testing.T) {
	tests := []struct {
		name   string
		digest []byte
	}{
		{name: "empty digest", digest: nil},
		{name: "garbage digest", digest: []byte("not-a-bcrypt-digest")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, passhash.Verify("anyPassword", tt.digest))
		})
	}
}
