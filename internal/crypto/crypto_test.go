package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSealer(t *testing.T) *Sealer {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	s, err := NewSealer(key)
	require.NoError(t, err)
	return s
}

func TestSealOpen(t *testing.T) {
	s := newTestSealer(t)

	sealed, err := s.Seal("ya29.access-token")
	require.NoError(t, err)
	assert.NotEqual(t, "ya29.access-token", sealed)

	again, err := s.Seal("ya29.access-token")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "each seal uses a fresh nonce")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "ya29.access-token", plain)
}

func TestSealEmpty(t *testing.T) {
	s := newTestSealer(t)

	sealed, err := s.Seal("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	plain, err := s.Open("")
	require.NoError(t, err)
	assert.Empty(t, plain)
}

func TestNewSealerRejectsBadKeys(t *testing.T) {
	_, err := NewSealer("")
	assert.Error(t, err)

	_, err = NewSealer("%%%")
	assert.Error(t, err)

	_, err = NewSealer(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorContains(t, err, "32 bytes")
}

func TestOpenTamperedOrShort(t *testing.T) {
	s := newTestSealer(t)

	_, err := s.Open(base64.StdEncoding.EncodeToString([]byte("abc")))
	assert.ErrorIs(t, err, ErrCiphertextTooShort)

	other := newTestSealer(t)
	sealed, err := other.Seal("secret")
	require.NoError(t, err)
	_, err = s.Open(sealed)
	assert.Error(t, err, "a different key must not open the value")
}
