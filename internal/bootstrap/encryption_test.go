package bootstrap

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportwire/ingest-admin/internal/data/cryptoutil"
)

func TestCreateEncryptorEmptyKeyFallsBackToNoop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	enc := CreateEncryptor("", logger)
	_, ok := enc.(*cryptoutil.NoopEncryptor)
	assert.True(t, ok)
}

func TestCreateEncryptorHexKey(t *testing.T) {
	key := strings.Repeat("ab", 32) // 64 hex chars, 32 bytes

	enc := CreateEncryptor(key, nil)
	_, ok := enc.(*cryptoutil.AESGCMEncryptor)
	require.True(t, ok)

	sealed, err := enc.Encrypt([]byte("session payload"))
	require.NoError(t, err)
	plain, err := enc.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("session payload"), plain)
}

func TestCreateEncryptorPassphraseIsHashed(t *testing.T) {
	enc := CreateEncryptor("not-hex-but-still-a-secret", nil)
	_, ok := enc.(*cryptoutil.AESGCMEncryptor)
	require.True(t, ok)

	sealed, err := enc.Encrypt([]byte("x"))
	require.NoError(t, err)
	assert.NotContains(t, sealed, "x")
}
