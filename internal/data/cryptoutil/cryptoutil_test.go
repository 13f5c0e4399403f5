package cryptoutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func TestAESGCMEncryptor_RoundTrip(t *testing.T) {
	enc, err := NewAESGCMEncryptor(testKey())
	require.NoError(t, err)

	sealed, err := enc.Encrypt([]byte(`{"session_id":"s-1"}`))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(sealed, "gcm1:"))
	require.NotContains(t, sealed, "session_id")

	opened, err := enc.Decrypt(sealed)
	require.NoError(t, err)
	require.Equal(t, []byte(`{"session_id":"s-1"}`), opened)
}

func TestAESGCMEncryptor_NoncesDiffer(t *testing.T) {
	enc, err := NewAESGCMEncryptor(testKey())
	require.NoError(t, err)

	a, err := enc.Encrypt([]byte("same payload"))
	require.NoError(t, err)
	b, err := enc.Encrypt([]byte("same payload"))
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestAESGCMEncryptor_RejectsBadKeyLength(t *testing.T) {
	_, err := NewAESGCMEncryptor([]byte("short"))
	require.Error(t, err)
}

func TestAESGCMEncryptor_RejectsTampering(t *testing.T) {
	enc, err := NewAESGCMEncryptor(testKey())
	require.NoError(t, err)

	sealed, err := enc.Encrypt([]byte("payload"))
	require.NoError(t, err)

	tampered := sealed[:len(sealed)-2] + "AA"
	_, err = enc.Decrypt(tampered)
	require.Error(t, err)
}

func TestAESGCMEncryptor_RejectsUnknownVersion(t *testing.T) {
	enc, err := NewAESGCMEncryptor(testKey())
	require.NoError(t, err)

	_, err = enc.Decrypt("v9:whatever")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown ciphertext version")
}

func TestAESGCMEncryptor_ReadsPlainPayloads(t *testing.T) {
	plain, err := NoopEncryptor{}.Encrypt([]byte("pre-rollout session"))
	require.NoError(t, err)

	enc, err := NewAESGCMEncryptor(testKey())
	require.NoError(t, err)

	opened, err := enc.Decrypt(plain)
	require.NoError(t, err)
	require.Equal(t, []byte("pre-rollout session"), opened)
}

func TestNoopEncryptor_RoundTrip(t *testing.T) {
	sealed, err := NoopEncryptor{}.Encrypt([]byte("hello"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(sealed, "plain:"))

	opened, err := NoopEncryptor{}.Decrypt(sealed)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), opened)
}

func TestNoopEncryptor_RejectsSealedPayloads(t *testing.T) {
	_, err := NoopEncryptor{}.Decrypt("gcm1:abcd")
	require.Error(t, err)
}
