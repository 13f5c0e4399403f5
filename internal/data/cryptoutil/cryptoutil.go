// Package cryptoutil seals small payloads (session blobs at rest in Redis)
// with AES-256-GCM. Ciphertexts carry a version prefix so the algorithm or
// key can rotate later without re-sealing everything at once.
package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	prefixGCMv1 = "gcm1:"
	prefixPlain = "plain:"
)

// Encryptor seals and opens payloads. Implementations must round-trip:
// Decrypt(Encrypt(p)) == p.
type Encryptor interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
}

// AESGCMEncryptor seals payloads with AES-256-GCM under a single static key.
type AESGCMEncryptor struct {
	aead cipher.AEAD
}

// NewAESGCMEncryptor builds an encryptor from a 32-byte key.
func NewAESGCMEncryptor(key []byte) (*AESGCMEncryptor, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("aes-gcm key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESGCMEncryptor{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce. The result is
// "gcm1:" + base64(nonce || ciphertext).
func (e *AESGCMEncryptor) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := e.aead.Seal(nonce, nonce, plaintext, nil)
	return prefixGCMv1 + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a ciphertext produced by Encrypt. Payloads written by the
// NoopEncryptor are still readable, so enabling encryption on a live
// deployment does not invalidate existing sessions.
func (e *AESGCMEncryptor) Decrypt(ciphertext string) ([]byte, error) {
	if strings.HasPrefix(ciphertext, prefixPlain) {
		return NoopEncryptor{}.Decrypt(ciphertext)
	}
	b64, ok := strings.CutPrefix(ciphertext, prefixGCMv1)
	if !ok {
		return nil, fmt.Errorf("unknown ciphertext version %q", versionPrefix(ciphertext))
	}
	sealed, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	if len(sealed) < e.aead.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ct := sealed[:e.aead.NonceSize()], sealed[e.aead.NonceSize():]
	return e.aead.Open(nil, nonce, ct, nil)
}

// NoopEncryptor stores payloads base64-encoded but unencrypted. Used when no
// key is configured, and in tests.
type NoopEncryptor struct{}

func (NoopEncryptor) Encrypt(plaintext []byte) (string, error) {
	return prefixPlain + base64.StdEncoding.EncodeToString(plaintext), nil
}

func (NoopEncryptor) Decrypt(ciphertext string) ([]byte, error) {
	b64, ok := strings.CutPrefix(ciphertext, prefixPlain)
	if !ok {
		return nil, fmt.Errorf("unknown ciphertext version %q", versionPrefix(ciphertext))
	}
	return base64.StdEncoding.DecodeString(b64)
}

func versionPrefix(ciphertext string) string {
	if i := strings.IndexByte(ciphertext, ':'); i >= 0 && i < 10 {
		return ciphertext[:i+1]
	}
	if len(ciphertext) > 10 {
		return ciphertext[:10]
	}
	return ciphertext
}
