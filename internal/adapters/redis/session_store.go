package redis

// Package redis provides Redis-backed adapters for sessions and caching.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sportwire/ingest-admin/internal/data/cryptoutil"
	domainauth "github.com/sportwire/ingest-admin/internal/domain/auth"
)

const defaultSessionPrefix = "ingest:session:"

// SessionStore persists sessions in Redis with a TTL derived from the
// session expiry, so abandoned sessions disappear without a sweeper.
// Session blobs are sealed at rest; deployments without a configured key
// fall back to cryptoutil.NoopEncryptor.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
	enc    cryptoutil.Encryptor
}

// NewSessionStore creates a session store with the default key prefix.
func NewSessionStore(client redis.UniversalClient, enc cryptoutil.Encryptor) *SessionStore {
	return NewSessionStoreWithPrefix(client, defaultSessionPrefix, enc)
}

// NewSessionStoreWithPrefix creates a session store with a custom key prefix.
func NewSessionStoreWithPrefix(client redis.UniversalClient, prefix string, enc cryptoutil.Encryptor) *SessionStore {
	if enc == nil {
		enc = cryptoutil.NoopEncryptor{}
	}
	return &SessionStore{client: client, prefix: prefix, enc: enc}
}

func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session is already expired")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	sealed, err := s.enc.Encrypt(data)
	if err != nil {
		return fmt.Errorf("seal session: %w", err)
	}

	return s.client.Set(ctx, s.prefix+sess.ID, sealed, ttl).Err()
}

func (s *SessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, ErrNotFound
	}

	sealed, err := s.client.Get(ctx, s.prefix+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.Session{}, ErrNotFound
		}
		return domainauth.Session{}, fmt.Errorf("redis get: %w", err)
	}

	data, err := s.enc.Decrypt(sealed)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("open session: %w", err)
	}

	var sess domainauth.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return domainauth.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}

	// Redis TTL normally evicts expired sessions, but the wall clock wins
	// when the two disagree.
	if time.Now().After(sess.ExpiresAt) {
		if err := s.Delete(ctx, id); err != nil {
			return domainauth.Session{}, fmt.Errorf("cleanup expired session: %w", err)
		}
		return domainauth.Session{}, ErrNotFound
	}

	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.client.Del(ctx, s.prefix+id).Err()
}

// ErrNotFound is returned when a session does not exist.
type notFoundError struct{}

func (notFoundError) Error() string { return "session not found" }

var ErrNotFound error = notFoundError{}
