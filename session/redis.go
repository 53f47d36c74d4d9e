package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultRedisKeyPrefix namespaces session hashes in redis.
	DefaultRedisKeyPrefix = "authflow:session:"
	// DefaultSessionIDCookie carries the redis session id.
	DefaultSessionIDCookie = "_authflow_sid"
)

// RedisOptions configures a RedisManager.
type RedisOptions struct {
	KeyPrefix  string
	TTL        time.Duration
	CookieName string
	Domain     string
	Secure     bool
}

// RedisManager keeps session records in redis hashes keyed by an opaque id
// that travels in a cookie. Only the id is ever sent to the browser.
type RedisManager struct {
	client redis.UniversalClient
	opts   RedisOptions
}

// NewRedisManager creates a manager on top of an existing client.
func NewRedisManager(client redis.UniversalClient, opts RedisOptions) *RedisManager {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultRedisKeyPrefix
	}
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Minute
	}
	if opts.CookieName == "" {
		opts.CookieName = DefaultSessionIDCookie
	}
	return &RedisManager{client: client, opts: opts}
}

// Store returns the store for a known session id.
func (m *RedisManager) Store(id string) *RedisStore {
	return NewRedisStore(m.client, m.opts.KeyPrefix+id, m.opts.TTL)
}

// Open reuses the session id from the request cookie or issues a new one.
func (m *RedisManager) Open(w http.ResponseWriter, r *http.Request) (Store, error) {
	if c, err := r.Cookie(m.opts.CookieName); err == nil {
		if _, parseErr := uuid.Parse(c.Value); parseErr == nil {
			return m.Store(c.Value), nil
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, sessionIDCookie(m.opts, id))
	return m.Store(id), nil
}

func sessionIDCookie(opts RedisOptions, id string) *http.Cookie {
	return &http.Cookie{
		Name:     opts.CookieName,
		Value:    id,
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   int(opts.TTL.Seconds()),
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// Ping checks connectivity.
func (m *RedisManager) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

// RedisStore is a Store persisted as one redis hash. Every write refreshes
// the hash expiry.
type RedisStore struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// NewRedisStore creates a store for a single session hash.
func NewRedisStore(client redis.UniversalClient, key string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, key: key, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.HGet(ctx, s.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis HGET %s: %w", s.key, err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key, key, value)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis HSET %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if err := s.client.HDel(ctx, s.key, key).Err(); err != nil {
		return fmt.Errorf("redis HDEL %s: %w", s.key, err)
	}
	return nil
}

// Clear deletes the whole session hash with a single DEL.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis DEL %s: %w", s.key, err)
	}
	return nil
}

// Key returns the redis key of the session hash.
func (s *RedisStore) Key() string {
	return s.key
}
