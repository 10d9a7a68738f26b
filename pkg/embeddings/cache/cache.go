// Package cache wraps an embeddings.Embedder with a Redis-backed cache keyed
// by model and text.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/papercomputeco/ragline/pkg/embeddings"
)

// DefaultTTL is how long cached embeddings live when no TTL is configured.
const DefaultTTL = 7 * 24 * time.Hour

// Config holds configuration for the cache.
type Config struct {
	// Model namespaces keys so switching models never serves stale vectors.
	Model string

	// TTL defaults to DefaultTTL.
	TTL time.Duration

	// Prefix defaults to "ragline:emb".
	Prefix string
}

// Embedder is a read-through cache in front of another Embedder. Cache
// failures are logged and fall through to the wrapped embedder.
type Embedder struct {
	next   embeddings.Embedder
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// Connect creates a Redis client for addr and verifies it with PING. addr is
// either host:port or a redis:// URL, whose credentials and database take
// precedence over password and db.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %w", err)
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return client, nil
}

// New wraps next.
func New(next embeddings.Embedder, client redis.UniversalClient, cfg Config, logger *slog.Logger) *Embedder {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "ragline:emb"
	}
	return &Embedder{
		next:   next,
		client: client,
		ttl:    ttl,
		prefix: prefix + ":" + cfg.Model + ":",
		logger: logger,
	}
}

// Key returns the Redis key for text.
func (e *Embedder) Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return e.prefix + hex.EncodeToString(sum[:])
}

// Embed returns the cached vector for text or computes and stores it.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := e.Key(text)

	raw, err := e.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if v, decodeErr := decode(raw); decodeErr == nil {
			return v, nil
		}
		e.logger.Warn("discarding corrupt cached embedding", "key", key)
	case !errors.Is(err, redis.Nil):
		e.logger.Warn("embedding cache read failed", "err", err)
	}

	v, err := e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := e.client.Set(ctx, key, encode(v), e.ttl).Err(); err != nil {
		e.logger.Warn("embedding cache write failed", "err", err)
	}
	return v, nil
}

// Close closes the wrapped embedder and the Redis client.
func (e *Embedder) Close() error {
	return errors.Join(e.next.Close(), e.client.Close())
}

func encode(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decode(b []byte) ([]float32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
