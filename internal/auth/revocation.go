package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/challenge-tracker/internal/metrics"
)

// RevocationStore remembers logged-out tokens until they would have
// expired on their own.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// NopRevocationStore is used when no Redis is configured: logout only
// clears the cookie and the token itself stays valid until it expires.
type NopRevocationStore struct{}

func (NopRevocationStore) Revoke(context.Context, string, time.Time) error { return nil }

func (NopRevocationStore) IsRevoked(context.Context, string) (bool, error) { return false, nil }

// RedisRevocationStore keeps one key per revoked jti. Each key expires
// together with the token it blocks, so the set never outgrows the number
// of live tokens.
type RedisRevocationStore struct {
	client *redis.Client
}

const revokedKeyPrefix = "challenge-tracker:revoked:"

func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("auth: revoking token %s: %w", tokenID, err)
	}
	return nil
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("auth: checking revocation of %s: %w", tokenID, err)
	}
	return n > 0, nil
}

// NewRedisClient connects to Redis. addr is either a redis:// URL or a bare
// host:port. The connection is verified with PING before returning.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("auth: invalid REDIS_URL: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	client.AddHook(metricsHook{})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("auth: pinging redis: %w", err)
	}

	return client, nil
}

// metricsHook counts failed commands. redis.Nil is a normal miss, not a
// failure.
type metricsHook struct{}

func (metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			metrics.RedisErrorsTotal.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			metrics.RedisErrorsTotal.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}
