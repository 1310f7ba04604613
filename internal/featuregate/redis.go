package featuregate

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisProvider reads flags from Redis. Per-actor overrides live under
// feature:<flag>:actor:<actor> and win over the global feature:<flag> value.
// A flag with no key at all falls back to defaultOn.
type RedisProvider struct {
	client    *redis.Client
	defaultOn bool
}

func NewRedisProvider(client *redis.Client, defaultOn bool) *RedisProvider {
	return &RedisProvider{client: client, defaultOn: defaultOn}
}

func (p *RedisProvider) Enabled(ctx context.Context, flag, actor string) (bool, error) {
	if actor != "" {
		val, err := p.client.Get(ctx, fmt.Sprintf("feature:%s:actor:%s", flag, actor)).Result()
		if err == nil {
			return val == "true" || val == "1", nil
		}
		if !errors.Is(err, redis.Nil) {
			return false, fmt.Errorf("read actor flag %s: %w", flag, err)
		}
	}

	val, err := p.client.Get(ctx, fmt.Sprintf("feature:%s", flag)).Result()
	if errors.Is(err, redis.Nil) {
		return p.defaultOn, nil
	}
	if err != nil {
		return false, fmt.Errorf("read flag %s: %w", flag, err)
	}
	return val == "true" || val == "1", nil
}
