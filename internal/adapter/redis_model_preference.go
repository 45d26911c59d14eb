package adapter

import (
	"context"
	"errors"

	"wiki-quiz/internal/cache"
	"wiki-quiz/internal/domain"
)

// RedisModelPreference shares the last working model between replicas.
type RedisModelPreference struct {
	store domain.Cache
	key   string
}

func NewRedisModelPreference(store domain.Cache) *RedisModelPreference {
	return &RedisModelPreference{store: store, key: cache.ModelPreferenceKey()}
}

// Preferred returns "" when no model has been remembered.
func (p *RedisModelPreference) Preferred(ctx context.Context) (string, error) {
	model, err := p.store.Get(ctx, p.key)
	if errors.Is(err, domain.ErrCacheMiss) {
		return "", nil
	}
	return model, err
}

// Remember stores model without expiry.
func (p *RedisModelPreference) Remember(ctx context.Context, model string) error {
	return p.store.Set(ctx, p.key, model, 0)
}

var _ domain.ModelPreference = (*RedisModelPreference)(nil)
