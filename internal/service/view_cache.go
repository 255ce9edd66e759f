package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"hrms-backend/internal/core/cache"
	"hrms-backend/internal/domain"
)

// ViewCache 用户视图缓存；任何变更后必须 Invalidate
type ViewCache interface {
	GetOrLoad(ctx context.Context, userID string, load func(ctx context.Context) (*domain.UserView, error)) (*domain.UserView, error)
	Invalidate(ctx context.Context, userID string)
}

type redisViewCache struct {
	c   *cache.Cache
	ttl time.Duration
	log *zap.Logger
}

func NewRedisViewCache(c *cache.Cache, ttl time.Duration, log *zap.Logger) ViewCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &redisViewCache{c: c, ttl: ttl, log: log}
}

func userViewKey(id string) string { return "hrms:user:view:" + id }

func (r *redisViewCache) GetOrLoad(ctx context.Context, userID string, load func(ctx context.Context) (*domain.UserView, error)) (*domain.UserView, error) {
	return cache.GetOrLoadJSON[domain.UserView](r.c, ctx, userViewKey(userID), r.ttl, load)
}

func (r *redisViewCache) Invalidate(ctx context.Context, userID string) {
	if err := r.c.Delete(ctx, userViewKey(userID)); err != nil {
		r.log.Warn("invalidate user view", zap.String("user_id", userID), zap.Error(err))
	}
}
