package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/daleribragimov115-spec/my-website/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	activeReviewsKey    = "reviews:active"
	activeReviewsGenKey = "reviews:active:gen"
)

// ReviewCache holds the public listing between writes. Implementations must
// treat every failure as a miss.
//
// Version is read before the store is queried; SetActive only stores the
// result if no Invalidate happened in between, so a slow listing can never
// put back a snapshot older than the latest write. A negative version means
// the cache could not be read and nothing will be stored.
type ReviewCache interface {
	GetActive(ctx context.Context) ([]*models.Review, bool)
	Version(ctx context.Context) int64
	SetActive(ctx context.Context, reviews []*models.Review, version int64)
	Invalidate(ctx context.Context)
}

type NoopCache struct{}

func (NoopCache) GetActive(context.Context) ([]*models.Review, bool)  { return nil, false }
func (NoopCache) Version(context.Context) int64                       { return -1 }
func (NoopCache) SetActive(context.Context, []*models.Review, int64) {}
func (NoopCache) Invalidate(context.Context)                          {}

type RedisCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewRedisCache(rdb redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (rc *RedisCache) GetActive(ctx context.Context) ([]*models.Review, bool) {
	raw, err := rc.rdb.Get(ctx, activeReviewsKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("review cache read failed")
		}
		return nil, false
	}

	var reviews []*models.Review
	if err := json.Unmarshal(raw, &reviews); err != nil {
		log.Warn().Err(err).Msg("review cache entry is corrupt")
		return nil, false
	}
	return reviews, true
}

func (rc *RedisCache) Version(ctx context.Context) int64 {
	v, err := rc.rdb.Get(ctx, activeReviewsGenKey).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0
	case err != nil:
		log.Warn().Err(err).Msg("review cache version read failed")
		return -1
	}
	return v
}

func (rc *RedisCache) SetActive(ctx context.Context, reviews []*models.Review, version int64) {
	if version < 0 {
		return
	}
	raw, err := json.Marshal(reviews)
	if err != nil {
		return
	}

	err = rc.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, activeReviewsGenKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, activeReviewsKey, raw, rc.ttl)
			return nil
		})
		return err
	}, activeReviewsGenKey)
	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		log.Warn().Err(err).Msg("review cache write failed")
	}
}

func (rc *RedisCache) Invalidate(ctx context.Context) {
	_, err := rc.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, activeReviewsGenKey)
		pipe.Del(ctx, activeReviewsKey)
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("review cache invalidation failed")
	}
}
