package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/verpflegung/meal-api/internal/models"
)

const planCachePrefix = "weekplan:"

// cachedWeekPlanRepo is a read-through Redis cache in front of another
// WeekPlanRepository. Cache failures are logged and never fail a request.
type cachedWeekPlanRepo struct {
	next WeekPlanRepository
	rdb  *redis.Client
	ttl  time.Duration
	log  zerolog.Logger
}

// NewCachedWeekPlanRepo wraps next with a Redis read cache
func NewCachedWeekPlanRepo(next WeekPlanRepository, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) WeekPlanRepository {
	return &cachedWeekPlanRepo{
		next: next,
		rdb:  rdb,
		ttl:  ttl,
		log:  log.With().Str("component", "weekplan_cache").Logger(),
	}
}

// Save drops the cached plan before and after writing, so a read that lands
// in between cannot leave the old plan cached.
func (r *cachedWeekPlanRepo) Save(ctx context.Context, plan *models.WeekPlan) error {
	r.invalidate(ctx, plan.Key())
	if err := r.next.Save(ctx, plan); err != nil {
		return err
	}
	r.invalidate(ctx, plan.Key())
	return nil
}

func (r *cachedWeekPlanRepo) invalidate(ctx context.Context, planKey string) {
	if err := r.rdb.Del(ctx, planCachePrefix+planKey).Err(); err != nil {
		r.log.Warn().Err(err).Str("plan", planKey).Msg("Failed to invalidate cached plan")
	}
}

func (r *cachedWeekPlanRepo) Get(ctx context.Context, year, week int) (*models.WeekPlan, error) {
	key := planCachePrefix + models.PlanKey(year, week)

	if plan, ok := r.lookup(ctx, key); ok {
		return plan, nil
	}

	plan, err := r.next.Get(ctx, year, week)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(plan)
	if err == nil {
		err = r.rdb.Set(ctx, key, data, r.ttl).Err()
	}
	if err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("Failed to cache plan")
	}
	return plan, nil
}

func (r *cachedWeekPlanRepo) Exists(ctx context.Context, year, week int) (bool, error) {
	n, err := r.rdb.Exists(ctx, planCachePrefix+models.PlanKey(year, week)).Result()
	if err == nil && n > 0 {
		return true, nil
	}
	return r.next.Exists(ctx, year, week)
}

// lookup returns a cached plan. Entries that do not decode to seven days are
// dropped and read again from the store.
func (r *cachedWeekPlanRepo) lookup(ctx context.Context, key string) (*models.WeekPlan, bool) {
	data, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn().Err(err).Str("key", key).Msg("Plan cache read failed")
		}
		return nil, false
	}

	var plan models.WeekPlan
	if err := json.Unmarshal(data, &plan); err != nil || len(plan.Days) != models.DaysPerWeek {
		r.rdb.Del(ctx, key)
		return nil, false
	}

	r.log.Debug().Str("key", key).Msg("Plan cache hit")
	return &plan, true
}
