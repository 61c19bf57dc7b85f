package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// CachedCatalog puts a Redis cache-aside layer in front of another catalog.
// Concurrent misses for the same variant share one upstream call.
// Values may be up to ttl old, so order pricing reads the upstream catalog directly.
type CachedCatalog struct {
	next  CatalogInterface
	rdb   *redis.Client
	ttl   time.Duration
	group singleflight.Group
}

func NewCachedCatalog(next CatalogInterface, rdb *redis.Client, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{
		next: next,
		rdb:  rdb,
		ttl:  ttl,
	}
}

func variantCacheKey(productID, variantID string) string {
	return fmt.Sprintf("variant:%s:%s", productID, variantID)
}

func (c *CachedCatalog) GetVariant(ctx context.Context, productID, variantID string) (*domain.Variant, error) {
	key := variantCacheKey(productID, variantID)

	cached, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v domain.Variant
		if err := json.Unmarshal(cached, &v); err == nil {
			return &v, nil
		}
		logger.Warn().Str("key", key).Msg("dropping undecodable cached variant")
	case !errors.Is(err, redis.Nil):
		// a cache outage must not stop checkout
		logger.Warn().Err(err).Str("key", key).Msg("redis get failed")
	}

	res, err, _ := c.group.Do(key, func() (any, error) {
		// the flight is shared, one caller going away must not fail the others
		fctx := context.WithoutCancel(ctx)

		v, err := c.next.GetVariant(fctx, productID, variantID)
		if err != nil || v == nil {
			return v, err
		}
		c.store(fctx, key, v, c.ttl)
		return v, nil
	})
	if err != nil {
		return nil, err
	}

	v, _ := res.(*domain.Variant)
	if v == nil {
		return nil, nil
	}

	// callers sharing a flight must not share the pointer
	clone := *v
	return &clone, nil
}

// Warmup preloads variants into the cache with a longer ttl. Failures are logged and skipped.
func (c *CachedCatalog) Warmup(ctx context.Context, lines []domain.CartLine) error {
	for _, line := range lines {
		v, err := c.next.GetVariant(ctx, line.ProductID, line.VariantID)
		if err != nil {
			logger.Warn().Err(err).Str("variant_id", line.VariantID).Msg("failed to warm up catalog cache")
			continue
		}
		if v != nil {
			c.store(ctx, variantCacheKey(line.ProductID, line.VariantID), v, 5*c.ttl)
		}
	}

	return ctx.Err()
}

func (c *CachedCatalog) store(ctx context.Context, key string, v *domain.Variant, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("redis set failed")
	}
}
