package redis

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/rcr/internal/domain/network"
	"github.com/turtacn/rcr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/rcr/pkg/errors"
)

// nullMarker records a value known to have no equivalent.
const nullMarker = "__null__"

// store is the subset of *Client used by CachedResolver.
type store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedResolver fronts an EquivalenceResolver with Redis. Both hits and
// misses of the underlying resolver are cached. Cache failures are logged
// and fall through to the resolver.
type CachedResolver struct {
	next    network.EquivalenceResolver
	cache   store
	logger  logging.Logger
	prefix  string
	ttl     time.Duration
	nullTTL time.Duration
	group   singleflight.Group
}

var _ network.EquivalenceResolver = (*CachedResolver)(nil)

type CacheOption func(*CachedResolver)

func WithPrefix(prefix string) CacheOption {
	return func(c *CachedResolver) { c.prefix = prefix }
}

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *CachedResolver) { c.ttl = ttl }
}

// WithNullTTL sets the lifetime of cached misses. It defaults to the TTL.
func WithNullTTL(ttl time.Duration) CacheOption {
	return func(c *CachedResolver) { c.nullTTL = ttl }
}

// NewCachedResolver wraps next with a cache held in client.
func NewCachedResolver(client *Client, next network.EquivalenceResolver, log logging.Logger, opts ...CacheOption) (*CachedResolver, error) {
	if client == nil {
		return nil, errors.New(errors.ErrCodeMissingCollaborator, "cached resolver requires a redis client")
	}
	return newCachedResolver(client, next, log, opts...)
}

func newCachedResolver(s store, next network.EquivalenceResolver, log logging.Logger, opts ...CacheOption) (*CachedResolver, error) {
	if next == nil {
		return nil, errors.New(errors.ErrCodeMissingCollaborator, "cached resolver requires an underlying resolver")
	}
	c := &CachedResolver{
		next:   next,
		cache:  s,
		logger: logging.OrDefault(log),
		prefix: "rcr:",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.nullTTL == 0 {
		c.nullTTL = c.ttl
	}
	return c, nil
}

func (c *CachedResolver) key(namespace, value string) string {
	return c.prefix + "equiv:" + strings.ToUpper(namespace) + ":" + value
}

// ResolveCanonicalID implements network.EquivalenceResolver.
func (c *CachedResolver) ResolveCanonicalID(ctx context.Context, namespace, value string) (string, bool, error) {
	key := c.key(namespace, value)

	cached, err := c.cache.Get(ctx, key).Result()
	switch {
	case err == nil:
		if cached == nullMarker {
			return "", false, nil
		}
		return cached, true, nil
	case !stderrors.Is(err, redis.Nil):
		c.logger.Warn("equivalence cache read failed", logging.String("key", key), logging.Err(err))
	}

	type resolved struct {
		id    string
		found bool
	}
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		id, found, err := c.next.ResolveCanonicalID(ctx, namespace, value)
		if err != nil {
			return nil, err
		}
		stored, ttl := id, c.ttl
		if !found {
			stored, ttl = nullMarker, c.nullTTL
		}
		if err := c.cache.Set(ctx, key, stored, ttl).Err(); err != nil {
			c.logger.Warn("equivalence cache write failed", logging.String("key", key), logging.Err(err))
		}
		return resolved{id: id, found: found}, nil
	})
	if err != nil {
		return "", false, err
	}
	r := v.(resolved)
	return r.id, r.found, nil
}
