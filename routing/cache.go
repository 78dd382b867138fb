package routing

import (
	"context"
	"time"

	"github.com/Bucknalla/go-route-simulator/gps"
	"github.com/Bucknalla/go-route-simulator/log"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedSource memoizes the routes of another RouteSource. Failed lookups
// are not cached.
type CachedSource struct {
	source gps.RouteSource
	cache  *expirable.LRU[string, []gps.SimulationPoint]
	lg     *log.Logger
}

func NewCachedSource(source gps.RouteSource, size int, ttl time.Duration, lg *log.Logger) *CachedSource {
	return &CachedSource{
		source: source,
		cache:  expirable.NewLRU[string, []gps.SimulationPoint](size, nil, ttl),
		lg:     lg,
	}
}

// PlanRoute returns the cached route when present. The returned slice is
// shared with the cache and must not be modified.
func (c *CachedSource) PlanRoute(ctx context.Context, origin, destination gps.Coordinate) ([]gps.SimulationPoint, error) {
	key := origin.String() + "|" + destination.String()
	if points, ok := c.cache.Get(key); ok {
		c.lg.Debugf("route cache hit for %s", key)
		return points, nil
	}

	points, err := c.source.PlanRoute(ctx, origin, destination)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, points)
	return points, nil
}

// Len returns the number of cached routes.
func (c *CachedSource) Len() int { return c.cache.Len() }
