package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/terminal-bench/civicfix/internal/cache"
	"github.com/terminal-bench/civicfix/internal/models"
)

// CachedGeocoder memoizes successful lookups. Coordinates are rounded to
// five decimal places (~1m) for the key, so nearby GPS jitter still hits.
// Cache failures never fail a lookup.
type CachedGeocoder struct {
	next  Geocoder
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedGeocoder wraps a geocoder with a TTL cache.
func NewCachedGeocoder(next Geocoder, c cache.Cache, ttl time.Duration) *CachedGeocoder {
	return &CachedGeocoder{next: next, cache: c, ttl: ttl}
}

// Reverse returns a cached address when available, otherwise delegates and
// stores the result.
func (g *CachedGeocoder) Reverse(ctx context.Context, lat, lon float64) (models.Address, error) {
	key := fmt.Sprintf("geocode:%.5f,%.5f", lat, lon)

	if data, found := g.cache.Get(ctx, key); found {
		var addr models.Address
		if err := json.Unmarshal(data, &addr); err == nil {
			return addr, nil
		}
	}

	addr, err := g.next.Reverse(ctx, lat, lon)
	if err != nil {
		return models.Address{}, err
	}

	if data, err := json.Marshal(addr); err == nil {
		_ = g.cache.Set(ctx, key, data, g.ttl)
	}

	return addr, nil
}
