// Package tzoffset abstracts UTC-offset lookups behind a small provider
// interface so the suggestion engine never touches a concrete timezone
// facility directly. The Locations provider owns its own cache of loaded
// zones; there is no package-level state.
package tzoffset

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Provider resolves the UTC offset, in minutes, of a zone at a given instant.
// Implementations must treat unknown zone identifiers as UTC rather than
// failing.
type Provider interface {
	OffsetMinutes(at time.Time, zoneID string) int
}

// UTC is the trivial provider: every zone is UTC.
type UTC struct{}

// OffsetMinutes always returns zero.
func (UTC) OffsetMinutes(time.Time, string) int { return 0 }

const defaultCacheSize = 32

// Locations resolves offsets through the IANA database via time.LoadLocation,
// memoizing loaded zones in an instance-owned LRU cache.
type Locations struct {
	cache *lru.Cache[string, *time.Location]
}

// NewLocations constructs a Locations provider. cacheSize falls back to a
// small default when not positive.
func NewLocations(cacheSize int) *Locations {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, *time.Location](cacheSize)
	if err != nil {
		// lru.New only fails on a non-positive size, which is guarded above.
		panic(err)
	}
	return &Locations{cache: cache}
}

// OffsetMinutes returns the zone's UTC offset at the given instant. Unknown
// or empty zone identifiers resolve to UTC.
func (p *Locations) OffsetMinutes(at time.Time, zoneID string) int {
	loc := p.location(zoneID)
	_, offsetSeconds := at.In(loc).Zone()
	return offsetSeconds / 60
}

func (p *Locations) location(zoneID string) *time.Location {
	if zoneID == "" || zoneID == "UTC" {
		return time.UTC
	}
	if loc, ok := p.cache.Get(zoneID); ok {
		return loc
	}
	loc, err := time.LoadLocation(zoneID)
	if err != nil {
		loc = time.UTC
	}
	p.cache.Add(zoneID, loc)
	return loc
}
