package cache

import (
	"github.com/go-kit/log"
)

// EvictReason explains why an object left the cache.
type EvictReason int

const (
	// EvictPolicy: chosen by the policy to make room for an admission.
	EvictPolicy EvictReason = iota
	// EvictTTL: expired, detected on access.
	EvictTTL
	// EvictCapacity: removed because a hit grew the object past capacity.
	EvictCapacity
)

func (r EvictReason) String() string {
	switch r {
	case EvictTTL:
		return "ttl"
	case EvictCapacity:
		return "capacity"
	default:
		return "policy"
	}
}

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int64, bytes int64)
}

// Options configures one cache instance. Zero values are safe apart from
// Capacity, which must be positive:
//   - nil Logger    => log.NewNopLogger()
//   - nil Metrics   => NoopMetrics
//   - HashPower <= 0 => sized from Capacity, at most 2^16 initial buckets
type Options struct {
	// Capacity in bytes, including per-object overhead.
	Capacity int64

	// Overhead is charged per resident object on top of its size.
	Overhead int64

	// DefaultTTL in seconds applies to requests without a TTL (0 = none).
	DefaultTTL int64

	// Params is the policy parameter string ("key=value;key=value").
	Params string

	// HashPower is log2 of the initial Store bucket count.
	HashPower int

	// Seed for the instance's random source (sampling policies).
	Seed uint64

	Logger  log.Logger
	Metrics Metrics
}

// Sub derives options for a sub-cache of a composite policy: same overhead
// and TTL, the given capacity, no parameters and no observability of its own.
func (o Options) Sub(capacity int64) Options {
	return Options{
		Capacity:   capacity,
		Overhead:   o.Overhead,
		DefaultTTL: o.DefaultTTL,
		HashPower:  o.HashPower,
		Seed:       o.Seed,
	}
}
