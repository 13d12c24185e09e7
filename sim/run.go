// Package sim drives caches with traces: Run replays one trace against one
// cache instance, Sweep replays it against many (policy, capacity) jobs in
// parallel, each job with its own reader and its own instance.
package sim

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/IvanBrykalov/cachesim/cache"
	"github.com/IvanBrykalov/cachesim/trace"
)

// checkEvery is how many requests Run processes between context checks.
const checkEvery = 1 << 12

// RunOptions tunes a replay.
type RunOptions struct {
	// Warmup is how many leading lookups are applied to the cache but not
	// counted. Deletes do not count towards it.
	Warmup int64
}

// Stats summarises one replay. Request and miss counters exclude warmup
// and delete requests.
type Stats struct {
	Policy   string
	Params   string
	Capacity int64

	Requests     int64
	RequestBytes int64
	Misses       int64
	MissBytes    int64

	// Objects and Occupied describe the cache at the end of the replay.
	Objects  int64
	Occupied int64

	Duration time.Duration
}

// MissRatio is Misses/Requests (0 for an empty replay).
func (s Stats) MissRatio() float64 {
	if s.Requests == 0 {
		return 0
	}
	return float64(s.Misses) / float64(s.Requests)
}

// ByteMissRatio is MissBytes/RequestBytes (0 for an empty replay).
func (s Stats) ByteMissRatio() float64 {
	if s.RequestBytes == 0 {
		return 0
	}
	return float64(s.MissBytes) / float64(s.RequestBytes)
}

// Run replays r against c until io.EOF or ctx is done. Each request gets a
// VTime equal to its 1-based position in the trace. Delete requests remove
// the object and are not counted.
func Run(ctx context.Context, c cache.Cache, r trace.Reader, opt RunOptions) (Stats, error) {
	st := Stats{Policy: c.Name(), Capacity: c.Capacity()}
	start := time.Now()
	var req cache.Request
	var lookups int64
	for n := int64(0); ; n++ {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return st, err
			}
		}
		err := r.Read(&req)
		if err == io.EOF {
			break
		}
		if err != nil {
			return st, errors.Wrapf(err, "%s: request %d", c.Name(), n+1)
		}
		req.VTime = n + 1

		if req.Op == cache.OpDelete {
			cache.Remove(c, req.ID)
			continue
		}
		hit := c.Get(&req)
		if lookups++; lookups <= opt.Warmup {
			continue
		}
		st.Requests++
		st.RequestBytes += req.Size
		if !hit {
			st.Misses++
			st.MissBytes += req.Size
		}
	}
	st.Objects = c.Len()
	st.Occupied = c.Occupied()
	st.Duration = time.Since(start)
	return st, nil
}
