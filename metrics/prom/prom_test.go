package prom

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/cachesim/cache"
	"github.com/IvanBrykalov/cachesim/policy/lru"
)

func TestAdapter_CountsPerInstance(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	a := New(reg, "cachesim", "sim")

	m1 := a.For("lru", 100)
	m2 := a.For("fifo", 100)
	m1.Hit()
	m1.Hit()
	m1.Miss()
	m2.Miss()
	m1.Evict(cache.EvictPolicy)
	m1.Evict(cache.EvictTTL)
	m1.Size(3, 42)

	require.Equal(t, 2.0, testutil.ToFloat64(a.hits.WithLabelValues("lru", "100")))
	require.Equal(t, 1.0, testutil.ToFloat64(a.misses.WithLabelValues("fifo", "100")))
	require.Equal(t, 1.0, testutil.ToFloat64(a.evicts.WithLabelValues("lru", "100", "ttl")))
	require.Equal(t, 42.0, testutil.ToFloat64(a.sizeByte.WithLabelValues("lru", "100")))

	expected := `
# HELP cachesim_sim_size_entries Number of resident objects
# TYPE cachesim_sim_size_entries gauge
cachesim_sim_size_entries{capacity="100",policy="fifo"} 0
cachesim_sim_size_entries{capacity="100",policy="lru"} 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "cachesim_sim_size_entries"))
}

// The adapter plugs into a cache through Options.Metrics.
func TestAdapter_WiredIntoCache(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	a := New(reg, "", "")
	c, err := lru.New(cache.Options{Capacity: 2, Metrics: a.For(lru.Name, 2)})
	require.NoError(t, err)

	for _, id := range []cache.ObjID{1, 2, 1, 3} {
		c.Get(&cache.Request{ID: id, Size: 1})
	}
	require.Equal(t, 1.0, testutil.ToFloat64(a.hits.WithLabelValues("lru", "2")))
	require.Equal(t, 3.0, testutil.ToFloat64(a.misses.WithLabelValues("lru", "2")))
	require.Equal(t, 1.0, testutil.ToFloat64(a.evicts.WithLabelValues("lru", "2", "policy")))
	require.Equal(t, 2.0, testutil.ToFloat64(a.sizeEnt.WithLabelValues("lru", "2")))
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	New(reg, "x", "y")
	require.Panics(t, func() { New(reg, "x", "y") })
}
