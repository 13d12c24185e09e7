package prom

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/IvanBrykalov/cachesim/cache"
)

// Adapter exports cache signals as Prometheus counters and gauges labeled by
// policy and capacity, so one registry serves a whole size sweep.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	hits     *prometheus.CounterVec
	misses   *prometheus.CounterVec
	evicts   *prometheus.CounterVec
	sizeEnt  *prometheus.GaugeVec
	sizeByte *prometheus.GaugeVec
}

// New constructs a Prometheus metrics adapter.
//   - reg:     registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub: Prometheus namespace and subsystem
func New(reg prometheus.Registerer, ns, sub string) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	labels := []string{"policy", "capacity"}
	a := &Adapter{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "hits_total",
			Help:      "Cache hits",
		}, labels),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "misses_total",
			Help:      "Cache misses",
		}, labels),
		evicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "evictions_total",
			Help:      "Cache evictions by reason",
		}, append(labels, "reason")),
		sizeEnt: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "size_entries",
			Help:      "Number of resident objects",
		}, labels),
		sizeByte: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "size_bytes",
			Help:      "Occupied bytes including per-object overhead",
		}, labels),
	}
	reg.MustRegister(a.hits, a.misses, a.evicts, a.sizeEnt, a.sizeByte)
	return a
}

// For returns the cache.Metrics of one (policy, capacity) instance.
func (a *Adapter) For(policy string, capacity int64) cache.Metrics {
	l := prometheus.Labels{"policy": policy, "capacity": strconv.FormatInt(capacity, 10)}
	return &instance{
		hits:     a.hits.With(l),
		misses:   a.misses.With(l),
		evicts:   a.evicts.MustCurryWith(l),
		sizeEnt:  a.sizeEnt.With(l),
		sizeByte: a.sizeByte.With(l),
	}
}

// instance holds the label-bound children so the request path does no
// label lookups except for the eviction reason.
type instance struct {
	hits     prometheus.Counter
	misses   prometheus.Counter
	evicts   *prometheus.CounterVec
	sizeEnt  prometheus.Gauge
	sizeByte prometheus.Gauge
}

func (m *instance) Hit()  { m.hits.Inc() }
func (m *instance) Miss() { m.misses.Inc() }

// Evict increments the eviction counter with a reason label.
func (m *instance) Evict(r cache.EvictReason) {
	m.evicts.WithLabelValues(r.String()).Inc()
}

// Size updates the gauges for resident objects and occupied bytes.
func (m *instance) Size(entries int64, bytes int64) {
	m.sizeEnt.Set(float64(entries))
	m.sizeByte.Set(float64(bytes))
}

// Compile-time check: ensure instance implements cache.Metrics.
var _ cache.Metrics = (*instance)(nil)
