package sim

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/IvanBrykalov/cachesim/cache"
	"github.com/IvanBrykalov/cachesim/policy"
	"github.com/IvanBrykalov/cachesim/trace"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func unit(ids ...cache.ObjID) []cache.Request {
	reqs := make([]cache.Request, len(ids))
	for i, id := range ids {
		reqs[i] = cache.Request{ID: id, Size: 10, Op: cache.OpGet}
	}
	return reqs
}

func newCache(t *testing.T, name string, capacity int64) cache.Cache {
	t.Helper()
	c, err := policy.New(name, cache.Options{Capacity: capacity, HashPower: 4})
	require.NoError(t, err)
	return c
}

func TestRun_CountsAndWarmup(t *testing.T) {
	t.Parallel()

	const a, b, c, d = 1, 2, 3, 4
	reqs := unit(a, b, c, a, d)

	st, err := Run(context.Background(), newCache(t, "lru", 30), trace.NewSlice(reqs), RunOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 5, st.Requests)
	assert.EqualValues(t, 4, st.Misses)
	assert.EqualValues(t, 50, st.RequestBytes)
	assert.EqualValues(t, 40, st.MissBytes)
	assert.EqualValues(t, 3, st.Objects)
	assert.EqualValues(t, 30, st.Occupied)
	assert.InDelta(t, 0.8, st.MissRatio(), 1e-9)
	assert.Equal(t, "lru", st.Policy)

	st, err = Run(context.Background(), newCache(t, "lru", 30), trace.NewSlice(reqs), RunOptions{Warmup: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, st.Requests)
	assert.EqualValues(t, 2, st.Misses)
}

func TestRun_DeleteRemovesWithoutCounting(t *testing.T) {
	t.Parallel()

	reqs := unit(1, 2, 1, 1)
	reqs[2].Op = cache.OpDelete
	c := newCache(t, "fifo", 100)
	st, err := Run(context.Background(), c, trace.NewSlice(reqs), RunOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, st.Requests)
	assert.EqualValues(t, 3, st.Misses, "the object was deleted before its second get")
}

func TestRun_WarmupCountsLookupsOnly(t *testing.T) {
	t.Parallel()

	reqs := unit(9, 1, 2, 1)
	reqs[0].Op = cache.OpDelete
	st, err := Run(context.Background(), newCache(t, "lru", 100), trace.NewSlice(reqs), RunOptions{Warmup: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 1, st.Requests)
	assert.EqualValues(t, 0, st.Misses)
}

// Annotated next access times reach the oracle policy through Run.
func TestRun_VirtualTimeMatchesAnnotate(t *testing.T) {
	t.Parallel()

	reqs := unit(1, 2, 3, 1, 3, 2)
	trace.Annotate(reqs)
	st, err := Run(context.Background(), newCache(t, "belady", 20), trace.NewSlice(reqs), RunOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 4, st.Misses)
}

func TestRun_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, newCache(t, "lru", 10), trace.NewSlice(unit(1)), RunOptions{})
	require.ErrorIs(t, err, context.Canceled)
}

type failingReader struct{ after int }

func (f *failingReader) Read(req *cache.Request) error {
	if f.after == 0 {
		return errors.New("disk on fire")
	}
	f.after--
	*req = cache.Request{ID: 1, Size: 1}
	return nil
}

func (f *failingReader) Close() error { return nil }

func TestRun_ReaderError(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), newCache(t, "lru", 10), &failingReader{after: 3}, RunOptions{})
	require.ErrorContains(t, err, "disk on fire")
	require.ErrorContains(t, err, "request 4")
}

func zipfOpener(maxSize int64) trace.Opener {
	return trace.ZipfOpener(trace.ZipfOptions{
		Requests: 20_000, Keys: 2_000, S: 1.1, V: 1, MinSize: 1, MaxSize: maxSize, Seed: 9,
	})
}

func sweepJobs() []Job {
	var jobs []Job
	for _, name := range policy.Names() {
		for _, capacity := range []int64{512, 2048, 8192} {
			jobs = append(jobs, Job{Policy: name, Capacity: capacity})
		}
	}
	return append(jobs, Job{Policy: "sfifo", Params: "n-seg=2", Capacity: 2048})
}

func zeroDurations(st []Stats) []Stats {
	for i := range st {
		st[i].Duration = 0
	}
	return st
}

// Parallel and sequential sweeps agree job by job: instances share nothing.
// Meant to be run with -race as well.
func TestSweep_ParallelMatchesSequential(t *testing.T) {
	t.Parallel()

	jobs := sweepJobs()
	par, err := Sweep(context.Background(), zipfOpener(16), jobs, SweepOptions{Workers: 8, Overhead: 4})
	require.NoError(t, err)
	seq, err := Sweep(context.Background(), zipfOpener(16), jobs, SweepOptions{Workers: 1, Overhead: 4})
	require.NoError(t, err)
	require.Equal(t, zeroDurations(seq), zeroDurations(par))

	for i, st := range par {
		require.Equal(t, jobs[i].Policy, st.Policy)
		require.Equal(t, jobs[i].Capacity, st.Capacity)
		require.EqualValues(t, 20_000, st.Requests)
		require.LessOrEqual(t, st.Occupied, st.Capacity)
	}
}

// With unit sizes the oracle policy misses least at every capacity.
func TestSweep_BeladyIsBest(t *testing.T) {
	t.Parallel()

	var jobs []Job
	for _, name := range []string{"belady", "lru", "fifo", "arc", "lfu"} {
		for _, capacity := range []int64{64, 256} {
			jobs = append(jobs, Job{Policy: name, Capacity: capacity})
		}
	}
	res, err := Sweep(context.Background(), zipfOpener(1), jobs, SweepOptions{})
	require.NoError(t, err)

	best := Best(res)
	require.Len(t, best, 2)
	for capacity, st := range best {
		require.Equal(t, "belady", st.Policy, "capacity %d", capacity)
	}

	groups := ByPolicy(res)
	require.Len(t, groups, 5)
	lru := groups["lru"]
	require.Len(t, lru, 2)
	require.Less(t, lru[0].Capacity, lru[1].Capacity)
	require.GreaterOrEqual(t, lru[0].MissRatio(), lru[1].MissRatio())
}

// Preloading reads the trace once for all jobs.
func TestSweep_PreloadOpensOnce(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	opens := 0
	inner := zipfOpener(16)
	open := func() (trace.Reader, error) {
		mu.Lock()
		opens++
		mu.Unlock()
		return inner()
	}
	jobs := sweepJobs()
	_, err := Sweep(context.Background(), open, jobs, SweepOptions{Preload: true, Workers: 4})
	require.NoError(t, err)
	require.Equal(t, 1, opens)

	opens = 0
	_, err = Sweep(context.Background(), open, jobs[:3], SweepOptions{Workers: 2})
	require.NoError(t, err)
	require.Equal(t, 3, opens)
}

type countingMetrics struct {
	mu   sync.Mutex
	hits map[string]int
}

func (m *countingMetrics) For(policy string, capacity int64) cache.Metrics {
	return &jobMetrics{parent: m, key: policy}
}

type jobMetrics struct {
	cache.NoopMetrics
	parent *countingMetrics
	key    string
	n      int
}

func (j *jobMetrics) Hit() {
	j.n++
	j.parent.mu.Lock()
	j.parent.hits[j.key]++
	j.parent.mu.Unlock()
}

func TestSweep_MetricsAndErrors(t *testing.T) {
	t.Parallel()

	m := &countingMetrics{hits: map[string]int{}}
	res, err := Sweep(context.Background(), zipfOpener(16), []Job{{Policy: "lru", Capacity: 4096}}, SweepOptions{Metrics: m.For})
	require.NoError(t, err)
	require.EqualValues(t, res[0].Requests-res[0].Misses, m.hits["lru"])

	_, err = Sweep(context.Background(), zipfOpener(16), []Job{{Policy: "lru", Capacity: 64}, {Policy: "nope", Capacity: 64}}, SweepOptions{})
	require.ErrorIs(t, err, cache.ErrUnknownPolicy)

	_, err = Sweep(context.Background(), zipfOpener(16), []Job{{Policy: "lru", Params: "x=1", Capacity: 64}}, SweepOptions{})
	require.ErrorIs(t, err, cache.ErrUnknownParam)
}
