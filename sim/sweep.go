package sim

import (
	"context"
	"sort"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/cachesim/cache"
	"github.com/IvanBrykalov/cachesim/internal/singleflight"
	"github.com/IvanBrykalov/cachesim/internal/util"
	"github.com/IvanBrykalov/cachesim/policy"
	"github.com/IvanBrykalov/cachesim/trace"
)

// Job is one (policy, capacity) combination of a sweep.
type Job struct {
	Policy   string
	Params   string
	Capacity int64
}

// SweepOptions configures Sweep. Zero values are valid.
type SweepOptions struct {
	// Workers bounds concurrent jobs (<= 0: util.ReasonableWorkerCount).
	Workers int
	// Overhead, DefaultTTL, HashPower and Seed are passed to every cache.
	Overhead   int64
	DefaultTTL int64
	HashPower  int
	Seed       uint64
	Warmup     int64
	// Preload reads the trace into memory once and replays it from there
	// for every job.
	Preload bool
	Logger  log.Logger
	// Metrics, if set, returns the metrics sink of one job's cache
	// (prom.Adapter.For fits).
	Metrics func(policy string, capacity int64) cache.Metrics
}

// loads keys for the shared in-memory copies of a trace.
const (
	loadRaw       = "raw"
	loadAnnotated = "annotated"
)

// Sweep runs every job against its own replay of the trace and returns the
// results in job order. Jobs with an oracle policy replay an in-memory copy
// annotated with next access times; it is loaded once and shared.
// The first failing job cancels the rest.
func Sweep(ctx context.Context, open trace.Opener, jobs []Job, opt SweepOptions) ([]Stats, error) {
	logger := opt.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	workers := opt.Workers
	if workers <= 0 {
		workers = util.ReasonableWorkerCount(len(jobs))
	}

	var loads singleflight.Group[string, []cache.Request]
	load := func(ctx context.Context, annotate bool) ([]cache.Request, error) {
		raw, err := loads.Do(ctx, loadRaw, func() ([]cache.Request, error) {
			r, err := open()
			if err != nil {
				return nil, err
			}
			defer r.Close()
			return trace.ReadAll(r)
		})
		if err != nil || !annotate {
			return raw, err
		}
		return loads.Do(ctx, loadAnnotated, func() ([]cache.Request, error) {
			reqs := append([]cache.Request(nil), raw...)
			trace.Annotate(reqs)
			return reqs, nil
		})
	}

	results := make([]Stats, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		g.Go(func() error {
			copt := cache.Options{
				Capacity:   job.Capacity,
				Overhead:   opt.Overhead,
				DefaultTTL: opt.DefaultTTL,
				Params:     job.Params,
				HashPower:  opt.HashPower,
				Seed:       opt.Seed,
				Logger:     logger,
			}
			if opt.Metrics != nil {
				copt.Metrics = opt.Metrics(job.Policy, job.Capacity)
			}
			c, err := policy.New(job.Policy, copt)
			if err != nil {
				return err
			}

			var r trace.Reader
			switch oracle := policy.Oracle(job.Policy); {
			case oracle || opt.Preload:
				reqs, err := load(ctx, oracle)
				if err != nil {
					return errors.Wrap(err, "load trace")
				}
				r = trace.NewSlice(reqs)
			default:
				if r, err = open(); err != nil {
					return err
				}
			}
			defer r.Close()

			st, err := Run(ctx, c, r, RunOptions{Warmup: opt.Warmup})
			if err != nil {
				return err
			}
			st.Params = job.Params
			results[i] = st
			_ = level.Info(logger).Log("msg", "job done",
				"policy", st.Policy, "params", st.Params, "capacity", st.Capacity,
				"requests", st.Requests, "miss_ratio", st.MissRatio(), "duration", st.Duration)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ByPolicy groups results by policy (with params) and sorts every group by
// capacity.
func ByPolicy(results []Stats) map[string][]Stats {
	groups := lo.GroupBy(results, func(s Stats) string { return s.Label() })
	for _, g := range groups {
		sort.Slice(g, func(i, j int) bool { return g[i].Capacity < g[j].Capacity })
	}
	return groups
}

// Best returns, per capacity, the result with the lowest miss ratio.
func Best(results []Stats) map[int64]Stats {
	byCap := lo.GroupBy(results, func(s Stats) int64 { return s.Capacity })
	return lo.MapValues(byCap, func(group []Stats, _ int64) Stats {
		return lo.MinBy(group, func(a, b Stats) bool { return a.MissRatio() < b.MissRatio() })
	})
}

// Label names the policy and its parameters, e.g. "sfifo(n-seg=2)".
func (s Stats) Label() string {
	if s.Params == "" {
		return s.Policy
	}
	return s.Policy + "(" + s.Params + ")"
}
