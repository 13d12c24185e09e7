package policy_test

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"testing"

	arclib "github.com/hashicorp/golang-lru/arc/v2"
	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/cachesim/cache"
	"github.com/IvanBrykalov/cachesim/policy"
)

// workload returns n random requests with mixed sizes and TTLs, annotated
// with next access times so the oracle policy can run on it too.
func workload(seed uint64, n, keys int) []cache.Request {
	r := rand.New(rand.NewPCG(seed, seed+1))
	reqs := make([]cache.Request, n)
	for i := range reqs {
		reqs[i] = cache.Request{
			Time:  int64(i),
			VTime: int64(i + 1),
			ID:    cache.ObjID(r.IntN(keys)),
			Size:  int64(1 + r.IntN(8)),
			TTL:   int64(r.IntN(4) * 40),
		}
	}
	last := map[cache.ObjID]int64{}
	for i := len(reqs) - 1; i >= 0; i-- {
		reqs[i].NextAccess = cache.NoNextAccess
		if v, ok := last[reqs[i].ID]; ok {
			reqs[i].NextAccess = v
		}
		last[reqs[i].ID] = reqs[i].VTime
	}
	return reqs
}

func newPolicy(t testing.TB, name string, capacity int64) cache.Cache {
	t.Helper()
	c, err := policy.New(name, cache.Options{Capacity: capacity, Overhead: 2, HashPower: 6})
	require.NoError(t, err)
	return c
}

func TestNames(t *testing.T) {
	t.Parallel()

	names := policy.Names()
	require.True(t, sort.StringsAreSorted(names))
	require.Subset(t, names, []string{"arc", "belady", "fifo", "lfu", "lru", "random", "sfifo", "slru", "twoq"})
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	_, err := policy.New("clock-pro", cache.Options{Capacity: 10})
	require.ErrorIs(t, err, cache.ErrUnknownPolicy)

	for _, name := range policy.Names() {
		_, err := policy.New(name, cache.Options{Capacity: 100, Params: "no-such-key=1"})
		require.ErrorIs(t, err, cache.ErrUnknownParam, name)

		_, err = policy.New(name, cache.Options{Capacity: 0})
		require.ErrorIs(t, err, cache.ErrInvalidCapacity, name)
	}
}

func TestNew_AliasesAndCase(t *testing.T) {
	t.Parallel()

	c, err := policy.New("2Q", cache.Options{Capacity: 100})
	require.NoError(t, err)
	require.Equal(t, "twoq", c.Name())

	c, err = policy.New(" LRU ", cache.Options{Capacity: 100})
	require.NoError(t, err)
	require.Equal(t, "lru", c.Name())

	require.True(t, policy.Oracle("optimal"))
	require.False(t, policy.Oracle("lru"))
}

// Accounting and structural invariants hold after every step of a random
// workload, for every policy.
func TestPolicies_InvariantsUnderRandomOps(t *testing.T) {
	t.Parallel()

	for _, name := range policy.Names() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			c := newPolicy(t, name, 128)
			r := rand.New(rand.NewPCG(99, 100))
			for i, rq := range workload(7, 20_000, 120) {
				switch r.IntN(30) {
				case 0:
					c.Remove(rq.ID)
				case 1:
					if c.Len() == 0 {
						break
					}
					want, err := c.ToEvict(&rq)
					if errors.Is(err, cache.ErrToEvictUnsupported) {
						c.Evict(&rq)
						break
					}
					require.NoError(t, err)
					got := c.Evict(&rq)
					require.Equal(t, want.ID, got.ID, "step %d", i)
				default:
					c.Get(&rq)
				}
				if err := cache.Verify(c); err != nil {
					t.Fatalf("step %d: %v", i, err)
				}
			}
		})
	}
}

// A query without update changes nothing.
func TestPolicies_CheckWithoutUpdateIsPure(t *testing.T) {
	t.Parallel()

	for _, name := range policy.Names() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			c := newPolicy(t, name, 96)
			reqs := workload(3, 3_000, 60)
			for i := range reqs {
				rq := &reqs[i]
				c.Get(rq)
				if i%10 != 0 {
					continue
				}
				before := cache.Resident(c)
				occupied, n := c.Occupied(), c.Len()
				probe := *rq
				probe.ID = cache.ObjID(i % 60)
				first := c.Check(&probe, false)
				require.Equal(t, first, c.Check(&probe, false), "step %d", i)
				require.ElementsMatch(t, before, cache.Resident(c), "step %d", i)
				require.Equal(t, occupied, c.Occupied())
				require.Equal(t, n, c.Len())
			}
		})
	}
}

// Remove deletes a resident id exactly once.
func TestPolicies_RemoveLaw(t *testing.T) {
	t.Parallel()

	for _, name := range policy.Names() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			c := newPolicy(t, name, 96)
			for _, rq := range workload(11, 2_000, 40) {
				c.Get(&rq)
			}
			for _, id := range cache.Resident(c) {
				occupied := c.Occupied()
				require.True(t, c.Remove(id))
				require.False(t, c.Remove(id))
				require.Equal(t, cache.Miss, c.Check(&cache.Request{ID: id, Size: 1, Time: 1 << 40}, false))
				require.Less(t, c.Occupied(), occupied)
				require.NoError(t, cache.Verify(c))
			}
			require.EqualValues(t, 0, c.Len())
			require.EqualValues(t, 0, c.Occupied())
		})
	}
}

// An object that fits is resident right after its miss.
func TestPolicies_MissAdmits(t *testing.T) {
	t.Parallel()

	for _, name := range policy.Names() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			c := newPolicy(t, name, 400)
			for id := cache.ObjID(1); id <= 50; id++ {
				rq := &cache.Request{ID: id, Size: 4, VTime: int64(id), NextAccess: int64(id) + 1000}
				require.False(t, c.Get(rq))
				require.Equal(t, cache.Hit, c.Check(rq, false), "id %d", id)
			}
		})
	}
}

// Objects larger than the cache are never admitted and nothing is evicted
// for them.
func TestPolicies_OversizeRejected(t *testing.T) {
	t.Parallel()

	for _, name := range policy.Names() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			c := newPolicy(t, name, 100)
			small := &cache.Request{ID: 1, Size: 4, VTime: 1, NextAccess: 3}
			c.Get(small)
			big := &cache.Request{ID: 2, Size: 200, VTime: 2, NextAccess: 4}
			require.False(t, c.Get(big))
			require.Equal(t, cache.Miss, c.Check(big, false))
			require.Equal(t, cache.Hit, c.Check(small, false))
		})
	}
}

func BenchmarkPolicies_Get(b *testing.B) {
	reqs := workload(1, 1<<16, 1<<12)
	for _, name := range policy.Names() {
		b.Run(name, func(b *testing.B) {
			c := newPolicy(b, name, 4<<10)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				rq := reqs[i&(len(reqs)-1)]
				rq.Time = 0
				c.Get(&rq)
			}
		})
	}
}

// Reference point: hashicorp's object-count ARC on the same key stream.
func BenchmarkHashicorpARC_Get(b *testing.B) {
	reqs := workload(1, 1<<16, 1<<12)
	for _, size := range []int{256, 1024} {
		b.Run(fmt.Sprint(size), func(b *testing.B) {
			c, err := arclib.NewARC[cache.ObjID, struct{}](size)
			if err != nil {
				b.Fatal(err)
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				id := reqs[i&(len(reqs)-1)].ID
				if _, ok := c.Get(id); !ok {
					c.Add(id, struct{}{})
				}
			}
		})
	}
}
