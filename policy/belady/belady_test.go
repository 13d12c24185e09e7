package belady

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/cachesim/cache"
)

func newBelady(t *testing.T, capacity int64) *Belady {
	t.Helper()
	b, err := New(cache.Options{Capacity: capacity, HashPower: 4})
	require.NoError(t, err)
	return b
}

// annotated builds unit-size requests for ids with VTime starting at 1 and
// NextAccess filled in.
func annotated(ids ...cache.ObjID) []*cache.Request {
	reqs := make([]*cache.Request, len(ids))
	last := map[cache.ObjID]int{}
	for i := len(ids) - 1; i >= 0; i-- {
		r := &cache.Request{ID: ids[i], Size: 1, VTime: int64(i + 1), NextAccess: cache.NoNextAccess}
		if j, ok := last[ids[i]]; ok {
			r.NextAccess = int64(j + 1)
		}
		last[ids[i]] = i
		reqs[i] = r
	}
	return reqs
}

func TestBelady_EvictsFurthestNextAccess(t *testing.T) {
	t.Parallel()

	const a, b, c = 'A', 'B', 'C'
	x := newBelady(t, 2)
	var hits []bool
	for _, r := range annotated(a, b, c, a, c, b) {
		hits = append(hits, x.Get(r))
		require.NoError(t, cache.Verify(x))
	}
	require.Equal(t, []bool{false, false, false, true, true, false}, hits)
	require.ElementsMatch(t, []cache.ObjID{a, c}, cache.Resident(x))
}

func TestBelady_NeverReusedIsNotAdmitted(t *testing.T) {
	t.Parallel()

	x := newBelady(t, 4)
	x.Get(&cache.Request{ID: 1, Size: 1, VTime: 1, NextAccess: cache.NoNextAccess})
	require.EqualValues(t, 0, x.Len())

	x.Get(&cache.Request{ID: 2, Size: 1, VTime: 2})
	require.EqualValues(t, 0, x.Len(), "unknown next access counts as never")
}

func TestBelady_HitRefreshesNextAccess(t *testing.T) {
	t.Parallel()

	x := newBelady(t, 4)
	x.Get(&cache.Request{ID: 1, Size: 1, VTime: 1, NextAccess: 3})
	x.Get(&cache.Request{ID: 1, Size: 1, VTime: 3, NextAccess: 10})
	next, ok := x.NextAccess(1)
	require.True(t, ok)
	require.EqualValues(t, 10, next)
}

// Belady never misses more than LRU on the same annotated stream.
func TestBelady_NoWorseThanLRUOrder(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewPCG(1, 2))
	ids := make([]cache.ObjID, 5000)
	for i := range ids {
		ids[i] = cache.ObjID(r.IntN(40))
	}
	x := newBelady(t, 10)
	misses := 0
	for _, rq := range annotated(ids...) {
		if !x.Get(rq) {
			misses++
		}
		if err := cache.Verify(x); err != nil {
			t.Fatal(err)
		}
	}

	// Reference LRU by hand.
	var order []cache.ObjID
	lruMisses := 0
	for _, id := range ids {
		pos := -1
		for i, v := range order {
			if v == id {
				pos = i
				break
			}
		}
		if pos >= 0 {
			order = append(order[:pos], order[pos+1:]...)
		} else {
			lruMisses++
			if len(order) == 10 {
				order = order[1:]
			}
		}
		order = append(order, id)
	}
	require.LessOrEqual(t, misses, lruMisses)
}

func TestBelady_RemoveAndToEvict(t *testing.T) {
	t.Parallel()

	x := newBelady(t, 4)
	for i, next := range []int64{50, 20, 90, 10} {
		x.Get(&cache.Request{ID: cache.ObjID(i), Size: 1, VTime: int64(i + 1), NextAccess: next})
	}
	o, err := x.ToEvict(nil)
	require.NoError(t, err)
	require.Equal(t, cache.ObjID(2), o.ID)

	require.True(t, x.Remove(2))
	require.False(t, x.Remove(2))
	require.NoError(t, cache.Verify(x))
	require.Equal(t, cache.ObjID(0), x.Evict(nil).ID)
	require.NoError(t, cache.Verify(x))
}

func TestBelady_RejectsParams(t *testing.T) {
	t.Parallel()

	_, err := New(cache.Options{Capacity: 4, Params: "seed=1"})
	require.ErrorIs(t, err, cache.ErrUnknownParam)
}
