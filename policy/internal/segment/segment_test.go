package segment

import (
	"math/rand/v2"
	"testing"

	"github.com/IvanBrykalov/cachesim/cache"
	"github.com/IvanBrykalov/cachesim/policy/fifo"
)

func newChain(t *testing.T, capacity int64, n int) *Chain {
	t.Helper()
	c, err := New(cache.Options{Capacity: capacity, HashPower: 4}, n, func(o cache.Options) (Queue, error) {
		q, err := fifo.New(o)
		if err != nil {
			return nil, err
		}
		return q, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func put(c *Chain, id cache.ObjID, size int64) {
	c.Insert(&cache.Request{ID: id, Size: size})
}

// Promoting a small object into a full top segment cascades: the top
// segment's victim is too large for the middle segment, whose victim in turn
// overflows the bottom one, so the bottom drains.
func TestChain_CoolingCascade(t *testing.T) {
	t.Parallel()

	c := newChain(t, 12, 3) // 4 bytes per segment
	put(c, 'a', 2)
	put(c, 'b', 2) // s0 full
	put(c, 'c', 1)
	put(c, 'd', 3) // s1 full
	put(c, 'e', 4) // s2 full

	if res, i := c.Check(&cache.Request{ID: 'c', Size: 1}, true); res != cache.Hit || i != 1 {
		t.Fatalf("c: %v in segment %d", res, i)
	}
	want := map[cache.ObjID]int{'d': 0, 'e': 1, 'c': 2, 'a': -1, 'b': -1}
	for id, seg := range want {
		if got := c.Index(id); got != seg {
			t.Fatalf("%c in segment %d, want %d", id, got, seg)
		}
	}
	if c.Occupied() != 8 || c.Objects() != 3 {
		t.Fatalf("occupied %d objects %d", c.Occupied(), c.Objects())
	}
	if err := c.Verify(); err != nil {
		t.Fatal(err)
	}
}

func TestChain_InsertFillsLowestWithRoom(t *testing.T) {
	t.Parallel()

	c := newChain(t, 4, 2)
	for id := cache.ObjID(1); id <= 4; id++ {
		put(c, id, 1)
	}
	if c.Index(1) != 0 || c.Index(2) != 0 || c.Index(3) != 1 || c.Index(4) != 1 {
		t.Fatal("objects must fill segment 0 first, then segment 1")
	}
	put(c, 5, 1) // all full: evict from the bottom
	if c.Index(1) != -1 || c.Index(5) != 0 {
		t.Fatal("the oldest object of segment 0 must make room")
	}
}

// Every cooling step removes a record from a segment, so random promotions
// with mixed sizes always terminate with consistent books.
func TestChain_RandomPromotions(t *testing.T) {
	t.Parallel()

	c := newChain(t, 60, 5)
	r := rand.New(rand.NewPCG(2, 3))
	for i := 0; i < 10_000; i++ {
		rq := &cache.Request{ID: cache.ObjID(r.IntN(40)), Size: int64(1 + r.IntN(12))}
		if res, _ := c.Check(rq, true); res == cache.Hit {
			continue
		}
		for c.Occupied()+rq.Size > 60 {
			c.Evict(rq)
		}
		c.Insert(rq)
		if err := c.Verify(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
}
