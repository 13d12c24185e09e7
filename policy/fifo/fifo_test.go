package fifo

import (
	"testing"

	"github.com/IvanBrykalov/cachesim/cache"
)

func newFIFO(t *testing.T, capacity int64) *FIFO {
	t.Helper()
	f, err := New(cache.Options{Capacity: capacity, HashPower: 4})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func get(f *FIFO, id cache.ObjID) bool {
	return f.Get(&cache.Request{ID: id, Size: 1})
}

// k distinct objects fill the cache; the (k+1)-th insert evicts the first,
// regardless of hits in between.
func TestFIFO_OrderLaw(t *testing.T) {
	t.Parallel()

	const k = 4
	f := newFIFO(t, k)
	for id := cache.ObjID(1); id <= k; id++ {
		if get(f, id) {
			t.Fatalf("first access to %d must miss", id)
		}
	}
	// Hits must not protect the first object.
	for i := 0; i < 3; i++ {
		if !get(f, 1) {
			t.Fatal("object 1 must be resident")
		}
	}
	get(f, k+1)
	if f.Check(&cache.Request{ID: 1, Size: 1}, false) != cache.Miss {
		t.Fatal("the first admitted object must be evicted first")
	}
	for id := cache.ObjID(2); id <= k+1; id++ {
		if f.Check(&cache.Request{ID: id, Size: 1}, false) != cache.Hit {
			t.Fatalf("object %d must still be resident", id)
		}
	}
	if err := cache.Verify(f); err != nil {
		t.Fatal(err)
	}
}

func TestFIFO_ToEvictMatchesEvict(t *testing.T) {
	t.Parallel()

	f := newFIFO(t, 10)
	for id := cache.ObjID(1); id <= 3; id++ {
		get(f, id)
	}
	next, err := f.ToEvict(nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Evict(nil); got != next || got.ID != 1 {
		t.Fatalf("Evict = %d, ToEvict said %d", got.ID, next.ID)
	}
}

func TestFIFO_ReleaseAdopt(t *testing.T) {
	t.Parallel()

	a, b := newFIFO(t, 10), newFIFO(t, 10)
	get(a, 7)
	o := a.Release(7)
	if o == nil || a.Len() != 0 || a.Occupied() != 0 {
		t.Fatal("release must detach and unaccount the record")
	}
	b.Adopt(o)
	if b.Len() != 1 || b.Occupied() != 1 {
		t.Fatal("adopt must account the record")
	}
	if got, _ := b.Store().Find(7); got != o {
		t.Fatal("adopted record must keep its identity")
	}
	if a.Release(7) != nil {
		t.Fatal("releasing an absent id must return nil")
	}
}

func TestFIFO_EvictEmptyPanics(t *testing.T) {
	t.Parallel()

	f := newFIFO(t, 10)
	defer func() {
		if recover() == nil {
			t.Fatal("evict on empty cache must panic")
		}
	}()
	f.Evict(nil)
}
