package cache

import (
	"github.com/pkg/errors"
)

// Get is the shared request path behind every policy's Get.
//
// On a hit the object may have grown; objects are evicted until the cache is
// back within capacity. On a miss (an expired object counts as one) the
// object is admitted if CanInsert allows it, after evicting until
// Occupied+size+overhead fits. Occupied never exceeds Capacity on return.
func Get(c Cache, req *Request) bool {
	b := c.base()
	b.nReq++

	switch c.Check(req, true) {
	case Hit:
		b.metrics.Hit()
		for c.Occupied() > c.Capacity() {
			c.Evict(req)
			b.metrics.Evict(EvictCapacity)
		}
		b.metrics.Size(c.Len(), c.Occupied())
		return true
	case Expired:
		b.metrics.Evict(EvictTTL)
	}
	b.metrics.Miss()

	if c.CanInsert(req) {
		for c.Occupied()+req.Size+b.overhead > c.Capacity() {
			c.Evict(req)
			b.metrics.Evict(EvictPolicy)
		}
		c.Insert(req)
	}
	b.metrics.Size(c.Len(), c.Occupied())
	return false
}

// Remove removes id from c on behalf of the request stream (a delete in the
// trace) and reports the new size to the metrics hooks.
func Remove(c Cache, id ObjID) bool {
	if !c.Remove(id) {
		return false
	}
	c.base().metrics.Size(c.Len(), c.Occupied())
	return true
}

// Verify checks the accounting invariants of c: Occupied equals the sum of
// size plus overhead over resident objects, Len equals their count, and
// Occupied does not exceed Capacity. Policies implementing Verifier are
// checked as well.
func Verify(c Cache) error {
	overhead := c.base().overhead
	var occupied, n int64
	c.ForEach(func(o *Object) bool {
		occupied += o.Size + overhead
		n++
		return true
	})
	if occupied != c.Occupied() {
		return errors.Errorf("%s: occupied %d, resident objects account for %d", c.Name(), c.Occupied(), occupied)
	}
	if n != c.Len() {
		return errors.Errorf("%s: len %d, %d resident objects", c.Name(), c.Len(), n)
	}
	if c.Occupied() > c.Capacity() {
		return errors.Errorf("%s: occupied %d exceeds capacity %d", c.Name(), c.Occupied(), c.Capacity())
	}
	if v, ok := c.(Verifier); ok {
		return v.Verify()
	}
	return nil
}

// Resident returns the ids of all resident objects in store order.
func Resident(c Cache) []ObjID {
	var ids []ObjID
	c.ForEach(func(o *Object) bool {
		ids = append(ids, o.ID)
		return true
	})
	return ids
}

// VerifyList checks that l holds exactly n members linked consistently in
// both directions.
func VerifyList(l *List, n int) error {
	if l.Len() != n {
		return errors.Errorf("list len %d, want %d", l.Len(), n)
	}
	count := 0
	var prev *Object
	for o := l.Front(); o != nil; o = o.next {
		if o.prev != prev || o.list != l {
			return errors.Errorf("broken link at object %d", o.ID)
		}
		prev = o
		count++
		if count > n {
			return errors.Errorf("list longer than its length %d (cycle?)", n)
		}
	}
	if count != n || l.Back() != prev {
		return errors.Errorf("walked %d members, len %d", count, n)
	}
	return nil
}
