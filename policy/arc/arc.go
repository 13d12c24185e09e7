// Package arc implements Adaptive Replacement Cache on top of four LRU
// sub-caches: T1 (seen once), T2 (seen at least twice) and their ghost lists
// B1 and B2, which remember recently evicted identifiers without payload.
//
// A ghost hit in B1 grows the target size p of T1, a ghost hit in B2 shrinks
// it, and the re-admitted object goes straight to T2. Sizes are in bytes, so
// objects of different sizes are weighed accordingly.
package arc

import (
	"github.com/pkg/errors"

	"github.com/IvanBrykalov/cachesim/cache"
	"github.com/IvanBrykalov/cachesim/policy/lru"
)

// Name is the registry name of the policy.
const Name = "arc"

// ARC is an adaptive replacement cache. An identifier is a member of at most
// one of T1, T2, B1, B2 at any time.
type ARC struct {
	cache.Base

	t1, t2 *lru.LRU
	b1, b2 *lru.LRU

	// p is the target size of T1 in bytes.
	p float64

	// Set by Check on a ghost hit; consumed by Insert/Evict of the same request.
	inB1, inB2 bool
	ghostHitAt int64
}

// New constructs an ARC cache.
//
// Parameters:
//   - ghost-list-factor: each ghost list holds up to factor*capacity/2 bytes
//     of identifiers (default 2, i.e. one cache worth per ghost list).
func New(opt cache.Options) (*ARC, error) {
	params, err := cache.ParseParams(opt.Params)
	if err != nil {
		return nil, errors.Wrap(err, Name)
	}
	factor, err := params.Float("ghost-list-factor", 2)
	if err != nil {
		return nil, errors.Wrap(err, Name)
	}
	if err := params.Finish(Name); err != nil {
		return nil, err
	}
	if factor < 0 {
		return nil, errors.Wrapf(cache.ErrInvalidParam, "%s: ghost-list-factor must be >= 0, got %v", Name, factor)
	}

	a := &ARC{ghostHitAt: -1}
	if err := a.Init(Name, opt); err != nil {
		return nil, err
	}
	ghost := int64(factor * float64(opt.Capacity) / 2)
	if ghost < 1 {
		ghost = 1
	}
	subs := []struct {
		dst      **lru.LRU
		capacity int64
	}{
		{&a.t1, opt.Capacity},
		{&a.t2, opt.Capacity},
		{&a.b1, ghost},
		{&a.b2, ghost},
	}
	for _, s := range subs {
		if *s.dst, err = lru.New(opt.Sub(s.capacity)); err != nil {
			return nil, errors.Wrap(err, Name)
		}
	}
	return a, nil
}

func (a *ARC) Get(req *cache.Request) bool { return cache.Get(a, req) }

// Check looks in T1 then T2. With update, a T1 hit moves the object to the
// head of T2, a T2 hit refreshes it there, and a miss consults the ghost
// lists to adapt p.
func (a *ARC) Check(req *cache.Request, update bool) cache.Result {
	in := a.t1
	res := a.t1.Check(req, false)
	if res == cache.Miss {
		in = a.t2
		res = a.t2.Check(req, false)
	}
	if !update {
		return res
	}

	switch res {
	case cache.Expired:
		in.Remove(req.ID)
		return cache.Expired
	case cache.Hit:
		in.Check(req, true)
		if in == a.t1 {
			a.t2.Adopt(a.t1.Release(req.ID))
		}
		return cache.Hit
	}

	a.inB1, a.inB2 = false, false
	b1, b2 := float64(a.b1.Occupied()), float64(a.b2.Occupied())
	switch {
	case a.b1.Contains(req.ID):
		a.inB1 = true
		a.p = min(a.p+max(b2/b1, 1), float64(a.Capacity()))
		a.b1.Remove(req.ID)
	case a.b2.Contains(req.ID):
		a.inB2 = true
		a.p = max(a.p-max(b1/b2, 1), 0)
		a.b2.Remove(req.ID)
	default:
		return cache.Miss
	}
	a.ghostHitAt = a.Requests()
	return cache.Miss
}

// ghostPending reports whether the request being processed hit a ghost list.
func (a *ARC) ghostPending() bool {
	return a.ghostHitAt == a.Requests() && (a.inB1 || a.inB2)
}

// Insert admits to T2 after a ghost hit and to T1 otherwise.
func (a *ARC) Insert(req *cache.Request) *cache.Object {
	if a.ghostPending() {
		a.inB1, a.inB2 = false, false
		a.ghostHitAt = -1
		return a.t2.Insert(req)
	}
	return a.t1.Insert(req)
}

// Evict moves one object from T1 or T2 to its ghost list and returns the
// record, which from then on only tracks the identifier.
func (a *ARC) Evict(req *cache.Request) *cache.Object {
	if a.T1Len()+a.T2Len() == 0 {
		panic("arc: evict on empty cache")
	}
	if a.ghostPending() {
		return a.replace(req)
	}
	return a.evictMiss(req)
}

// ToEvict names the object Evict would demote next.
func (a *ARC) ToEvict(req *cache.Request) (*cache.Object, error) {
	if a.T1Len()+a.T2Len() == 0 {
		return nil, nil
	}
	if !a.ghostPending() && a.l1Full(req) && a.b1.Len() == 0 && a.t1.Len() > 0 {
		return a.t1.ToEvict(req)
	}
	// Trimming the ghost lists first does not change the choice.
	if a.replaceFromT1() {
		return a.t1.ToEvict(req)
	}
	return a.t2.ToEvict(req)
}

// Remove deletes id from T1 or T2. Ghost entries are not resident and stay.
func (a *ARC) Remove(id cache.ObjID) bool {
	return a.t1.Remove(id) || a.t2.Remove(id)
}

func (a *ARC) Occupied() int64 { return a.t1.Occupied() + a.t2.Occupied() }
func (a *ARC) Len() int64      { return a.t1.Len() + a.t2.Len() }

// ForEach visits resident objects of T1 then T2.
func (a *ARC) ForEach(fn func(*cache.Object) bool) {
	stop := false
	a.t1.ForEach(func(o *cache.Object) bool {
		stop = !fn(o)
		return !stop
	})
	if !stop {
		a.t2.ForEach(fn)
	}
}

func (a *ARC) T1Len() int64 { return a.t1.Len() }
func (a *ARC) T2Len() int64 { return a.t2.Len() }

// P returns the current target size of T1 in bytes.
func (a *ARC) P() float64 { return a.p }

// l1Full reports whether T1 and B1 together leave no room for req.
func (a *ARC) l1Full(req *cache.Request) bool {
	incoming := req.Size + a.Overhead()
	return a.t1.Occupied()+a.b1.Occupied()+incoming > a.Capacity()
}

// evictMiss handles a request found in none of the four lists.
func (a *ARC) evictMiss(req *cache.Request) *cache.Object {
	if a.l1Full(req) {
		if a.b1.Len() > 0 {
			a.b1.Evict(req)
			return a.replace(req)
		}
		if a.t1.Len() > 0 {
			// T1 alone fills the cache; drop its LRU without a ghost.
			return a.t1.Evict(req)
		}
	}
	total := func() int64 {
		return a.t1.Occupied() + a.b1.Occupied() + a.t2.Occupied() + a.b2.Occupied()
	}
	for total() >= 2*a.Capacity() && a.b2.Len() > 0 {
		a.b2.Evict(req)
	}
	return a.replace(req)
}

func (a *ARC) replaceFromT1() bool {
	t1 := a.t1.Occupied()
	if a.t2.Occupied() == 0 {
		return true
	}
	return t1 > 0 && (float64(t1) > a.p || (float64(t1) == a.p && a.inB2 && a.ghostPending()))
}

// replace demotes the LRU of T1 into B1 or the LRU of T2 into B2.
func (a *ARC) replace(req *cache.Request) *cache.Object {
	if a.replaceFromT1() {
		return a.demote(a.t1, a.b1, req)
	}
	return a.demote(a.t2, a.b2, req)
}

func (a *ARC) demote(from, ghost *lru.LRU, req *cache.Request) *cache.Object {
	victim, _ := from.ToEvict(req)
	o := from.Release(victim.ID)
	need := o.Size + ghost.Overhead()
	if need > ghost.Capacity() {
		return o
	}
	for ghost.Occupied()+need > ghost.Capacity() {
		ghost.Evict(req)
	}
	ghost.Adopt(o)
	return o
}

// Verify checks the sub-caches and that the four lists are disjoint.
func (a *ARC) Verify() error {
	lists := []struct {
		name string
		l    *lru.LRU
	}{{"T1", a.t1}, {"T2", a.t2}, {"B1", a.b1}, {"B2", a.b2}}
	owner := map[cache.ObjID]string{}
	for _, x := range lists {
		if err := cache.Verify(x.l); err != nil {
			return errors.Wrapf(err, "arc %s", x.name)
		}
		var err error
		x.l.ForEach(func(o *cache.Object) bool {
			if prev, dup := owner[o.ID]; dup {
				err = errors.Errorf("arc: object %d in both %s and %s", o.ID, prev, x.name)
				return false
			}
			owner[o.ID] = x.name
			return true
		})
		if err != nil {
			return err
		}
	}
	if a.p < 0 || a.p > float64(a.Capacity()) {
		return errors.Errorf("arc: p=%v outside [0, %d]", a.p, a.Capacity())
	}
	return nil
}

var _ cache.Cache = (*ARC)(nil)
