// Package belady implements the offline optimal policy: evict the resident
// object whose next reference is furthest in the future. It needs requests
// annotated with NextAccess (see trace.Annotate or the oracle trace format).
package belady

import (
	"container/heap"

	"github.com/pkg/errors"

	"github.com/IvanBrykalov/cachesim/cache"
)

// Name is the registry name of the policy.
const Name = "belady"

// Belady keeps residents in a max-heap on next access time.
type Belady struct {
	cache.Base
	pq queue
}

// New constructs a Belady cache. It takes no parameters.
func New(opt cache.Options) (*Belady, error) {
	if err := cache.NoParams(Name, opt.Params); err != nil {
		return nil, err
	}
	b := &Belady{}
	if err := b.Init(Name, opt); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Belady) Get(req *cache.Request) bool { return cache.Get(b, req) }

// Check refreshes the next access time of a hit when update is set.
func (b *Belady) Check(req *cache.Request, update bool) cache.Result {
	o, res := b.Lookup(req, update)
	switch {
	case !update:
	case res == cache.Hit:
		m := meta(o)
		m.NextAccess = nextAccess(req)
		heap.Fix(&b.pq, m.Index)
	case res == cache.Expired:
		b.unlink(o)
	}
	return res
}

// CanInsert refuses objects that are never requested again; caching them
// can only displace something useful.
func (b *Belady) CanInsert(req *cache.Request) bool {
	if req.NextAccess == 0 {
		b.WarnOnce("request without next access time",
			"obj_id", req.ID, "vtime", req.VTime)
	}
	if nextAccess(req) == cache.NoNextAccess {
		return false
	}
	return b.Base.CanInsert(req)
}

func (b *Belady) Insert(req *cache.Request) *cache.Object {
	o := b.Admit(req)
	o.SetMeta(&cache.HeapMeta{NextAccess: nextAccess(req)})
	heap.Push(&b.pq, o)
	return o
}

// Evict removes the object referenced furthest in the future.
func (b *Belady) Evict(_ *cache.Request) *cache.Object {
	if len(b.pq) == 0 {
		panic("belady: evict on empty cache")
	}
	o := b.pq[0]
	b.unlink(o)
	return o
}

func (b *Belady) ToEvict(_ *cache.Request) (*cache.Object, error) {
	if len(b.pq) == 0 {
		return nil, nil
	}
	return b.pq[0], nil
}

func (b *Belady) Remove(id cache.ObjID) bool {
	o, ok := b.Store().Find(id)
	if !ok {
		return false
	}
	b.unlink(o)
	return true
}

// NextAccess returns the recorded next access time of a resident id.
func (b *Belady) NextAccess(id cache.ObjID) (int64, bool) {
	o, ok := b.Store().Find(id)
	if !ok {
		return 0, false
	}
	return meta(o).NextAccess, true
}

// Verify checks the heap order and index bookkeeping.
func (b *Belady) Verify() error {
	if len(b.pq) != int(b.Len()) {
		return errors.Errorf("%s: heap holds %d objects, %d resident", Name, len(b.pq), b.Len())
	}
	for i, o := range b.pq {
		if meta(o).Index != i {
			return errors.Errorf("%s: object %d at heap slot %d records index %d", Name, o.ID, i, meta(o).Index)
		}
		if i > 0 && b.pq.Less(i, (i-1)/2) {
			return errors.Errorf("%s: heap order broken at slot %d", Name, i)
		}
	}
	return nil
}

func (b *Belady) unlink(o *cache.Object) {
	heap.Remove(&b.pq, meta(o).Index)
	b.Drop(o)
}

func meta(o *cache.Object) *cache.HeapMeta { return o.Meta().(*cache.HeapMeta) }

// nextAccess maps an unknown next access (0) to never.
func nextAccess(req *cache.Request) int64 {
	if req.NextAccess <= 0 {
		return cache.NoNextAccess
	}
	return req.NextAccess
}

// queue is a max-heap on HeapMeta.NextAccess.
type queue []*cache.Object

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	return meta(q[i]).NextAccess > meta(q[j]).NextAccess
}

func (q queue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	meta(q[i]).Index = i
	meta(q[j]).Index = j
}

func (q *queue) Push(x any) {
	o := x.(*cache.Object)
	meta(o).Index = len(*q)
	*q = append(*q, o)
}

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	o := old[n-1]
	old[n-1] = nil
	meta(o).Index = -1
	*q = old[:n-1]
	return o
}

var _ cache.Cache = (*Belady)(nil)
