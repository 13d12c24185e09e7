// Package fifo implements first-in-first-out eviction.
package fifo

import (
	"github.com/IvanBrykalov/cachesim/cache"
)

// Name is the registry name of the policy.
const Name = "fifo"

// FIFO evicts in admission order. Hits never reorder the queue.
// Head is the newest object, tail the next victim.
type FIFO struct {
	cache.Base
	q cache.List
}

// New constructs a FIFO cache. FIFO takes no parameters.
func New(opt cache.Options) (*FIFO, error) {
	if err := cache.NoParams(Name, opt.Params); err != nil {
		return nil, err
	}
	f := &FIFO{}
	if err := f.Init(Name, opt); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FIFO) Get(req *cache.Request) bool { return cache.Get(f, req) }

// Check never promotes; update only re-accounts size and expires.
func (f *FIFO) Check(req *cache.Request, update bool) cache.Result {
	o, res := f.Lookup(req, update)
	if res == cache.Expired && update {
		f.unlink(o)
	}
	return res
}

// Insert links the new object at the head.
func (f *FIFO) Insert(req *cache.Request) *cache.Object {
	o := f.Admit(req)
	f.q.PushFront(o)
	return o
}

// Evict removes the oldest object.
func (f *FIFO) Evict(_ *cache.Request) *cache.Object {
	o := f.q.Back()
	if o == nil {
		panic("fifo: evict on empty cache")
	}
	f.unlink(o)
	return o
}

// ToEvict returns the oldest object (nil when empty).
func (f *FIFO) ToEvict(_ *cache.Request) (*cache.Object, error) {
	return f.q.Back(), nil
}

// Remove deletes id if resident.
func (f *FIFO) Remove(id cache.ObjID) bool {
	o, ok := f.Store().Find(id)
	if !ok {
		return false
	}
	f.unlink(o)
	return true
}

// Release detaches id and hands its record to the caller, or returns nil.
func (f *FIFO) Release(id cache.ObjID) *cache.Object {
	o, ok := f.Store().Find(id)
	if !ok {
		return nil
	}
	f.unlink(o)
	return o
}

// Adopt takes ownership of a record released by another instance and links
// it at the head. The caller must have made room.
func (f *FIFO) Adopt(o *cache.Object) {
	f.Attach(o)
	f.q.PushFront(o)
}

// Contains reports residency without touching TTL.
func (f *FIFO) Contains(id cache.ObjID) bool {
	_, ok := f.Store().Find(id)
	return ok
}

// Verify checks that the queue holds every resident object.
func (f *FIFO) Verify() error {
	return cache.VerifyList(&f.q, int(f.Len()))
}

func (f *FIFO) unlink(o *cache.Object) {
	f.q.Remove(o)
	f.Drop(o)
}

var _ cache.Cache = (*FIFO)(nil)
