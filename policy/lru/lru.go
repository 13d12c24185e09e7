// Package lru implements the LRU eviction policy.
package lru

import "github.com/IvanBrykalov/cachesim/cache"

// Name is the registry name of the policy.
const Name = "lru"

// LRU is a classic "move-to-front" Least-Recently-Used policy.
// Head is the most recently used object, tail the next victim.
type LRU struct {
	cache.Base
	q cache.List
}

// New constructs an LRU cache. LRU takes no parameters.
func New(opt cache.Options) (*LRU, error) {
	if err := cache.NoParams(Name, opt.Params); err != nil {
		return nil, err
	}
	l := &LRU{}
	if err := l.Init(Name, opt); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *LRU) Get(req *cache.Request) bool { return cache.Get(l, req) }

// Check promotes a hit to the head when update is set.
func (l *LRU) Check(req *cache.Request, update bool) cache.Result {
	o, res := l.Lookup(req, update)
	switch {
	case !update:
	case res == cache.Hit:
		l.q.MoveToFront(o)
	case res == cache.Expired:
		l.unlink(o)
	}
	return res
}

// Insert places the new object at the head.
func (l *LRU) Insert(req *cache.Request) *cache.Object {
	o := l.Admit(req)
	l.q.PushFront(o)
	return o
}

// Evict removes the least recently used object.
func (l *LRU) Evict(_ *cache.Request) *cache.Object {
	o := l.q.Back()
	if o == nil {
		panic("lru: evict on empty cache")
	}
	l.unlink(o)
	return o
}

// ToEvict returns the least recently used object (nil when empty).
func (l *LRU) ToEvict(_ *cache.Request) (*cache.Object, error) {
	return l.q.Back(), nil
}

// Remove deletes id if resident.
func (l *LRU) Remove(id cache.ObjID) bool {
	return l.Release(id) != nil
}

// Release detaches id and hands its record to the caller, or returns nil.
func (l *LRU) Release(id cache.ObjID) *cache.Object {
	o, ok := l.Store().Find(id)
	if !ok {
		return nil
	}
	l.unlink(o)
	return o
}

// Adopt takes ownership of a record released by another instance and makes
// it the most recently used. The caller must have made room.
func (l *LRU) Adopt(o *cache.Object) {
	l.Attach(o)
	l.q.PushFront(o)
}

// Contains reports residency without touching recency or TTL.
func (l *LRU) Contains(id cache.ObjID) bool {
	_, ok := l.Store().Find(id)
	return ok
}

// Verify checks that the recency list holds every resident object.
func (l *LRU) Verify() error {
	return cache.VerifyList(&l.q, int(l.Len()))
}

func (l *LRU) unlink(o *cache.Object) {
	l.q.Remove(o)
	l.Drop(o)
}

var _ cache.Cache = (*LRU)(nil)
