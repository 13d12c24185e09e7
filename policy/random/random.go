// Package random implements random eviction: the victim is a record sampled
// from the object store with the instance's random source.
package random

import (
	"github.com/pkg/errors"

	"github.com/IvanBrykalov/cachesim/cache"
)

// Name is the registry name of the policy.
const Name = "random"

// Random keeps no ordering; every resident object is equally likely to be
// evicted, modulo hash chain skew.
type Random struct {
	cache.Base

	// next is the candidate chosen by ToEvict, reused by Evict while it is
	// still resident.
	next *cache.Object
}

// New constructs a random-eviction cache.
//
// Parameters:
//   - seed: seed of the sampling source (default Options.Seed)
func New(opt cache.Options) (*Random, error) {
	params, err := cache.ParseParams(opt.Params)
	if err != nil {
		return nil, errors.Wrap(err, Name)
	}
	if opt.Seed, err = params.Uint64("seed", opt.Seed); err != nil {
		return nil, errors.Wrap(err, Name)
	}
	if err := params.Finish(Name); err != nil {
		return nil, err
	}
	r := &Random{}
	if err := r.Init(Name, opt); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Random) Get(req *cache.Request) bool { return cache.Get(r, req) }

func (r *Random) Check(req *cache.Request, update bool) cache.Result {
	o, res := r.Lookup(req, update)
	if res == cache.Expired && update {
		r.drop(o)
	}
	return res
}

func (r *Random) Insert(req *cache.Request) *cache.Object { return r.Admit(req) }

// Evict removes the pending ToEvict candidate, or a fresh sample.
func (r *Random) Evict(req *cache.Request) *cache.Object {
	o, _ := r.ToEvict(req)
	if o == nil {
		panic("random: evict on empty cache")
	}
	r.drop(o)
	return o
}

// ToEvict samples a victim and remembers it so the next Evict agrees.
func (r *Random) ToEvict(_ *cache.Request) (*cache.Object, error) {
	if r.next != nil {
		if o, ok := r.Store().Find(r.next.ID); ok && o == r.next {
			return o, nil
		}
	}
	r.next = r.Store().Sample(r.Rand())
	return r.next, nil
}

func (r *Random) Remove(id cache.ObjID) bool {
	o, ok := r.Store().Find(id)
	if !ok {
		return false
	}
	r.drop(o)
	return true
}

func (r *Random) drop(o *cache.Object) {
	if o == r.next {
		r.next = nil
	}
	r.Drop(o)
}

var _ cache.Cache = (*Random)(nil)
