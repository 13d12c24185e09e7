// Package lfu implements least-frequently-used eviction with frequency
// buckets. Objects of equal frequency leave in the order they reached it,
// and an evicted object's count is forgotten.
package lfu

import (
	"github.com/dolthub/swiss"
	"github.com/pkg/errors"

	"github.com/IvanBrykalov/cachesim/cache"
)

// Name is the registry name of the policy.
const Name = "lfu"

// bucket holds the objects sharing one frequency, oldest at the front.
type bucket struct {
	freq int64
	q    cache.List
}

// LFU keeps a map from frequency to bucket and the smallest frequency with
// a non-empty bucket. Empty buckets are deleted, so every bucket in the map
// holds at least one object.
type LFU struct {
	cache.Base
	buckets *swiss.Map[int64, *bucket]
	minFreq int64
	maxFreq int64
}

// New constructs an LFU cache. LFU takes no parameters.
func New(opt cache.Options) (*LFU, error) {
	if err := cache.NoParams(Name, opt.Params); err != nil {
		return nil, err
	}
	l := &LFU{buckets: swiss.NewMap[int64, *bucket](64)}
	if err := l.Init(Name, opt); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *LFU) Get(req *cache.Request) bool { return cache.Get(l, req) }

// Check increments the frequency of a hit when update is set and moves the
// object to the back of its new bucket.
func (l *LFU) Check(req *cache.Request, update bool) cache.Result {
	o, res := l.Lookup(req, update)
	switch {
	case !update:
	case res == cache.Hit:
		l.bump(o)
	case res == cache.Expired:
		l.unlink(o)
	}
	return res
}

// Insert places the new object at the back of the frequency-1 bucket.
func (l *LFU) Insert(req *cache.Request) *cache.Object {
	o := l.Admit(req)
	o.SetMeta(&cache.FreqMeta{Freq: 1})
	l.bucketFor(1).q.PushBack(o)
	l.minFreq = 1
	return o
}

// Evict removes the oldest object of the minimum frequency.
func (l *LFU) Evict(_ *cache.Request) *cache.Object {
	o := l.victim()
	if o == nil {
		panic("lfu: evict on empty cache")
	}
	l.unlink(o)
	return o
}

// ToEvict returns the next victim (nil when empty).
func (l *LFU) ToEvict(_ *cache.Request) (*cache.Object, error) {
	return l.victim(), nil
}

// Remove deletes id if resident.
func (l *LFU) Remove(id cache.ObjID) bool {
	o, ok := l.Store().Find(id)
	if !ok {
		return false
	}
	l.unlink(o)
	return true
}

// Freq returns the access count of a resident object (0 if absent).
func (l *LFU) Freq(id cache.ObjID) int64 {
	o, ok := l.Store().Find(id)
	if !ok {
		return 0
	}
	return freqOf(o).Freq
}

func freqOf(o *cache.Object) *cache.FreqMeta {
	return o.Meta().(*cache.FreqMeta)
}

func (l *LFU) victim() *cache.Object {
	b, ok := l.buckets.Get(l.minFreq)
	if !ok {
		return nil
	}
	return b.q.Front()
}

func (l *LFU) bucketFor(freq int64) *bucket {
	if b, ok := l.buckets.Get(freq); ok {
		return b
	}
	b := &bucket{freq: freq}
	l.buckets.Put(freq, b)
	if freq > l.maxFreq {
		l.maxFreq = freq
	}
	return b
}

func (l *LFU) bump(o *cache.Object) {
	m := freqOf(o)
	old, _ := l.buckets.Get(m.Freq)
	old.q.Remove(o)
	m.Freq++
	l.bucketFor(m.Freq).q.PushBack(o)
	if old.q.Len() == 0 {
		l.buckets.Delete(old.freq)
		if l.minFreq == old.freq {
			l.minFreq = m.Freq
		}
	}
}

// unlink detaches o from its bucket and the store, keeping minFreq on a
// non-empty bucket.
func (l *LFU) unlink(o *cache.Object) {
	m := freqOf(o)
	b, _ := l.buckets.Get(m.Freq)
	b.q.Remove(o)
	l.Drop(o)
	if b.q.Len() > 0 {
		return
	}
	l.buckets.Delete(b.freq)
	if b.freq == l.minFreq {
		l.rescanMin()
	}
}

// rescanMin walks upward from the old minimum to the next populated bucket.
func (l *LFU) rescanMin() {
	if l.buckets.Count() == 0 {
		l.minFreq, l.maxFreq = 0, 0
		return
	}
	for f := l.minFreq + 1; f <= l.maxFreq; f++ {
		if l.buckets.Has(f) {
			l.minFreq = f
			return
		}
	}
	panic("lfu: buckets are populated but none lies above the old minimum")
}

// Verify checks bucket membership, bucket counts and the minimum pointer.
func (l *LFU) Verify() error {
	var total int64
	var err error
	lowest := int64(-1)
	l.buckets.Iter(func(freq int64, b *bucket) bool {
		if b.q.Len() == 0 {
			err = errors.Errorf("lfu: empty bucket %d kept", freq)
			return true
		}
		if e := cache.VerifyList(&b.q, b.q.Len()); e != nil {
			err = errors.Wrapf(e, "lfu: bucket %d", freq)
			return true
		}
		for o := b.q.Front(); o != nil; o = b.q.Next(o) {
			if freqOf(o).Freq != freq {
				err = errors.Errorf("lfu: object %d with freq %d in bucket %d", o.ID, freqOf(o).Freq, freq)
				return true
			}
		}
		if lowest < 0 || freq < lowest {
			lowest = freq
		}
		total += int64(b.q.Len())
		return false
	})
	if err != nil {
		return err
	}
	if total != l.Len() {
		return errors.Errorf("lfu: buckets hold %d objects, len %d", total, l.Len())
	}
	if total > 0 && lowest != l.minFreq {
		return errors.Errorf("lfu: min freq %d, lowest bucket %d", l.minFreq, lowest)
	}
	return nil
}

var _ cache.Cache = (*LFU)(nil)
