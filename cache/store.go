package cache

import (
	"math/rand/v2"

	"github.com/IvanBrykalov/cachesim/internal/util"
)

const (
	// defaultHashPower is log2 of the initial bucket count.
	defaultHashPower = 16
	// minHashPower bounds the table sized by hashPowerFor from below.
	minHashPower = 4
	// loadFactor is the average chain length that triggers doubling.
	loadFactor = 2
)

// Store is a chained hash table of Object records keyed by ObjID.
// Records are heap allocated and referenced by pointer, so growing the table
// relinks chains but never moves a record.
//
// Store is not safe for concurrent use; each cache instance owns one.
type Store struct {
	buckets []*Object
	n       int
}

// NewStore returns a table with 2^hashPower buckets (defaultHashPower if <= 0).
func NewStore(hashPower int) *Store {
	if hashPower <= 0 {
		hashPower = defaultHashPower
	}
	if hashPower > 30 {
		hashPower = 30
	}
	return &Store{buckets: make([]*Object, 1<<hashPower)}
}

// hashPowerFor sizes the initial table for the most objects a cache of
// capacity bytes can hold, capped at defaultHashPower. Small caches in a
// sweep then do not each allocate the default table.
func hashPowerFor(capacity, overhead int64) int {
	if capacity <= 0 {
		return defaultHashPower
	}
	maxObjs := uint64(capacity / (1 + overhead))
	hp := util.Log2Ceil(maxObjs / loadFactor)
	return min(max(hp, minHashPower), defaultHashPower)
}

// Len returns the number of records.
func (s *Store) Len() int { return s.n }

// Buckets returns the current bucket count.
func (s *Store) Buckets() int { return len(s.buckets) }

func (s *Store) bucket(id ObjID) int {
	return util.BucketIndex(util.HashID(uint64(id)), len(s.buckets))
}

// Find returns the record for id.
func (s *Store) Find(id ObjID) (*Object, bool) {
	for o := s.buckets[s.bucket(id)]; o != nil; o = o.hashNext {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

// Insert creates a record for req. Inserting an id that is already present
// is a programming error and panics.
func (s *Store) Insert(req *Request) *Object {
	o := &Object{
		ID:         req.ID,
		Size:       req.Size,
		CreateTime: req.VTime,
		LastAccess: req.VTime,
	}
	s.Adopt(o)
	return o
}

// Adopt links an existing record (e.g. one deleted from another instance's
// store). Adopting an id that is already present panics.
func (s *Store) Adopt(o *Object) {
	b := s.bucket(o.ID)
	for cur := s.buckets[b]; cur != nil; cur = cur.hashNext {
		if cur.ID == o.ID {
			panic("cache: duplicate insert of an object already in the store")
		}
	}
	o.hashNext = s.buckets[b]
	s.buckets[b] = o
	s.n++
	if s.n > loadFactor*len(s.buckets) {
		s.grow()
	}
}

// Delete unlinks o from the table. The record must already be detached from
// every list; deleting a linked or absent record panics.
func (s *Store) Delete(o *Object) {
	if o.list != nil {
		panic("cache: deleting a record that is still linked in a list")
	}
	b := s.bucket(o.ID)
	var prev *Object
	for cur := s.buckets[b]; cur != nil; prev, cur = cur, cur.hashNext {
		if cur != o {
			continue
		}
		if prev == nil {
			s.buckets[b] = cur.hashNext
		} else {
			prev.hashNext = cur.hashNext
		}
		o.hashNext = nil
		s.n--
		return
	}
	panic("cache: deleting a record that is not in the store")
}

// Sample returns a pseudo-random record, or nil if the table is empty.
// It probes linearly from a random bucket to the next non-empty one, so a
// sparse table costs at most one pass over the buckets.
func (s *Store) Sample(r *rand.Rand) *Object {
	if s.n == 0 {
		return nil
	}
	mask := len(s.buckets) - 1
	start := r.IntN(len(s.buckets))
	for i := 0; i < len(s.buckets); i++ {
		head := s.buckets[(start+i)&mask]
		if head == nil {
			continue
		}
		chain := 0
		for o := head; o != nil; o = o.hashNext {
			chain++
		}
		o := head
		for k := r.IntN(chain); k > 0; k-- {
			o = o.hashNext
		}
		return o
	}
	panic("cache: store count is positive but every bucket is empty")
}

// ForEach calls fn for every record until fn returns false.
// fn must not insert into or delete from the store.
func (s *Store) ForEach(fn func(*Object) bool) {
	for _, head := range s.buckets {
		for o := head; o != nil; {
			next := o.hashNext
			if !fn(o) {
				return
			}
			o = next
		}
	}
}

// grow doubles the bucket count and rechains every record.
func (s *Store) grow() {
	old := s.buckets
	s.buckets = make([]*Object, len(old)*2)
	for _, head := range old {
		for o := head; o != nil; {
			next := o.hashNext
			b := s.bucket(o.ID)
			o.hashNext = s.buckets[b]
			s.buckets[b] = o
			o = next
		}
	}
	if debugging {
		assert(util.IsPowerOfTwo(uint64(len(s.buckets))), "cache: bucket count is not a power of two")
		n := 0
		s.ForEach(func(*Object) bool { n++; return true })
		assert(n == s.n, "cache: record count changed while growing the store")
	}
}
