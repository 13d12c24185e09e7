// Package slru implements segmented LRU: N LRU segments of equal size.
// A hit moves an object one segment up (to the head of the top segment once
// there), and full segments cool their least recently used object down.
package slru

import (
	"github.com/IvanBrykalov/cachesim/cache"
	"github.com/IvanBrykalov/cachesim/policy/internal/segment"
	"github.com/IvanBrykalov/cachesim/policy/lru"
)

// Name is the registry name of the policy.
const Name = "slru"

// SLRU is a chain of lru segments, lowest first.
type SLRU struct {
	cache.Base
	chain *segment.Chain
}

// New constructs a slru cache.
//
// Parameters:
//   - n-seg: number of segments (default 4); each holds capacity/n-seg bytes.
func New(opt cache.Options) (*SLRU, error) {
	n, err := segment.ParseSegments(Name, opt)
	if err != nil {
		return nil, err
	}
	s := &SLRU{}
	if err := s.Init(Name, opt); err != nil {
		return nil, err
	}
	s.chain, err = segment.New(opt, n, func(o cache.Options) (segment.Queue, error) {
		q, err := lru.New(o)
		if err != nil {
			return nil, err
		}
		return q, nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SLRU) Get(req *cache.Request) bool { return cache.Get(s, req) }

// Check promotes a hit one segment up when update is set.
// A hit in the top segment moves the object to its head.
func (s *SLRU) Check(req *cache.Request, update bool) cache.Result {
	res, _ := s.chain.Check(req, update)
	return res
}

// Segment returns the index of the segment holding id, or -1.
func (s *SLRU) Segment(id cache.ObjID) int {
	return s.chain.Index(id)
}

func (s *SLRU) Insert(req *cache.Request) *cache.Object { return s.chain.Insert(req) }
func (s *SLRU) Evict(req *cache.Request) *cache.Object  { return s.chain.Evict(req) }

func (s *SLRU) ToEvict(req *cache.Request) (*cache.Object, error) {
	return s.chain.ToEvict(req)
}

func (s *SLRU) Remove(id cache.ObjID) bool { return s.chain.Remove(id) }

// CanInsert additionally requires the object to fit a single segment.
func (s *SLRU) CanInsert(req *cache.Request) bool {
	if !s.Base.CanInsert(req) {
		return false
	}
	if !s.chain.Fits(req) {
		s.WarnOnce("object larger than segment",
			"obj_id", req.ID, "obj_size", req.Size, "segment_capacity", s.chain.SegmentCapacity())
		return false
	}
	return true
}

func (s *SLRU) Occupied() int64                     { return s.chain.Occupied() }
func (s *SLRU) Len() int64                          { return s.chain.Objects() }
func (s *SLRU) ForEach(fn func(*cache.Object) bool) { s.chain.ForEach(fn) }

// Verify checks every segment and that segments are disjoint.
func (s *SLRU) Verify() error { return s.chain.Verify() }

var _ cache.Cache = (*SLRU)(nil)
