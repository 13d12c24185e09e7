// Package sfifo implements segmented FIFO: N FIFO segments of equal size.
// New objects enter the lowest segment with room, a hit moves an object one
// segment up, and full segments cool their oldest object one segment down.
package sfifo

import (
	"github.com/IvanBrykalov/cachesim/cache"
	"github.com/IvanBrykalov/cachesim/policy/fifo"
	"github.com/IvanBrykalov/cachesim/policy/internal/segment"
)

// Name is the registry name of the policy.
const Name = "sfifo"

// SFIFO is a chain of fifo segments, lowest first.
type SFIFO struct {
	cache.Base
	chain *segment.Chain
}

// New constructs a sfifo cache.
//
// Parameters:
//   - n-seg: number of segments (default 4); each holds capacity/n-seg bytes.
func New(opt cache.Options) (*SFIFO, error) {
	n, err := segment.ParseSegments(Name, opt)
	if err != nil {
		return nil, err
	}
	s := &SFIFO{}
	if err := s.Init(Name, opt); err != nil {
		return nil, err
	}
	s.chain, err = segment.New(opt, n, func(o cache.Options) (segment.Queue, error) {
		q, err := fifo.New(o)
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

func (s *SFIFO) Get(req *cache.Request) bool { return cache.Get(s, req) }

// Check promotes a hit one segment up when update is set.
// FIFO segments never reorder on a hit; only promotion does.
func (s *SFIFO) Check(req *cache.Request, update bool) cache.Result {
	res, _ := s.chain.Check(req, update)
	return res
}

// Segment returns the index of the segment holding id, or -1.
func (s *SFIFO) Segment(id cache.ObjID) int {
	return s.chain.Index(id)
}

func (s *SFIFO) Insert(req *cache.Request) *cache.Object { return s.chain.Insert(req) }
func (s *SFIFO) Evict(req *cache.Request) *cache.Object  { return s.chain.Evict(req) }

func (s *SFIFO) ToEvict(req *cache.Request) (*cache.Object, error) {
	return s.chain.ToEvict(req)
}

func (s *SFIFO) Remove(id cache.ObjID) bool { return s.chain.Remove(id) }

// CanInsert additionally requires the object to fit a single segment.
func (s *SFIFO) CanInsert(req *cache.Request) bool {
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

func (s *SFIFO) Occupied() int64                     { return s.chain.Occupied() }
func (s *SFIFO) Len() int64                          { return s.chain.Objects() }
func (s *SFIFO) ForEach(fn func(*cache.Object) bool) { s.chain.ForEach(fn) }

// Verify checks every segment and that segments are disjoint.
func (s *SFIFO) Verify() error { return s.chain.Verify() }

var _ cache.Cache = (*SFIFO)(nil)
