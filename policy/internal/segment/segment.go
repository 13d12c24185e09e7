// Package segment implements the segment chain shared by the segmented FIFO
// and segmented LRU policies: N equally sized queues where a hit promotes an
// object one segment up and a full segment cools its oldest object one
// segment down. Objects cooled out of segment 0 leave the cache.
package segment

import (
	"github.com/pkg/errors"

	"github.com/IvanBrykalov/cachesim/cache"
)

// DefaultSegments is the segment count when n-seg is not given.
const DefaultSegments = 4

// Queue is a sub-cache whose records can move to a neighbouring segment
// without being re-created.
type Queue interface {
	cache.Cache
	Contains(id cache.ObjID) bool
	Release(id cache.ObjID) *cache.Object
	Adopt(o *cache.Object)
}

// Chain owns the segments, lowest first.
type Chain struct {
	segs     []Queue
	overhead int64
}

// ParseSegments reads n-seg from the policy parameters and validates it
// against the capacity (each segment gets capacity/n bytes).
func ParseSegments(name string, opt cache.Options) (int, error) {
	params, err := cache.ParseParams(opt.Params)
	if err != nil {
		return 0, errors.Wrap(err, name)
	}
	n, err := params.Int("n-seg", DefaultSegments)
	if err != nil {
		return 0, errors.Wrap(err, name)
	}
	if err := params.Finish(name); err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, errors.Wrapf(cache.ErrInvalidParam, "%s: n-seg must be >= 1, got %d", name, n)
	}
	if opt.Capacity/int64(n) < 1 {
		return 0, errors.Wrapf(cache.ErrInvalidCapacity, "%s: capacity %d cannot be split into %d segments", name, opt.Capacity, n)
	}
	return n, nil
}

// New builds a chain of n segments of capacity/n bytes each.
func New(opt cache.Options, n int, mk func(cache.Options) (Queue, error)) (*Chain, error) {
	c := &Chain{overhead: opt.Overhead}
	for i := 0; i < n; i++ {
		q, err := mk(opt.Sub(opt.Capacity / int64(n)))
		if err != nil {
			return nil, err
		}
		c.segs = append(c.segs, q)
	}
	return c, nil
}

// Len returns the number of segments.
func (c *Chain) Len() int { return len(c.segs) }

// Segment returns segment i (0 is the lowest).
func (c *Chain) Segment(i int) Queue { return c.segs[i] }

// SegmentCapacity is the byte budget of every segment.
func (c *Chain) SegmentCapacity() int64 { return c.segs[0].Capacity() }

// Index returns the segment holding id, or -1.
func (c *Chain) Index(id cache.ObjID) int {
	for i, s := range c.segs {
		if s.Contains(id) {
			return i
		}
	}
	return -1
}

// Check finds req in a segment. With update, a hit below the top segment is
// promoted one segment up, and a hit in the top segment cools it back within
// capacity if the object grew. It also returns the segment that held the object
// before promotion (-1 on a miss).
func (c *Chain) Check(req *cache.Request, update bool) (cache.Result, int) {
	for i, s := range c.segs {
		res := s.Check(req, update)
		if res == cache.Miss {
			continue
		}
		if res == cache.Hit && update {
			if i < len(c.segs)-1 {
				c.promote(i, req)
			} else {
				c.shrink(i, req)
			}
		}
		return res, i
	}
	return cache.Miss, -1
}

// promote moves req's record from segment i to i+1, cooling i+1 first when
// it is full. A record that outgrew a whole segment is dropped instead.
func (c *Chain) promote(i int, req *cache.Request) {
	o := c.segs[i].Release(req.ID)
	dst := c.segs[i+1]
	need := o.Size + c.overhead
	if need > dst.Capacity() {
		return
	}
	for dst.Occupied()+need > dst.Capacity() {
		c.cool(i+1, req)
	}
	dst.Adopt(o)
}

// shrink cools segment i until it is back within its capacity, which a hit
// that grew an object may have broken.
func (c *Chain) shrink(i int, req *cache.Request) {
	for c.segs[i].Occupied() > c.segs[i].Capacity() {
		c.cool(i, req)
	}
}

// cool demotes the oldest record of segment top one segment down. When the
// segment below is full it is cooled as well; the cascade runs on an
// explicit stack, at most one frame per segment.
func (c *Chain) cool(top int, req *cache.Request) {
	type move struct {
		to int
		o  *cache.Object
	}
	stack := []move{{top - 1, c.take(top, req)}}
	for len(stack) > 0 {
		m := stack[len(stack)-1]
		if m.to < 0 {
			// Cooled out of segment 0: evicted.
			stack = stack[:len(stack)-1]
			continue
		}
		dst := c.segs[m.to]
		need := m.o.Size + c.overhead
		switch {
		case dst.Occupied()+need <= dst.Capacity():
			dst.Adopt(m.o)
			stack = stack[:len(stack)-1]
		case dst.Len() == 0:
			// Larger than a segment; it can only leave.
			stack = stack[:len(stack)-1]
		default:
			stack = append(stack, move{m.to - 1, c.take(m.to, req)})
		}
	}
}

// take releases the next victim of segment i.
func (c *Chain) take(i int, req *cache.Request) *cache.Object {
	v, _ := c.segs[i].ToEvict(req)
	if v == nil {
		panic("segment: cooling an empty segment")
	}
	return c.segs[i].Release(v.ID)
}

// Insert admits req into the lowest segment with room. When every segment
// is full, objects are evicted from the bottom until segment 0 has room.
func (c *Chain) Insert(req *cache.Request) *cache.Object {
	need := req.Size + c.overhead
	for _, s := range c.segs {
		if s.Occupied()+need <= s.Capacity() {
			return s.Insert(req)
		}
	}
	for c.segs[0].Occupied()+need > c.segs[0].Capacity() {
		c.Evict(req)
	}
	return c.segs[0].Insert(req)
}

// Evict removes the oldest object of the lowest non-empty segment.
func (c *Chain) Evict(req *cache.Request) *cache.Object {
	for _, s := range c.segs {
		if s.Len() > 0 {
			return s.Evict(req)
		}
	}
	panic("segment: evict on empty cache")
}

// ToEvict names the object Evict would remove.
func (c *Chain) ToEvict(req *cache.Request) (*cache.Object, error) {
	for _, s := range c.segs {
		if s.Len() > 0 {
			return s.ToEvict(req)
		}
	}
	return nil, nil
}

// Remove deletes id from whichever segment holds it.
func (c *Chain) Remove(id cache.ObjID) bool {
	for _, s := range c.segs {
		if s.Remove(id) {
			return true
		}
	}
	return false
}

// Fits reports whether req fits a single segment.
func (c *Chain) Fits(req *cache.Request) bool {
	return req.Size+c.overhead <= c.SegmentCapacity()
}

func (c *Chain) Occupied() int64 {
	var n int64
	for _, s := range c.segs {
		n += s.Occupied()
	}
	return n
}

func (c *Chain) Objects() int64 {
	var n int64
	for _, s := range c.segs {
		n += s.Len()
	}
	return n
}

// ForEach visits resident objects segment by segment, lowest first.
func (c *Chain) ForEach(fn func(*cache.Object) bool) {
	for _, s := range c.segs {
		stop := false
		s.ForEach(func(o *cache.Object) bool {
			stop = !fn(o)
			return !stop
		})
		if stop {
			return
		}
	}
}

// Verify checks every segment and that no identifier is in two segments.
func (c *Chain) Verify() error {
	seen := map[cache.ObjID]int{}
	for i, s := range c.segs {
		if err := cache.Verify(s); err != nil {
			return errors.Wrapf(err, "segment %d", i)
		}
		var err error
		s.ForEach(func(o *cache.Object) bool {
			if j, dup := seen[o.ID]; dup {
				err = errors.Errorf("object %d in segments %d and %d", o.ID, j, i)
				return false
			}
			seen[o.ID] = i
			return true
		})
		if err != nil {
			return err
		}
	}
	return nil
}
