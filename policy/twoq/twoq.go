// Package twoq implements the 2Q eviction policy.
//
// Resident queues:
//   - Ain (young): FIFO that admits first-time objects; hits do not reorder it
//   - Am (mature): LRU holding objects re-referenced after leaving Ain
//
// Ghost Aout: FIFO of records evicted from Ain. A miss that finds its id in
// Aout bypasses Ain and is admitted straight to Am.
package twoq

import (
	"github.com/pkg/errors"

	"github.com/IvanBrykalov/cachesim/cache"
	"github.com/IvanBrykalov/cachesim/policy/fifo"
	"github.com/IvanBrykalov/cachesim/policy/lru"
)

// Name is the registry name of the policy.
const Name = "twoq"

// TwoQ is a 2Q cache. An id is in at most one of Ain, Am, Aout.
type TwoQ struct {
	cache.Base

	ain  *fifo.FIFO
	am   *lru.LRU
	aout *fifo.FIFO

	// ainSize is the byte target of Ain. Ain and Am are sized to the whole
	// cache internally; TwoQ enforces the split in Evict.
	ainSize int64

	// ghostHitAt is the request number whose Check removed an Aout entry.
	ghostHitAt int64
}

// New constructs a 2Q cache.
//
// Parameters:
//   - ain-size-ratio: share of capacity for Ain (default 0.25)
//   - aout-size-ratio: share of capacity tracked by the Aout ghost (default 0.5)
func New(opt cache.Options) (*TwoQ, error) {
	params, err := cache.ParseParams(opt.Params)
	if err != nil {
		return nil, errors.Wrap(err, Name)
	}
	inRatio, err := params.Float("ain-size-ratio", 0.25)
	if err != nil {
		return nil, errors.Wrap(err, Name)
	}
	outRatio, err := params.Float("aout-size-ratio", 0.5)
	if err != nil {
		return nil, errors.Wrap(err, Name)
	}
	if err := params.Finish(Name); err != nil {
		return nil, err
	}
	if inRatio <= 0 || inRatio >= 1 {
		return nil, errors.Wrapf(cache.ErrInvalidParam, "%s: ain-size-ratio must be in (0, 1), got %v", Name, inRatio)
	}
	if outRatio < 0 {
		return nil, errors.Wrapf(cache.ErrInvalidParam, "%s: aout-size-ratio must be >= 0, got %v", Name, outRatio)
	}

	q := &TwoQ{ghostHitAt: -1}
	if err := q.Init(Name, opt); err != nil {
		return nil, err
	}
	q.ainSize = int64(inRatio * float64(opt.Capacity))
	if q.ainSize < 1 {
		return nil, errors.Wrapf(cache.ErrInvalidCapacity, "%s: capacity %d leaves no room for Ain", Name, opt.Capacity)
	}
	ghost := int64(outRatio * float64(opt.Capacity))
	if ghost < 1 {
		ghost = 1
	}
	if q.ain, err = fifo.New(opt.Sub(opt.Capacity)); err != nil {
		return nil, errors.Wrap(err, Name)
	}
	if q.am, err = lru.New(opt.Sub(opt.Capacity)); err != nil {
		return nil, errors.Wrap(err, Name)
	}
	if q.aout, err = fifo.New(opt.Sub(ghost)); err != nil {
		return nil, errors.Wrap(err, Name)
	}
	return q, nil
}

func (q *TwoQ) Get(req *cache.Request) bool { return cache.Get(q, req) }

// Check looks in Ain then Am. With update, a miss that is found in Aout
// drops the ghost and marks the request for admission to Am.
func (q *TwoQ) Check(req *cache.Request, update bool) cache.Result {
	if res := q.ain.Check(req, update); res != cache.Miss {
		return res
	}
	res := q.am.Check(req, update)
	if res != cache.Miss || !update {
		return res
	}
	if q.aout.Remove(req.ID) {
		q.ghostHitAt = q.Requests()
	}
	return cache.Miss
}

// Insert admits to Am after a ghost hit and to Ain otherwise.
func (q *TwoQ) Insert(req *cache.Request) *cache.Object {
	if q.ghostHitAt == q.Requests() {
		q.ghostHitAt = -1
		return q.am.Insert(req)
	}
	return q.ain.Insert(req)
}

// Evict takes the oldest Ain object into Aout while Ain is over its target,
// and the least recently used Am object otherwise.
func (q *TwoQ) Evict(req *cache.Request) *cache.Object {
	if q.ain.Occupied() > q.ainSize || (q.am.Len() == 0 && q.ain.Len() > 0) {
		victim, _ := q.ain.ToEvict(req)
		o := q.ain.Release(victim.ID)
		q.remember(o, req)
		return o
	}
	if q.am.Len() == 0 {
		panic("twoq: evict on empty cache")
	}
	return q.am.Evict(req)
}

// remember moves a record evicted from Ain into the Aout ghost, making room
// there first. A record larger than Aout is forgotten.
func (q *TwoQ) remember(o *cache.Object, req *cache.Request) {
	need := o.Size + q.Overhead()
	if need > q.aout.Capacity() {
		return
	}
	for q.aout.Occupied()+need > q.aout.Capacity() {
		q.aout.Evict(req)
	}
	q.aout.Adopt(o)
}

// ToEvict is not supported: the victim depends on the Ain target and an
// Ain victim also changes the ghost.
func (q *TwoQ) ToEvict(_ *cache.Request) (*cache.Object, error) {
	return nil, errors.Wrap(cache.ErrToEvictUnsupported, Name)
}

// Remove deletes id from Ain or Am. Ghost entries are not resident and
// stay in Aout.
func (q *TwoQ) Remove(id cache.ObjID) bool {
	return q.ain.Remove(id) || q.am.Remove(id)
}

// CanInsert additionally requires the object to fit Ain, where every
// first-time object lands.
func (q *TwoQ) CanInsert(req *cache.Request) bool {
	if !q.Base.CanInsert(req) {
		return false
	}
	if req.Size+q.Overhead() > q.ainSize {
		q.WarnOnce("object larger than Ain",
			"obj_id", req.ID, "obj_size", req.Size, "ain_size", q.ainSize)
		return false
	}
	return true
}

func (q *TwoQ) Occupied() int64 { return q.ain.Occupied() + q.am.Occupied() }
func (q *TwoQ) Len() int64      { return q.ain.Len() + q.am.Len() }

// ForEach visits Ain then Am.
func (q *TwoQ) ForEach(fn func(*cache.Object) bool) {
	stop := false
	q.ain.ForEach(func(o *cache.Object) bool {
		stop = !fn(o)
		return !stop
	})
	if !stop {
		q.am.ForEach(fn)
	}
}

// AinLen, AmLen and AoutLen report the object count of each queue.
func (q *TwoQ) AinLen() int64  { return q.ain.Len() }
func (q *TwoQ) AmLen() int64   { return q.am.Len() }
func (q *TwoQ) AoutLen() int64 { return q.aout.Len() }

// InAin, InAm and InAout report which queue holds id.
func (q *TwoQ) InAin(id cache.ObjID) bool  { return q.ain.Contains(id) }
func (q *TwoQ) InAm(id cache.ObjID) bool   { return q.am.Contains(id) }
func (q *TwoQ) InAout(id cache.ObjID) bool { return q.aout.Contains(id) }

// Verify checks each queue and that no id is in two of them.
func (q *TwoQ) Verify() error {
	for _, sub := range []cache.Cache{q.ain, q.am, q.aout} {
		if err := cache.Verify(sub); err != nil {
			return errors.Wrap(err, Name)
		}
	}
	var err error
	q.aout.ForEach(func(o *cache.Object) bool {
		if q.ain.Contains(o.ID) || q.am.Contains(o.ID) {
			err = errors.Errorf("%s: object %d is resident and a ghost", Name, o.ID)
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	q.ain.ForEach(func(o *cache.Object) bool {
		if q.am.Contains(o.ID) {
			err = errors.Errorf("%s: object %d in both Ain and Am", Name, o.ID)
			return false
		}
		return true
	})
	return err
}

var _ cache.Cache = (*TwoQ)(nil)
