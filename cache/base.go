package cache

import (
	"math/rand/v2"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// Base carries the state every policy shares: the object store, size and
// count accounting, the request counter and per-instance resources.
// Policies embed it and build their operations on its helpers.
//
// Base is not safe for concurrent use; one goroutine drives an instance.
type Base struct {
	name       string
	capacity   int64
	overhead   int64
	defaultTTL int64

	occupied int64
	nObj     int64
	nReq     int64

	store   *Store
	rng     *rand.Rand
	logger  log.Logger
	metrics Metrics
	warned  map[string]bool
}

// Init validates opt and prepares b for policy name.
func (b *Base) Init(name string, opt Options) error {
	if err := ValidateCapacity(name, opt.Capacity); err != nil {
		return err
	}
	if opt.Overhead < 0 {
		return errors.Wrapf(ErrInvalidParam, "%s: negative per-object overhead %d", name, opt.Overhead)
	}
	if opt.DefaultTTL < 0 {
		return errors.Wrapf(ErrInvalidParam, "%s: negative default TTL %d", name, opt.DefaultTTL)
	}
	logger := opt.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	metrics := opt.Metrics
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	hashPower := opt.HashPower
	if hashPower <= 0 {
		hashPower = hashPowerFor(opt.Capacity, opt.Overhead)
	}
	*b = Base{
		name:       name,
		capacity:   opt.Capacity,
		overhead:   opt.Overhead,
		defaultTTL: opt.DefaultTTL,
		store:      NewStore(hashPower),
		rng:        rand.New(rand.NewPCG(opt.Seed, uint64(opt.Capacity))),
		logger:     log.With(logger, "policy", name, "capacity", opt.Capacity),
		metrics:    metrics,
		warned:     map[string]bool{},
	}
	return nil
}

func (b *Base) base() *Base { return b }

// Name returns the policy name.
func (b *Base) Name() string { return b.name }

// Capacity returns the configured capacity in bytes.
func (b *Base) Capacity() int64 { return b.capacity }

// Overhead returns the per-object metadata charge.
func (b *Base) Overhead() int64 { return b.overhead }

// Occupied returns the accounted bytes of resident objects.
func (b *Base) Occupied() int64 { return b.occupied }

// Len returns the number of resident objects.
func (b *Base) Len() int64 { return b.nObj }

// Requests returns how many requests went through Get.
func (b *Base) Requests() int64 { return b.nReq }

// Store exposes the object index.
func (b *Base) Store() *Store { return b.store }

// Rand returns the instance's random source.
func (b *Base) Rand() *rand.Rand { return b.rng }

// Logger returns the instance logger (already tagged with policy and capacity).
func (b *Base) Logger() log.Logger { return b.logger }

// ForEach visits every resident object.
func (b *Base) ForEach(fn func(*Object) bool) { b.store.ForEach(fn) }

// CanInsert admits any object that fits the whole cache on its own.
func (b *Base) CanInsert(req *Request) bool {
	if req.Size+b.overhead > b.capacity {
		b.WarnOnce("object larger than cache",
			"obj_id", req.ID, "obj_size", req.Size, "overhead", b.overhead)
		return false
	}
	return true
}

// Lookup finds the record for req. An object whose TTL has elapsed yields
// Expired and is left in place for the caller to remove. With update set, a
// hit re-accounts a changed size and refreshes the access time.
func (b *Base) Lookup(req *Request, update bool) (*Object, Result) {
	o, ok := b.store.Find(req.ID)
	if !ok {
		return nil, Miss
	}
	if o.expired(req.Time) {
		return o, Expired
	}
	if update {
		if o.Size != req.Size {
			b.occupied += req.Size - o.Size
			o.Size = req.Size
		}
		o.LastAccess = req.VTime
	}
	return o, Hit
}

// Admit creates and accounts the record for req. The caller threads it into
// its own structures.
func (b *Base) Admit(req *Request) *Object {
	o := b.store.Insert(req)
	b.occupied += o.Size + b.overhead
	b.nObj++
	ttl := req.TTL
	if ttl == 0 {
		ttl = b.defaultTTL
	}
	if ttl > 0 {
		o.ExpireAt = req.Time + ttl
	}
	return o
}

// Attach accounts a record released by another instance, keeping its
// identity, size, expiry and metadata.
func (b *Base) Attach(o *Object) {
	b.store.Adopt(o)
	b.occupied += o.Size + b.overhead
	b.nObj++
}

// Drop deletes o from the store and releases its accounted size.
// o must already be unlinked from every list.
func (b *Base) Drop(o *Object) {
	b.store.Delete(o)
	b.occupied -= o.Size + b.overhead
	b.nObj--
	assert(b.occupied >= 0, "cache: occupied size went negative")
	assert(b.nObj == int64(b.store.Len()), "cache: object count diverged from store")
}

// WarnOnce logs cause at warn level the first time it is reported.
func (b *Base) WarnOnce(cause string, keyvals ...interface{}) {
	if b.warned[cause] {
		return
	}
	b.warned[cause] = true
	_ = level.Warn(b.logger).Log(append([]interface{}{"msg", cause}, keyvals...)...)
}
