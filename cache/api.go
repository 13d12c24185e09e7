package cache

// Cache is the contract every eviction policy implements. One instance
// simulates one policy at one capacity and is driven by a single goroutine;
// independent instances share nothing and may run in parallel.
//
// Policies satisfy the unexported part of the interface by embedding Base.
type Cache interface {
	// Name returns the policy name.
	Name() string

	// Get processes one request: Check with update, and on a miss evict until
	// the object fits and admit it. It returns true on a hit. Policies
	// implement it as Get(p, req).
	Get(req *Request) bool

	// Check reports membership. With update false it is a pure query. With
	// update true a hit is promoted per the policy and an expired object is
	// removed and reported as Expired.
	Check(req *Request, update bool) Result

	// Insert admits req. The object must be absent and the caller must have
	// made room for it.
	Insert(req *Request) *Object

	// Evict removes exactly one object chosen by the policy and returns it.
	// req is the request that needs the room. Evicting from an empty cache
	// panics.
	Evict(req *Request) *Object

	// ToEvict names the object Evict would remove next without removing it,
	// or returns ErrToEvictUnsupported.
	ToEvict(req *Request) (*Object, error)

	// Remove deletes id if resident and reports whether it was.
	Remove(id ObjID) bool

	// CanInsert reports whether req may be admitted at all.
	CanInsert(req *Request) bool

	// Capacity, Occupied and Len describe the accounted state; Occupied
	// includes per-object overhead.
	Capacity() int64
	Occupied() int64
	Len() int64

	// ForEach visits every resident object until fn returns false.
	ForEach(fn func(*Object) bool)

	base() *Base
}

// Verifier is implemented by policies that can check their internal
// structures (list lengths, bucket counts, disjointness).
type Verifier interface {
	Verify() error
}
