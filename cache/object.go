package cache

// Object is the record of one resident object. Records are allocated by the
// Store and never move in memory; policies hold pointers to them while the
// object is resident and must drop those pointers once it is evicted.
type Object struct {
	ID   ObjID
	Size int64

	// Absolute expiration in trace seconds. Zero means "no TTL".
	ExpireAt int64
	// Virtual times of admission and of the latest hit.
	CreateTime int64
	LastAccess int64

	// Store chain link.
	hashNext *Object

	// Intrusive list links. list is the owning list (nil when unlinked).
	prev *Object
	next *Object
	list *List

	meta Meta
}

// Meta is per-policy record metadata. The set of variants is closed: a record
// carries at most one, chosen by the policy that created it.
type Meta interface {
	isMeta()
}

// FreqMeta is carried by frequency-bucket policies.
type FreqMeta struct {
	Freq int64
}

// HeapMeta is carried by priority-queue policies. Index is the record's
// position in the policy's heap.
type HeapMeta struct {
	NextAccess int64
	Index      int
}

func (*FreqMeta) isMeta() {}
func (*HeapMeta) isMeta() {}

// Meta returns the attached metadata (nil for list-only policies).
func (o *Object) Meta() Meta { return o.meta }

// SetMeta attaches m. A record's metadata is chosen once.
func (o *Object) SetMeta(m Meta) {
	if o.meta != nil {
		panic("cache: object metadata already set")
	}
	o.meta = m
}

// Linked reports whether the record is a member of some List.
func (o *Object) Linked() bool { return o.list != nil }

// expired reports whether the record's TTL has elapsed at trace time now.
func (o *Object) expired(now int64) bool {
	return o.ExpireAt != 0 && o.ExpireAt < now
}
