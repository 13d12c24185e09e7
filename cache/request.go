package cache

import "math"

// ObjID identifies an object. Readers hash string keys into this space.
type ObjID uint64

// NoNextAccess marks a request whose object is never referenced again.
const NoNextAccess int64 = math.MaxInt64

// Op is the operation kind recorded in a trace.
type Op uint8

const (
	OpNop Op = iota
	OpGet
	OpGets
	OpSet
	OpAdd
	OpCas
	OpReplace
	OpAppend
	OpPrepend
	OpDelete
	OpIncr
	OpDecr
	OpRead
	OpWrite
	OpUpdate
	OpInvalid
)

var opNames = [...]string{
	OpNop:     "nop",
	OpGet:     "get",
	OpGets:    "gets",
	OpSet:     "set",
	OpAdd:     "add",
	OpCas:     "cas",
	OpReplace: "replace",
	OpAppend:  "append",
	OpPrepend: "prepend",
	OpDelete:  "delete",
	OpIncr:    "incr",
	OpDecr:    "decr",
	OpRead:    "read",
	OpWrite:   "write",
	OpUpdate:  "update",
	OpInvalid: "invalid",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "invalid"
}

// ParseOp maps a trace token to an Op. Unknown tokens yield OpInvalid.
func ParseOp(s string) Op {
	for i, name := range opNames {
		if name == s {
			return Op(i)
		}
	}
	return OpInvalid
}

// Request is one observed access. It is owned by the reader and only valid
// for the duration of the call processing it; caches must not retain it.
type Request struct {
	// Time is the trace clock in seconds.
	Time int64
	ID   ObjID
	// Size in bytes.
	Size int64
	Op   Op
	// TTL in seconds; 0 falls back to Options.DefaultTTL.
	TTL int64
	// NextAccess is the virtual time of the next reference to ID.
	// NoNextAccess means never; 0 means unknown.
	NextAccess int64
	// VTime is the request's position in the stream, set by the driver.
	VTime int64
}

// Result of a membership check.
type Result uint8

const (
	Miss Result = iota
	Hit
	Expired
)

func (r Result) String() string {
	switch r {
	case Hit:
		return "hit"
	case Expired:
		return "expired"
	default:
		return "miss"
	}
}
