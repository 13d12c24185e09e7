package trace

import (
	"io"

	"github.com/IvanBrykalov/cachesim/cache"
)

// Slice replays an in-memory request list.
type Slice struct {
	reqs []cache.Request
	pos  int
}

// NewSlice returns a Reader over reqs. reqs is not copied.
func NewSlice(reqs []cache.Request) *Slice { return &Slice{reqs: reqs} }

func (s *Slice) Read(req *cache.Request) error {
	if s.pos == len(s.reqs) {
		return io.EOF
	}
	*req = s.reqs[s.pos]
	s.pos++
	return nil
}

func (s *Slice) Close() error { return nil }

// SliceOpener returns an Opener replaying reqs from the start each time.
func SliceOpener(reqs []cache.Request) Opener {
	return func() (Reader, error) { return NewSlice(reqs), nil }
}

// ReadAll drains r into memory.
func ReadAll(r Reader) ([]cache.Request, error) {
	var reqs []cache.Request
	for {
		var req cache.Request
		err := r.Read(&req)
		if err == io.EOF {
			return reqs, nil
		}
		if err != nil {
			return reqs, err
		}
		reqs = append(reqs, req)
	}
}

// Annotate fills NextAccess of every request with the virtual time of the
// next request for the same id (NoNextAccess for the last one). Virtual
// times are 1-based positions in reqs, matching what sim.Run assigns.
func Annotate(reqs []cache.Request) {
	last := make(map[cache.ObjID]int64, len(reqs)/4)
	for i := len(reqs) - 1; i >= 0; i-- {
		vt := int64(i + 1)
		if next, ok := last[reqs[i].ID]; ok {
			reqs[i].NextAccess = next
		} else {
			reqs[i].NextAccess = cache.NoNextAccess
		}
		last[reqs[i].ID] = vt
	}
}
