package trace

import (
	"io"
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/IvanBrykalov/cachesim/cache"
	"github.com/IvanBrykalov/cachesim/internal/util"
)

// ZipfOptions configures a synthetic trace whose key popularity follows a
// Zipf distribution.
type ZipfOptions struct {
	Requests int
	Keys     uint64
	// S > 1 is the skew, V >= 1 the offset of the distribution.
	S, V float64
	// Sizes are drawn uniformly from [MinSize, MaxSize], fixed per key.
	MinSize, MaxSize int64
	Seed             uint64
}

// DefaultZipfOptions mirrors a moderately skewed web workload.
func DefaultZipfOptions() ZipfOptions {
	return ZipfOptions{Requests: 1_000_000, Keys: 100_000, S: 1.1, V: 1, MinSize: 1, MaxSize: 1, Seed: 1}
}

// Zipf generates requests on the fly. It is deterministic for a seed.
type Zipf struct {
	opt  ZipfOptions
	rng  *rand.Rand
	zipf *rand.Zipf
	n    int
}

// NewZipf validates opt and returns a generator.
func NewZipf(opt ZipfOptions) (*Zipf, error) {
	if opt.S <= 1 || opt.V < 1 {
		return nil, errors.Errorf("zipf trace: need s > 1 and v >= 1, got s=%v v=%v", opt.S, opt.V)
	}
	if opt.Keys == 0 || opt.Requests < 0 {
		return nil, errors.Errorf("zipf trace: need keys > 0 and requests >= 0")
	}
	if opt.MinSize <= 0 || opt.MaxSize < opt.MinSize {
		return nil, errors.Errorf("zipf trace: bad size range [%d, %d]", opt.MinSize, opt.MaxSize)
	}
	rng := rand.New(rand.NewPCG(opt.Seed, opt.Keys))
	return &Zipf{opt: opt, rng: rng, zipf: rand.NewZipf(rng, opt.S, opt.V, opt.Keys-1)}, nil
}

// ZipfOpener returns an Opener producing identical streams.
func ZipfOpener(opt ZipfOptions) Opener {
	return func() (Reader, error) { return NewZipf(opt) }
}

func (z *Zipf) Read(req *cache.Request) error {
	if z.n == z.opt.Requests {
		return io.EOF
	}
	id := z.zipf.Uint64()
	*req = cache.Request{
		Time: int64(z.n),
		ID:   cache.ObjID(id),
		Size: z.size(id),
		Op:   cache.OpGet,
	}
	z.n++
	return nil
}

// size derives a stable per-key size from the key so that repeated
// requests agree.
func (z *Zipf) size(id uint64) int64 {
	span := z.opt.MaxSize - z.opt.MinSize + 1
	if span == 1 {
		return z.opt.MinSize
	}
	return z.opt.MinSize + int64(util.HashID(id)%uint64(span))
}

func (z *Zipf) Close() error { return nil }
