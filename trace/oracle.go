package trace

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/IvanBrykalov/cachesim/cache"
)

// oracleRecordSize is the length of one oracleGeneral record:
// u32 time, u64 id, u32 size, i64 next access vtime (-1 for never),
// all little endian.
const oracleRecordSize = 24

type oracleReader struct {
	r      io.Reader
	closer func() error
	buf    [oracleRecordSize]byte
	n      int64
}

func newOracleReader(r io.Reader, closer func() error) *oracleReader {
	return &oracleReader{r: r, closer: closer}
}

// NewOracleReader reads oracleGeneral records from r. Records of size zero
// are skipped.
func NewOracleReader(r io.Reader) Reader {
	return newOracleReader(r, func() error { return nil })
}

func (o *oracleReader) Read(req *cache.Request) error {
	for {
		_, err := io.ReadFull(o.r, o.buf[:])
		switch {
		case err == io.EOF:
			return io.EOF
		case err == io.ErrUnexpectedEOF:
			return errors.Errorf("oracle trace: truncated record %d", o.n)
		case err != nil:
			return errors.Wrapf(err, "oracle trace: record %d", o.n)
		}
		o.n++
		b := o.buf[:]
		size := binary.LittleEndian.Uint32(b[12:])
		if size == 0 {
			continue
		}
		next := int64(binary.LittleEndian.Uint64(b[16:]))
		if next < 0 {
			next = cache.NoNextAccess
		}
		*req = cache.Request{
			Time:       int64(binary.LittleEndian.Uint32(b[0:])),
			ID:         cache.ObjID(binary.LittleEndian.Uint64(b[4:])),
			Size:       int64(size),
			Op:         cache.OpGet,
			NextAccess: next,
		}
		return nil
	}
}

func (o *oracleReader) Close() error { return o.closer() }

// WriteOracle encodes reqs as oracleGeneral records. NextAccess values of
// NoNextAccess or 0 are written as -1.
func WriteOracle(w io.Writer, reqs []cache.Request) error {
	bw := bufio.NewWriter(w)
	var buf [oracleRecordSize]byte
	for i := range reqs {
		r := &reqs[i]
		next := r.NextAccess
		if next == cache.NoNextAccess || next == 0 {
			next = -1
		}
		binary.LittleEndian.PutUint32(buf[0:], uint32(r.Time))
		binary.LittleEndian.PutUint64(buf[4:], uint64(r.ID))
		binary.LittleEndian.PutUint32(buf[12:], uint32(r.Size))
		binary.LittleEndian.PutUint64(buf[16:], uint64(next))
		if _, err := bw.Write(buf[:]); err != nil {
			return errors.Wrap(err, "write oracle record")
		}
	}
	return errors.Wrap(bw.Flush(), "flush oracle trace")
}
