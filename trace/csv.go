package trace

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/IvanBrykalov/cachesim/cache"
	"github.com/IvanBrykalov/cachesim/internal/util"
)

// CSVOptions maps CSV columns to request fields. Columns are 1-based; 0
// means the column is absent.
type CSVOptions struct {
	TimeCol int
	IDCol   int
	SizeCol int
	OpCol   int
	TTLCol  int

	HasHeader bool
	Delimiter rune
	// IDIsNum parses the id column as an unsigned integer instead of
	// hashing it as a string key.
	IDIsNum bool
}

// DefaultCSVOptions reads "time,id,size" rows with string ids.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{TimeCol: 1, IDCol: 2, SizeCol: 3, Delimiter: ','}
}

type csvReader struct {
	r      *csv.Reader
	opt    CSVOptions
	closer func() error
	line   int
}

// NewCSVReader reads requests from CSV rows in r. A missing size column
// yields unit-size requests; a missing op column yields gets.
func NewCSVReader(r io.Reader, opt CSVOptions) (Reader, error) {
	return newCSVReader(r, opt, func() error { return nil })
}

func newCSVReader(r io.Reader, opt CSVOptions, closer func() error) (*csvReader, error) {
	if opt.IDCol <= 0 {
		return nil, errors.New("csv trace: id column is required")
	}
	if opt.Delimiter == 0 {
		opt.Delimiter = ','
	}
	cr := csv.NewReader(r)
	cr.Comma = opt.Delimiter
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true
	c := &csvReader{r: cr, opt: opt, closer: closer}
	if opt.HasHeader {
		if _, err := cr.Read(); err != nil && err != io.EOF {
			return nil, errors.Wrap(err, "csv trace: header")
		}
		c.line++
	}
	return c, nil
}

func (c *csvReader) Read(req *cache.Request) error {
	rec, err := c.r.Read()
	if err == io.EOF {
		return io.EOF
	}
	c.line++
	if err != nil {
		return errors.Wrapf(err, "csv trace: line %d", c.line)
	}
	*req = cache.Request{Size: 1, Op: cache.OpGet}

	field := func(col int) (string, bool, error) {
		if col <= 0 {
			return "", false, nil
		}
		if col > len(rec) {
			return "", false, errors.Errorf("csv trace: line %d has %d columns, want at least %d", c.line, len(rec), col)
		}
		return strings.TrimSpace(rec[col-1]), true, nil
	}
	num := func(col int, name string, dst *int64) error {
		s, ok, err := field(col)
		if err != nil || !ok {
			return err
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil {
				return errors.Errorf("csv trace: line %d: bad %s %q", c.line, name, s)
			}
			v = int64(f)
		}
		*dst = v
		return nil
	}

	id, _, err := field(c.opt.IDCol)
	if err != nil {
		return err
	}
	if c.opt.IDIsNum {
		v, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			return errors.Errorf("csv trace: line %d: bad id %q", c.line, id)
		}
		req.ID = cache.ObjID(v)
	} else {
		req.ID = cache.ObjID(util.HashString(id))
	}
	if err := num(c.opt.TimeCol, "time", &req.Time); err != nil {
		return err
	}
	if err := num(c.opt.SizeCol, "size", &req.Size); err != nil {
		return err
	}
	if err := num(c.opt.TTLCol, "ttl", &req.TTL); err != nil {
		return err
	}
	if op, ok, err := field(c.opt.OpCol); err != nil {
		return err
	} else if ok {
		req.Op = cache.ParseOp(strings.ToLower(op))
	}
	return nil
}

func (c *csvReader) Close() error { return c.closer() }
