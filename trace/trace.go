// Package trace produces request streams for the simulator: readers for
// CSV and oracleGeneral binary traces (plain, gzip or zstd compressed), an
// in-memory slice reader, a synthetic Zipf generator and next-access
// annotation for oracle policies.
package trace

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/IvanBrykalov/cachesim/cache"
)

// Reader yields requests in trace order. Read fills req and returns io.EOF
// after the last request. A Reader is used by one goroutine.
type Reader interface {
	Read(req *cache.Request) error
	Close() error
}

// Opener creates a fresh Reader positioned at the start of the trace.
// Sweeps call it once per job so that jobs replay independently.
type Opener func() (Reader, error)

// Format names a trace encoding.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatOracle Format = "oracle"
)

// ParseFormat maps a name to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatCSV, FormatOracle:
		return f, nil
	}
	return "", errors.Wrapf(cache.ErrUnknownFormat, "%q", s)
}

// Open opens the trace file at path. Compression is detected from the
// content, so a .zst or .gz file needs no extra flag.
func Open(path string, format Format, csvOpt CSVOptions) (Reader, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open trace")
	}
	r, closeDec, err := decompress(f)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "open trace %s", path)
	}
	closer := func() error {
		closeDec()
		return f.Close()
	}
	switch format {
	case FormatCSV:
		return newCSVReader(r, csvOpt, closer)
	default:
		return newOracleReader(r, closer), nil
	}
}

// FileOpener returns an Opener for path.
func FileOpener(path string, format Format, csvOpt CSVOptions) Opener {
	return func() (Reader, error) { return Open(path, format, csvOpt) }
}

// decompress peeks at the first bytes of r and wraps it in a gzip or zstd
// decoder when a magic number matches. The returned func releases the
// decoder.
func decompress(r io.Reader) (io.Reader, func(), error) {
	br := bufio.NewReaderSize(r, 1<<16)
	header, err := br.Peek(4)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, nil, errors.Wrap(err, "peek header")
	}
	switch {
	case len(header) >= 2 && header[0] == 0x1f && header[1] == 0x8b:
		gr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create gzip reader")
		}
		return gr, func() { _ = gr.Close() }, nil
	case len(header) >= 4 && header[0] == 0x28 && header[1] == 0xb5 && header[2] == 0x2f && header[3] == 0xfd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create zstd reader")
		}
		return zr, zr.Close, nil
	}
	return br, func() {}, nil
}
