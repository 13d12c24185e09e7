package main

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gopkg.in/alecthomas/kingpin.v2"
	"gopkg.in/yaml.v3"

	"github.com/IvanBrykalov/cachesim/sim"
	"github.com/IvanBrykalov/cachesim/trace"
)

// experiment is everything a run needs. It is filled from flags and,
// for fields the flags leave empty, from the --config file.
type experiment struct {
	Trace    string     `yaml:"trace"`
	Format   string     `yaml:"format"`
	CSV      csvConfig  `yaml:"csv"`
	Zipf     zipfConfig `yaml:"zipf"`
	Policies []string   `yaml:"policies"`
	Sizes    []string   `yaml:"sizes"`
	Overhead int64      `yaml:"overhead"`
	TTL      int64      `yaml:"ttl"`
	Warmup   int64      `yaml:"warmup"`
	Workers  int        `yaml:"workers"`
	Seed     uint64     `yaml:"seed"`
	Preload  bool       `yaml:"preload"`
}

// csvConfig column fields are pointers so that an explicit 0 (absent
// column) is told apart from "not set" (default column).
type csvConfig struct {
	TimeCol   *int   `yaml:"time_col"`
	IDCol     *int   `yaml:"id_col"`
	SizeCol   *int   `yaml:"size_col"`
	OpCol     int    `yaml:"op_col"`
	TTLCol    int    `yaml:"ttl_col"`
	Header    bool   `yaml:"header"`
	Delimiter string `yaml:"delimiter"`
	IDNumeric bool   `yaml:"id_numeric"`
}

type zipfConfig struct {
	Requests int     `yaml:"requests"`
	Keys     uint64  `yaml:"keys"`
	S        float64 `yaml:"s"`
	MinSize  string  `yaml:"min_size"`
	MaxSize  string  `yaml:"max_size"`
}

type runParams struct {
	experiment
	configFile string
	httpAddr   string
}

func addRunParams(cmd *kingpin.CmdClause) *runParams {
	p := &runParams{}
	cmd.Flag("config", "YAML experiment file; flags take precedence.").StringVar(&p.configFile)
	cmd.Flag("trace", "Trace file (plain, gzip or zstd).").StringVar(&p.Trace)
	cmd.Flag("format", "Trace format: csv, oracle or zipf (synthetic, no file).").EnumVar(&p.Format, "csv", "oracle", "zipf")
	cmd.Flag("policy", "Policy with optional parameters, e.g. sfifo:n-seg=2. Repeatable.").Short('p').StringsVar(&p.Policies)
	cmd.Flag("size", "Cache size, e.g. 64MiB or 1000. Repeatable.").Short('s').StringsVar(&p.Sizes)
	cmd.Flag("overhead", "Bytes charged per object on top of its size.").Int64Var(&p.Overhead)
	cmd.Flag("ttl", "Default TTL in trace seconds for requests without one (0: none).").Int64Var(&p.TTL)
	cmd.Flag("warmup", "Requests replayed before counting starts.").Int64Var(&p.Warmup)
	cmd.Flag("workers", "Concurrent jobs (0: one per CPU).").IntVar(&p.Workers)
	cmd.Flag("seed", "Seed for random policies and the synthetic trace.").Uint64Var(&p.Seed)
	cmd.Flag("preload", "Read the trace into memory once for all jobs.").BoolVar(&p.Preload)
	cmd.Flag("http", "Serve Prometheus metrics on this address during the run.").StringVar(&p.httpAddr)

	cmd.Flag("csv-time-col", "1-based time column (0: absent).").SetValue(optionalInt{&p.CSV.TimeCol})
	cmd.Flag("csv-id-col", "1-based id column.").SetValue(optionalInt{&p.CSV.IDCol})
	cmd.Flag("csv-size-col", "1-based size column (0: unit sizes).").SetValue(optionalInt{&p.CSV.SizeCol})
	cmd.Flag("csv-op-col", "1-based operation column (0: all gets).").IntVar(&p.CSV.OpCol)
	cmd.Flag("csv-ttl-col", "1-based TTL column (0: absent).").IntVar(&p.CSV.TTLCol)
	cmd.Flag("csv-header", "The first CSV row is a header.").BoolVar(&p.CSV.Header)
	cmd.Flag("csv-delimiter", "CSV field delimiter.").StringVar(&p.CSV.Delimiter)
	cmd.Flag("csv-id-numeric", "Parse ids as integers instead of hashing them.").BoolVar(&p.CSV.IDNumeric)

	cmd.Flag("zipf-requests", "Synthetic trace length.").IntVar(&p.Zipf.Requests)
	cmd.Flag("zipf-keys", "Synthetic key space.").Uint64Var(&p.Zipf.Keys)
	cmd.Flag("zipf-s", "Synthetic skew (> 1).").Float64Var(&p.Zipf.S)
	cmd.Flag("zipf-min-size", "Smallest synthetic object.").StringVar(&p.Zipf.MinSize)
	cmd.Flag("zipf-max-size", "Largest synthetic object.").StringVar(&p.Zipf.MaxSize)
	return p
}

// optionalInt is a flag value that records whether it was given at all.
type optionalInt struct{ p **int }

func (o optionalInt) Set(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return errors.Wrapf(err, "invalid column %q", s)
	}
	*o.p = &v
	return nil
}

func (o optionalInt) String() string {
	if *o.p == nil {
		return ""
	}
	return strconv.Itoa(**o.p)
}

// loadExperiment decodes path strictly: unknown keys are errors.
func loadExperiment(path string) (experiment, error) {
	var e experiment
	f, err := os.Open(path)
	if err != nil {
		return e, errors.Wrap(err, "open config")
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&e); err != nil {
		return e, errors.Wrapf(err, "parse config %s", path)
	}
	return e, nil
}

// merge fills the zero fields of e from file.
func (e experiment) merge(file experiment) experiment {
	e.Trace = lo.CoalesceOrEmpty(e.Trace, file.Trace)
	e.Format = lo.CoalesceOrEmpty(e.Format, file.Format)
	if len(e.Policies) == 0 {
		e.Policies = file.Policies
	}
	if len(e.Sizes) == 0 {
		e.Sizes = file.Sizes
	}
	e.Overhead = lo.CoalesceOrEmpty(e.Overhead, file.Overhead)
	e.TTL = lo.CoalesceOrEmpty(e.TTL, file.TTL)
	e.Warmup = lo.CoalesceOrEmpty(e.Warmup, file.Warmup)
	e.Workers = lo.CoalesceOrEmpty(e.Workers, file.Workers)
	e.Seed = lo.CoalesceOrEmpty(e.Seed, file.Seed)
	e.Preload = e.Preload || file.Preload
	if e.CSV == (csvConfig{}) {
		e.CSV = file.CSV
	}
	if e.Zipf == (zipfConfig{}) {
		e.Zipf = file.Zipf
	}
	return e
}

// withDefaults fills what neither flags nor file set.
func (e experiment) withDefaults() experiment {
	e.Format = lo.CoalesceOrEmpty(e.Format, string(trace.FormatCSV))
	if len(e.Policies) == 0 {
		e.Policies = []string{"lru"}
	}
	def := trace.DefaultZipfOptions()
	e.Zipf.Requests = lo.CoalesceOrEmpty(e.Zipf.Requests, def.Requests)
	e.Zipf.Keys = lo.CoalesceOrEmpty(e.Zipf.Keys, def.Keys)
	e.Zipf.S = lo.CoalesceOrEmpty(e.Zipf.S, def.S)
	e.Zipf.MinSize = lo.CoalesceOrEmpty(e.Zipf.MinSize, "1")
	e.Zipf.MaxSize = lo.CoalesceOrEmpty(e.Zipf.MaxSize, e.Zipf.MinSize)
	return e
}

// parseSizes parses humanized sizes, drops duplicates and sorts them.
func parseSizes(sizes []string) ([]int64, error) {
	if len(sizes) == 0 {
		return nil, errors.New("at least one --size is required")
	}
	out := make([]int64, 0, len(sizes))
	for _, s := range sizes {
		n, err := humanize.ParseBytes(s)
		if err != nil {
			return nil, errors.Wrapf(err, "size %q", s)
		}
		if n == 0 {
			return nil, errors.Errorf("size %q must be positive", s)
		}
		out = append(out, int64(n))
	}
	out = lo.Uniq(out)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// jobs expands every "name[:params]" policy against every size.
func (e experiment) jobs() ([]sim.Job, error) {
	sizes, err := parseSizes(e.Sizes)
	if err != nil {
		return nil, err
	}
	policies := lo.Uniq(lo.Map(e.Policies, func(s string, _ int) string { return strings.TrimSpace(s) }))
	return lo.FlatMap(policies, func(p string, _ int) []sim.Job {
		name, params, _ := strings.Cut(p, ":")
		return lo.Map(sizes, func(size int64, _ int) sim.Job {
			return sim.Job{Policy: name, Params: params, Capacity: size}
		})
	}), nil
}

// opener builds the trace source of e.
func (e experiment) opener() (trace.Opener, error) {
	if e.Format == "zipf" {
		minSize, err := humanize.ParseBytes(e.Zipf.MinSize)
		if err != nil {
			return nil, errors.Wrap(err, "zipf min size")
		}
		maxSize, err := humanize.ParseBytes(e.Zipf.MaxSize)
		if err != nil {
			return nil, errors.Wrap(err, "zipf max size")
		}
		opt := trace.ZipfOptions{
			Requests: e.Zipf.Requests, Keys: e.Zipf.Keys, S: e.Zipf.S, V: 1,
			MinSize: int64(minSize), MaxSize: int64(maxSize), Seed: e.Seed,
		}
		// Validate once up front rather than in every job.
		if _, err := trace.NewZipf(opt); err != nil {
			return nil, err
		}
		return trace.ZipfOpener(opt), nil
	}

	format, err := trace.ParseFormat(e.Format)
	if err != nil {
		return nil, err
	}
	if e.Trace == "" {
		return nil, errors.Errorf("--trace is required for format %s", format)
	}
	csvOpt := trace.DefaultCSVOptions()
	csvOpt.TimeCol = lo.FromPtrOr(e.CSV.TimeCol, csvOpt.TimeCol)
	csvOpt.IDCol = lo.FromPtrOr(e.CSV.IDCol, csvOpt.IDCol)
	csvOpt.SizeCol = lo.FromPtrOr(e.CSV.SizeCol, csvOpt.SizeCol)
	csvOpt.OpCol = e.CSV.OpCol
	csvOpt.TTLCol = e.CSV.TTLCol
	csvOpt.HasHeader = e.CSV.Header
	csvOpt.IDIsNum = e.CSV.IDNumeric
	switch d := []rune(e.CSV.Delimiter); len(d) {
	case 0:
	case 1:
		csvOpt.Delimiter = d[0]
	default:
		return nil, errors.Errorf("csv delimiter %q must be one character", e.CSV.Delimiter)
	}
	return trace.FileOpener(e.Trace, format, csvOpt), nil
}
