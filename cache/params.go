package cache

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Params holds a parsed policy parameter string of the form
// "key=value;key=value". Keys are case-insensitive. Policies read the keys
// they document and call Finish, which rejects anything left unread.
type Params struct {
	keys []string
	vals map[string]string
	used map[string]bool
}

// ParseParams parses s. Whitespace around keys and values is ignored, as are
// empty segments; a segment without '=' or a repeated key is an error.
func ParseParams(s string) (*Params, error) {
	p := &Params{vals: map[string]string{}, used: map[string]bool{}}
	for _, seg := range strings.Split(s, ";") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		k, v, ok := strings.Cut(seg, "=")
		if !ok {
			return nil, errors.Wrapf(ErrInvalidParam, "%q is not key=value", seg)
		}
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			return nil, errors.Wrapf(ErrInvalidParam, "empty key in %q", seg)
		}
		if _, dup := p.vals[k]; dup {
			return nil, errors.Wrapf(ErrInvalidParam, "key %q given twice", k)
		}
		p.keys = append(p.keys, k)
		p.vals[k] = strings.TrimSpace(v)
	}
	return p, nil
}

func (p *Params) lookup(key string) (string, bool) {
	v, ok := p.vals[key]
	if ok {
		p.used[key] = true
	}
	return v, ok
}

// Int returns key as an int, or def when absent.
func (p *Params) Int(key string, def int) (int, error) {
	v, ok := p.lookup(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidParam, "%s=%q: %v", key, v, err)
	}
	return n, nil
}

// Uint64 returns key as a uint64, or def when absent.
func (p *Params) Uint64(key string, def uint64) (uint64, error) {
	v, ok := p.lookup(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidParam, "%s=%q: %v", key, v, err)
	}
	return n, nil
}

// Float returns key as a float64, or def when absent.
func (p *Params) Float(key string, def float64) (float64, error) {
	v, ok := p.lookup(key)
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidParam, "%s=%q: %v", key, v, err)
	}
	return f, nil
}

// Finish reports the first key no accessor consumed as ErrUnknownParam.
func (p *Params) Finish(policy string) error {
	for _, k := range p.keys {
		if !p.used[k] {
			return errors.Wrapf(ErrUnknownParam, "%s: %q", policy, k)
		}
	}
	return nil
}

// String renders the parameters back in canonical form.
func (p *Params) String() string {
	var b strings.Builder
	for i, k := range p.keys {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(p.vals[k])
	}
	return b.String()
}

// NoParams is the parameter check for policies that take none.
func NoParams(policy, s string) error {
	p, err := ParseParams(s)
	if err != nil {
		return errors.Wrap(err, policy)
	}
	return p.Finish(policy)
}
