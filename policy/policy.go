// Package policy is the registry of eviction policies. Each policy lives in
// its own subpackage and is constructed here by name.
package policy

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/IvanBrykalov/cachesim/cache"
	"github.com/IvanBrykalov/cachesim/policy/arc"
	"github.com/IvanBrykalov/cachesim/policy/belady"
	"github.com/IvanBrykalov/cachesim/policy/fifo"
	"github.com/IvanBrykalov/cachesim/policy/lfu"
	"github.com/IvanBrykalov/cachesim/policy/lru"
	"github.com/IvanBrykalov/cachesim/policy/random"
	"github.com/IvanBrykalov/cachesim/policy/sfifo"
	"github.com/IvanBrykalov/cachesim/policy/slru"
	"github.com/IvanBrykalov/cachesim/policy/twoq"
)

// Constructor builds one cache instance from opt.
type Constructor func(opt cache.Options) (cache.Cache, error)

// wrap adapts a typed constructor to Constructor.
func wrap[C cache.Cache](fn func(cache.Options) (C, error)) Constructor {
	return func(opt cache.Options) (cache.Cache, error) {
		c, err := fn(opt)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

var registry = map[string]Constructor{
	fifo.Name:   wrap(fifo.New),
	lru.Name:    wrap(lru.New),
	lfu.Name:    wrap(lfu.New),
	arc.Name:    wrap(arc.New),
	sfifo.Name:  wrap(sfifo.New),
	slru.Name:   wrap(slru.New),
	twoq.Name:   wrap(twoq.New),
	random.Name: wrap(random.New),
	belady.Name: wrap(belady.New),
}

// aliases maps alternative spellings to registry names.
var aliases = map[string]string{
	"2q":      twoq.Name,
	"optimal": belady.Name,
}

// New constructs the policy called name (case-insensitive) with opt.
func New(name string, opt cache.Options) (cache.Cache, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	ctor, ok := registry[key]
	if !ok {
		return nil, errors.Wrapf(cache.ErrUnknownPolicy, "%q", name)
	}
	return ctor(opt)
}

// Names returns the registered policy names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Oracle reports whether the policy needs requests annotated with
// NextAccess.
func Oracle(name string) bool {
	key := strings.ToLower(strings.TrimSpace(name))
	return key == belady.Name || aliases[key] == belady.Name
}
