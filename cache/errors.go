package cache

import "github.com/pkg/errors"

type constError string

func (e constError) Error() string { return string(e) }

const (
	// ErrUnknownParam is returned when a policy parameter string names a key
	// the policy does not document.
	ErrUnknownParam = constError("unknown policy parameter")
	// ErrInvalidParam is returned for malformed or out-of-range parameters.
	ErrInvalidParam = constError("invalid policy parameter")
	// ErrInvalidCapacity is returned when a cache is configured with a
	// non-positive capacity.
	ErrInvalidCapacity = constError("invalid capacity")
	// ErrUnknownPolicy is returned by registries for unregistered names.
	ErrUnknownPolicy = constError("unknown policy")
	// ErrToEvictUnsupported is returned by ToEvict on policies that cannot
	// name their next victim without evicting it.
	ErrToEvictUnsupported = constError("to-evict query not supported")
	// ErrUnknownFormat is returned when opening a trace in an unsupported
	// format.
	ErrUnknownFormat = constError("unknown trace format")
)

// ValidateCapacity rejects capacities that cannot hold any object.
func ValidateCapacity(name string, capacity int64) error {
	if capacity <= 0 {
		return errors.Wrapf(ErrInvalidCapacity, "%s: capacity must be positive, got %d", name, capacity)
	}
	return nil
}
