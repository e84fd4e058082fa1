// Package store defines the storage-engine contract shared by every
// backend (in-memory, ordered-KV, and transactional table) plus the
// functional-option configuration common to all of them.
package store

import (
	"github.com/log2timeline/acstore/container"
	"github.com/log2timeline/acstore/filter"
	"github.com/log2timeline/acstore/identifier"
	"github.com/log2timeline/acstore/logging"
	"github.com/log2timeline/acstore/profiler"
	"github.com/log2timeline/acstore/types"
)

// State is a store's lifecycle state.
type State int

const (
	Closed State = iota
	OpenRW
	OpenRO
)

func (s State) String() string {
	switch s {
	case OpenRW:
		return "open-rw"
	case OpenRO:
		return "open-ro"
	default:
		return "closed"
	}
}

// Store is the contract every backend implements.
type Store interface {
	// Add assigns the next sequence number for c's type, sets c's
	// identifier, and persists a deep copy. Requires the store to be open
	// for writing.
	Add(c *container.Container) error

	// Update overwrites the stored container sharing c's identifier.
	// Requires the store to be open for writing and c to already carry an
	// identifier previously assigned by this store.
	Update(c *container.Container) error

	// GetByIdentifier returns the container addressed by id, or (nil,
	// false, nil) if id's sequence number does not currently exist.
	GetByIdentifier(typeName string, id identifier.Identifier) (*container.Container, bool, error)

	// GetByIndex returns the container at the zero-based index within
	// typeName's insertion order, or (nil, false, nil) if index is out of
	// range.
	GetByIndex(typeName string, index int64) (*container.Container, bool, error)

	// Iterate returns an Iterator over typeName's containers in insertion
	// order. If pred is non-nil, only containers matching it are yielded.
	Iterate(typeName string, pred *filter.Predicate) (Iterator, error)

	// Count returns the number of containers of typeName, or 0 if typeName
	// has never been written to this store.
	Count(typeName string) (int64, error)

	// Has reports whether Count(typeName) > 0.
	Has(typeName string) (bool, error)

	// Close releases the backend's resources. Requires the store to not
	// already be closed.
	Close() error

	// SetProfiler attaches p, or detaches the current profiler if p is
	// nil.
	SetProfiler(p profiler.Profiler)
}

// Iterator is a lazy, single-pass cursor returned by Iterate.
type Iterator interface {
	// Next advances the iterator and returns the next container. The
	// second return is false once the iterator is exhausted; err is
	// non-nil only on a backend failure.
	Next() (*container.Container, bool, error)

	// Close releases any resources held by the iterator. Safe to call
	// multiple times.
	Close() error
}

// Options is the functional-option configuration shared by every backend
// constructor.
type Options struct {
	ContainerRegistry *container.Registry
	TypeRegistry      *types.Registry
	Logger            logging.Logger
	Profiler          profiler.Profiler
	ReadOnly          bool
	CacheCapacity     int
	BatchSize         int
}

// Option configures a backend at construction time.
type Option func(*Options)

// WithContainerRegistry overrides the container type registry used to
// resolve type names; defaults to container.Default.
func WithContainerRegistry(r *container.Registry) Option {
	return func(o *Options) { o.ContainerRegistry = r }
}

// WithTypeRegistry overrides the logical type registry used to resolve
// serializers; defaults to types.Default.
func WithTypeRegistry(r *types.Registry) Option {
	return func(o *Options) { o.TypeRegistry = r }
}

// WithLogger overrides the backend's logger; defaults to a no-op logger.
func WithLogger(l logging.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithProfiler attaches a profiler at construction time; equivalent to
// calling SetProfiler immediately after Open.
func WithProfiler(p profiler.Profiler) Option {
	return func(o *Options) { o.Profiler = p }
}

// WithReadOnly opens a persistent backend read-only. Ignored by the
// in-memory backend.
func WithReadOnly(readOnly bool) Option {
	return func(o *Options) { o.ReadOnly = readOnly }
}

// WithCacheCapacity overrides the read cache's capacity for persistent
// backends; defaults to cache.DefaultCapacity.
func WithCacheCapacity(capacity int) Option {
	return func(o *Options) { o.CacheCapacity = capacity }
}

// WithBatchSize overrides the table backend's write-cache flush threshold.
func WithBatchSize(n int) Option {
	return func(o *Options) { o.BatchSize = n }
}

// NewOptions applies opts over the package defaults.
func NewOptions(opts ...Option) *Options {
	o := &Options{
		ContainerRegistry: container.Default,
		TypeRegistry:      types.Default,
		Logger:            logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
