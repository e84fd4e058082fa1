// Package memstore implements the in-memory store.Store backend: an
// insertion-ordered map per container type, deep-copied on every insert so
// that mutating a container returned by a read path never affects the
// store.
package memstore

import (
	"sync"

	"github.com/log2timeline/acstore/container"
	"github.com/log2timeline/acstore/errors"
	"github.com/log2timeline/acstore/filter"
	"github.com/log2timeline/acstore/identifier"
	"github.com/log2timeline/acstore/profiler"
	"github.com/log2timeline/acstore/store"
)

// perType holds one container type's insertion-ordered state.
type perType struct {
	bySeq map[int64]*container.Container // sequence-number -> stored copy
	order []int64                       // insertion order, index i holds sequence-number i+1
	next  int64                         // next sequence number to allocate
}

// Store is the in-memory backend.
type Store struct {
	mu       sync.Mutex
	open     bool
	types    map[string]*perType
	opts     *store.Options
	profiler profiler.Profiler
}

// Open returns a freshly opened in-memory store. There is no on-disk state
// to load; the store starts empty.
func Open(opts ...store.Option) *Store {
	o := store.NewOptions(opts...)
	s := &Store{
		open:  true,
		types: map[string]*perType{},
		opts:  o,
	}
	if o.Profiler != nil {
		s.profiler = o.Profiler
	}
	return s
}

func (s *Store) timer(name string) profiler.Timer {
	if s.profiler == nil {
		return noopTimer{}
	}
	return s.profiler.Timer(name)
}

type noopTimer struct{}

func (noopTimer) Start() {}
func (noopTimer) Stop()  {}

// SetProfiler implements store.Store.
func (s *Store) SetProfiler(p profiler.Profiler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiler = p
}

func (s *Store) typeState(typeName string, create bool) *perType {
	t, ok := s.types[typeName]
	if !ok {
		if !create {
			return nil
		}
		t = &perType{bySeq: map[int64]*container.Container{}}
		s.types[typeName] = t
	}
	return t
}

// Add implements store.Store.
func (s *Store) Add(c *container.Container) error {
	t := s.timer("add")
	t.Start()
	defer t.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return errors.IOErrorf("store is closed")
	}
	if _, ok := c.Identifier(); ok {
		return errors.IOErrorf("container already has an identifier")
	}

	typeName := c.TypeName()
	pt := s.typeState(typeName, true)
	seq := pt.next + 1
	pt.next = seq

	id := identifier.New(typeName, seq)
	c.SetIdentifier(id)

	stored := c.Clone()
	pt.bySeq[seq] = stored
	pt.order = append(pt.order, seq)
	return nil
}

// Update implements store.Store.
func (s *Store) Update(c *container.Container) error {
	t := s.timer("update")
	t.Start()
	defer t.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return errors.IOErrorf("store is closed")
	}
	id, ok := c.Identifier()
	if !ok {
		return errors.IOErrorf("container has no identifier")
	}
	pt := s.typeState(id.TypeName, false)
	if pt == nil {
		return errors.IOErrorf("no record for identifier %q", id.String())
	}
	if _, ok := pt.bySeq[id.SequenceNumber]; !ok {
		return errors.IOErrorf("no record for identifier %q", id.String())
	}
	pt.bySeq[id.SequenceNumber] = c.Clone()
	return nil
}

// GetByIdentifier implements store.Store.
func (s *Store) GetByIdentifier(typeName string, id identifier.Identifier) (*container.Container, bool, error) {
	t := s.timer("get_by_identifier")
	t.Start()
	defer t.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil, false, errors.IOErrorf("store is closed")
	}
	pt := s.typeState(typeName, false)
	if pt == nil {
		return nil, false, nil
	}
	c, ok := pt.bySeq[id.SequenceNumber]
	if !ok {
		return nil, false, nil
	}
	return c.Clone(), true, nil
}

// GetByIndex implements store.Store.
func (s *Store) GetByIndex(typeName string, index int64) (*container.Container, bool, error) {
	t := s.timer("get_by_index")
	t.Start()
	defer t.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil, false, errors.IOErrorf("store is closed")
	}
	pt := s.typeState(typeName, false)
	if pt == nil || index < 0 || index >= int64(len(pt.order)) {
		return nil, false, nil
	}
	seq := pt.order[index]
	c := pt.bySeq[seq]
	return c.Clone(), true, nil
}

// Count implements store.Store.
func (s *Store) Count(typeName string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0, errors.IOErrorf("store is closed")
	}
	pt := s.typeState(typeName, false)
	if pt == nil {
		return 0, nil
	}
	return int64(len(pt.order)), nil
}

// Has implements store.Store.
func (s *Store) Has(typeName string) (bool, error) {
	n, err := s.Count(typeName)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return errors.IOErrorf("store is already closed")
	}
	s.open = false
	return nil
}

// iterator walks one type's insertion order under the store's lock,
// snapshotting the sequence list at creation time.
type iterator struct {
	s        *Store
	typeName string
	pred     *filter.Predicate
	seqs     []int64
	pos      int
}

// Iterate implements store.Store.
func (s *Store) Iterate(typeName string, pred *filter.Predicate) (store.Iterator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil, errors.IOErrorf("store is closed")
	}
	pt := s.typeState(typeName, false)
	var seqs []int64
	if pt != nil {
		seqs = append(seqs, pt.order...)
	}
	return &iterator{s: s, typeName: typeName, pred: pred, seqs: seqs}, nil
}

// containerResolver adapts *container.Container to filter.Resolver.
type containerResolver struct{ c *container.Container }

func (r containerResolver) Get(name string) (interface{}, bool) { return r.c.Get(name) }

func (it *iterator) Next() (*container.Container, bool, error) {
	for {
		if it.pos >= len(it.seqs) {
			return nil, false, nil
		}
		seq := it.seqs[it.pos]
		it.pos++

		it.s.mu.Lock()
		if !it.s.open {
			it.s.mu.Unlock()
			return nil, false, errors.IOErrorf("store is closed")
		}
		pt := it.s.typeState(it.typeName, false)
		var c *container.Container
		if pt != nil {
			if stored, ok := pt.bySeq[seq]; ok {
				c = stored.Clone()
			}
		}
		it.s.mu.Unlock()

		if c == nil {
			continue
		}
		if filter.Eval(it.pred, containerResolver{c}) {
			return c, true, nil
		}
	}
}

func (it *iterator) Close() error { return nil }
