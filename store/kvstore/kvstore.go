// Package kvstore implements the ordered-KV store.Store backend on top of
// github.com/dgraph-io/badger/v4: one record per container, keyed by its
// canonical identifier string, so that a per-type range scan is a
// lexicographic prefix scan.
package kvstore

import (
	"strconv"
	"sync"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/log2timeline/acstore/cache"
	"github.com/log2timeline/acstore/container"
	"github.com/log2timeline/acstore/docformat"
	"github.com/log2timeline/acstore/errors"
	"github.com/log2timeline/acstore/filter"
	"github.com/log2timeline/acstore/identifier"
	"github.com/log2timeline/acstore/logging"
	"github.com/log2timeline/acstore/profiler"
	"github.com/log2timeline/acstore/store"
)

// Store is the ordered-KV backend.
type Store struct {
	mu       sync.Mutex
	open     bool
	db       *badger.DB
	cache    *cache.Cache
	seq      map[string]int64 // typeName -> highest allocated sequence number
	opts     *store.Options
	profiler profiler.Profiler
	log      logging.Logger
}

// Open opens (creating if absent) the badger database directory at path.
func Open(path string, opts ...store.Option) (*Store, error) {
	if path == "" {
		return nil, errors.ValueErrorf("kvstore: path is required")
	}
	o := store.NewOptions(opts...)

	badgerOpts := badger.DefaultOptions(path).WithLogger(nil).WithReadOnly(o.ReadOnly)
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, errors.WrapIO(err, "opening ordered-KV store at %q", path)
	}

	s := &Store{
		open:  true,
		db:    db,
		cache: cache.New(o.CacheCapacity),
		seq:   map[string]int64{},
		opts:  o,
		log:   o.Logger,
	}
	if o.Profiler != nil {
		s.profiler = o.Profiler
	}

	if err := s.recoverSequences(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
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

func (s *Store) count(name string, delta int64) {
	if s.profiler != nil {
		s.profiler.Count(name, delta)
	}
}

// SetProfiler implements store.Store.
func (s *Store) SetProfiler(p profiler.Profiler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiler = p
}

func dataKey(typeName string, seq int64) []byte {
	return []byte(typeName + "." + strconv.FormatInt(seq, 10))
}

// recoverSequences restores, for every registered container type, the
// per-type sequence counter to the count of keys beginning at
// "<type>.1" and contiguously following.
func (s *Store) recoverSequences() error {
	for _, typeName := range s.opts.ContainerRegistry.Types() {
		n, err := s.probeSequence(typeName)
		if err != nil {
			return err
		}
		if n > 0 {
			s.seq[typeName] = n
		}
	}
	return nil
}

func (s *Store) probeSequence(typeName string) (int64, error) {
	var n int64
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(dataKey(typeName, 1)); err != nil {
			if err == badger.ErrKeyNotFound {
				n = 0
				return nil
			}
			return err
		}
		n = 1
		for {
			if _, err := txn.Get(dataKey(typeName, n+1)); err != nil {
				if err == badger.ErrKeyNotFound {
					return nil
				}
				return err
			}
			n++
		}
	})
	if err != nil {
		return 0, errors.WrapIO(err, "recovering sequence counter for type %q", typeName)
	}
	return n, nil
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
	if s.opts.ReadOnly {
		return errors.IOErrorf("store is read-only")
	}
	if _, ok := c.Identifier(); ok {
		return errors.IOErrorf("container already has an identifier")
	}

	typeName := c.TypeName()
	seq := s.seq[typeName] + 1
	id := identifier.New(typeName, seq)
	c.SetIdentifier(id)

	bs, err := docformat.Encode(c, s.opts.TypeRegistry)
	if err != nil {
		return err
	}

	key := dataKey(typeName, seq)
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, bs)
	}); err != nil {
		return errors.WrapIO(err, "writing container %q", id.String())
	}
	s.count("keys_written", 1)
	s.count("bytes_written", int64(len(bs)))

	s.seq[typeName] = seq
	s.cache.Put(typeName, seq-1, c.Clone())
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
	if s.opts.ReadOnly {
		return errors.IOErrorf("store is read-only")
	}
	id, ok := c.Identifier()
	if !ok {
		return errors.IOErrorf("container has no identifier")
	}

	key := dataKey(id.TypeName, id.SequenceNumber)
	exists := false
	if err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	}); err != nil {
		return errors.WrapIO(err, "checking record %q", id.String())
	}
	if !exists {
		return errors.IOErrorf("no record for identifier %q", id.String())
	}

	bs, err := docformat.Encode(c, s.opts.TypeRegistry)
	if err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, bs)
	}); err != nil {
		return errors.WrapIO(err, "updating container %q", id.String())
	}
	s.count("keys_written", 1)

	s.cache.Put(id.TypeName, id.SequenceNumber-1, c.Clone())
	return nil
}

func (s *Store) readAt(typeName string, seq int64) (*container.Container, bool, error) {
	key := dataKey(typeName, seq)
	var bs []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		bs, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, false, errors.WrapIO(err, "reading container %q.%d", typeName, seq)
	}
	if bs == nil {
		return nil, false, nil
	}
	s.count("keys_read", 1)
	s.count("bytes_read", int64(len(bs)))

	c, err := docformat.Decode(bs, s.opts.ContainerRegistry, s.opts.TypeRegistry)
	if err != nil {
		return nil, false, err
	}
	c.SetIdentifier(identifier.New(typeName, seq))
	return c, true, nil
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
	if cached, ok := s.cache.Get(typeName, id.SequenceNumber-1); ok {
		return cached.Clone(), true, nil
	}
	c, ok, err := s.readAt(typeName, id.SequenceNumber)
	if err != nil || !ok {
		return nil, ok, err
	}
	s.cache.Put(typeName, id.SequenceNumber-1, c.Clone())
	return c, true, nil
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
	if index < 0 || index >= s.seq[typeName] {
		return nil, false, nil
	}
	if cached, ok := s.cache.Get(typeName, index); ok {
		return cached.Clone(), true, nil
	}
	c, ok, err := s.readAt(typeName, index+1)
	if err != nil || !ok {
		return nil, ok, err
	}
	s.cache.Put(typeName, index, c.Clone())
	return c, true, nil
}

// Count implements store.Store.
func (s *Store) Count(typeName string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0, errors.IOErrorf("store is closed")
	}
	return s.seq[typeName], nil
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
	s.cache.Purge()
	if err := s.db.Close(); err != nil {
		return errors.WrapIO(err, "closing ordered-KV store")
	}
	return nil
}

// containerResolver adapts *container.Container to filter.Resolver.
type containerResolver struct{ c *container.Container }

func (r containerResolver) Get(name string) (interface{}, bool) { return r.c.Get(name) }

// iterator walks one type's key range with a badger prefix iterator, backed
// by the snapshot-isolated read transaction it was opened under.
type iterator struct {
	s        *Store
	typeName string
	pred     *filter.Predicate
	txn      *badger.Txn
	it       *badger.Iterator
}

// Iterate implements store.Store. The scan is a lexicographic prefix walk
// over every key beginning "<type>."; keys of a type whose name extends
// typeName with a dot (e.g. "<type>.sub") fall under the same prefix.
func (s *Store) Iterate(typeName string, pred *filter.Predicate) (store.Iterator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil, errors.IOErrorf("store is closed")
	}

	txn := s.db.NewTransaction(false)
	it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(typeName + ".")})
	it.Rewind()
	return &iterator{s: s, typeName: typeName, pred: pred, txn: txn, it: it}, nil
}

func (it *iterator) Next() (*container.Container, bool, error) {
	for it.it.Valid() {
		item := it.it.Item()
		key := item.KeyCopy(nil)
		bs, err := item.ValueCopy(nil)
		if err != nil {
			it.it.Next()
			return nil, false, errors.WrapIO(err, "iterating type %q", it.typeName)
		}
		it.it.Next()

		id, err := identifier.Parse(string(key))
		if err != nil {
			return nil, false, errors.WrapIO(err, "iterating type %q", it.typeName)
		}

		c, err := docformat.Decode(bs, it.s.opts.ContainerRegistry, it.s.opts.TypeRegistry)
		if err != nil {
			return nil, false, err
		}
		c.SetIdentifier(id)

		if filter.Eval(it.pred, containerResolver{c}) {
			return c, true, nil
		}
	}
	return nil, false, nil
}

func (it *iterator) Close() error {
	it.it.Close()
	it.txn.Discard()
	return nil
}
