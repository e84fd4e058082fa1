// Package tablestore implements the transactional store.Store backend on
// top of database/sql and the modernc.org/sqlite driver: one table per
// container type, a metadata table recording the on-disk format version,
// and a batched in-memory write cache flushed as an upsert transaction.
package tablestore

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/google/uuid"

	"github.com/log2timeline/acstore/cache"
	"github.com/log2timeline/acstore/container"
	"github.com/log2timeline/acstore/errors"
	"github.com/log2timeline/acstore/filter"
	"github.com/log2timeline/acstore/identifier"
	"github.com/log2timeline/acstore/logging"
	"github.com/log2timeline/acstore/profiler"
	"github.com/log2timeline/acstore/store"
)

// DefaultBatchSize is the write-cache flush threshold used when
// store.WithBatchSize is not supplied.
const DefaultBatchSize = 100

// pendingWrite is one queued insert/update awaiting flush.
type pendingWrite struct {
	id *identifier.Identifier
	c  *container.Container
}

// Store is the transactional table backend.
type Store struct {
	mu   sync.Mutex
	open bool
	db   *sql.DB

	opts     *store.Options
	cache    *cache.Cache
	log      logging.Logger
	profiler profiler.Profiler

	batchSize int
	readOnly  bool

	tablesCreated  map[string]bool
	seq            map[string]int64
	pending        map[string][]pendingWrite
	upgradeOnClose bool
}

// Open opens (creating if absent) the sqlite database file at path.
func Open(path string, opts ...store.Option) (*Store, error) {
	if path == "" {
		return nil, errors.ValueErrorf("tablestore: path is required")
	}
	o := store.NewOptions(opts...)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WrapIO(err, "opening table store at %q", path)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.WrapIO(err, "setting %q", pragma)
		}
	}

	upgradeOnClose, err := checkCompatibility(db, o.ReadOnly)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	batchSize := o.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	s := &Store{
		open:          true,
		db:            db,
		opts:          o,
		cache:         cache.New(o.CacheCapacity),
		log:           o.Logger,
		batchSize:     batchSize,
		readOnly:      o.ReadOnly,
		tablesCreated: map[string]bool{},
		seq:           map[string]int64{},
		pending:       map[string][]pendingWrite{},
	}
	if o.Profiler != nil {
		s.profiler = o.Profiler
	}
	s.upgradeOnClose = upgradeOnClose

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

func (s *Store) recoverSequences() error {
	rows, err := s.db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name != 'metadata'`)
	if err != nil {
		return errors.WrapIO(err, "listing existing tables")
	}
	defer rows.Close()

	var tableNames []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return errors.WrapIO(err, "listing existing tables")
		}
		tableNames = append(tableNames, name)
	}
	if err := rows.Err(); err != nil {
		return errors.WrapIO(err, "listing existing tables")
	}

	for _, name := range tableNames {
		s.tablesCreated[name] = true
		var n int64
		if err := s.db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, name)).Scan(&n); err != nil {
			return errors.WrapIO(err, "counting rows in table %q", name)
		}
		s.seq[name] = n
	}
	return nil
}

func (s *Store) ensureTable(typeName string) error {
	if s.tablesCreated[typeName] {
		return nil
	}
	def, ok := s.opts.ContainerRegistry.Def(typeName)
	if !ok {
		return errors.KeyErrorf("container type %q is not registered", typeName)
	}
	if err := createTable(s.db, def, s.opts.TypeRegistry); err != nil {
		return err
	}
	s.tablesCreated[typeName] = true
	return nil
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
	if s.readOnly {
		return errors.IOErrorf("store is read-only")
	}
	if _, ok := c.Identifier(); ok {
		return errors.IOErrorf("container already has an identifier")
	}

	typeName := c.TypeName()
	if err := s.ensureTable(typeName); err != nil {
		return err
	}

	seq := s.seq[typeName] + 1
	id := identifier.New(typeName, seq)
	c.SetIdentifier(id)
	s.seq[typeName] = seq

	stored := c.Clone()
	s.pending[typeName] = append(s.pending[typeName], pendingWrite{id: &id, c: stored})
	s.cache.Put(typeName, seq-1, stored.Clone())

	if len(s.pending[typeName]) >= s.batchSize {
		if err := s.flush(typeName); err != nil {
			return err
		}
	}
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
	if s.readOnly {
		return errors.IOErrorf("store is read-only")
	}
	id, ok := c.Identifier()
	if !ok {
		return errors.IOErrorf("container has no identifier")
	}
	if id.SequenceNumber < 1 || id.SequenceNumber > s.seq[id.TypeName] {
		return errors.IOErrorf("no record for identifier %q", id.String())
	}

	stored := c.Clone()
	s.pending[id.TypeName] = append(s.pending[id.TypeName], pendingWrite{id: &id, c: stored})
	s.cache.Put(id.TypeName, id.SequenceNumber-1, stored.Clone())

	if len(s.pending[id.TypeName]) >= s.batchSize {
		if err := s.flush(id.TypeName); err != nil {
			return err
		}
	}
	return nil
}

// flush commits every pending write for typeName as one upsert transaction.
// Callers must hold s.mu.
func (s *Store) flush(typeName string) error {
	batch := s.pending[typeName]
	if len(batch) == 0 {
		return nil
	}
	batchID := uuid.New().String()
	s.log.WithField("batch_id", batchID).WithField("table", typeName).WithField("count", len(batch)).Infof("flushing write cache")

	tx, err := s.db.Begin()
	if err != nil {
		s.log.WithField("batch_id", batchID).Errorf("flush failed to begin transaction: %v", err)
		return errors.WrapIO(err, "beginning flush transaction for table %q", typeName)
	}

	for _, w := range batch {
		columns, values, err := encodeRow(w.c, s.opts.TypeRegistry)
		if err != nil {
			_ = tx.Rollback()
			s.log.WithField("batch_id", batchID).Errorf("flush failed encoding row: %v", err)
			return err
		}
		if err := upsertRow(tx, typeName, columns, values); err != nil {
			_ = tx.Rollback()
			s.log.WithField("batch_id", batchID).Errorf("flush failed writing row: %v", err)
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		s.log.WithField("batch_id", batchID).Errorf("flush failed to commit: %v", err)
		return errors.WrapIO(err, "committing flush transaction for table %q", typeName)
	}

	s.log.WithField("batch_id", batchID).Infof("flush succeeded")
	s.count("rows_flushed", int64(len(batch)))
	delete(s.pending, typeName)
	return nil
}

func upsertRow(tx *sql.Tx, typeName string, columns []string, values []interface{}) error {
	query := buildUpsert(typeName, columns)
	if _, err := tx.Exec(query, values...); err != nil {
		return errors.WrapIO(err, "writing row to table %q", typeName)
	}
	return nil
}

func buildUpsert(typeName string, columns []string) string {
	placeholders := make([]byte, 0, len(columns)*2)
	colList := make([]byte, 0, 64)
	updateList := make([]byte, 0, 64)
	for i, col := range columns {
		if i > 0 {
			placeholders = append(placeholders, ',', ' ')
			colList = append(colList, ',', ' ')
		}
		placeholders = append(placeholders, '?')
		colList = append(colList, '"')
		colList = append(colList, col...)
		colList = append(colList, '"')
		if i > 0 {
			if len(updateList) > 0 {
				updateList = append(updateList, ',', ' ')
			}
			updateList = append(updateList, '"')
			updateList = append(updateList, col...)
			updateList = append(updateList, '"', '=', 'e', 'x', 'c', 'l', 'u', 'd', 'e', 'd', '.', '"')
			updateList = append(updateList, col...)
			updateList = append(updateList, '"')
		}
	}
	return fmt.Sprintf(`INSERT INTO "%s" (%s) VALUES (%s) ON CONFLICT(%s) DO UPDATE SET %s`,
		typeName, string(colList), string(placeholders), identifierColumn, string(updateList))
}

// flushIfPending flushes typeName's pending writes if any exist. Callers
// must hold s.mu.
func (s *Store) flushIfPending(typeName string) error {
	if len(s.pending[typeName]) == 0 {
		return nil
	}
	return s.flush(typeName)
}

func (s *Store) readByIdentifierColumn(typeName string, idStr string) (*container.Container, bool, error) {
	def, ok := s.opts.ContainerRegistry.Def(typeName)
	if !ok {
		return nil, false, errors.KeyErrorf("container type %q is not registered", typeName)
	}
	cols := selectColumns(def)
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = `"` + c + `"`
	}
	query := fmt.Sprintf(`SELECT %s FROM "%s" WHERE "%s" = ?`, joinComma(quoted), typeName, identifierColumn)
	rows, err := s.db.Query(query, idStr)
	if err != nil {
		return nil, false, errors.WrapIO(err, "reading container %q", idStr)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, false, nil
	}
	c, err := scanRow(rows, def, s.opts.TypeRegistry)
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
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
	if !s.tablesCreated[typeName] {
		return nil, false, nil
	}
	if err := s.flushIfPending(typeName); err != nil {
		return nil, false, err
	}
	c, ok, err := s.readByIdentifierColumn(typeName, id.String())
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
	if !s.open {
		s.mu.Unlock()
		return nil, false, errors.IOErrorf("store is closed")
	}
	if index < 0 || index >= s.seq[typeName] {
		s.mu.Unlock()
		return nil, false, nil
	}
	s.mu.Unlock()

	return s.GetByIdentifier(typeName, identifier.New(typeName, index+1))
}

// Count implements store.Store.
func (s *Store) Count(typeName string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0, errors.IOErrorf("store is closed")
	}
	if !s.tablesCreated[typeName] {
		return 0, nil
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
	for typeName := range s.pending {
		if err := s.flush(typeName); err != nil {
			s.open = false
			_ = s.db.Close()
			return err
		}
	}
	if s.upgradeOnClose && !s.readOnly {
		if err := finalizeUpgrade(s.db); err != nil {
			s.open = false
			_ = s.db.Close()
			return err
		}
	}
	s.open = false
	s.cache.Purge()
	if err := s.db.Close(); err != nil {
		return errors.WrapIO(err, "closing table store")
	}
	return nil
}

// containerResolver adapts *container.Container to filter.Resolver.
type containerResolver struct{ c *container.Container }

func (r containerResolver) Get(name string) (interface{}, bool) { return r.c.Get(name) }

// iterator walks a type's table, applying SQL pushdown when possible and
// falling back to in-process filtering otherwise.
type iterator struct {
	rows *sql.Rows
	def  *container.Def
	s    *Store
	pred *filter.Predicate
}

// Iterate implements store.Store. Unlike the in-memory and ordered-KV
// backends, an unknown type raises an I/O error: this backend knows
// definitively which tables exist.
func (s *Store) Iterate(typeName string, pred *filter.Predicate) (store.Iterator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil, errors.IOErrorf("store is closed")
	}
	if !s.tablesCreated[typeName] {
		return nil, errors.IOErrorf("container type %q has no table", typeName)
	}
	if err := s.flushIfPending(typeName); err != nil {
		return nil, err
	}

	def, ok := s.opts.ContainerRegistry.Def(typeName)
	if !ok {
		return nil, errors.KeyErrorf("container type %q is not registered", typeName)
	}
	cols := selectColumns(def)
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = `"` + c + `"`
	}

	query := fmt.Sprintf(`SELECT %s FROM "%s"`, joinComma(quoted), typeName)
	var args []interface{}
	remaining := pred

	if clause, pushArgs, ok := filter.Pushdown(pred, columnSet(def)); ok {
		if clause != "" {
			query += " " + clause
		}
		args = pushArgs
		remaining = nil
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.WrapIO(err, "iterating table %q", typeName)
	}
	return &iterator{rows: rows, def: def, s: s, pred: remaining}, nil
}

func (it *iterator) Next() (*container.Container, bool, error) {
	for it.rows.Next() {
		c, err := scanRow(it.rows, it.def, it.s.opts.TypeRegistry)
		if err != nil {
			return nil, false, err
		}
		if it.pred != nil && !filter.Eval(it.pred, containerResolver{c}) {
			continue
		}
		return c, true, nil
	}
	if err := it.rows.Err(); err != nil {
		return nil, false, errors.WrapIO(err, "iterating table %q", it.def.Name)
	}
	return nil, false, nil
}

func (it *iterator) Close() error {
	return it.rows.Close()
}
