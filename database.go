package autodb

import (
	"database/sql"
	"errors"
	"sync"

	"github.com/gopsql/db"
	"github.com/gopsql/logger"
	"github.com/gopsql/standard"
	"golang.org/x/sync/singleflight"
)

type (
	// DB is a binding between this layer and one live database connection
	// plus an optional schema. Binding snapshots the catalog and registers
	// one unresolved slot per table name, under the name and its upper/lower
	// spellings; no table is reflected before its first access. Resolved
	// handles are cached for the binding's lifetime and invalidated by
	// Rebind/Refresh — holding a Table across a rebind is caller error.
	DB struct {
		dialect string
		schema  string
		conn    db.DB
		logger  logger.Logger
		session Session

		mu    sync.RWMutex
		names []string
		slots map[string]*tableSlot
		group singleflight.Group
	}

	// Schema is a construction option naming the schema to bind to. The
	// literal values "none" and "None" mean no schema.
	Schema string

	tableSlot struct {
		name  string // catalog spelling
		table *Table // guarded by DB.mu; nil while unresolved
	}
)

// New binds to an existing connection. A nil connection is a deliberate
// no-op state: the DB is valid but every operation fails with ErrNoBinding
// until Rebind. For available options, see SetOptions.
//
//	conn := standard.NewDB("postgres", sqlDB)
//	d, err := autodb.New(autodb.Postgres, conn, autodb.Schema("public"))
func New(dialect string, conn db.DB, options ...interface{}) (*DB, error) {
	d := &DB{dialect: dialect, conn: conn}
	d.SetOptions(options...)
	if d.conn == nil {
		return d, nil
	}
	d.session = NewSession(d.conn, d.logger)
	if err := d.bind(); err != nil {
		return nil, err
	}
	return d, nil
}

// Open turns a connection string into a live connection through database/sql
// and binds to it. The driver for DriverName(dialect) must be registered by
// the caller. For available options, see SetOptions.
func Open(dialect, dsn string, options ...interface{}) (*DB, error) {
	c, err := sql.Open(DriverName(dialect), dsn)
	if err != nil {
		return nil, err
	}
	return New(dialect, standard.NewDB(DriverName(dialect), c), options...)
}

// SetOptions sets the schema (see Schema), the logger and/or the connection.
func (d *DB) SetOptions(options ...interface{}) *DB {
	for _, option := range options {
		switch o := option.(type) {
		case Schema:
			if o == "none" || o == "None" {
				o = ""
			}
			d.schema = string(o)
		case logger.Logger:
			d.logger = o
		case db.DB:
			d.conn = o
		}
	}
	return d
}

// Rebind fully reconstructs the binding around a new connection: catalog and
// slots are rebuilt from scratch and every previously resolved handle is
// forgotten. The swap is atomic; readers either see the old state or the new
// one.
func (d *DB) Rebind(dialect string, conn db.DB, options ...interface{}) error {
	d.dialect = dialect
	d.conn = conn
	d.SetOptions(options...)
	if d.conn == nil {
		return ErrNoBinding
	}
	d.session = NewSession(d.conn, d.logger)
	return d.bind()
}

// Refresh rebuilds the catalog and resets every slot to unresolved, keeping
// the current connection.
func (d *DB) Refresh() error {
	if d.conn == nil {
		return ErrNoBinding
	}
	return d.bind()
}

func (d *DB) bind() error {
	names, err := d.listTables()
	if err != nil {
		return err
	}
	slots := make(map[string]*tableSlot, len(names)*3)
	for _, name := range names {
		slots[name] = &tableSlot{name: name}
	}
	// Case aliases never shadow a table registered under its exact name.
	for _, name := range names {
		slot := slots[name]
		for _, alias := range caseVariants(name) {
			if _, ok := slots[alias]; !ok {
				slots[alias] = slot
			}
		}
	}
	d.mu.Lock()
	d.names = names
	d.slots = slots
	d.mu.Unlock()
	return nil
}

func (d *DB) String() string {
	if d.conn == nil {
		return `autodb.DB (unbound)`
	}
	return `autodb.DB (dialect: "` + d.dialect + `", schema: "` + d.schema + `")`
}

// Dialect returns the dialect the binding was constructed with.
func (d *DB) Dialect() string { return d.dialect }

// Schema returns the bound schema name, empty if none.
func (d *DB) Schema() string { return d.schema }

// Connection returns the bound connection, nil when unbound.
func (d *DB) Connection() db.DB { return d.conn }

// Session returns the binding's session.
func (d *DB) Session() Session { return d.session }

// Tables returns the catalog snapshot taken at bind time. It is not
// refreshed when the database changes externally; call Refresh for that.
func (d *DB) Tables() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string{}, d.names...)
}

// MustTable is like Table but panics if the lookup fails.
func (d *DB) MustTable(name string) *Table {
	t, err := d.Table(name)
	if err != nil {
		panic(err)
	}
	return t
}

// Table returns the resolved handle registered under name. Names are
// registered per catalog entry in three spellings (as-is, lower, upper); any
// other spelling fails with TableNotFoundError without touching the
// database. The first access to a slot reflects the table — trying the
// catalog spelling, then lower case, then upper case — and memoizes the
// handle, so later lookups through any alias return the identical pointer.
// At most one reflection per table is in flight at a time; concurrent
// callers receive the same handle. Failures are never cached.
func (d *DB) Table(name string) (*Table, error) {
	if d.conn == nil {
		return nil, ErrNoBinding
	}
	d.mu.RLock()
	slot, ok := d.slots[name]
	var cached *Table
	if ok {
		cached = slot.table
	}
	names := d.names
	d.mu.RUnlock()
	if !ok {
		return nil, &TableNotFoundError{Name: name, Tables: names}
	}
	if cached != nil {
		return cached, nil
	}
	v, err, _ := d.group.Do(slot.name, func() (interface{}, error) {
		d.mu.RLock()
		t := slot.table
		d.mu.RUnlock()
		if t != nil {
			return t, nil
		}
		t, err := d.resolve(slot.name)
		if err != nil {
			return nil, err
		}
		d.mu.Lock()
		slot.table = t
		for _, alias := range caseVariants(t.Name) {
			if _, ok := d.slots[alias]; !ok {
				d.slots[alias] = slot
			}
		}
		d.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Table), nil
}

// resolve reflects the first case variant that answers. A table that
// reflects but lacks a primary key fails immediately; only "no such table"
// moves the fallback along.
func (d *DB) resolve(name string) (*Table, error) {
	for _, variant := range caseVariants(name) {
		t, err := d.reflectTable(variant)
		if err == nil {
			return t, nil
		}
		if errors.Is(err, errNoSuchTable) {
			continue
		}
		return nil, err
	}
	d.mu.RLock()
	names := d.names
	d.mu.RUnlock()
	return nil, &TableNotFoundError{Name: name, Tables: names, reflected: true}
}

// Reflect eagerly materializes every catalog table in one pass, overriding
// the lazy semantics: afterwards any access returns a resolved handle
// without further reflection. Tables without a primary key are skipped, the
// way the lazy path would reject them one by one. Connectivity errors
// propagate.
func (d *DB) Reflect() error {
	if d.conn == nil {
		return ErrNoBinding
	}
	for _, name := range d.Tables() {
		if _, err := d.Table(name); err != nil {
			if IsMissingPrimaryKey(err) || IsTableNotFound(err) {
				continue
			}
			return err
		}
	}
	return nil
}

// CreateAll issues CREATE TABLE DDL for the given tables, or for every
// catalog table when none are given, then performs a full Refresh so newly
// created tables become visible as unresolved slots. With checkFirst, tables
// already present in the live catalog are skipped.
func (d *DB) CreateAll(checkFirst bool, tables ...*Table) error {
	if d.conn == nil {
		return ErrNoBinding
	}
	if len(tables) == 0 {
		if err := d.Reflect(); err != nil {
			return err
		}
		seen := map[*tableSlot]bool{}
		d.mu.RLock()
		for _, name := range d.names {
			slot := d.slots[name]
			if slot.table != nil && !seen[slot] {
				seen[slot] = true
				tables = append(tables, slot.table)
			}
		}
		d.mu.RUnlock()
	}
	existing := map[string]bool{}
	if checkFirst {
		names, err := d.listTables()
		if err != nil {
			return err
		}
		for _, name := range names {
			existing[name] = true
		}
	}
	withIfNotExists := d.dialect == Postgres || d.dialect == MySQL || d.dialect == SQLite
	for _, t := range tables {
		if checkFirst && existing[t.Name] {
			continue
		}
		if _, err := d.session.Execute(t.createSQL(checkFirst && withIfNotExists)); err != nil {
			return err
		}
	}
	return d.Refresh()
}

// Update registers the rows with the session for insertion or update on the
// next Flush or Commit (session add semantics).
func (d *DB) Update(rows ...*Row) error {
	if d.session == nil {
		return ErrNoBinding
	}
	if len(rows) == 1 {
		d.session.Add(rows[0])
		return nil
	}
	d.session.AddAll(rows)
	return nil
}

// Merge registers the rows to be updated by primary key, inserting the ones
// that do not exist yet.
func (d *DB) Merge(rows ...*Row) error {
	if d.session == nil {
		return ErrNoBinding
	}
	for _, row := range rows {
		d.session.Merge(row)
	}
	return nil
}

// Delete registers the rows for deletion by primary key.
func (d *DB) Delete(rows ...*Row) error {
	if d.session == nil {
		return ErrNoBinding
	}
	for _, row := range rows {
		d.session.Delete(row)
	}
	return nil
}

// Query passes a raw query through the session.
func (d *DB) Query(query string, args ...interface{}) (db.Rows, error) {
	if d.session == nil {
		return nil, ErrNoBinding
	}
	return d.session.Query(query, args...)
}

// Execute passes a raw statement through the session and returns the
// affected-row count.
func (d *DB) Execute(query string, args ...interface{}) (int64, error) {
	if d.session == nil {
		return 0, ErrNoBinding
	}
	return d.session.Execute(query, args...)
}

// Flush writes pending rows through the session (see Session.Flush).
func (d *DB) Flush(rows ...*Row) error {
	if d.session == nil {
		return ErrNoBinding
	}
	return d.session.Flush(rows...)
}

// Commit flushes and commits the session transaction.
func (d *DB) Commit() error {
	if d.session == nil {
		return ErrNoBinding
	}
	return d.session.Commit()
}

// Rollback discards pending rows and rolls back the session transaction.
func (d *DB) Rollback() error {
	if d.session == nil {
		return ErrNoBinding
	}
	return d.session.Rollback()
}

// Close closes the session. The connection itself stays open and belongs to
// whoever bound it; close it through Connection when this binding owns it.
func (d *DB) Close() error {
	if d.session == nil {
		return nil
	}
	return d.session.Close()
}

// query runs introspection statements for the catalog and the reflector.
func (d *DB) query(query string, args ...interface{}) (db.Rows, error) {
	if d.conn == nil {
		return nil, ErrNoBinding
	}
	query, args = convertParams(d.conn, query, args)
	d.log(query, args)
	return d.conn.Query(query, args...)
}

func (d *DB) log(query string, args []interface{}) {
	if d.logger == nil {
		return
	}
	if len(args) == 0 {
		d.logger.Debug(query)
		return
	}
	d.logger.Debug(query, args)
}
