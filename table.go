package autodb

import (
	"strconv"
	"strings"
)

type (
	// Table is the resolved, typed view over one reflected database table:
	// its name, primary key, unique indexes and constraints, and one Column
	// descriptor per column. It is built once per resolution by a DB and
	// cached for the binding's lifetime; a rebind invalidates every handle
	// built before it.
	Table struct {
		Name   string // name as reported by the database
		Schema string // schema the table was reflected from, may be empty

		// PrimaryKey lists the primary key column names in key order.
		// Resolution guarantees at least one entry.
		PrimaryKey []string

		// Indexes lists the table's indexes, unique ones first.
		Indexes []Index

		// Constraints lists the table's constraints as reported by the
		// database, in reported order.
		Constraints []Constraint

		columns []*Column
		byName  map[string]*Column
	}

	// Column describes one table column. Each column is reachable under its
	// reflected name plus the upper-case and lower-case spellings; all three
	// aliases yield the same *Column, so a mutation through any alias is
	// visible through the others.
	Column struct {
		Name       string // column name as reported by the database
		DataType   string // data type in database terms
		Nullable   bool
		Default    string // default expression, empty if none
		PrimaryKey bool
	}

	// Index describes an index on a table.
	Index struct {
		Name    string
		Unique  bool
		Columns []string
	}

	// Constraint describes a table constraint.
	Constraint struct {
		Name string
		Type string // e.g. "PRIMARY KEY", "UNIQUE"
	}

	// Record maps field names to values. Keys are matched against column
	// names case-insensitively, the same way table names are resolved.
	Record map[string]interface{}

	// Row is one entity instance: a Record bound to its Table. Rows are what
	// Update, Merge and Delete pass through to the session.
	Row struct {
		Table  *Table
		Values Record
	}
)

func newTable(name, schema string) *Table {
	return &Table{
		Name:   name,
		Schema: schema,
		byName: map[string]*Column{},
	}
}

// addColumn appends a column and registers it under its name and the
// upper/lower case aliases. All aliases share the one descriptor.
func (t *Table) addColumn(c *Column) {
	t.columns = append(t.columns, c)
	for _, alias := range caseVariants(c.Name) {
		t.byName[alias] = c
	}
}

func (t Table) String() string {
	return `table (name: "` + t.QualifiedName() + `") has ` +
		strconv.Itoa(len(t.columns)) + " columns"
}

// QualifiedName returns the schema-qualified table name.
func (t *Table) QualifiedName() string {
	return qualifyName(t.Schema, t.Name)
}

// Columns returns the table's columns in reflected order.
func (t *Table) Columns() []*Column {
	return t.columns
}

// ColumnNames returns the column names in reflected order.
func (t *Table) ColumnNames() (names []string) {
	for _, c := range t.columns {
		names = append(names, c.Name)
	}
	return
}

// Column returns the column registered under name. The lookup falls back
// from the exact spelling to the lower-case and then upper-case variants,
// mirroring table name resolution. Returns nil if no variant matches.
func (t *Table) Column(name string) *Column {
	for _, variant := range caseVariants(name) {
		if c, ok := t.byName[variant]; ok {
			return c
		}
	}
	return nil
}

// NewRow binds a record to this table, producing an entity instance for
// Update, Merge and Delete.
func (t *Table) NewRow(values Record) *Row {
	if values == nil {
		values = Record{}
	}
	return &Row{Table: t, Values: values}
}

// FirstUniqueIndex returns the name of the first unique index on the table,
// or an empty string if the table has none.
func (t *Table) FirstUniqueIndex() string {
	for _, idx := range t.Indexes {
		if idx.Unique {
			return idx.Name
		}
	}
	return ""
}

// createSQL generates a CREATE TABLE statement from the reflected metadata.
// With checkFirst the statement carries IF NOT EXISTS; dialects without that
// clause are handled by CreateAll consulting the live catalog instead.
func (t *Table) createSQL(checkFirst bool) string {
	lines := []string{}
	for _, c := range t.columns {
		line := "\t" + c.Name + " " + c.DataType
		if c.Default != "" {
			line += " DEFAULT " + c.Default
		}
		if !c.Nullable {
			line += " NOT NULL"
		}
		lines = append(lines, line)
	}
	if len(t.PrimaryKey) > 0 {
		lines = append(lines, "\tPRIMARY KEY ("+strings.Join(t.PrimaryKey, ", ")+")")
	}
	stmt := "CREATE TABLE "
	if checkFirst {
		stmt += "IF NOT EXISTS "
	}
	return stmt + t.QualifiedName() + " (\n" + strings.Join(lines, ",\n") + "\n)"
}

// value looks up the record value for a column, matching the record's keys
// against the column's case aliases.
func (r Record) value(c *Column) (interface{}, bool) {
	for _, alias := range caseVariants(c.Name) {
		if v, ok := r[alias]; ok {
			return v, true
		}
	}
	return nil, false
}
