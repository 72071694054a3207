package autodb

import (
	"context"
	"fmt"
	"strings"

	"github.com/gopsql/db"
)

type (
	// Tabular is the column-oriented bulk input format: a header plus data
	// rows, each row positionally matching the header. Anything satisfying
	// this interface can be passed to Insert next to plain record slices.
	Tabular interface {
		Columns() []string
		Rows() [][]interface{}
	}

	// BulkInsert represents one bulk INSERT statement builder over a resolved
	// table. Create instances with DB.Insert; terminal methods are SQL,
	// Execute and ExecuteCtxTx. Input validation errors are carried on the
	// builder and surface from the terminal methods, before any statement
	// reaches the database.
	BulkInsert struct {
		db      *DB
		table   *Table
		records []Record
		ignore  bool
		index   string
		err     error
	}
)

// Insert creates a bulk INSERT builder for the given records. Records can be
// a []Record, a []map[string]interface{} or a Tabular. An empty Tabular, an
// empty slice or any other type fail with ValidationError.
//
//	users := d.MustTable("users")
//	n, err := d.Insert(users, []autodb.Record{
//		{"id": 1, "name": "Alice"},
//		{"id": 2, "name": "Bob"},
//	}).Ignore().Execute()
func (d *DB) Insert(table *Table, records interface{}) *BulkInsert {
	b := &BulkInsert{db: d, table: table}
	if table == nil {
		b.err = NewValidationError("insert needs a resolved table")
		return b
	}
	b.records, b.err = normalizeRecords(records)
	return b
}

// Ignore lets the dialect skip or replace rows that would violate a unique
// constraint, instead of failing the whole batch.
func (b *BulkInsert) Ignore() *BulkInsert {
	b.ignore = true
	return b
}

// IgnoreIndex is like Ignore but names the unique index explicitly. Only the
// oracle hint consumes the name; other dialects ignore it.
func (b *BulkInsert) IgnoreIndex(index string) *BulkInsert {
	b.ignore = true
	b.index = index
	return b
}

// SQL compiles the statement and its arguments without executing it.
func (b *BulkInsert) SQL() (string, []interface{}, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	fragment, err := ignoreFragment(b.db.dialect, b.table, b.ignore, b.index)
	if err != nil {
		return "", nil, err
	}

	// Column order follows the table; the first record decides which columns
	// participate. Keys matching no column alias are ignored, later records
	// missing a column insert NULL.
	var columns []*Column
	for _, c := range b.table.Columns() {
		if _, ok := b.records[0].value(c); ok {
			columns = append(columns, c)
		}
	}
	if len(columns) == 0 {
		return "", nil, NewValidationError("no record field matches a column of %s", b.table.Name)
	}

	names := []string{}
	for _, c := range columns {
		names = append(names, c.Name)
	}
	values := []interface{}{}
	tuples := []string{}
	i := 1
	for _, record := range b.records {
		numbers := []string{}
		for _, c := range columns {
			v, _ := record.value(c)
			values = append(values, v)
			numbers = append(numbers, fmt.Sprintf("$%d", i))
			i += 1
		}
		tuples = append(tuples, "("+strings.Join(numbers, ", ")+")")
	}

	stmt := "INSERT"
	if fragment != "" {
		stmt += " " + fragment
	}
	stmt += " INTO " + b.table.QualifiedName() +
		" (" + strings.Join(names, ", ") + ") VALUES " + strings.Join(tuples, ", ")
	return stmt, values, nil
}

// MustExecute is like Execute but panics if the insert fails.
func (b *BulkInsert) MustExecute() int64 {
	n, err := b.Execute()
	if err != nil {
		panic(err)
	}
	return n
}

// Execute submits the statement through the binding's session and returns the
// affected-row count unmodified. The whole batch is a single statement, so
// the dialect's atomicity rules apply to it as-is.
func (b *BulkInsert) Execute() (int64, error) {
	return b.ExecuteCtxTx(context.Background(), nil)
}

// ExecuteCtxTx is like Execute but runs the statement inside the given
// transaction.
func (b *BulkInsert) ExecuteCtxTx(ctx context.Context, tx db.Tx) (int64, error) {
	query, values, err := b.SQL()
	if err != nil {
		return 0, err
	}
	if b.db.conn == nil {
		return 0, ErrNoBinding
	}
	if tx != nil {
		query, values = convertParams(b.db.conn, query, values)
		b.db.log(query, values)
		result, err := tx.ExecContext(ctx, query, values...)
		if err != nil {
			return 0, err
		}
		return result.RowsAffected()
	}
	return b.db.Session().Execute(query, values...)
}

// normalizeRecords converts the accepted bulk input formats to []Record.
func normalizeRecords(in interface{}) ([]Record, error) {
	switch v := in.(type) {
	case []Record:
		if len(v) == 0 {
			return nil, NewValidationError("the input records are empty, please check")
		}
		return v, nil
	case []map[string]interface{}:
		if len(v) == 0 {
			return nil, NewValidationError("the input records are empty, please check")
		}
		out := make([]Record, len(v))
		for i := range v {
			out[i] = Record(v[i])
		}
		return out, nil
	case Tabular:
		columns, rows := v.Columns(), v.Rows()
		if len(rows) == 0 || len(columns) == 0 {
			return nil, NewValidationError("the input table is empty, please check")
		}
		out := make([]Record, len(rows))
		for i, row := range rows {
			if len(row) != len(columns) {
				return nil, NewValidationError("row %d has %d values for %d columns", i, len(row), len(columns))
			}
			record := Record{}
			for j, column := range columns {
				record[column] = row[j]
			}
			out[i] = record
		}
		return out, nil
	default:
		return nil, NewValidationError("the %s must be a record slice or a Tabular", truncateValue(in))
	}
}
