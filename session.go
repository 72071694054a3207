package autodb

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gopsql/db"
	"github.com/gopsql/logger"
)

type (
	// Session is the transactional boundary every statement of a binding goes
	// through. Add, Merge and Delete register rows as pending work; Flush
	// writes pending work inside the session's transaction; Commit flushes
	// and commits; Rollback discards both the transaction and the pending
	// work. Execute and Query run immediately, joining the open transaction
	// when there is one.
	Session interface {
		Query(query string, args ...interface{}) (db.Rows, error)
		Execute(query string, args ...interface{}) (int64, error)
		Add(row *Row)
		AddAll(rows []*Row)
		Merge(row *Row)
		Delete(row *Row)
		Flush(rows ...*Row) error
		Commit() error
		Rollback() error
		Close() error
	}

	session struct {
		conn   db.DB
		logger logger.Logger

		mu      sync.Mutex
		tx      db.Tx
		pending []pendingRow
	}

	pendingRow struct {
		op  int
		row *Row
	}
)

const (
	opInsert = iota
	opMerge
	opDelete
)

// NewSession returns the default unit-of-work Session over a connection.
// Every DB owns one, but a standalone session can share the same connection.
func NewSession(conn db.DB, log logger.Logger) Session {
	return &session{conn: conn, logger: log}
}

func (s *session) log(query string, args []interface{}) {
	if s.logger == nil {
		return
	}
	if len(args) == 0 {
		s.logger.Debug(query)
		return
	}
	s.logger.Debug(query, args)
}

// begin lazily opens the session transaction. Callers hold s.mu.
func (s *session) begin(ctx context.Context) error {
	if s.tx != nil {
		return nil
	}
	s.log("BEGIN", nil)
	tx, err := s.conn.BeginTx(ctx, "", false)
	if err != nil {
		return err
	}
	s.tx = tx
	return nil
}

// Query runs a query immediately, inside the open transaction if any.
func (s *session) Query(query string, args ...interface{}) (db.Rows, error) {
	query, args = convertParams(s.conn, query, args)
	s.mu.Lock()
	tx := s.tx
	s.mu.Unlock()
	s.log(query, args)
	if tx != nil {
		return tx.QueryContext(context.Background(), query, args...)
	}
	return s.conn.Query(query, args...)
}

// Execute runs a statement immediately, inside the open transaction if any,
// and returns the affected-row count.
func (s *session) Execute(query string, args ...interface{}) (int64, error) {
	query, args = convertParams(s.conn, query, args)
	s.mu.Lock()
	tx := s.tx
	s.mu.Unlock()
	s.log(query, args)
	var result db.Result
	var err error
	if tx != nil {
		result, err = tx.ExecContext(context.Background(), query, args...)
	} else {
		result, err = s.conn.Exec(query, args...)
	}
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Add registers a row for insertion on the next Flush or Commit.
func (s *session) Add(row *Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, pendingRow{op: opInsert, row: row})
}

// AddAll registers several rows for insertion.
func (s *session) AddAll(rows []*Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		s.pending = append(s.pending, pendingRow{op: opInsert, row: row})
	}
}

// Merge registers a row to be updated by primary key, or inserted when no
// matching row exists.
func (s *session) Merge(row *Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, pendingRow{op: opMerge, row: row})
}

// Delete registers a row for deletion by primary key.
func (s *session) Delete(row *Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, pendingRow{op: opDelete, row: row})
}

// Flush writes pending rows inside the session transaction, opening it if
// needed. With arguments, only the given rows are flushed and the rest stay
// pending. A failed statement leaves the session in need of a Rollback.
func (s *session) Flush(rows ...*Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	var flush, keep []pendingRow
	if len(rows) == 0 {
		flush = s.pending
	} else {
		for _, p := range s.pending {
			selected := false
			for _, row := range rows {
				if p.row == row {
					selected = true
					break
				}
			}
			if selected {
				flush = append(flush, p)
			} else {
				keep = append(keep, p)
			}
		}
	}
	if len(flush) == 0 {
		return nil
	}
	ctx := context.Background()
	if err := s.begin(ctx); err != nil {
		return err
	}
	for i, p := range flush {
		if err := s.flushRow(ctx, p); err != nil {
			s.pending = append(flush[i:], keep...)
			return err
		}
	}
	s.pending = keep
	return nil
}

func (s *session) flushRow(ctx context.Context, p pendingRow) error {
	switch p.op {
	case opInsert:
		query, args, err := insertRowSQL(p.row)
		if err != nil {
			return err
		}
		return s.execTx(ctx, query, args)
	case opDelete:
		query, args, err := deleteRowSQL(p.row)
		if err != nil {
			return err
		}
		return s.execTx(ctx, query, args)
	case opMerge:
		query, args, err := updateRowSQL(p.row)
		if err != nil {
			return err
		}
		if query != "" {
			affected, err := s.execCountTx(ctx, query, args)
			if err != nil {
				return err
			}
			if affected > 0 {
				return nil
			}
		}
		query, args, err = insertRowSQL(p.row)
		if err != nil {
			return err
		}
		return s.execTx(ctx, query, args)
	}
	return nil
}

func (s *session) execTx(ctx context.Context, query string, args []interface{}) error {
	_, err := s.execCountTx(ctx, query, args)
	return err
}

func (s *session) execCountTx(ctx context.Context, query string, args []interface{}) (int64, error) {
	query, args = convertParams(s.conn, query, args)
	s.log(query, args)
	result, err := s.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Commit flushes pending rows and commits the transaction. A flush failure
// rolls the transaction back and surfaces the original error.
func (s *session) Commit() error {
	if err := s.Flush(); err != nil {
		s.Rollback()
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == nil {
		return nil
	}
	s.log("COMMIT", nil)
	err := s.tx.Commit(context.Background())
	s.tx = nil
	return err
}

// Rollback discards pending rows and rolls back the open transaction.
func (s *session) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	if s.tx == nil {
		return nil
	}
	s.log("ROLLBACK", nil)
	err := s.tx.Rollback(context.Background())
	s.tx = nil
	return err
}

// Close rolls back any open transaction and releases the session. The
// underlying connection stays open; it belongs to the binding.
func (s *session) Close() error {
	return s.Rollback()
}

func insertRowSQL(row *Row) (string, []interface{}, error) {
	var names, numbers []string
	var values []interface{}
	i := 1
	for _, c := range row.Table.Columns() {
		v, ok := row.Values.value(c)
		if !ok {
			continue
		}
		names = append(names, c.Name)
		numbers = append(numbers, fmt.Sprintf("$%d", i))
		values = append(values, v)
		i += 1
	}
	if len(names) == 0 {
		return "", nil, fmt.Errorf("autodb: row for %s has no values", row.Table.Name)
	}
	query := "INSERT INTO " + row.Table.QualifiedName() +
		" (" + strings.Join(names, ", ") + ") VALUES (" + strings.Join(numbers, ", ") + ")"
	return query, values, nil
}

// updateRowSQL builds an UPDATE by primary key. An empty statement with nil
// error means the row carries nothing but its key.
func updateRowSQL(row *Row) (string, []interface{}, error) {
	var sets []string
	var values []interface{}
	i := 1
	for _, c := range row.Table.Columns() {
		if c.PrimaryKey {
			continue
		}
		v, ok := row.Values.value(c)
		if !ok {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", c.Name, i))
		values = append(values, v)
		i += 1
	}
	if len(sets) == 0 {
		return "", nil, nil
	}
	where, whereValues, err := primaryKeyWhere(row, i)
	if err != nil {
		return "", nil, err
	}
	query := "UPDATE " + row.Table.QualifiedName() + " SET " + strings.Join(sets, ", ") + where
	return query, append(values, whereValues...), nil
}

func deleteRowSQL(row *Row) (string, []interface{}, error) {
	where, values, err := primaryKeyWhere(row, 1)
	if err != nil {
		return "", nil, err
	}
	return "DELETE FROM " + row.Table.QualifiedName() + where, values, nil
}

func primaryKeyWhere(row *Row, firstNumber int) (string, []interface{}, error) {
	var conditions []string
	var values []interface{}
	for _, name := range row.Table.PrimaryKey {
		c := row.Table.Column(name)
		v, ok := row.Values.value(c)
		if !ok {
			return "", nil, fmt.Errorf("autodb: row for %s is missing primary key value %q", row.Table.Name, name)
		}
		conditions = append(conditions, fmt.Sprintf("%s = $%d", c.Name, firstNumber))
		values = append(values, v)
		firstNumber += 1
	}
	return " WHERE " + strings.Join(conditions, " AND "), values, nil
}

func convertParams(conn db.DB, query string, values []interface{}) (string, []interface{}) {
	if c, ok := conn.(db.ConvertParameters); ok {
		return c.ConvertParameters(query, values)
	}
	return query, values
}
