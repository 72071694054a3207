package autodb

import (
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gopsql/standard"
)

func newTestSession(t *testing.T) (Session, sqlmock.Sqlmock) {
	t.Helper()
	c, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	return NewSession(standard.NewDB("postgres", c), nil), mock
}

func TestSessionAddCommit(t *testing.T) {
	t.Parallel()
	s, mock := newTestSession(t)
	users := testUsersTable()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO Users").WithArgs(1, "Alice").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO Users").WithArgs(2, "Bob").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s.Add(users.NewRow(Record{"id": 1, "name": "Alice"}))
	s.AddAll([]*Row{users.NewRow(Record{"id": 2, "name": "Bob"})})
	if err := s.Commit(); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSessionMergeUpdates(t *testing.T) {
	t.Parallel()
	s, mock := newTestSession(t)
	users := testUsersTable()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE Users SET Name").WithArgs("Alice", 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s.Merge(users.NewRow(Record{"id": 1, "name": "Alice"}))
	if err := s.Commit(); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSessionMergeInsertsWhenMissing(t *testing.T) {
	t.Parallel()
	s, mock := newTestSession(t)
	users := testUsersTable()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE Users SET Name").WithArgs("Alice", 1).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO Users").WithArgs(1, "Alice").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s.Merge(users.NewRow(Record{"id": 1, "name": "Alice"}))
	if err := s.Commit(); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSessionMergeKeyOnlyRowInserts(t *testing.T) {
	t.Parallel()
	s, mock := newTestSession(t)
	users := testUsersTable()

	// nothing to update, so merge goes straight to insert
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO Users").WithArgs(9).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s.Merge(users.NewRow(Record{"id": 9}))
	if err := s.Commit(); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSessionDeleteRollback(t *testing.T) {
	t.Parallel()
	s, mock := newTestSession(t)
	users := testUsersTable()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM Users").WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	s.Delete(users.NewRow(Record{"id": 1}))
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	if err := s.Rollback(); err != nil {
		t.Fatal(err)
	}
	// nothing left pending after rollback, so this commit is a no-op
	if err := s.Commit(); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSessionFlushSelected(t *testing.T) {
	t.Parallel()
	s, mock := newTestSession(t)
	users := testUsersTable()

	alice := users.NewRow(Record{"id": 1, "name": "Alice"})
	bob := users.NewRow(Record{"id": 2, "name": "Bob"})
	s.Add(alice)
	s.Add(bob)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO Users").WithArgs(2, "Bob").WillReturnResult(sqlmock.NewResult(0, 1))

	// only bob is flushed; alice stays pending
	if err := s.Flush(bob); err != nil {
		t.Fatal(err)
	}

	mock.ExpectExec("INSERT INTO Users").WithArgs(1, "Alice").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	if err := s.Commit(); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSessionMissingPrimaryKeyValue(t *testing.T) {
	t.Parallel()
	s, mock := newTestSession(t)
	users := testUsersTable()

	mock.ExpectBegin()
	mock.ExpectRollback()

	s.Delete(users.NewRow(Record{"name": "Alice"}))
	err := s.Flush()
	if err == nil || !strings.Contains(err.Error(), "missing primary key value") {
		t.Fatalf("Flush() error = %v", err)
	}
	if err := s.Rollback(); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSessionExecuteOutsideTransaction(t *testing.T) {
	t.Parallel()
	s, mock := newTestSession(t)

	mock.ExpectExec("UPDATE Users SET Name").WithArgs("Bob", 1).WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := s.Execute("UPDATE Users SET Name = $1 WHERE Id = $2", "Bob", 1)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("affected = %d, want 1", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSessionQueryJoinsTransaction(t *testing.T) {
	t.Parallel()
	s, mock := newTestSession(t)
	users := testUsersTable()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO Users").WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT Id FROM Users").WillReturnRows(sqlmock.NewRows([]string{"Id"}).AddRow(1))
	mock.ExpectCommit()

	s.Add(users.NewRow(Record{"id": 1}))
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	rows, err := s.Query("SELECT Id FROM Users")
	if err != nil {
		t.Fatal(err)
	}
	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if len(ids) != 1 || ids[0] != 1 {
		t.Errorf("ids = %v, want [1]", ids)
	}
	if err := s.Commit(); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
