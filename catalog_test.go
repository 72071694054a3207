package autodb

import (
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSchemaOrDefault(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dialect string
		schema  string
		want    string
	}{
		{Postgres, "", "public"},
		{Postgres, "analytics", "analytics"},
		{MSSQL, "", "dbo"},
		{MySQL, "", ""},
		{SQLite, "", ""},
		{"duckdb", "", ""},
	}
	for _, tt := range tests {
		d := &DB{dialect: tt.dialect, schema: tt.schema}
		if got := d.schemaOrDefault(); got != tt.want {
			t.Errorf("schemaOrDefault(%s, %q) = %q, want %q", tt.dialect, tt.schema, got, tt.want)
		}
	}
}

func TestListTablesSQLite(t *testing.T) {
	d, mock := newBareDB(t, SQLite, "")

	mock.ExpectQuery("FROM sqlite_master").WillReturnRows(
		sqlmock.NewRows([]string{"name"}).AddRow("orders").AddRow("users"))

	names, err := d.listTables()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(names, []string{"orders", "users"}) {
		t.Errorf("listTables() = %v", names)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestListTablesOracleSchema(t *testing.T) {
	d, mock := newBareDB(t, Oracle, "hr")

	// the owner filter is upper-cased the way the dictionary stores it
	mock.ExpectQuery("FROM all_tables").WithArgs("HR").WillReturnRows(
		sqlmock.NewRows([]string{"table_name"}).AddRow("EMPLOYEES"))

	names, err := d.listTables()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(names, []string{"EMPLOYEES"}) {
		t.Errorf("listTables() = %v", names)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestListTablesMySQLDefaultsToCurrentDatabase(t *testing.T) {
	d, mock := newBareDB(t, MySQL, "")

	mock.ExpectQuery(`table_schema = DATABASE\(\)`).WillReturnRows(
		sqlmock.NewRows([]string{"table_name"}).AddRow("users"))

	names, err := d.listTables()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(names, []string{"users"}) {
		t.Errorf("listTables() = %v", names)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
