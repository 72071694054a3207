package autodb

import (
	"reflect"
	"testing"
)

func testUsersTable() *Table {
	t := newTable("Users", "")
	t.addColumn(&Column{Name: "Id", DataType: "integer", PrimaryKey: true})
	t.addColumn(&Column{Name: "Name", DataType: "text", Nullable: true})
	t.addColumn(&Column{Name: "Email", DataType: "text", Nullable: true})
	t.PrimaryKey = []string{"Id"}
	return t
}

func TestColumnAliases(t *testing.T) {
	t.Parallel()
	users := testUsersTable()

	// all three spellings return the one descriptor
	exact := users.Column("Id")
	if exact == nil {
		t.Fatal("Column(Id) = nil")
	}
	if users.Column("id") != exact || users.Column("ID") != exact {
		t.Error("case aliases should share one descriptor")
	}
	if users.Column("nope") != nil {
		t.Error("Column(nope) should be nil")
	}

	// mutation through one alias is visible through the others
	users.Column("name").DataType = "varchar(64)"
	if got := users.Column("NAME").DataType; got != "varchar(64)" {
		t.Errorf("DataType through alias = %q, want varchar(64)", got)
	}
}

func TestColumnNames(t *testing.T) {
	t.Parallel()
	users := testUsersTable()
	want := []string{"Id", "Name", "Email"}
	if got := users.ColumnNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("ColumnNames() = %v, want %v", got, want)
	}
	if len(users.Columns()) != 3 {
		t.Errorf("Columns() has %d entries, want 3", len(users.Columns()))
	}
}

func TestQualifiedName(t *testing.T) {
	t.Parallel()
	users := testUsersTable()
	if got := users.QualifiedName(); got != "Users" {
		t.Errorf("QualifiedName() = %q, want Users", got)
	}
	users.Schema = "public"
	if got := users.QualifiedName(); got != "public.Users" {
		t.Errorf("QualifiedName() = %q, want public.Users", got)
	}
	if got := users.String(); got != `table (name: "public.Users") has 3 columns` {
		t.Errorf("String() = %q", got)
	}
}

func TestFirstUniqueIndex(t *testing.T) {
	t.Parallel()
	users := testUsersTable()
	if got := users.FirstUniqueIndex(); got != "" {
		t.Errorf("FirstUniqueIndex() = %q, want empty", got)
	}
	users.Indexes = []Index{
		{Name: "users_name_idx", Unique: false, Columns: []string{"Name"}},
		{Name: "users_email_key", Unique: true, Columns: []string{"Email"}},
	}
	if got := users.FirstUniqueIndex(); got != "users_email_key" {
		t.Errorf("FirstUniqueIndex() = %q, want users_email_key", got)
	}
}

func TestNewRow(t *testing.T) {
	t.Parallel()
	users := testUsersTable()
	row := users.NewRow(nil)
	if row.Table != users || row.Values == nil {
		t.Error("NewRow(nil) should bind an empty record")
	}
	row = users.NewRow(Record{"id": 1})
	if v, ok := row.Values.value(users.Column("Id")); !ok || v != 1 {
		t.Errorf("row value = %v, %v", v, ok)
	}
}

func TestRecordValue(t *testing.T) {
	t.Parallel()
	c := &Column{Name: "Name"}

	tests := []struct {
		name   string
		record Record
		want   interface{}
		ok     bool
	}{
		{"exact key", Record{"Name": "a"}, "a", true},
		{"lower key", Record{"name": "b"}, "b", true},
		{"upper key", Record{"NAME": "c"}, "c", true},
		{"exact key wins", Record{"Name": "a", "name": "b"}, "a", true},
		{"no matching key", Record{"email": "d"}, nil, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := tt.record.value(c)
			if got != tt.want || ok != tt.ok {
				t.Errorf("value() = %v, %v, want %v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestCreateSQL(t *testing.T) {
	t.Parallel()
	users := testUsersTable()
	users.Column("Name").DataType = "text"
	want := "CREATE TABLE Users (\n" +
		"\tId integer NOT NULL,\n" +
		"\tName text,\n" +
		"\tEmail text,\n" +
		"\tPRIMARY KEY (Id)\n" +
		")"
	if got := users.createSQL(false); got != want {
		t.Errorf("createSQL(false) = %q, want %q", got, want)
	}
	if got := users.createSQL(true); got != "CREATE TABLE IF NOT EXISTS "+want[len("CREATE TABLE "):] {
		t.Errorf("createSQL(true) = %q", got)
	}
}
