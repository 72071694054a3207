package autodb

import "testing"

func TestDriverName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dialect string
		want    string
	}{
		{Postgres, "postgres"},
		{MySQL, "mysql"},
		{SQLite, "sqlite"},
		{Oracle, "oracle"},
		{MSSQL, "sqlserver"},
	}
	for _, tt := range tests {
		if got := DriverName(tt.dialect); got != tt.want {
			t.Errorf("DriverName(%s) = %q, want %q", tt.dialect, got, tt.want)
		}
	}
}
