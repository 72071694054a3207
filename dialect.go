package autodb

// Dialect names understood by the catalog, the reflector and the ignore
// fragment compiler. Any other value is accepted and treated as a generic
// information_schema database with no duplicate protection.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
	MSSQL    = "mssql"
	Oracle   = "oracle"
)

// DriverName returns the database/sql driver name conventionally registered
// for the given dialect. Used by Open when turning a connection string into a
// live connection.
func DriverName(dialect string) string {
	switch dialect {
	case MSSQL:
		return "sqlserver"
	default:
		return dialect
	}
}
