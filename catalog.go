package autodb

import "strings"

// listTables asks the live database for its table names. It is called at
// bind time and again by Refresh and CreateAll; the result is never cached
// between calls here, so a stale catalog can always be rebuilt by rebinding.
// Connection failures propagate unchanged.
func (d *DB) listTables() ([]string, error) {
	switch d.dialect {
	case SQLite:
		return d.queryStrings(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	case Oracle:
		if d.schema == "" {
			return d.queryStrings(`SELECT table_name FROM user_tables ORDER BY table_name`)
		}
		return d.queryStrings(`SELECT table_name FROM all_tables WHERE owner = $1 ORDER BY table_name`, strings.ToUpper(d.schema))
	case MySQL:
		if d.schema == "" {
			return d.queryStrings(`SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE' ORDER BY table_name`)
		}
		return d.queryStrings(`SELECT table_name FROM information_schema.tables WHERE table_schema = $1 AND table_type = 'BASE TABLE' ORDER BY table_name`, d.schema)
	default:
		if schema := d.schemaOrDefault(); schema != "" {
			return d.queryStrings(`SELECT table_name FROM information_schema.tables WHERE table_schema = $1 AND table_type = 'BASE TABLE' ORDER BY table_name`, schema)
		}
		return d.queryStrings(`SELECT table_name FROM information_schema.tables WHERE table_type = 'BASE TABLE' ORDER BY table_name`)
	}
}

// schemaOrDefault returns the bound schema, or the dialect's conventional
// default schema when none was given.
func (d *DB) schemaOrDefault() string {
	if d.schema != "" {
		return d.schema
	}
	switch d.dialect {
	case Postgres:
		return "public"
	case MSSQL:
		return "dbo"
	}
	return ""
}

// queryStrings runs a query returning a single string column.
func (d *DB) queryStrings(query string, args ...interface{}) ([]string, error) {
	rows, err := d.query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
