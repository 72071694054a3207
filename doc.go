// Package autodb provides schema-free, reflection-based database access for Go.
//
// # Overview
//
// Package autodb binds to a live database, snapshots its table catalog, and
// hands out table handles without any struct definitions or migrations on the
// Go side: the database schema is the single source of truth. Tables are
// reflected lazily on first access, one table at a time, and the resolved
// handles are cached for the lifetime of the binding.
//
// Key features include:
//   - Lazy single-table reflection with per-binding caching
//   - Case-insensitive table access: exact name, then lower, then upper case
//   - Bulk INSERT builder with dialect-specific duplicate-ignoring fragments
//   - Unit-of-work session with Add, Merge, Delete, Flush, Commit, Rollback
//   - Works over postgres, mysql, sqlite, mssql and oracle through one API
//
// # Basic Usage
//
// Bind to a database and read a table handle:
//
//	import (
//		"database/sql"
//		"github.com/gopsql/standard"
//		_ "github.com/lib/pq"
//	)
//
//	c, _ := sql.Open("postgres", connStr)
//	conn := standard.NewDB("postgres", c)
//	d, err := autodb.New(autodb.Postgres, conn, autodb.Schema("public"))
//	if err != nil {
//		// ...
//	}
//
//	users, err := d.Table("users")
//	fmt.Println(users.ColumnNames(), users.PrimaryKey)
//
// # Table Name Resolution
//
// Every catalog table is registered under three spellings: the catalog name,
// its lower case and its upper case. Accessing any spelling resolves to the
// same handle; any other spelling fails with TableNotFoundError listing a
// sample of the known names. Resolution reflects the exact spelling first and
// falls back to lower and then upper case, so a catalog table "USERS" is
// reachable as d.Table("users"). Tables without a primary key fail with
// MissingPrimaryKeyError instead of continuing the fallback.
//
// # Bulk Insert
//
// Insert builds one multi-row INSERT from a record slice or anything
// implementing Tabular:
//
//	users := d.MustTable("users")
//	n, err := d.Insert(users, []autodb.Record{
//		{"id": 1, "name": "Alice"},
//		{"id": 2, "name": "Bob"},
//	}).Execute()
//
// Ignore lets the dialect skip duplicate keys instead of failing the batch:
// INSERT IGNORE on mysql, INSERT OR REPLACE on sqlite, the
// IGNORE_ROW_ON_DUPKEY_INDEX hint on oracle. MSSQL has no statement-level
// equivalent and rejects Ignore; create the table with IGNORE_DUP_KEY = ON
// instead.
//
// # Sessions
//
// Row-level writes go through the binding's session, which batches pending
// work and writes it inside one transaction:
//
//	row := users.NewRow(autodb.Record{"id": 3, "name": "Carol"})
//	d.Update(row)
//	d.Merge(users.NewRow(autodb.Record{"id": 1, "name": "Alice Liddell"}))
//	if err := d.Commit(); err != nil {
//		d.Rollback()
//	}
//
// Merge updates by primary key and inserts when nothing matched. Raw
// statements run through Query and Execute, joining the open transaction when
// there is one.
//
// # Database Drivers
//
// Package autodb talks to databases through the db.DB interface; any
// database/sql driver works through github.com/gopsql/standard:
//
//	c, _ := sql.Open(autodb.DriverName(autodb.MySQL), dsn)
//	conn := standard.NewDB(autodb.DriverName(autodb.MySQL), c)
//	d, err := autodb.New(autodb.MySQL, conn)
//
// Placeholders in raw statements are written as $1, $2, ... and converted to
// the driver's style when the connection implements db.ConvertParameters.
package autodb
