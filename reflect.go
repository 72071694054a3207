package autodb

import (
	"sort"
	"strings"
)

// reflectTable performs a partial, single-table reflection of exactly the
// requested name: columns, primary key, unique indexes and constraints.
// Returns errNoSuchTable when no table answers to the name (the resolver then
// retries the other case variants) and MissingPrimaryKeyError when the table
// exists but has no primary key (which aborts the fallback chain).
func (d *DB) reflectTable(name string) (*Table, error) {
	switch d.dialect {
	case SQLite:
		return d.reflectSQLite(name)
	case Oracle:
		return d.reflectOracle(name)
	default:
		return d.reflectStandard(name)
	}
}

// reflectStandard reflects through the ANSI information_schema views, which
// cover postgres, mysql, mssql and unrecognized dialects alike. Two queries:
// one for columns, one for key constraints.
func (d *DB) reflectStandard(name string) (*Table, error) {
	columnsQuery := `SELECT column_name, data_type, is_nullable, COALESCE(column_default, '') FROM information_schema.columns WHERE table_name = $1`
	keysQuery := `SELECT tc.constraint_name, tc.constraint_type, ku.column_name FROM information_schema.table_constraints tc JOIN information_schema.key_column_usage ku ON tc.constraint_name = ku.constraint_name AND tc.table_name = ku.table_name WHERE tc.table_name = $1 AND tc.constraint_type IN ('PRIMARY KEY', 'UNIQUE')`
	args := []interface{}{name}
	switch schema := d.schemaOrDefault(); {
	case schema != "":
		columnsQuery += ` AND table_schema = $2`
		keysQuery += ` AND tc.table_schema = $2`
		args = append(args, schema)
	case d.dialect == MySQL:
		columnsQuery += ` AND table_schema = DATABASE()`
		keysQuery += ` AND tc.table_schema = DATABASE()`
	}
	columnsQuery += ` ORDER BY ordinal_position`
	keysQuery += ` ORDER BY tc.constraint_name, ku.ordinal_position`

	t := newTable(name, d.schema)
	rows, err := d.query(columnsQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var c Column
		var nullable string
		if err := rows.Scan(&c.Name, &c.DataType, &nullable, &c.Default); err != nil {
			return nil, err
		}
		c.Nullable = strings.EqualFold(nullable, "YES")
		t.addColumn(&c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(t.columns) == 0 {
		return nil, errNoSuchTable
	}

	keys, err := d.query(keysQuery, args...)
	if err != nil {
		return nil, err
	}
	defer keys.Close()
	uniques := map[string][]string{}
	var uniqueOrder []string
	var pkConstraint string
	for keys.Next() {
		var constraint, ctype, column string
		if err := keys.Scan(&constraint, &ctype, &column); err != nil {
			return nil, err
		}
		switch ctype {
		case "PRIMARY KEY":
			t.PrimaryKey = append(t.PrimaryKey, column)
			pkConstraint = constraint
		case "UNIQUE":
			if _, ok := uniques[constraint]; !ok {
				uniqueOrder = append(uniqueOrder, constraint)
				t.Constraints = append(t.Constraints, Constraint{Name: constraint, Type: "UNIQUE"})
			}
			uniques[constraint] = append(uniques[constraint], column)
		}
	}
	if err := keys.Err(); err != nil {
		return nil, err
	}
	if len(t.PrimaryKey) == 0 {
		return nil, &MissingPrimaryKeyError{Table: name}
	}
	t.Constraints = append([]Constraint{{Name: pkConstraint, Type: "PRIMARY KEY"}}, t.Constraints...)
	for _, cname := range uniqueOrder {
		t.Indexes = append(t.Indexes, Index{Name: cname, Unique: true, Columns: uniques[cname]})
	}
	d.markPrimaryKey(t)
	return t, nil
}

// reflectSQLite reflects through the PRAGMA interface. PRAGMA takes no
// placeholders, so the name is validated before interpolation.
func (d *DB) reflectSQLite(name string) (*Table, error) {
	if !isValidIdentifier(name) {
		return nil, errNoSuchTable
	}
	rows, err := d.query(`PRAGMA table_info(` + name + `)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	t := newTable(name, "")
	type pkColumn struct {
		name string
		pos  int
	}
	var pk []pkColumn
	for rows.Next() {
		var cid, notNull, pkPos int
		var c Column
		var dflt interface{}
		if err := rows.Scan(&cid, &c.Name, &c.DataType, &notNull, &dflt, &pkPos); err != nil {
			return nil, err
		}
		c.Nullable = notNull == 0
		if s, ok := dflt.(string); ok {
			c.Default = s
		}
		if pkPos > 0 {
			pk = append(pk, pkColumn{name: c.Name, pos: pkPos})
		}
		t.addColumn(&c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(t.columns) == 0 {
		return nil, errNoSuchTable
	}
	sort.Slice(pk, func(i, j int) bool { return pk[i].pos < pk[j].pos })
	for _, p := range pk {
		t.PrimaryKey = append(t.PrimaryKey, p.name)
	}
	if len(t.PrimaryKey) == 0 {
		return nil, &MissingPrimaryKeyError{Table: name}
	}

	indexes, err := d.query(`PRAGMA index_list(` + name + `)`)
	if err != nil {
		return nil, err
	}
	defer indexes.Close()
	// index_list grew from three to five columns over SQLite versions.
	indexCols, err := indexes.Columns()
	if err != nil {
		return nil, err
	}
	var names []string
	uniqueByName := map[string]bool{}
	for indexes.Next() {
		var seq, unique, partial int
		var iname, origin string
		dest := []interface{}{&seq, &iname, &unique}
		if len(indexCols) >= 5 {
			dest = append(dest, &origin, &partial)
		}
		if err := indexes.Scan(dest...); err != nil {
			return nil, err
		}
		names = append(names, iname)
		uniqueByName[iname] = unique == 1
	}
	if err := indexes.Err(); err != nil {
		return nil, err
	}
	for _, iname := range names {
		if !isValidIdentifier(iname) {
			continue
		}
		columns, err := d.queryIndexColumns(iname)
		if err != nil {
			return nil, err
		}
		t.Indexes = append(t.Indexes, Index{Name: iname, Unique: uniqueByName[iname], Columns: columns})
	}
	sort.SliceStable(t.Indexes, func(i, j int) bool { return t.Indexes[i].Unique && !t.Indexes[j].Unique })
	d.markPrimaryKey(t)
	return t, nil
}

func (d *DB) queryIndexColumns(index string) ([]string, error) {
	rows, err := d.query(`PRAGMA index_info(` + index + `)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var seqno, cid int
		var name string
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// reflectOracle reflects through the user_/all_ dictionary views. Three
// queries: columns, key constraints, indexes.
func (d *DB) reflectOracle(name string) (*Table, error) {
	var (
		columnsQuery = `SELECT column_name, data_type, nullable FROM user_tab_columns WHERE table_name = $1 ORDER BY column_id`
		keysQuery    = `SELECT c.constraint_name, c.constraint_type, cc.column_name FROM user_constraints c JOIN user_cons_columns cc ON c.constraint_name = cc.constraint_name WHERE c.table_name = $1 AND c.constraint_type IN ('P', 'U') ORDER BY c.constraint_name, cc.position`
		indexQuery   = `SELECT i.index_name, i.uniqueness, ic.column_name FROM user_indexes i JOIN user_ind_columns ic ON i.index_name = ic.index_name WHERE i.table_name = $1 ORDER BY i.index_name, ic.column_position`
		args         = []interface{}{name}
	)
	if d.schema != "" {
		owner := strings.ToUpper(d.schema)
		columnsQuery = `SELECT column_name, data_type, nullable FROM all_tab_columns WHERE table_name = $1 AND owner = $2 ORDER BY column_id`
		keysQuery = `SELECT c.constraint_name, c.constraint_type, cc.column_name FROM all_constraints c JOIN all_cons_columns cc ON c.constraint_name = cc.constraint_name AND c.owner = cc.owner WHERE c.table_name = $1 AND c.owner = $2 AND c.constraint_type IN ('P', 'U') ORDER BY c.constraint_name, cc.position`
		indexQuery = `SELECT i.index_name, i.uniqueness, ic.column_name FROM all_indexes i JOIN all_ind_columns ic ON i.index_name = ic.index_name AND i.owner = ic.index_owner WHERE i.table_name = $1 AND i.table_owner = $2 ORDER BY i.index_name, ic.column_position`
		args = append(args, owner)
	}

	t := newTable(name, d.schema)
	rows, err := d.query(columnsQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var c Column
		var nullable string
		if err := rows.Scan(&c.Name, &c.DataType, &nullable); err != nil {
			return nil, err
		}
		c.Nullable = nullable == "Y"
		t.addColumn(&c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(t.columns) == 0 {
		return nil, errNoSuchTable
	}

	keys, err := d.query(keysQuery, args...)
	if err != nil {
		return nil, err
	}
	defer keys.Close()
	for keys.Next() {
		var constraint, ctype, column string
		if err := keys.Scan(&constraint, &ctype, &column); err != nil {
			return nil, err
		}
		switch ctype {
		case "P":
			t.PrimaryKey = append(t.PrimaryKey, column)
			if len(t.Constraints) == 0 || t.Constraints[len(t.Constraints)-1].Name != constraint {
				t.Constraints = append(t.Constraints, Constraint{Name: constraint, Type: "PRIMARY KEY"})
			}
		case "U":
			if len(t.Constraints) == 0 || t.Constraints[len(t.Constraints)-1].Name != constraint {
				t.Constraints = append(t.Constraints, Constraint{Name: constraint, Type: "UNIQUE"})
			}
		}
	}
	if err := keys.Err(); err != nil {
		return nil, err
	}
	if len(t.PrimaryKey) == 0 {
		return nil, &MissingPrimaryKeyError{Table: name}
	}

	indexes, err := d.query(indexQuery, args...)
	if err != nil {
		return nil, err
	}
	defer indexes.Close()
	byName := map[string]*Index{}
	var order []string
	for indexes.Next() {
		var iname, uniqueness, column string
		if err := indexes.Scan(&iname, &uniqueness, &column); err != nil {
			return nil, err
		}
		idx, ok := byName[iname]
		if !ok {
			idx = &Index{Name: iname, Unique: uniqueness == "UNIQUE"}
			byName[iname] = idx
			order = append(order, iname)
		}
		idx.Columns = append(idx.Columns, column)
	}
	if err := indexes.Err(); err != nil {
		return nil, err
	}
	for _, iname := range order {
		t.Indexes = append(t.Indexes, *byName[iname])
	}
	sort.SliceStable(t.Indexes, func(i, j int) bool { return t.Indexes[i].Unique && !t.Indexes[j].Unique })
	d.markPrimaryKey(t)
	return t, nil
}

// markPrimaryKey flips the PrimaryKey flag on the column descriptors named by
// the table's key. Lookups go through the alias map, so dictionary views that
// report key names in a different case still match.
func (d *DB) markPrimaryKey(t *Table) {
	for _, name := range t.PrimaryKey {
		if c := t.Column(name); c != nil {
			c.PrimaryKey = true
		}
	}
}
