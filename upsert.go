package autodb

import "fmt"

// ignoreFragment compiles the duplicate-ignoring intent into the fragment
// each dialect expects between INSERT and INTO. Dialects that need no
// fragment return an empty string; the fragment is prepended to the insert
// statement either way.
//
//	mysql:  INSERT IGNORE INTO ...
//	sqlite: INSERT OR REPLACE INTO ...
//	oracle: INSERT /*+ IGNORE_ROW_ON_DUPKEY_INDEX (tbl, idx) */ INTO ...
//
// MSSQL has no statement-level equivalent: there the table must be created
// with IGNORE_DUP_KEY = ON and the insert issued without Ignore, so asking
// for it fails with UnsupportedIgnoreModeError. The oracle hint needs an
// index: the explicit name when given, otherwise the table's first unique
// index, otherwise its first constraint.
func ignoreFragment(dialect string, t *Table, ignore bool, index string) (string, error) {
	if !ignore {
		return "", nil
	}
	switch dialect {
	case MySQL:
		return "IGNORE", nil
	case SQLite:
		return "OR REPLACE", nil
	case MSSQL:
		return "", &UnsupportedIgnoreModeError{Dialect: dialect}
	case Oracle:
		if index == "" {
			index = t.FirstUniqueIndex()
		}
		if index == "" && len(t.Constraints) > 0 {
			index = t.Constraints[0].Name
		}
		if index == "" {
			return "", fmt.Errorf("autodb: no unique index or constraint on %s for IGNORE_ROW_ON_DUPKEY_INDEX", t.Name)
		}
		return fmt.Sprintf("/*+ IGNORE_ROW_ON_DUPKEY_INDEX (%s, %s) */", t.Name, index), nil
	default:
		return "", nil
	}
}
