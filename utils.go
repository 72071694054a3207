package autodb

import (
	"fmt"
	"regexp"
	"strings"
)

// sampleSize is the maximum number of table names quoted in error messages.
const sampleSize = 6

// validIdentifierRe validates SQL identifiers (alphanumeric, underscores,
// dots for schema.name).
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// isValidIdentifier checks if the string is a valid SQL identifier. Names are
// interpolated into PRAGMA statements on SQLite, which take no placeholders,
// so anything else is refused before it reaches the database.
func isValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// caseVariants returns the name followed by its lower-case and upper-case
// spellings, without duplicates. The order is the resolution fallback order.
func caseVariants(name string) []string {
	variants := []string{name}
	for _, v := range []string{strings.ToLower(name), strings.ToUpper(name)} {
		seen := false
		for _, existing := range variants {
			if existing == v {
				seen = true
				break
			}
		}
		if !seen {
			variants = append(variants, v)
		}
	}
	return variants
}

// sampleNames renders a truncated, representative sample of table names for
// error messages, so a catalog of thousands of tables stays readable.
func sampleNames(names []string) string {
	if len(names) == 0 {
		return "[]"
	}
	sample := names
	truncated := false
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
		truncated = true
	}
	out := "[" + strings.Join(sample, ", ")
	if truncated {
		out += ", ..."
	}
	return out + "]"
}

// truncateValue renders a value for error messages, bounded in size.
func truncateValue(v interface{}) string {
	s := fmt.Sprintf("%v", v)
	if len(s) > 64 {
		s = s[:61] + "..."
	}
	return s
}

// qualifyName prefixes a table name with its schema when one is set.
func qualifyName(schema, name string) string {
	if schema == "" {
		return name
	}
	return schema + "." + name
}
