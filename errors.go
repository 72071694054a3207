package autodb

import (
	"errors"
	"fmt"
)

var (
	// ErrNoBinding is returned when a DB has no connection bound yet.
	// Constructing a DB with a nil connection is a deliberate no-op state;
	// every table access fails with this error until Rebind is called.
	ErrNoBinding = errors.New("autodb: no connection binding")

	// errNoSuchTable signals that a single-table reflection found no table
	// under the attempted spelling. It drives the case fallback and is never
	// returned to callers.
	errNoSuchTable = errors.New("autodb: no such table")
)

// TableNotFoundError is returned when a requested table name, and both of its
// case variants, cannot be resolved. The message enumerates a truncated
// sample of the names known to the catalog.
type TableNotFoundError struct {
	Name   string   // the name as requested by the caller
	Tables []string // catalog snapshot at the time of the lookup

	// reflected is true when the name was registered in the catalog but
	// reflection failed for every case variant, and false when the name was
	// never registered at all.
	reflected bool
}

// Error returns the error string.
func (e *TableNotFoundError) Error() string {
	if e.reflected {
		return fmt.Sprintf("autodb: <%s> could not be reflected in any case variant, known tables are %s", e.Name, sampleNames(e.Tables))
	}
	return fmt.Sprintf("autodb: <%s> is not the right table name, such as %s", e.Name, sampleNames(e.Tables))
}

// IsTableNotFound returns true if the error is a TableNotFoundError.
func IsTableNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *TableNotFoundError
	return errors.As(err, &e)
}

// MissingPrimaryKeyError is returned when a table exists and reflects but has
// no primary key, which the mapping layer requires.
type MissingPrimaryKeyError struct {
	Table string
}

// Error returns the error string.
func (e *MissingPrimaryKeyError) Error() string {
	return fmt.Sprintf("autodb: there must be a primary key in <%s>", e.Table)
}

// IsMissingPrimaryKey returns true if the error is a MissingPrimaryKeyError.
func IsMissingPrimaryKey(err error) bool {
	if err == nil {
		return false
	}
	var e *MissingPrimaryKeyError
	return errors.As(err, &e)
}

// ValidationError is returned when bulk-insert input is neither a non-empty
// Tabular nor a slice of records.
type ValidationError struct {
	msg string
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	return "autodb: " + e.msg
}

// NewValidationError returns a new ValidationError with the given message.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// IsValidation returns true if the error is a ValidationError.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// UnsupportedIgnoreModeError is returned when a dialect cannot express
// duplicate-ignoring semantics at the statement level.
type UnsupportedIgnoreModeError struct {
	Dialect string
}

// Error returns the error string.
func (e *UnsupportedIgnoreModeError) Error() string {
	return fmt.Sprintf("autodb: dialect %q cannot ignore duplicates per statement; set 'IGNORE_DUP_KEY = ON' when creating the table and insert without Ignore", e.Dialect)
}

// IsUnsupportedIgnoreMode returns true if the error is an
// UnsupportedIgnoreModeError.
func IsUnsupportedIgnoreMode(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedIgnoreModeError
	return errors.As(err, &e)
}
