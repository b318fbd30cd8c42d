package sqlite

import (
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
	moderncsqlite "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/roach88/flowreg/internal/flow"
	"github.com/roach88/flowreg/internal/registry"
)

// translateError maps driver errors onto registry errors.
//
// UNIQUE and PRIMARY KEY violations from either driver become
// *flow.ConflictError wrapping the driver error; f supplies the offending
// values. A finished transaction becomes registry.ErrTxClosed. Anything
// else is returned unchanged.
func translateError(err error, f flow.Flow) error {
	if err == nil {
		return nil
	}
	if errTxDone(err) {
		return registry.ErrTxClosed
	}
	if !isUniqueViolation(err) {
		return err
	}

	if strings.Contains(err.Error(), "flows.name") {
		return &flow.ConflictError{Field: flow.FieldName, Value: f.Name, Err: err}
	}
	if strings.Contains(err.Error(), "flows.id") {
		return &flow.ConflictError{Field: flow.FieldID, Value: f.ID.String(), Err: err}
	}
	return &flow.ConflictError{Field: "key", Err: err}
}

// isUniqueViolation checks both drivers' extended result codes.
func isUniqueViolation(err error) bool {
	var cgoErr sqlite3.Error
	if errors.As(err, &cgoErr) {
		return cgoErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			cgoErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var pureErr *moderncsqlite.Error
	if errors.As(err, &pureErr) {
		return pureErr.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE ||
			pureErr.Code() == sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	return false
}
