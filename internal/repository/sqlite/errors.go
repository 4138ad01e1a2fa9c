package sqlite

import (
	"errors"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/sakif/ca-portal/internal/repository"
)

// uniqueColumns are the UNIQUE columns the services need to tell apart.
// SQLite names the violated column as "table.column" in the error text.
var uniqueColumns = []string{
	repository.ConstraintProfileHandle,
	repository.ConstraintAccountEmail,
	"accounts.github_id",
}

// constraintFromError translates a UNIQUE violation into a
// *repository.ConstraintError naming the column. Any other error is returned
// unchanged.
//
// HOW THE VIOLATION IS DETECTED:
// The driver's typed error carries the extended result code, which is the
// reliable signal. The message check covers errors that were wrapped into a
// plain string somewhere along the way. The column itself is only ever
// reported in the message, so that part is always read from the text.
func constraintFromError(err error) error {
	if !isUniqueViolation(err) {
		return err
	}
	message := strings.ToLower(err.Error())
	for _, column := range uniqueColumns {
		if strings.Contains(message, column) {
			return &repository.ConstraintError{Constraint: column, Err: err}
		}
	}
	return &repository.ConstraintError{Constraint: "unknown", Err: err}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
