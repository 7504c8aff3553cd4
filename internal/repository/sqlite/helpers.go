package sqlite

import (
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"
)

// Helper definitions shared across repository implementations

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

// isConstraintErr reports whether err is a SQLite unique/primary-key
// constraint violation.
func isConstraintErr(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
