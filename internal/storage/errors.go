package storage

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// Store errors. Absent rows are not errors: getters return nil, nil.
var (
	ErrDuplicateKey       = errors.New("record with this key already exists")
	ErrInvalidBook        = errors.New("book requires an id and a title")
	ErrInvalidCollection  = errors.New("collection requires an id and a name")
	ErrInvalidColor       = errors.New("unknown highlight color")
	ErrBookNotFound       = errors.New("book not found")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrUnknownIndex       = errors.New("unknown index")
	ErrSchemaTooNew       = errors.New("database schema is newer than this build")
)

// isUniqueViolation reports whether err is a primary key or unique constraint failure
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
